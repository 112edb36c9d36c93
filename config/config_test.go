package config_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/passlens/passlens/config"

	"github.com/stretchr/testify/require"
)

func modelServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestNew(t *testing.T) {
	server := modelServer(t)
	uploads := filepath.Join(t.TempDir(), "uploads")

	path := writeConfig(t, `
address: ":9090"
uploads: `+uploads+`

detector:
  type: remote
  url: `+server.URL+`
  threshold: 0.4
`)

	cfg, err := config.New(path)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Address)

	require.Equal(t, uploads, cfg.UploadDir)
	require.Equal(t, filepath.Join(uploads, "extracted"), cfg.ExtractedDir)

	require.Equal(t, int64(50<<20), cfg.MaxUploadSize)
	require.InDelta(t, 0.4, cfg.Threshold, 1e-9)

	require.NotNil(t, cfg.Detector)
	require.Equal(t, "remote", cfg.Detector.Info().ModelType)

	require.NotNil(t, cfg.Mapper)

	// The upload directory is created on startup.
	info, err := os.Stat(uploads)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestNewEnvOverrides(t *testing.T) {
	server := modelServer(t)
	uploads := filepath.Join(t.TempDir(), "uploads")

	t.Setenv("PORT", "7070")
	t.Setenv("UPLOAD_DIR", uploads)
	t.Setenv("DETECTOR_TYPE", "remote")
	t.Setenv("INFERENCE_URL", server.URL)
	t.Setenv("CONFIDENCE_THRESHOLD", "0.6")

	cfg, err := config.New("")
	require.NoError(t, err)

	require.Equal(t, ":7070", cfg.Address)
	require.Equal(t, uploads, cfg.UploadDir)
	require.InDelta(t, 0.6, cfg.Threshold, 1e-9)
}

func TestNewCustomFields(t *testing.T) {
	server := modelServer(t)
	uploads := filepath.Join(t.TempDir(), "uploads")

	path := writeConfig(t, `
uploads: `+uploads+`

detector:
  type: remote
  url: `+server.URL+`

fields:
  0:
    name: photo
    kind: image
  2:
    name: passport_number
    kind: text
`)

	_, err := config.New(path)
	require.NoError(t, err)
}

func TestNewInvalidFields(t *testing.T) {
	server := modelServer(t)

	path := writeConfig(t, `
detector:
  type: remote
  url: `+server.URL+`

fields:
  0:
    name: photo
    kind: video
`)

	_, err := config.New(path)
	require.Error(t, err)
}

func TestNewInvalidDetectorType(t *testing.T) {
	path := writeConfig(t, `
detector:
  type: quantum
`)

	_, err := config.New(path)

	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid detector type")
}

func TestNewMissingFile(t *testing.T) {
	_, err := config.New(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
