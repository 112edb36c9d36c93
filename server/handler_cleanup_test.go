package server_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/passlens/passlens/server"

	"github.com/stretchr/testify/require"
)

func TestCleanup(t *testing.T) {
	ts, uploads := newTestServer(t, &stubDetector{})

	for _, name := range []string{"a.png", "b.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(uploads, name), []byte("stale"), 0o644))
	}

	crop := filepath.Join(uploads, "extracted", "photo_12345678.png")
	require.NoError(t, os.WriteFile(crop, []byte("crop"), 0o644))

	req, err := http.NewRequest("DELETE", ts.URL+"/cleanup", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[server.CleanupResponse](t, resp.Body)

	require.Equal(t, 2, result.Count)
	require.Equal(t, "Cleaned up 2 files", result.Message)

	// Crops survive a cleanup.
	_, err = os.Stat(crop)
	require.NoError(t, err)
}

func TestCleanupEmpty(t *testing.T) {
	ts, _ := newTestServer(t, &stubDetector{})

	req, err := http.NewRequest("DELETE", ts.URL+"/cleanup", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := decode[server.CleanupResponse](t, resp.Body)
	require.Zero(t, result.Count)
}
