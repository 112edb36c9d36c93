package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/passlens/passlens/pkg/detector"
	"github.com/passlens/passlens/pkg/fields"
	"github.com/passlens/passlens/pkg/ocr"
	"github.com/passlens/passlens/pkg/rasterize"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Address string

	UploadDir    string
	ExtractedDir string
	PublicDir    string

	MaxUploadSize int64

	Threshold float64

	Detector  detector.Provider
	Mapper    *fields.Mapper
	Converter *rasterize.Converter
}

type configFile struct {
	Address string `yaml:"address"`

	Uploads string `yaml:"uploads"`
	Public  string `yaml:"public"`

	MaxUploadSize int64 `yaml:"max_upload_size"`

	Detector detectorConfig `yaml:"detector"`

	OCR ocrConfig `yaml:"ocr"`

	Fields map[int]fields.Field `yaml:"fields"`
}

type ocrConfig struct {
	Language string `yaml:"language"`
}

// New assembles the service configuration from an optional YAML file and
// environment variable overrides, constructs the detector backend and field
// mapper, and validates the field table. Construction failures here are
// startup-fatal by design.
func New(path string) (*Config, error) {
	file := configFile{
		Address: ":8080",

		Uploads: "uploads",
		Public:  "public",

		MaxUploadSize: 50 << 20,

		Detector: detectorConfig{
			Type: "yolo",

			Model:     "models/passport_layout.onnx",
			Threshold: 0.25,
		},

		OCR: ocrConfig{
			Language: "eng",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)

		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&file)

	table := fields.DefaultTable()

	if len(file.Fields) > 0 {
		table = fields.Table(file.Fields)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}

	provider, err := registerDetector(file.Detector)

	if err != nil {
		return nil, err
	}

	if pinger, ok := provider.(detector.Pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			slog.Warn("model server not reachable", "error", err)
		}
	}

	cfg := &Config{
		Address: file.Address,

		UploadDir:    file.Uploads,
		ExtractedDir: filepath.Join(file.Uploads, "extracted"),
		PublicDir:    file.Public,

		MaxUploadSize: file.MaxUploadSize,

		Threshold: file.Detector.Threshold,

		Detector: provider,
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, err
	}

	options := []fields.MapperOption{}

	recognizer, err := ocr.New()

	if err != nil {
		if !errors.Is(err, ocr.ErrNotEnabled) {
			return nil, err
		}

		slog.Warn("ocr disabled, text fields will not be recognized", "error", err)
	} else {
		if file.OCR.Language != "" {
			if err := recognizer.SetLanguage(file.OCR.Language); err != nil {
				slog.Warn("invalid ocr language, using the default", "language", file.OCR.Language, "error", err)
			}
		}

		options = append(options, fields.WithRecognizer(recognizer))
	}

	mapper, err := fields.NewMapper(table, cfg.ExtractedDir, options...)

	if err != nil {
		return nil, err
	}

	cfg.Mapper = mapper

	converter, err := rasterize.New()

	if err != nil {
		slog.Warn("pdf support disabled", "error", err)
	} else {
		cfg.Converter = converter
	}

	return cfg, nil
}

func applyEnv(file *configFile) {
	if val := os.Getenv("PORT"); val != "" {
		file.Address = ":" + val
	}

	if val := os.Getenv("ADDRESS"); val != "" {
		file.Address = val
	}

	if val := os.Getenv("UPLOAD_DIR"); val != "" {
		file.Uploads = val
	}

	if val := os.Getenv("DETECTOR_TYPE"); val != "" {
		file.Detector.Type = val
	}

	if val := os.Getenv("MODEL_PATH"); val != "" {
		file.Detector.Model = val
	}

	if val := os.Getenv("ONNXRUNTIME_LIB"); val != "" {
		file.Detector.Library = val
	}

	if val := os.Getenv("INFERENCE_URL"); val != "" {
		file.Detector.URL = val
	}

	if val := os.Getenv("CONFIDENCE_THRESHOLD"); val != "" {
		if threshold, err := strconv.ParseFloat(val, 64); err == nil {
			file.Detector.Threshold = threshold
		}
	}
}
