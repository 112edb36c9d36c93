package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/passlens/passlens/pkg/detector"
	"github.com/passlens/passlens/pkg/detector/onnx"
	"github.com/passlens/passlens/pkg/detector/remote"
)

type detectorConfig struct {
	Type string `yaml:"type"`

	// Model and Library configure the local ONNX backend.
	Model   string `yaml:"model"`
	Library string `yaml:"library"`

	// URL configures the remote model-server backend.
	URL string `yaml:"url"`

	Threshold float64 `yaml:"threshold"`
}

func registerDetector(cfg detectorConfig) (detector.Provider, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "yolo", "onnx":
		return onnxDetector(cfg)

	case "remote":
		return remoteDetector(cfg)

	case "auto":
		return autoDetector(cfg)

	default:
		return nil, errors.New("invalid detector type: " + cfg.Type)
	}
}

func onnxDetector(cfg detectorConfig) (detector.Provider, error) {
	var options []onnx.Option

	if cfg.Library != "" {
		options = append(options, onnx.WithLibrary(cfg.Library))
	}

	return onnx.New(cfg.Model, options...)
}

func remoteDetector(cfg detectorConfig) (detector.Provider, error) {
	return remote.New(cfg.URL)
}

// autoDetector prefers the local model and falls back to a configured model
// server when the model cannot be loaded.
func autoDetector(cfg detectorConfig) (detector.Provider, error) {
	provider, err := onnxDetector(cfg)

	if err == nil {
		return provider, nil
	}

	if cfg.URL == "" {
		return nil, err
	}

	slog.Warn("local model unavailable, falling back to model server", "error", err)

	provider, remoteErr := remoteDetector(cfg)

	if remoteErr != nil {
		return nil, fmt.Errorf("no usable detector backend: %w", errors.Join(err, remoteErr))
	}

	return provider, nil
}
