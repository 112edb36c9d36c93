package server

import (
	"github.com/passlens/passlens/pkg/detector"
)

type ExtractResponse struct {
	Success bool `json:"success"`

	Fields map[string]FieldValue `json:"fields"`

	Detections []detector.Detection `json:"detections,omitempty"`

	Metadata Metadata `json:"metadata"`

	ModelType string `json:"model_type"`

	Message string `json:"message,omitempty"`
}

type FieldValue struct {
	// Value holds the recognized text for text fields; URL points at the
	// crop for image fields.
	Value string `json:"value,omitempty"`
	URL   string `json:"url,omitempty"`

	Confidence float64 `json:"confidence"`

	Box *detector.Box `json:"bbox,omitempty"`
}

type Metadata struct {
	Filename string `json:"filename"`
	FileType string `json:"file_type"`

	// PageNumber is null for non-PDF uploads.
	PageNumber *int `json:"page_number"`
}

type HealthResponse struct {
	Status string `json:"status"`

	ModelLoaded bool   `json:"model_loaded"`
	ModelType   string `json:"model_type"`
	Device      string `json:"device"`
}

type CleanupResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type ErrorResponse struct {
	Success bool `json:"success"`

	Error string `json:"error"`
}
