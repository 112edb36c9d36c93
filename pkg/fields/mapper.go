package fields

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/passlens/passlens/pkg/detector"

	"github.com/google/uuid"
)

// NotDetected is the value of a text field whose region yielded no readable
// text.
const NotDetected = "Not detected"

// Recognizer turns an encoded image crop into text.
type Recognizer interface {
	RecognizeImage(data []byte) (string, error)
}

type Result struct {
	Name string
	Kind Kind

	// Value holds the recognized text for text fields.
	Value string

	// CropFile is the crop filename within the mapper output directory for
	// image fields.
	CropFile string

	Confidence float64

	Box detector.Box
}

type Mapper struct {
	table  Table
	output string

	ocr Recognizer

	logger *slog.Logger
}

type MapperOption func(*Mapper)

func WithRecognizer(r Recognizer) MapperOption {
	return func(m *Mapper) {
		m.ocr = r
	}
}

func WithLogger(logger *slog.Logger) MapperOption {
	return func(m *Mapper) {
		m.logger = logger
	}
}

func NewMapper(table Table, output string, options ...MapperOption) (*Mapper, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("field table: %w", err)
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return nil, err
	}

	m := &Mapper{
		table:  table,
		output: output,

		logger: slog.Default(),
	}

	for _, option := range options {
		option(m)
	}

	return m, nil
}

// Map resolves detections to named fields. Detections with unmapped class
// ids are dropped with a warning. If several detections resolve to the same
// field, the one with the highest confidence wins. An empty input produces
// an empty, non-nil map.
func (m *Mapper) Map(ctx context.Context, img image.Image, detections []detector.Detection) (map[string]Result, error) {
	winners := map[int]detector.Detection{}

	for _, d := range detections {
		if _, ok := m.table[d.ClassID]; !ok {
			m.logger.Warn("dropping detection with unmapped class", "class_id", d.ClassID, "confidence", d.Confidence)
			continue
		}

		if current, ok := winners[d.ClassID]; ok && current.Confidence >= d.Confidence {
			continue
		}

		winners[d.ClassID] = d
	}

	results := map[string]Result{}

	for id, d := range winners {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		field := m.table[id]

		crop, err := encodeCrop(img, d.Box)

		if err != nil {
			return nil, fmt.Errorf("crop %s: %w", field.Name, err)
		}

		result := Result{
			Name: field.Name,
			Kind: field.Kind,

			Confidence: d.Confidence,

			Box: d.Box,
		}

		switch field.Kind {
		case KindImage:
			name := fmt.Sprintf("%s_%s.png", field.Name, uuid.NewString()[:8])

			if err := os.WriteFile(filepath.Join(m.output, name), crop, 0o644); err != nil {
				return nil, fmt.Errorf("write crop %s: %w", field.Name, err)
			}

			result.CropFile = name

		case KindText:
			result.Value = m.recognize(field.Name, crop)
		}

		results[field.Name] = result
	}

	return results, nil
}

func (m *Mapper) recognize(name string, crop []byte) string {
	if m.ocr == nil {
		return NotDetected
	}

	text, err := m.ocr.RecognizeImage(crop)

	if err != nil {
		m.logger.Warn("ocr failed", "field", name, "error", err)
		return NotDetected
	}

	if text == "" {
		return NotDetected
	}

	return text
}

// encodeCrop extracts the box region from the source image as PNG data. The
// box is clamped to the image bounds.
func encodeCrop(img image.Image, box detector.Box) ([]byte, error) {
	bounds := img.Bounds()

	rect := image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2)).
		Add(bounds.Min).
		Intersect(bounds)

	if rect.Empty() {
		return nil, fmt.Errorf("region %v lies outside the image", box)
	}

	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), img, rect.Min, draw.Src)

	var buf bytes.Buffer

	if err := png.Encode(&buf, crop); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
