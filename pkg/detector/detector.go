package detector

import (
	"context"
	"errors"
)

type Provider interface {
	Detect(ctx context.Context, image []byte, options *DetectOptions) ([]Detection, error)

	Info() Info
}

var (
	ErrInvalidImage = errors.New("invalid or undecodable image")
	ErrModelLoad    = errors.New("model could not be loaded")
)

// Pinger is implemented by backends that can verify their readiness, such as
// a remote model server.
type Pinger interface {
	Ping(ctx context.Context) error
}

type DetectOptions struct {
	Threshold *float64
}

// Box is an axis-aligned bounding box in pixel coordinates of the source
// image. X1 < X2 and Y1 < Y2 always hold for boxes returned by a Provider.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func (b Box) Width() float64 {
	return b.X2 - b.X1
}

func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// IoU returns the intersection-over-union of two boxes, in [0, 1].
func (b Box) IoU(other Box) float64 {
	x1 := max(b.X1, other.X1)
	y1 := max(b.Y1, other.Y1)
	x2 := min(b.X2, other.X2)
	y2 := min(b.Y2, other.Y2)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := b.Area() + other.Area() - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// Detection is one predicted object instance. Detections are request-scoped
// and ordered by descending confidence.
type Detection struct {
	ClassID int `json:"class_id"`

	Confidence float64 `json:"confidence"`

	Box Box `json:"bbox"`
}

type Info struct {
	ModelType string `json:"model_type"`
	Device    string `json:"device"`

	ModelLoaded bool `json:"model_loaded"`
}

func Threshold(val float64) *float64 {
	return &val
}
