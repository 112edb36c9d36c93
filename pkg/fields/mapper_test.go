package fields_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/passlens/passlens/pkg/detector"
	"github.com/passlens/passlens/pkg/fields"

	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	text string
	err  error

	calls int
}

func (r *fakeRecognizer) RecognizeImage(data []byte) (string, error) {
	r.calls++
	return r.text, r.err
}

func testImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}

	return img
}

func newMapper(t *testing.T, table fields.Table, options ...fields.MapperOption) (*fields.Mapper, string) {
	t.Helper()

	dir := t.TempDir()

	mapper, err := fields.NewMapper(table, dir, options...)
	require.NoError(t, err)

	return mapper, dir
}

func TestMapEmptyDetections(t *testing.T) {
	mapper, _ := newMapper(t, fields.DefaultTable())

	results, err := mapper.Map(context.Background(), testImage(200, 200), nil)

	require.NoError(t, err)
	require.NotNil(t, results)
	require.Empty(t, results)
}

func TestMapCropsImageField(t *testing.T) {
	mapper, dir := newMapper(t, fields.DefaultTable())

	detections := []detector.Detection{
		{ClassID: 0, Confidence: 0.9, Box: detector.Box{X1: 10, Y1: 20, X2: 60, Y2: 100}},
	}

	results, err := mapper.Map(context.Background(), testImage(200, 200), detections)
	require.NoError(t, err)

	require.Len(t, results, 1)

	result := results["photo"]

	require.Equal(t, "photo", result.Name)
	require.Equal(t, fields.KindImage, result.Kind)
	require.InDelta(t, 0.9, result.Confidence, 1e-9)
	require.NotEmpty(t, result.CropFile)

	data, err := os.ReadFile(filepath.Join(dir, result.CropFile))
	require.NoError(t, err)

	crop, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	require.Equal(t, 50, crop.Bounds().Dx())
	require.Equal(t, 80, crop.Bounds().Dy())
}

func TestMapTieBreak(t *testing.T) {
	mapper, _ := newMapper(t, fields.DefaultTable())

	detections := []detector.Detection{
		{ClassID: 1, Confidence: 0.4, Box: detector.Box{X1: 0, Y1: 0, X2: 50, Y2: 50}},
		{ClassID: 1, Confidence: 0.9, Box: detector.Box{X1: 100, Y1: 100, X2: 150, Y2: 150}},
	}

	results, err := mapper.Map(context.Background(), testImage(200, 200), detections)
	require.NoError(t, err)

	require.Len(t, results, 1)
	require.InDelta(t, 0.9, results["signature"].Confidence, 1e-9)
	require.Equal(t, 100.0, results["signature"].Box.X1)
}

func TestMapUnknownClassDropped(t *testing.T) {
	mapper, _ := newMapper(t, fields.DefaultTable())

	detections := []detector.Detection{
		{ClassID: 0, Confidence: 0.8, Box: detector.Box{X1: 0, Y1: 0, X2: 50, Y2: 50}},
		{ClassID: 42, Confidence: 0.99, Box: detector.Box{X1: 0, Y1: 0, X2: 50, Y2: 50}},
	}

	results, err := mapper.Map(context.Background(), testImage(200, 200), detections)

	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Contains(t, results, "photo")
}

func TestMapTextField(t *testing.T) {
	table := fields.Table{
		2: {Name: "passport_number", Kind: fields.KindText},
	}

	recognizer := &fakeRecognizer{text: "AB1234567"}

	mapper, dir := newMapper(t, table, fields.WithRecognizer(recognizer))

	detections := []detector.Detection{
		{ClassID: 2, Confidence: 0.7, Box: detector.Box{X1: 10, Y1: 10, X2: 190, Y2: 40}},
	}

	results, err := mapper.Map(context.Background(), testImage(200, 200), detections)
	require.NoError(t, err)

	require.Equal(t, "AB1234567", results["passport_number"].Value)
	require.Equal(t, 1, recognizer.calls)
	require.Empty(t, results["passport_number"].CropFile)

	// Text fields leave no crop behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestMapTextFieldFallbacks(t *testing.T) {
	table := fields.Table{
		2: {Name: "passport_number", Kind: fields.KindText},
	}

	detections := []detector.Detection{
		{ClassID: 2, Confidence: 0.7, Box: detector.Box{X1: 10, Y1: 10, X2: 190, Y2: 40}},
	}

	t.Run("no recognizer", func(t *testing.T) {
		mapper, _ := newMapper(t, table)

		results, err := mapper.Map(context.Background(), testImage(200, 200), detections)
		require.NoError(t, err)

		require.Equal(t, fields.NotDetected, results["passport_number"].Value)
	})

	t.Run("recognizer error", func(t *testing.T) {
		mapper, _ := newMapper(t, table, fields.WithRecognizer(&fakeRecognizer{err: errors.New("boom")}))

		results, err := mapper.Map(context.Background(), testImage(200, 200), detections)
		require.NoError(t, err)

		require.Equal(t, fields.NotDetected, results["passport_number"].Value)
	})

	t.Run("empty text", func(t *testing.T) {
		mapper, _ := newMapper(t, table, fields.WithRecognizer(&fakeRecognizer{}))

		results, err := mapper.Map(context.Background(), testImage(200, 200), detections)
		require.NoError(t, err)

		require.Equal(t, fields.NotDetected, results["passport_number"].Value)
	})
}

func TestMapBoxClampedToImage(t *testing.T) {
	mapper, _ := newMapper(t, fields.DefaultTable())

	detections := []detector.Detection{
		{ClassID: 0, Confidence: 0.9, Box: detector.Box{X1: 150, Y1: 150, X2: 400, Y2: 400}},
	}

	results, err := mapper.Map(context.Background(), testImage(200, 200), detections)

	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestNewMapperInvalidTable(t *testing.T) {
	_, err := fields.NewMapper(fields.Table{}, t.TempDir())
	require.Error(t, err)
}
