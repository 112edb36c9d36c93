package onnx

import (
	"bytes"
	"image"

	xdraw "golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// letterbox records how a source image was fitted into the model input so
// that predicted boxes can be mapped back to source pixel coordinates.
type letterbox struct {
	scale float64

	padX float64
	padY float64

	srcWidth  int
	srcHeight int
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))

	if err != nil {
		return nil, err
	}

	return img, nil
}

// prepare scales the image into a width x height canvas, preserving aspect
// ratio and padding the remainder with neutral gray, and returns the pixels
// as a normalized NCHW float32 slice.
func prepare(img image.Image, width, height int) ([]float32, letterbox) {
	bounds := img.Bounds()

	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	scale := min(float64(width)/float64(srcWidth), float64(height)/float64(srcHeight))

	scaledWidth := int(float64(srcWidth) * scale)
	scaledHeight := int(float64(srcHeight) * scale)

	padX := float64(width-scaledWidth) / 2
	padY := float64(height-scaledHeight) / 2

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))

	for i := range canvas.Pix {
		canvas.Pix[i] = 114
	}

	target := image.Rect(int(padX), int(padY), int(padX)+scaledWidth, int(padY)+scaledHeight)
	xdraw.ApproxBiLinear.Scale(canvas, target, img, bounds, xdraw.Src, nil)

	data := make([]float32, 3*width*height)

	area := width * height

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := canvas.RGBAAt(x, y)

			idx := y*width + x

			data[idx] = float32(c.R) / 255
			data[area+idx] = float32(c.G) / 255
			data[2*area+idx] = float32(c.B) / 255
		}
	}

	return data, letterbox{
		scale: scale,

		padX: padX,
		padY: padY,

		srcWidth:  srcWidth,
		srcHeight: srcHeight,
	}
}
