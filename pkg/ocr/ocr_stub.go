//go:build !ocr

// Package ocr extracts text from cropped field regions using the Tesseract
// engine via gosseract.
//
// This is the stub used when the "ocr" build tag is not set; all operations
// return ErrNotEnabled and text fields resolve to their fallback value.
// Rebuild with:
//
//	go build -tags ocr
package ocr

type Client struct{}

func New() (*Client, error) {
	return nil, ErrNotEnabled
}

func (c *Client) Close() error {
	return nil
}

func (c *Client) SetLanguage(lang string) error {
	return ErrNotEnabled
}

func (c *Client) RecognizeImage(data []byte) (string, error) {
	return "", ErrNotEnabled
}
