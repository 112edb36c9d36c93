//go:build ocr

// Package ocr extracts text from cropped field regions using the Tesseract
// engine via gosseract. Tesseract must be installed on the system; rebuild
// with the "ocr" build tag to enable it.
package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Client performs OCR over encoded images. A fresh Tesseract client is
// created per recognition, so a single Client is safe for concurrent use.
type Client struct {
	language string
}

func New() (*Client, error) {
	return &Client{}, nil
}

func (c *Client) Close() error {
	return nil
}

// SetLanguage sets the recognition language(s), "+" separated (e.g. "eng+fra").
func (c *Client) SetLanguage(lang string) error {
	c.language = lang
	return nil
}

// RecognizeImage runs OCR over encoded image data and returns the trimmed text.
func (c *Client) RecognizeImage(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if c.language != "" {
		if err := client.SetLanguage(c.language); err != nil {
			return "", fmt.Errorf("set language: %w", err)
		}
	}

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()

	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}

	return strings.TrimSpace(text), nil
}
