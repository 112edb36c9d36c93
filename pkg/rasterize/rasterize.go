// Package rasterize renders single PDF pages to PNG images using the
// poppler pdftoppm tool, which must be installed on the system.
package rasterize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const DefaultDPI = 300

var ErrUnavailable = errors.New("pdftoppm not found; install poppler-utils")

type Converter struct {
	binary string

	dpi int
}

type Option func(*Converter)

func WithBinary(path string) Option {
	return func(c *Converter) {
		c.binary = path
	}
}

func WithDPI(dpi int) Option {
	return func(c *Converter) {
		c.dpi = dpi
	}
}

func New(options ...Option) (*Converter, error) {
	c := &Converter{
		binary: "pdftoppm",

		dpi: DefaultDPI,
	}

	for _, option := range options {
		option(c)
	}

	path, err := exec.LookPath(c.binary)

	if err != nil {
		return nil, ErrUnavailable
	}

	c.binary = path

	return c, nil
}

// Page renders the given 1-indexed page of a PDF file to a PNG next to the
// source file and returns its path.
func (c *Converter) Page(ctx context.Context, path string, page int) (string, error) {
	if page < 1 {
		return "", fmt.Errorf("invalid page number %d", page)
	}

	prefix := strings.TrimSuffix(path, filepath.Ext(path))

	cmd := exec.CommandContext(ctx, c.binary,
		"-png",
		"-singlefile",
		"-r", strconv.Itoa(c.dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		path, prefix)

	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(output)))
	}

	result := prefix + ".png"

	if _, err := os.Stat(result); err != nil {
		return "", fmt.Errorf("no image produced for page %d", page)
	}

	return result, nil
}
