//go:build !ocr

package ocr_test

import (
	"testing"

	"github.com/passlens/passlens/pkg/ocr"

	"github.com/stretchr/testify/require"
)

func TestStubNew(t *testing.T) {
	_, err := ocr.New()
	require.ErrorIs(t, err, ocr.ErrNotEnabled)
}

func TestStubOperations(t *testing.T) {
	c := &ocr.Client{}

	require.ErrorIs(t, c.SetLanguage("eng"), ocr.ErrNotEnabled)

	_, err := c.RecognizeImage([]byte("data"))
	require.ErrorIs(t, err, ocr.ErrNotEnabled)

	require.NoError(t, c.Close())
}
