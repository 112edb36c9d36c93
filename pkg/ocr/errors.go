package ocr

import "errors"

// ErrNotEnabled is returned when OCR support was not compiled in.
var ErrNotEnabled = errors.New("ocr support not enabled; rebuild with -tags ocr")
