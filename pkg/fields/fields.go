// Package fields maps raw detections onto named passport fields and extracts
// their values, either as image crops or as OCR text.
package fields

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindImage Kind = "image"
	KindText  Kind = "text"
)

type Field struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Table maps a model class id to its semantic field. It is fixed at process
// start and never mutated afterwards.
type Table map[int]Field

func DefaultTable() Table {
	return Table{
		0: {Name: "photo", Kind: KindImage},
		1: {Name: "signature", Kind: KindImage},
	}
}

func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.New("field table is empty")
	}

	names := map[string]int{}

	for id, field := range t {
		if id < 0 {
			return fmt.Errorf("invalid class id %d", id)
		}

		if field.Name == "" {
			return fmt.Errorf("class %d: field name is empty", id)
		}

		if field.Kind != KindImage && field.Kind != KindText {
			return fmt.Errorf("class %d (%s): unknown kind %q", id, field.Name, field.Kind)
		}

		if other, ok := names[field.Name]; ok {
			return fmt.Errorf("field name %q used by classes %d and %d", field.Name, other, id)
		}

		names[field.Name] = id
	}

	return nil
}
