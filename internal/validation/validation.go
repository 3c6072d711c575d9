// Package validation aggregates multiple validation failures into one
// error so a caller sees everything wrong with their input at once.
package validation

import (
	"errors"
	"fmt"
)

type Error struct {
	Errors []error `json:"errors"`
}

func (e *Error) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *Error) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrOrNil returns the aggregate as an error, or nil when nothing was
// collected. Always return through this; a typed nil *Error stored in an
// error interface is non-nil.
func (e *Error) ErrOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *Error) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf("%v", errors.Join(e.Errors...))
}

func (e *Error) Unwrap() []error {
	return e.Errors
}
