package models

import (
	"errors"
	"fmt"
	"reflect"
)

// FailureClass groups failure reasons by the stage that produced them.
type FailureClass string

const (
	ClassProvider   FailureClass = "ProviderFailure"
	ClassExtraction FailureClass = "ExtractionFailure"
	ClassSchema     FailureClass = "SchemaFailure"
	ClassMonitor    FailureClass = "MonitorFailure"
)

// Extraction reasons.
const (
	ReasonEmptyResult            = "EmptyResult"
	ReasonCloseNotFoundForSymbol = "CloseNotFoundForSymbol"
	ReasonCloseMissing           = "CloseMissing"
	ReasonNoNumericClose         = "NoNumericClose"
	ReasonNonPositive            = "NonPositive"
	ReasonExtractErrPrefix       = "ExtractErr:"
	ReasonUnknown                = "Unknown"
)

// Schema reasons.
const (
	ReasonHeaderMismatch = "header_mismatch"
	ReasonReadFail       = "read_fail"
	ReasonParseFail      = "parse_fail"
)

// Monitor reasons.
const (
	ReasonNoFile      = "NoFile"
	ReasonEmptyFile   = "EmptyFile"
	ReasonUnparseable = "Unparseable"
)

// Failure is a classified, reason-carrying error. Reason is what ends up in
// log columns; Err keeps the underlying cause for diagnostics.
type Failure struct {
	Class  FailureClass
	Reason string
	Err    error
}

func NewFailure(class FailureClass, reason string, err error) *Failure {
	return &Failure{Class: class, Reason: reason, Err: err}
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Class, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Class, f.Reason)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ReasonOf turns any error into a log-friendly reason string.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	var r interface{ Reason() string }
	if errors.As(err, &r) {
		return r.Reason()
	}
	return err.Error()
}

// IsClass reports whether err carries a Failure of the given class.
func IsClass(err error, class FailureClass) bool {
	var f *Failure
	return errors.As(err, &f) && f.Class == class
}

// KindOf names the dynamic type of an error or panic value without its
// package path, e.g. "PathError" or "boundsError".
func KindOf(v any) string {
	if v == nil {
		return "nil"
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.Kind().String()
}
