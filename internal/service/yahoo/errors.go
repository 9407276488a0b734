package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net"

	pkghttp "MarketLog/pkg/http"
)

// Provider error kinds.
const (
	KindTimeout  = "Timeout"
	KindNetwork  = "Network"
	KindDecode   = "Decode"
	KindCanceled = "Canceled"
)

// ProviderError is a classified transport or decoding failure.
type ProviderError struct {
	Kind       string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return "yahoo: " + e.Reason()
	}
	return fmt.Sprintf("yahoo: %s: %v", e.Reason(), e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Reason is the short form written into log columns.
func (e *ProviderError) Reason() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP%d", e.StatusCode)
	}
	return e.Kind
}

func classify(err error) *ProviderError {
	var se *pkghttp.StatusError
	if errors.As(err, &se) {
		return &ProviderError{Kind: fmt.Sprintf("HTTP%d", se.StatusCode), StatusCode: se.StatusCode, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderError{Kind: KindCanceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &ProviderError{Kind: KindTimeout, Err: err}
	}
	return &ProviderError{Kind: KindNetwork, Err: err}
}

func decodeError(format string, a ...interface{}) *ProviderError {
	return &ProviderError{Kind: KindDecode, Err: fmt.Errorf(format, a...)}
}
