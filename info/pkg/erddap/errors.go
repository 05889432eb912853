package erddap

import (
	"fmt"
	"net/http"
)

// StatusError is returned when an ERDDAP server answers with a non-200
// status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("erddap: GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// StatusCode lets retry.IsRetryable classify the response.
func (e *StatusError) StatusCode() int {
	return e.Code
}

// FetchError wraps any failure to download or decode a response from an
// ERDDAP server.
type FetchError struct {
	Kind string
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
