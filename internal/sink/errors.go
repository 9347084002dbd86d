package sink

import (
	"errors"
	"fmt"
)

// UploadError distinguishes delivery failures worth retrying (network, 5xx,
// rate limiting) from ones that will fail identically next time (auth,
// validation).
type UploadError struct {
	Transient bool
	Status    int
	Body      string
	Err       error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dune upload: %v", e.Err)
	}
	return fmt.Sprintf("dune upload: status %d: %s", e.Status, e.Body)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var uploadErr *UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.Transient
	}
	return false
}

func newStatusError(status int, body string) *UploadError {
	transient := status == 429 || status >= 500
	return &UploadError{Transient: transient, Status: status, Body: body}
}

func newNetworkError(err error) *UploadError {
	return &UploadError{Transient: true, Err: err}
}
