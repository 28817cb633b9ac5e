package client

import (
	"errors"
	"fmt"

	dErrors "tuition/pkg/domain-errors"
)

// InfrastructureError means the request never got a verdict from a store:
// the router was unreachable, matched no route, or could not reach or hear
// back from the backend, or the backend itself failed.
type InfrastructureError struct {
	Code       dErrors.Code
	StatusCode int
	Message    string
	Err        error
}

func (e *InfrastructureError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return string(e.Code)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// DomainError is a store's rejection of the request itself, such as a
// duplicate email or a malformed field.
type DomainError struct {
	Code       dErrors.Code
	StatusCode int
	Message    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// IsInfrastructure reports whether err is an InfrastructureError.
func IsInfrastructure(err error) bool {
	var infra *InfrastructureError
	return errors.As(err, &infra)
}

// HasCode reports whether err carries the given code, whichever kind it is.
func HasCode(err error, code dErrors.Code) bool {
	var infra *InfrastructureError
	if errors.As(err, &infra) {
		return infra.Code == code
	}
	var domain *DomainError
	if errors.As(err, &domain) {
		return domain.Code == code
	}
	return false
}
