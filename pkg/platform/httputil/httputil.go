package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "tuition/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope written by every process.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
// Errors that are not domain errors are reported as internal without leaking their text.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Error:            DomainCodeToHTTPCode(domainErr.Code),
			ErrorDescription: domainErr.Message,
		})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: DomainCodeToHTTPCode(dErrors.CodeInternal),
	})
}

// StatusClientClosedRequest is the non-standard status logged when the
// caller went away before the answer was ready.
const StatusClientClosedRequest = 499

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound, dErrors.CodeNoRoute:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeDuplicateEmail:
		return http.StatusConflict
	case dErrors.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case dErrors.CodeCanceled:
		return StatusClientClosedRequest
	case dErrors.CodeTimeout:
		return http.StatusServiceUnavailable
	case dErrors.CodeUpstreamUnavailable:
		return http.StatusBadGateway
	case dErrors.CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the "error" field of the envelope.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return "invalid_input"
	case dErrors.CodeValidation:
		return "validation_error"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeDuplicateEmail:
		return "duplicate_email"
	case dErrors.CodeTooLarge:
		return "request_too_large"
	case dErrors.CodeCanceled:
		return "request_canceled"
	case dErrors.CodeTimeout:
		return "request_timeout"
	case dErrors.CodeNoRoute:
		return "no_route"
	case dErrors.CodeUpstreamUnavailable:
		return "upstream_unavailable"
	case dErrors.CodeUpstreamTimeout:
		return "upstream_timeout"
	default:
		return "internal_error"
	}
}

// CodeFromHTTPCode is the inverse of DomainCodeToHTTPCode, used by clients
// reading an error envelope back off the wire.
func CodeFromHTTPCode(code string) dErrors.Code {
	switch code {
	case "not_found":
		return dErrors.CodeNotFound
	case "invalid_input":
		return dErrors.CodeInvalidInput
	case "validation_error":
		return dErrors.CodeValidation
	case "conflict":
		return dErrors.CodeConflict
	case "duplicate_email":
		return dErrors.CodeDuplicateEmail
	case "request_too_large":
		return dErrors.CodeTooLarge
	case "request_canceled":
		return dErrors.CodeCanceled
	case "request_timeout":
		return dErrors.CodeTimeout
	case "no_route":
		return dErrors.CodeNoRoute
	case "upstream_unavailable":
		return dErrors.CodeUpstreamUnavailable
	case "upstream_timeout":
		return dErrors.CodeUpstreamTimeout
	default:
		return dErrors.CodeInternal
	}
}
