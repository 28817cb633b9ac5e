package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/requestcontext"
)

// DecodeJSON reads a single JSON object from the body into a T. On failure
// it writes the error envelope itself and returns false.
//
//	req, ok := httputil.DecodeJSON[models.CreatePaymentRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	if err := decodeBody(r.Body, &req); err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "rejected request body",
			"error", err,
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}

func decodeBody(body io.Reader, dst any) error {
	if body == nil || body == http.NoBody {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is empty")
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return describeDecodeError(err)
	}
	if dec.More() {
		return dErrors.New(dErrors.CodeInvalidInput, "request body must hold a single JSON object")
	}
	return nil
}

// describeDecodeError maps decoder failures onto error codes, naming the
// offending field where the decoder knows it.
func describeDecodeError(err error) error {
	var (
		tooLarge  *http.MaxBytesError
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &tooLarge):
		return dErrors.Wrap(err, dErrors.CodeTooLarge, "request body too large")
	case errors.Is(err, io.EOF):
		return dErrors.New(dErrors.CodeInvalidInput, "request body is empty")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("%s must be %s", typeErr.Field, jsonKind(typeErr.Type.Kind().String())))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "request body is not valid JSON")
	default:
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid request body")
	}
}

func jsonKind(kind string) string {
	switch kind {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return "an integer"
	case "float32", "float64":
		return "a number"
	case "string":
		return "a string"
	case "bool":
		return "a boolean"
	default:
		return "a " + kind
	}
}

// Validatable is implemented by request types that check themselves.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that tidy their fields
// before validation.
type Normalizable interface {
	Normalize()
}

// PrepareRequest normalizes, then validates.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	v, ok := req.(Validatable)
	if !ok {
		return nil
	}
	err := v.Validate()
	if err == nil {
		return nil
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
}

// DecodeAndPrepare is DecodeJSON followed by PrepareRequest.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger)
	if !ok {
		return nil, false
	}
	if err := PrepareRequest(req); err != nil {
		ctx := r.Context()
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
