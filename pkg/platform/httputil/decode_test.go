package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "tuition/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentBody struct {
	UserID *int64   `json:"userId"`
	Amount *float64 `json:"amount"`
}

type registerBody struct {
	Email      string `json:"email"`
	normalized bool
}

func (r *registerBody) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.normalized = true
}

func (r *registerBody) Validate() error {
	if r.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

type lookupBody struct {
	ID int64 `json:"id"`
}

func (r *lookupBody) Validate() error {
	if r.ID <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "id must be positive")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDecodeJSON(t *testing.T) {
	logger := discardLogger()

	t.Run("decodes numbers into typed fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/payment", bytes.NewBufferString(`{"userId":1,"amount":500}`))
		rec := httptest.NewRecorder()

		result, ok := DecodeJSON[paymentBody](rec, req, logger)

		require.True(t, ok)
		require.NotNil(t, result.UserID)
		assert.Equal(t, int64(1), *result.UserID)
		assert.Equal(t, 500.0, *result.Amount)
	})

	t.Run("string where a number is expected is invalid input", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/payment", bytes.NewBufferString(`{"userId":1,"amount":"lots"}`))
		rec := httptest.NewRecorder()

		result, ok := DecodeJSON[paymentBody](rec, req, logger)

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_input", decodeError(t, rec).Error)
	})

	t.Run("empty body is invalid input", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(""))
		rec := httptest.NewRecorder()

		_, ok := DecodeJSON[paymentBody](rec, req, logger)

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "request body is empty", decodeError(t, rec).ErrorDescription)
	})

	t.Run("type mismatches name the field", func(t *testing.T) {
		cases := map[string]string{
			`{"userId":1,"amount":"lots"}`: "amount must be a number",
			`{"userId":1.5,"amount":500}`:  "userId must be an integer",
			`{"userId":"1","amount":500}`:  "userId must be an integer",
		}
		for body, want := range cases {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
			rec := httptest.NewRecorder()

			_, ok := DecodeJSON[paymentBody](rec, req, logger)

			assert.False(t, ok, body)
			assert.Equal(t, want, decodeError(t, rec).ErrorDescription, body)
		}
	})

	t.Run("malformed and trailing JSON are rejected", func(t *testing.T) {
		for _, body := range []string{`{"userId":`, `userId=1`, `{"userId":1}{"userId":2}`} {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
			rec := httptest.NewRecorder()

			_, ok := DecodeJSON[paymentBody](rec, req, logger)

			assert.False(t, ok, body)
			assert.Equal(t, "invalid_input", decodeError(t, rec).Error, body)
		}
	})

	t.Run("oversized body maps to 413", func(t *testing.T) {
		body := `{"email":"` + strings.Repeat("a", 100) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		req.Body = http.MaxBytesReader(rec, req.Body, 16)

		_, ok := DecodeJSON[registerBody](rec, req, logger)

		assert.False(t, ok)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "request_too_large", decodeError(t, rec).Error)
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := discardLogger()

	t.Run("normalizes before validating", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"email":"  Ana@X.com "}`))
		rec := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[registerBody](rec, req, logger)

		require.True(t, ok)
		assert.True(t, result.normalized)
		assert.Equal(t, "ana@x.com", result.Email)
	})

	t.Run("plain validation error becomes validation_error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"email":"   "}`))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[registerBody](rec, req, logger)

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Contains(t, resp.ErrorDescription, "email is required")
	})

	t.Run("domain error code from Validate is preserved", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"id":0}`))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[lookupBody](rec, req, logger)

		assert.False(t, ok)
		resp := decodeError(t, rec)
		assert.Equal(t, "invalid_input", resp.Error)
		assert.Equal(t, "id must be positive", resp.ErrorDescription)
	})
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		code   dErrors.Code
		status int
		wire   string
	}{
		{dErrors.CodeDuplicateEmail, http.StatusConflict, "duplicate_email"},
		{dErrors.CodeInvalidInput, http.StatusBadRequest, "invalid_input"},
		{dErrors.CodeNoRoute, http.StatusNotFound, "no_route"},
		{dErrors.CodeUpstreamUnavailable, http.StatusBadGateway, "upstream_unavailable"},
		{dErrors.CodeUpstreamTimeout, http.StatusGatewayTimeout, "upstream_timeout"},
		{dErrors.CodeCanceled, StatusClientClosedRequest, "request_canceled"},
		{dErrors.CodeTimeout, http.StatusServiceUnavailable, "request_timeout"},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, dErrors.New(tc.code, "details"))

			assert.Equal(t, tc.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tc.wire, resp.Error)
			assert.Equal(t, "details", resp.ErrorDescription)
			assert.Equal(t, tc.code, CodeFromHTTPCode(resp.Error))
		})
	}

	t.Run("non-domain errors do not leak their message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("pq: connection reset"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, "internal_error", resp.Error)
		assert.Empty(t, resp.ErrorDescription)
	})
}
