package httputil

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tally/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok, "internal errors must not expose a description")
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid input"))

		require.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "bad_request", body["error"])
		assert.Equal(t, "invalid input", body["error_description"])
	})

	t.Run("invalid transition maps to conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidTransition, "expired records are terminal"))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown errors are internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, io.ErrUnexpectedEOF)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

type sampleRequest struct {
	WaiterID string `json:"waiter_id" validate:"required"`
	Method   string `json:"method" validate:"omitempty,oneof=Cash Card"`

	parsed bool
}

func (r *sampleRequest) Validate() error {
	if strings.TrimSpace(r.WaiterID) == "nobody" {
		return dErrors.New(dErrors.CodeUnknownWaiter, "waiter not registered")
	}
	r.parsed = true
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	decode := func(body string) (*sampleRequest, *httptest.ResponseRecorder) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req, _ := DecodeAndPrepare[sampleRequest](w, r, logger, context.Background(), "req-1")
		return req, w
	}

	t.Run("valid body is parsed", func(t *testing.T) {
		req, w := decode(`{"waiter_id":"w-1","method":"Cash"}`)
		require.NotNil(t, req)
		assert.True(t, req.parsed)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		req, w := decode(`{"waiter_id":`)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		req, w := decode(`{"waiter_id":"w-1","extra":true}`)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("struct tag failure names the field", func(t *testing.T) {
		req, w := decode(`{"method":"Cash"}`)
		assert.Nil(t, req)
		require.Equal(t, http.StatusBadRequest, w.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "validation_error", body["error"])
		assert.Equal(t, "waiter_id is required", body["error_description"])
	})

	t.Run("oneof failure", func(t *testing.T) {
		_, w := decode(`{"waiter_id":"w-1","method":"Cheque"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("domain validation error keeps its code", func(t *testing.T) {
		_, w := decode(`{"waiter_id":"nobody"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
