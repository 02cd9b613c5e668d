package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil cause stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause is reachable through errors.Is", func(t *testing.T) {
		cause := errors.New("disk full")
		err := Wrap(cause, CodeInternal, "failed to persist receipt")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to persist receipt: disk full", err.Error())
	})
}

func TestHasCode(t *testing.T) {
	inner := New(CodeInvalidTransition, "expired records are terminal")
	outer := Wrap(inner, CodeInternal, "sweep failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeInvalidTransition))
	assert.False(t, HasCode(outer, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	assert.True(t, Is(fmt.Errorf("context: %w", inner), CodeInvalidTransition))
	assert.Equal(t, CodeInternal, CodeOf(outer))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:        http.StatusBadRequest,
		CodeNotFound:          http.StatusNotFound,
		CodeInvalidTransition: http.StatusConflict,
		CodeUnknownTenant:     http.StatusUnprocessableEntity,
		CodeUnknownWaiter:     http.StatusUnprocessableEntity,
		CodeInternal:          http.StatusInternalServerError,
		CodeConfiguration:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), string(code))
	}
}
