package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeValidation, http.StatusBadRequest},
		{CodeUpstreamUnavailable, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesCode(t *testing.T) {
	err := NotFoundf("inventory %s not found", "inv-1")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "inventory inv-1 not found", err.Error())
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, CodeUpstreamUnavailable, "rebrickable unavailable")

	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "rebrickable unavailable: connection refused", err.Error())
}

func TestWithDetails(t *testing.T) {
	details := map[string]string{"name": "is required"}
	err := ErrValidation.WithDetails(details)

	assert.Equal(t, details, err.Details)
	assert.Nil(t, ErrValidation.Details, "sentinel is not mutated")
}

func TestWithCause_DoesNotMutateSentinel(t *testing.T) {
	cause := stderrors.New("badger: conflict")
	err := ErrConflict.WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Nil(t, ErrConflict.Unwrap())
}

func TestCode_UnknownIsInternal(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, Code("SOMETHING_ELSE").HTTPStatus())
}
