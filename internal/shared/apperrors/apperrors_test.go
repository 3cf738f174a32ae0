package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfUnwraps(t *testing.T) {
	inner := Capacity("not enough seats")
	wrapped := fmt.Errorf("accepting booking: %w", inner)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindCapacity, kind)
	assert.True(t, IsCapacity(wrapped))
	assert.False(t, IsNotFound(wrapped))
}

func TestValidationCarriesField(t *testing.T) {
	err := Validation("total_seats", "must be at least 1")

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "total_seats", e.Field)
	assert.Contains(t, err.Error(), "total_seats")
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("seats", "must be positive"), http.StatusBadRequest},
		{NotFound("ride", "r1"), http.StatusNotFound},
		{Forbidden("not the owning driver"), http.StatusForbidden},
		{Conflict("ride has live bookings"), http.StatusConflict},
		{Capacity("would exceed capacity"), http.StatusUnprocessableEntity},
		{Unavailable("ride registry unreachable", nil), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), tt.err.Error())
	}
}

func TestFromStatusRoundTrip(t *testing.T) {
	for _, err := range []error{
		Validation("", "bad input"),
		NotFound("booking", "b1"),
		Forbidden("nope"),
		Conflict("busy"),
		Capacity("full"),
		Unavailable("down", nil),
	} {
		status := StatusCode(err)
		back := FromStatus(status, err.Error())
		wantKind, _ := KindOf(err)
		gotKind, ok := KindOf(back)
		require.True(t, ok, "status %d", status)
		assert.Equal(t, wantKind, gotKind)
	}
}
