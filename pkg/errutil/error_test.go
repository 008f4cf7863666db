package errutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

var errOutOfCoins = UnprocessableEntity("not enough coins", nil, WithReason("out_of_coins"))

func TestIsMatchesOnReason(t *testing.T) {
	err := WithMessage(errOutOfCoins, "balance 10 is below 20")
	require.ErrorIs(t, err, errOutOfCoins)

	wrapped := fmt.Errorf("checkout: %w", err)
	require.ErrorIs(t, wrapped, errOutOfCoins)

	other := UnprocessableEntity("not enough coins", nil, WithReason("no_spins"))
	require.False(t, errors.Is(other, errOutOfCoins))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(errOutOfCoins, cause)

	require.ErrorIs(t, err, errOutOfCoins)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "boom")
}

func TestConstructorsAttachCause(t *testing.T) {
	cause := errors.New("db down")
	err := Internal("failed to load", cause)

	var be BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, StatusInternal, be.Status())
	require.ErrorIs(t, err, cause)
}

func TestFromUnknownError(t *testing.T) {
	be := From(errors.New("unexpected"))
	require.Equal(t, StatusInternal, be.Code)
	require.Equal(t, http.StatusInternalServerError, be.Code.HTTPStatus())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[CoreStatus]int{
		StatusBadRequest:          http.StatusBadRequest,
		StatusValidationFailed:    http.StatusBadRequest,
		StatusNotFound:            http.StatusNotFound,
		StatusConflict:            http.StatusConflict,
		StatusUnprocessableEntity: http.StatusUnprocessableEntity,
		StatusForbidden:           http.StatusForbidden,
		StatusUnauthorized:        http.StatusUnauthorized,
		StatusUnknown:             http.StatusInternalServerError,
	}
	for status, want := range cases {
		require.Equal(t, want, status.HTTPStatus(), status)
	}
}
