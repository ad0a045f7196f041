package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidArgument:   http.StatusBadRequest,
		KindUnauthorized:      http.StatusUnauthorized,
		KindForbidden:         http.StatusForbidden,
		KindNotFound:          http.StatusNotFound,
		KindConflict:          http.StatusConflict,
		KindInsufficientStock: http.StatusConflict,
		KindInvalidTransition: http.StatusConflict,
		KindEmptyCart:         http.StatusUnprocessableEntity,
		KindUnavailable:       http.StatusServiceUnavailable,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestSentinelsMatchByKind(t *testing.T) {
	err := fmt.Errorf("placing order: %w", NotFound("Product abc not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(KindUnavailable, "Image storage unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "Image storage unavailable: dial tcp: connection refused", err.Error())
}

func TestInsufficientStock(t *testing.T) {
	err := InsufficientStock("p1", "Tomato", 5, "kg")

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "Only 5 kg available in stock", err.Error())

	var stock *StockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, "p1", stock.ProductID)
	assert.Equal(t, 5, stock.Available)
}
