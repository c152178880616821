package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/bakery-cart/pkg/errors"
)

type sampleProduct struct {
	ID    string  `json:"id" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
}

type sampleRequest struct {
	Product  sampleProduct `json:"product"`
	Quantity *int          `json:"quantity,omitempty" validate:"omitempty,gt=0"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product":{"id":"","price":-1},"quantity":0}`))
	var dest sampleRequest
	err := DecodeJSONBody(req, &dest)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	require.Equal(t, "is required", details["product.id"])
	require.Equal(t, "must be greater than or equal to 0", details["product.price"])
	require.Equal(t, "must be greater than 0", details["quantity"])
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndEmptyBody(t *testing.T) {
	var dest sampleRequest
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product":{"id":"a"},"coupon":"x"}`))
	require.True(t, pkgerrors.HasCode(DecodeJSONBody(req, &dest), pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err := DecodeJSONBody(req, &dest)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "request body is required", pkgerrors.As(err).Message())
}

func TestParseQueryFloat(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?subtotal=9999.99", nil)
	value, ok, err := ParseQueryFloat(req, "subtotal")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 9999.99, value)

	_, ok, err = ParseQueryFloat(httptest.NewRequest(http.MethodGet, "/", nil), "subtotal")
	require.NoError(t, err)
	require.False(t, ok)

	for _, raw := range []string{"abc", "-1", "NaN", "Inf"} {
		_, _, err = ParseQueryFloat(httptest.NewRequest(http.MethodGet, "/?subtotal="+raw, nil), "subtotal")
		require.Error(t, err, raw)
	}
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "Happy", SanitizeString("  Happy  ", 0))
	require.Equal(t, "Feliz cum", SanitizeString("Feliz cumpleaños", 9))
	require.Equal(t, "ñañ", SanitizeString("ñañaña", 3))
}
