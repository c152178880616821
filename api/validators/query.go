package validators

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/bakery-cart/pkg/errors"
)

// ParseQueryFloat reads an optional non-negative amount such as ?subtotal=.
// ok is false when the parameter is absent.
func ParseQueryFloat(r *http.Request, key string) (value float64, ok bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false, queryError(key, "query parameter must be numeric")
	}
	if amount.IsNegative() {
		return 0, false, queryError(key, "query parameter must be non-negative")
	}
	return amount.InexactFloat64(), true, nil
}

func queryError(key, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": key})
}
