package products

import (
	"strconv"
	"strings"
)

// ParsePrice converts Shopify's decimal-string price representation. A
// missing or malformed price yields nil — storing zero would be wrong, the
// upstream value is simply unknown.
func ParsePrice(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
