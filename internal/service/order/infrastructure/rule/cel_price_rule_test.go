package rule

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCELPriceRule(t *testing.T) {
	d := decimal.RequireFromString
	cases := []struct {
		expr      string
		submitted string
		computed  string
		want      bool
	}{
		{"submitted == computed", "3250.25", "3250.25", true},
		{"submitted == computed", "3250.24", "3250.25", false},
		{"submitted >= computed * 0.99", "3220", "3250", true},
		{"submitted >= computed * 0.99", "3200", "3250", false},
		{"true", "1", "999", true},
	}
	for _, tc := range cases {
		r, err := NewCELPriceRule(tc.expr)
		require.NoError(t, err, tc.expr)
		got, err := r.Accept(d(tc.submitted), d(tc.computed))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s with submitted=%s computed=%s", tc.expr, tc.submitted, tc.computed)
	}
}

func TestCELPriceRuleCompileErrors(t *testing.T) {
	_, err := NewCELPriceRule("submitted ==")
	assert.Error(t, err)

	_, err = NewCELPriceRule("submitted + computed")
	assert.ErrorContains(t, err, "must evaluate to bool")

	_, err = NewCELPriceRule("discount > 0")
	assert.Error(t, err)
}
