package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTicker(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  string
		shouldErr bool
	}{
		{name: "simple ticker", input: "ACME", expected: "ACME"},
		{name: "lowercase normalized", input: "acme", expected: "ACME"},
		{name: "whitespace trimmed", input: "  msft ", expected: "MSFT"},
		{name: "dotted class share", input: "brk.b", expected: "BRK.B"},
		{name: "empty", input: "", shouldErr: true},
		{name: "too long", input: "ABCDEFGHIJK", shouldErr: true},
		{name: "embedded space", input: "AC ME", shouldErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateTicker(tc.input)
			if tc.shouldErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestTransactionKindValid(t *testing.T) {
	assert.True(t, KindBuy.Valid())
	assert.True(t, KindSell.Valid())
	assert.False(t, TransactionKind("HOLD").Valid())
	assert.False(t, TransactionKind("").Valid())
}

func TestRiskToleranceValid(t *testing.T) {
	assert.True(t, RiskLow.Valid())
	assert.True(t, RiskMedium.Valid())
	assert.True(t, RiskHigh.Valid())
	assert.False(t, RiskTolerance("EXTREME").Valid())
}
