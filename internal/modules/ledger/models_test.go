package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/domain"
)

func TestRecordInput_DecodesSnakeCaseBody(t *testing.T) {
	body := `{"ticker":"ACME","name":"Acme Corp","kind":"BUY","quantity":2,"price_per_share":"50.00","note":"limit order"}`

	var input RecordInput
	require.NoError(t, json.Unmarshal([]byte(body), &input))

	assert.Equal(t, "ACME", input.Ticker)
	assert.Equal(t, "Acme Corp", input.Name)
	assert.Equal(t, domain.KindBuy, input.Kind)
	assert.Equal(t, int64(2), input.Quantity)
	require.NotNil(t, input.PricePerShare)
	assert.Equal(t, "50.00", input.PricePerShare.StringFixed(2))
	assert.Equal(t, "limit order", input.Note)
}

func TestRecordInput_OmittedPriceStaysNil(t *testing.T) {
	body := `{"ticker":"ACME","kind":"SELL","quantity":1}`

	var input RecordInput
	require.NoError(t, json.Unmarshal([]byte(body), &input))

	assert.Nil(t, input.PricePerShare)
}

func TestAmendInput_DecodesSnakeCaseBody(t *testing.T) {
	body := `{"quantity":7,"price_per_share":"12.50"}`

	var input AmendInput
	require.NoError(t, json.Unmarshal([]byte(body), &input))

	require.NotNil(t, input.Quantity)
	assert.Equal(t, int64(7), *input.Quantity)
	require.NotNil(t, input.PricePerShare)
	assert.Equal(t, "12.50", input.PricePerShare.StringFixed(2))
	assert.Nil(t, input.Ticker)
	assert.Nil(t, input.Kind)
	assert.Nil(t, input.Note)
}
