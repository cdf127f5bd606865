package deposit

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-swap/config"
	"coin-swap/pkg/types"
)

type fakeDepositor struct {
	coin    string
	address string
	amount  decimal.Decimal
	closed  bool
}

func (f *fakeDepositor) SendDeposit(_ context.Context, coin, address string, amount decimal.Decimal) (string, error) {
	f.coin, f.address, f.amount = coin, address, amount
	return "0xhash", nil
}

func (f *fakeDepositor) Close() { f.closed = true }

func testManager(enabled bool) (*Manager, *fakeDepositor) {
	fake := &fakeDepositor{}
	m := NewManager(config.AutoDepositConfig{
		Enabled: enabled,
		EVM: config.EVMNetwork{
			Tokens: map[string]config.EVMToken{
				"usdc": {Contract: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
				"dai":  {Contract: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18},
			},
		},
	}, nil)
	m.newDepositor = func(config.EVMNetwork) (Depositor, error) { return fake, nil }
	return m, fake
}

func testRecord() types.SwapRecord {
	return types.SwapRecord{
		ChargeCode:    "CHG1",
		Coins:         []string{"bitcoin", "usdc"},
		SendAddresses: map[string]string{"bitcoin": "bc1q", "usdc": "0x00000000000000000000000000000000000000aa"},
		SendAmounts: map[string]types.Amount{
			"bitcoin": {Amount: decimal.RequireFromString("0.002"), Currency: "BTC"},
			"usdc":    {Amount: decimal.RequireFromString("120.55"), Currency: "USDC"},
		},
	}
}

func TestManager_SupportedCoins(t *testing.T) {
	m, _ := testManager(true)
	assert.Equal(t, []string{"ethereum", "dai", "usdc"}, m.SupportedCoins())
	assert.True(t, m.IsEnabledForCoin("USDC"))
	assert.False(t, m.IsEnabledForCoin("bitcoin"))

	disabled, _ := testManager(false)
	assert.Empty(t, disabled.SupportedCoins())
	assert.False(t, disabled.IsEnabledForCoin("ethereum"))
}

func TestManager_PayRecord(t *testing.T) {
	m, fake := testManager(true)

	hash, err := m.PayRecord(context.Background(), testRecord(), "usdc")
	require.NoError(t, err)
	assert.Equal(t, "0xhash", hash)
	assert.Equal(t, "usdc", fake.coin)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", fake.address)
	assert.Equal(t, "120.55", fake.amount.String())
	assert.True(t, fake.closed)
}

func TestManager_PayRecordErrors(t *testing.T) {
	m, _ := testManager(true)

	_, err := m.PayRecord(context.Background(), testRecord(), "bitcoin")
	assert.Error(t, err)

	_, err = m.PayRecord(context.Background(), testRecord(), "dai")
	assert.Error(t, err, "charge does not list a dai address")

	disabled, _ := testManager(false)
	_, err = disabled.PayRecord(context.Background(), testRecord(), "usdc")
	assert.Error(t, err)
}

func TestToBaseUnits(t *testing.T) {
	assert.Equal(t, "120550000", toBaseUnits(decimal.RequireFromString("120.55"), 6).String())
	assert.Equal(t, "1500000000000000000", toBaseUnits(decimal.RequireFromString("1.5"), 18).String())
	assert.Equal(t, "2", toBaseUnits(decimal.RequireFromString("0.0000011"), 6).String())
}
