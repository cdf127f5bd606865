package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-swap/pkg/types"
)

func testRecord(code string) types.SwapRecord {
	return types.SwapRecord{
		ChargeCode:    code,
		Coins:         []string{"bitcoin"},
		SendAddresses: map[string]string{"bitcoin": "bc1q" + code},
		SendAmounts: map[string]types.Amount{
			"bitcoin": {Amount: decimal.RequireFromString("0.001"), Currency: "BTC"},
		},
		LBCAmount: 42,
	}
}

func testPayload(code string, exchange *types.Exchange, statuses ...string) types.StatusPayload {
	timeline := make([]types.TimelineEntry, len(statuses))
	for i, st := range statuses {
		timeline[i] = types.TimelineEntry{Status: st}
	}
	if len(timeline) > 0 {
		timeline[len(timeline)-1].Payment = &types.Payment{TransactionID: "tx-" + code}
	}
	return types.StatusPayload{
		Exchange: exchange,
		Charge: types.ChargeEnvelope{Data: types.Charge{
			Code: code,
			Addresses: map[string]string{
				"bitcoin":  "bc1q" + code,
				"ethereum": "0x" + code,
			},
			Pricing: map[string]types.Amount{
				"bitcoin":  {Amount: decimal.RequireFromString("0.002"), Currency: "BTC"},
				"ethereum": {Amount: decimal.RequireFromString("0.03"), Currency: "ETH"},
			},
			Timeline: timeline,
		}},
	}
}

func TestApply_SwapAddedIsIdempotent(t *testing.T) {
	var state Collection
	for _, code := range []string{"A", "B", "A", "C", "B", "A"} {
		state = Apply(state, SwapAdded{Record: testRecord(code)})
	}

	require.Len(t, state, 3)
	assert.Equal(t, []string{"A", "B", "C"}, state.Codes())
}

func TestApply_SwapAddedDoesNotMutateInput(t *testing.T) {
	state := Apply(nil, SwapAdded{Record: testRecord("A")})
	next := Apply(state, SwapAdded{Record: testRecord("B")})

	assert.Len(t, state, 1)
	assert.Len(t, next, 2)
}

func TestApply_SwapRemovedTwiceIsNoop(t *testing.T) {
	state := Apply(nil, SwapAdded{Record: testRecord("A")})
	state = Apply(state, SwapAdded{Record: testRecord("B")})

	once := Apply(state, SwapRemoved{ChargeCode: "A"})
	twice := Apply(once, SwapRemoved{ChargeCode: "A"})

	assert.Equal(t, []string{"B"}, once.Codes())
	assert.Equal(t, once, twice)
	assert.Len(t, state, 2, "input must not change")
}

func TestApply_StatusReceivedLastEntryWins(t *testing.T) {
	state := Apply(nil, StatusReceived{Payload: testPayload("A", nil, "NEW", "PENDING")})

	require.Len(t, state, 1)
	require.NotNil(t, state[0].Status)
	assert.Equal(t, types.StatusPending, state[0].Status.Status)
	assert.Equal(t, "PENDING", state[0].Status.Raw)
	assert.Equal(t, "tx-A", state[0].Status.ReceiptTxID)
	assert.Equal(t, types.UnresolvedTxID, state[0].Status.TargetTxID)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, state[0].Coins)
}

func TestApply_StatusReceivedComputesLBCFromExchange(t *testing.T) {
	state := Apply(nil, StatusReceived{Payload: testPayload("A", &types.Exchange{Rate: 0.0001}, "NEW")})

	require.Len(t, state, 1)
	assert.InDelta(t, 20.0, state[0].LBCAmount, 1e-9)
}

func TestApply_StatusReceivedWithoutExchangeIsZero(t *testing.T) {
	state := Apply(nil, StatusReceived{Payload: testPayload("A", nil, "NEW")})
	assert.Zero(t, state[0].LBCAmount)

	state = Apply(nil, StatusReceived{Payload: testPayload("B", &types.Exchange{Rate: 0}, "NEW")})
	assert.Zero(t, state[0].LBCAmount)
}

func TestApply_StatusReceivedPreservesLBCAmount(t *testing.T) {
	state := Apply(nil, SwapAdded{Record: testRecord("A")})

	state = Apply(state, StatusReceived{Payload: testPayload("A", &types.Exchange{Rate: 0.5}, "NEW")})
	state = Apply(state, StatusReceived{Payload: testPayload("A", nil, "NEW", "PENDING")})
	state = Apply(state, StatusReceived{Payload: testPayload("A", &types.Exchange{Rate: 2}, "NEW", "PENDING", "COMPLETED")})

	require.Len(t, state, 1)
	assert.Equal(t, 42.0, state[0].LBCAmount)
	assert.Equal(t, types.StatusCompleted, state[0].Status.Status)
}

func TestApply_StatusReceivedBackfillsStubAmount(t *testing.T) {
	state := Apply(nil, BulkRestore{ChargeCodes: []string{"A"}})
	state = Apply(state, StatusReceived{Payload: testPayload("A", &types.Exchange{Rate: 0.0001}, "NEW")})

	assert.InDelta(t, 20.0, state[0].LBCAmount, 1e-9)
	assert.Equal(t, "bc1qA", state[0].SendAddresses["bitcoin"])
}

func TestApply_StatusReceivedEmptyTimelineKeepsStatus(t *testing.T) {
	state := Apply(nil, StatusReceived{Payload: testPayload("A", nil, "NEW")})
	state = Apply(state, StatusReceived{Payload: testPayload("A", nil)})

	require.NotNil(t, state[0].Status)
	assert.Equal(t, types.StatusNew, state[0].Status.Status)

	fresh := Apply(nil, StatusReceived{Payload: testPayload("B", nil)})
	assert.Nil(t, fresh[0].Status)
}

func TestApply_StatusReceivedUnknownStatus(t *testing.T) {
	state := Apply(nil, StatusReceived{Payload: testPayload("A", nil, "UNRESOLVED")})

	assert.Equal(t, types.StatusUnrecognized, state[0].Status.Status)
	assert.Equal(t, "UNRESOLVED", state[0].Status.Raw)
}

func TestApply_StatusReceivedWithoutCodeIsIgnored(t *testing.T) {
	state := Apply(Collection{testRecord("A")}, StatusReceived{Payload: testPayload("", nil, "NEW")})

	require.Len(t, state, 1)
	assert.Equal(t, "A", state[0].ChargeCode)
}

func TestApply_BulkRestoreNeverOverwrites(t *testing.T) {
	state := Apply(nil, SwapAdded{Record: testRecord("A")})
	state = Apply(state, StatusReceived{Payload: testPayload("A", nil, "NEW")})
	before := state[0].Clone()

	state = Apply(state, BulkRestore{ChargeCodes: []string{"B", "A", "C", "B"}})

	require.Len(t, state, 3)
	assert.Equal(t, []string{"A", "B", "C"}, state.Codes())
	assert.Equal(t, before, state[0])

	stub := state[1]
	assert.Nil(t, stub.Status)
	assert.Zero(t, stub.LBCAmount)
	assert.Empty(t, stub.Coins)
	assert.Empty(t, stub.SendAddresses)
	assert.Empty(t, stub.SendAmounts)
}
