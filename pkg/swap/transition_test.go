package swap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"coin-swap/pkg/types"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name    string
		current DisplayState
		status  types.SwapStatus
		next    DisplayState
		err     error
		main    bool
	}{
		{"new", StateMain, types.SwapStatus{Status: types.StatusNew}, StatePendingDeposit, nil, false},
		{"pending", StatePendingDeposit, types.SwapStatus{Status: types.StatusPending}, StateConfirmingDeposit, nil, false},
		{"completed without tx", StateConfirmingDeposit, types.SwapStatus{Status: types.StatusCompleted}, StateProcessing, nil, false},
		{"completed with marker", StateConfirmingDeposit, types.SwapStatus{Status: types.StatusCompleted, TargetTxID: types.UnresolvedTxID}, StateSuccess, nil, false},
		{"expired", StatePendingDeposit, types.SwapStatus{Status: types.StatusExpired}, StatePendingDeposit, ErrSwapExpired, false},
		{"error", StateConfirmingDeposit, types.SwapStatus{Status: types.StatusError}, StateMain, ErrSwapFailedRemote, true},
		{"service down", StatePendingDeposit, types.SwapStatus{Status: types.StatusServiceDown}, StateMain, ErrServiceDown, true},
		{"unrecognized", StateProcessing, types.SwapStatus{Raw: "REFUNDED"}, StateProcessing, ErrUnrecognizedStatus, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Derive(tt.current, tt.status)
			assert.Equal(t, tt.next, tr.Next)
			assert.Equal(t, tt.main, tr.ReturnToMain)
			if tt.err == nil {
				assert.Equal(t, NoticeInfo, tr.Notice.Kind)
				return
			}
			assert.Equal(t, NoticeError, tr.Notice.Kind)
			assert.True(t, errors.Is(tr.Notice.Err, tt.err))
		})
	}
}

func TestDerive_SuccessStopsSwapping(t *testing.T) {
	tr := Derive(StateProcessing, types.SwapStatus{Status: types.StatusCompleted, TargetTxID: "abc"})
	assert.True(t, tr.StopSwapping)
	assert.False(t, tr.ReturnToMain)
	assert.Equal(t, msgSuccess, tr.Notice.Message)
}

func TestShortStatus(t *testing.T) {
	assert.Equal(t, "---", ShortStatus(nil))
	assert.Equal(t, "Waiting", ShortStatus(&types.SwapStatus{Status: types.StatusNew}))
	assert.Equal(t, "Confirming", ShortStatus(&types.SwapStatus{Status: types.StatusPending}))
	assert.Equal(t, "Sending Credits", ShortStatus(&types.SwapStatus{Status: types.StatusCompleted}))
	assert.Equal(t, "Credits sent", ShortStatus(&types.SwapStatus{Status: types.StatusCompleted, TargetTxID: "??"}))
	assert.Equal(t, "Failed", ShortStatus(&types.SwapStatus{Status: types.StatusError}))
	assert.Equal(t, "Expired", ShortStatus(&types.SwapStatus{Status: types.StatusExpired}))
	assert.Equal(t, "RESOLVED", ShortStatus(&types.SwapStatus{Raw: "RESOLVED"}))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "USD Coin", CoinLabel("usdc"))
	assert.Equal(t, "Bitcoin Cash", CoinLabel("bitcoincash"))
	assert.Equal(t, "dogecoin", CoinLabel("dogecoin"))

	assert.Equal(t, "---", FormatLBC(0))
	assert.Equal(t, "12.50000000", FormatLBC(12.5))
}

func TestExplorerURL(t *testing.T) {
	assert.Empty(t, ExplorerURL(nil))
	assert.Empty(t, ExplorerURL(&types.SwapStatus{TargetTxID: types.UnresolvedTxID}))
	assert.Equal(t, "https://explorer.lbry.com/tx/abc", ExplorerURL(&types.SwapStatus{TargetTxID: "abc"}))
}
