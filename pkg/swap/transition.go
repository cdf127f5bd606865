package swap

import (
	"fmt"

	"coin-swap/pkg/types"
)

// DisplayState is what the swap screen is currently showing
type DisplayState int

const (
	StateMain DisplayState = iota
	StatePendingDeposit
	StateConfirmingDeposit
	StateProcessing
	StateSuccess
	StatePastSwaps
)

func (s DisplayState) String() string {
	switch s {
	case StateMain:
		return "main"
	case StatePendingDeposit:
		return "pending_deposit"
	case StateConfirmingDeposit:
		return "confirming_deposit"
	case StateProcessing:
		return "processing"
	case StateSuccess:
		return "success"
	case StatePastSwaps:
		return "past_swaps"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transition is the outcome of deriving the display from a swap status
type Transition struct {
	Next   DisplayState
	Notice *Notice
	// StopSwapping clears the in-flight flag; the record stays selected.
	StopSwapping bool
	// ReturnToMain drops the tracked swap entirely.
	ReturnToMain bool
}

// Derive maps the latest status of the tracked swap onto the display
func Derive(current DisplayState, st types.SwapStatus) Transition {
	switch st.Status {
	case types.StatusNew:
		return Transition{Next: StatePendingDeposit, Notice: info(msgPending)}

	case types.StatusPending:
		return Transition{Next: StateConfirmingDeposit, Notice: info(msgConfirming)}

	case types.StatusCompleted:
		if st.HasTargetTx() {
			return Transition{Next: StateSuccess, Notice: info(msgSuccess), StopSwapping: true}
		}
		return Transition{Next: StateProcessing, Notice: info(msgProcessing)}

	case types.StatusExpired:
		return Transition{Next: current, Notice: failure(ErrSwapExpired, msgExpired)}

	case types.StatusError:
		return Transition{Next: StateMain, Notice: failure(ErrSwapFailedRemote, msgRemoteError), ReturnToMain: true}

	case types.StatusServiceDown:
		return Transition{Next: StateMain, Notice: failure(ErrServiceDown, msgServerDown), ReturnToMain: true}

	default:
		return Transition{Next: current, Notice: failure(ErrUnrecognizedStatus, st.Raw)}
	}
}

// ShortStatus is the one-word status shown in the swap history
func ShortStatus(st *types.SwapStatus) string {
	if st == nil {
		return "---"
	}

	switch st.Status {
	case types.StatusNew:
		return "Waiting"
	case types.StatusPending:
		return "Confirming"
	case types.StatusCompleted:
		if st.HasTargetTx() {
			return "Credits sent"
		}
		return "Sending Credits"
	case types.StatusError:
		return "Failed"
	case types.StatusExpired:
		return "Expired"
	default:
		return st.Raw
	}
}

var coinLabels = map[string]string{
	"dai":         "Dai",
	"usdc":        "USD Coin",
	"bitcoin":     "Bitcoin",
	"ethereum":    "Ethereum",
	"litecoin":    "Litecoin",
	"bitcoincash": "Bitcoin Cash",
}

// CoinLabel returns the display name of a coin identifier
func CoinLabel(coin string) string {
	if label, ok := coinLabels[coin]; ok {
		return label
	}
	return coin
}

// FormatLBC renders a credit amount, with "---" standing for unknown
func FormatLBC(lbc float64) string {
	if lbc == 0 {
		return "---"
	}
	return fmt.Sprintf("%.8f", lbc)
}

// ExplorerURL links to the LBC transaction, or "" when the id is not known
func ExplorerURL(st *types.SwapStatus) string {
	if st == nil || st.TargetTxID == "" || st.TargetTxID == types.UnresolvedTxID {
		return ""
	}
	return "https://explorer.lbry.com/tx/" + st.TargetTxID
}
