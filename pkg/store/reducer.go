package store

import (
	"coin-swap/pkg/types"
)

// Collection is the ordered set of swap records, oldest first
type Collection []types.SwapRecord

// Find returns the index of the record with the given charge code, or -1
func (c Collection) Find(chargeCode string) int {
	for i := range c {
		if c[i].ChargeCode == chargeCode {
			return i
		}
	}
	return -1
}

// Codes returns the charge codes in collection order
func (c Collection) Codes() []string {
	codes := make([]string, len(c))
	for i := range c {
		codes[i] = c[i].ChargeCode
	}
	return codes
}

// Event is a mutation of the collection
type Event interface {
	isEvent()
}

// SwapAdded appends a freshly initiated swap
type SwapAdded struct {
	Record types.SwapRecord
}

// SwapRemoved drops a swap from the history
type SwapRemoved struct {
	ChargeCode string
}

// StatusReceived carries a status update from the status endpoint or the push channel
type StatusReceived struct {
	Payload types.StatusPayload
}

// BulkRestore re-creates stub records for persisted charge codes
type BulkRestore struct {
	ChargeCodes []string
}

func (SwapAdded) isEvent()      {}
func (SwapRemoved) isEvent()    {}
func (StatusReceived) isEvent() {}
func (BulkRestore) isEvent()    {}

// Apply returns the collection that results from applying ev to state.
// state is never modified.
func Apply(state Collection, ev Event) Collection {
	switch e := ev.(type) {
	case SwapAdded:
		if state.Find(e.Record.ChargeCode) > -1 {
			return state
		}
		return append(clone(state), e.Record.Clone())

	case SwapRemoved:
		if state.Find(e.ChargeCode) < 0 {
			return state
		}
		next := make(Collection, 0, len(state)-1)
		for _, r := range state {
			if r.ChargeCode != e.ChargeCode {
				next = append(next, r)
			}
		}
		return next

	case StatusReceived:
		return applyStatus(state, e.Payload)

	case BulkRestore:
		next := clone(state)
		for _, code := range e.ChargeCodes {
			if next.Find(code) > -1 {
				continue
			}
			// Only the code is restored; details are queried later.
			next = append(next, types.SwapRecord{
				ChargeCode:    code,
				Coins:         []string{},
				SendAddresses: map[string]string{},
				SendAmounts:   map[string]types.Amount{},
			})
		}
		return next
	}

	return state
}

func applyStatus(state Collection, payload types.StatusPayload) Collection {
	charge := payload.Charge.Data
	if charge.Code == "" {
		return state
	}
	next := clone(state)
	index := next.Find(charge.Code)

	record := types.SwapRecord{
		ChargeCode:    charge.Code,
		Coins:         charge.Coins(),
		SendAddresses: copyAddresses(charge.Addresses),
		SendAmounts:   copyAmounts(charge.Pricing),
	}

	if index > -1 && next[index].LBCAmount != 0 {
		record.LBCAmount = next[index].LBCAmount
	} else {
		record.LBCAmount = lbcAmount(charge.Pricing, payload.Exchange)
	}

	if n := len(charge.Timeline); n > 0 {
		last := charge.Timeline[n-1]
		status := &types.SwapStatus{
			Status:     types.ParseStatusKind(last.Status),
			Raw:        last.Status,
			TargetTxID: types.UnresolvedTxID,
		}
		if last.Payment != nil {
			status.ReceiptTxID = last.Payment.TransactionID
		}
		record.Status = status
	} else if index > -1 {
		record.Status = next[index].Status
	}

	if index > -1 {
		next[index] = record
		return next
	}
	return append(next, record)
}

// lbcAmount derives the credits owed from the bitcoin price and the exchange rate
func lbcAmount(pricing map[string]types.Amount, exchange *types.Exchange) float64 {
	if exchange == nil || exchange.Rate == 0 {
		return 0
	}
	btc, ok := pricing["bitcoin"]
	if !ok {
		return 0
	}
	return btc.Amount.InexactFloat64() / exchange.Rate
}

func clone(state Collection) Collection {
	next := make(Collection, len(state), len(state)+1)
	copy(next, state)
	return next
}

func copyAddresses(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyAmounts(in map[string]types.Amount) map[string]types.Amount {
	out := make(map[string]types.Amount, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
