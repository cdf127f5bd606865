package types

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// UnresolvedTxID marks a target transaction the status source could not name.
// Neither the status endpoint nor the push channel reports the LBC transaction id.
const UnresolvedTxID = "??"

// StatusKind is the lifecycle status of a charge as reported by the swap service
type StatusKind int

const (
	StatusUnrecognized StatusKind = iota
	StatusNew                     // Started swap, waiting for coin
	StatusPending                 // Coin received, waiting for confirmation
	StatusCompleted               // Coin confirmed, sending LBC
	StatusExpired                 // Charge expired (60 minutes)
	StatusError                   // Service reported a failed swap
	StatusServiceDown             // Internal APIs are down
)

var statusNames = map[string]StatusKind{
	"NEW":                StatusNew,
	"PENDING":            StatusPending,
	"COMPLETED":          StatusCompleted,
	"EXPIRED":            StatusExpired,
	"Error":              StatusError,
	"internal_apis_down": StatusServiceDown,
}

// ParseStatusKind maps a raw service status onto a StatusKind
func ParseStatusKind(raw string) StatusKind {
	if kind, ok := statusNames[raw]; ok {
		return kind
	}
	return StatusUnrecognized
}

func (k StatusKind) String() string {
	for name, kind := range statusNames {
		if kind == k {
			return name
		}
	}
	return "UNRECOGNIZED"
}

// SwapStatus is the latest known status of a charge
type SwapStatus struct {
	Status      StatusKind `json:"status"`
	Raw         string     `json:"raw"`
	ReceiptTxID string     `json:"receipt_txid,omitempty"`
	TargetTxID  string     `json:"lbc_txid,omitempty"`
}

// HasTargetTx reports whether the LBC payout transaction is known to exist
func (s SwapStatus) HasTargetTx() bool {
	return s.TargetTxID != ""
}

// Amount is a required payment in a given currency
type Amount struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Amount.String(), a.Currency)
}

// SwapRecord is a single charge tracked by the client
type SwapRecord struct {
	ChargeCode    string            `json:"charge_code"`
	Coins         []string          `json:"coins"`
	SendAddresses map[string]string `json:"send_addresses"`
	SendAmounts   map[string]Amount `json:"send_amounts"`
	LBCAmount     float64           `json:"lbc_amount"`
	Status        *SwapStatus       `json:"status,omitempty"`
}

// Clone returns a deep copy of the record
func (r SwapRecord) Clone() SwapRecord {
	out := r
	out.Coins = append([]string(nil), r.Coins...)
	out.SendAddresses = make(map[string]string, len(r.SendAddresses))
	for k, v := range r.SendAddresses {
		out.SendAddresses[k] = v
	}
	out.SendAmounts = make(map[string]Amount, len(r.SendAmounts))
	for k, v := range r.SendAmounts {
		out.SendAmounts[k] = v
	}
	if r.Status != nil {
		st := *r.Status
		out.Status = &st
	}
	return out
}

// Exchange is the rate context returned by the status and swap endpoints
type Exchange struct {
	ChargeCode string  `json:"charge_code"`
	Rate       float64 `json:"rate"`
}

// Payment is the on-chain payment attached to a timeline entry
type Payment struct {
	TransactionID string `json:"transaction_id"`
	Network       string `json:"network,omitempty"`
}

// TimelineEntry is one status transition of a charge
type TimelineEntry struct {
	Time    string   `json:"time,omitempty"`
	Status  string   `json:"status"`
	Payment *Payment `json:"payment,omitempty"`
}

// Charge is the provider's charge object
type Charge struct {
	Code      string            `json:"code"`
	Addresses map[string]string `json:"addresses"`
	Pricing   map[string]Amount `json:"pricing"`
	Timeline  []TimelineEntry   `json:"timeline"`
}

// Coins returns the accepted currencies of the charge in a stable order
func (c Charge) Coins() []string {
	coins := make([]string, 0, len(c.Addresses))
	for coin := range c.Addresses {
		coins = append(coins, coin)
	}
	sort.Strings(coins)
	return coins
}

// ChargeEnvelope wraps a charge the way the REST API returns it
type ChargeEnvelope struct {
	Data Charge `json:"data"`
}

// StatusPayload is a charge status update. The push channel sends the bare
// charge, so Exchange is nil on that path.
type StatusPayload struct {
	Exchange *Exchange      `json:"Exchange,omitempty"`
	Charge   ChargeEnvelope `json:"Charge"`
}

// DecodeStatusPayload accepts either a wrapped payload or a bare charge object
func DecodeStatusPayload(data []byte) (StatusPayload, error) {
	var wrapped struct {
		Exchange *Exchange       `json:"Exchange"`
		Charge   *ChargeEnvelope `json:"Charge"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return StatusPayload{}, fmt.Errorf("failed to decode status payload: %w", err)
	}
	if wrapped.Charge != nil {
		if wrapped.Charge.Data.Code == "" {
			return StatusPayload{}, fmt.Errorf("payload carries no charge code")
		}
		return StatusPayload{Exchange: wrapped.Exchange, Charge: *wrapped.Charge}, nil
	}

	var charge Charge
	if err := json.Unmarshal(data, &charge); err != nil {
		return StatusPayload{}, fmt.Errorf("failed to decode charge: %w", err)
	}
	if charge.Code == "" {
		return StatusPayload{}, fmt.Errorf("payload carries no charge code")
	}
	return StatusPayload{Charge: ChargeEnvelope{Data: charge}}, nil
}

// SwapRequest is the body of a swap initiation, denominated in satoshis
type SwapRequest struct {
	LBCSatoshiRequested int64
	BTCSatoshiProvided  int64
	PayToWalletAddress  string
}
