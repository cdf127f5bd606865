package swap

import (
	"errors"

	"coin-swap/pkg/client"
)

var (
	ErrRateUnavailable      = errors.New("unable to obtain exchange rate")
	ErrSwapInitiationFailed = errors.New("failed to initiate swap")
	ErrServiceDown          = client.ErrServiceDown
	ErrSwapExpired          = errors.New("swap expired")
	ErrSwapFailedRemote     = errors.New("swap failed")
	ErrUnrecognizedStatus   = errors.New("unrecognized swap status")

	ErrAmountOutOfRange = errors.New("amount out of range")
	ErrNoQuote          = errors.New("no quote available")
	ErrMissingPayout    = errors.New("payout address is required")
)

// NoticeKind tells the user whether a notice is informational or an error
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

func (k NoticeKind) String() string {
	if k == NoticeError {
		return "error"
	}
	return "info"
}

// Notice is a transient message for the user
type Notice struct {
	Kind    NoticeKind
	Err     error // nil for informational notices
	Message string
}

const (
	msgPending        = "Waiting to receive your crypto."
	msgConfirming     = "Confirming transaction."
	msgProcessing     = "Bitcoin received. Sending your LBC."
	msgSuccess        = "LBC sent. You should see it in your wallet."
	msgRemoteError    = "An error occurred on the previous swap."
	msgSwapCallFailed = "Failed to initiate swap."
	msgServerDown     = "The system is currently down. Come back later."
	msgRateFailed     = "Unable to obtain exchange rate. Try again later."
	msgExpired        = "Swap expired."
)

func info(msg string) *Notice {
	return &Notice{Kind: NoticeInfo, Message: msg}
}

func failure(err error, msg string) *Notice {
	return &Notice{Kind: NoticeError, Err: err, Message: msg}
}
