package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"coin-swap/pkg/types"
)

const (
	// SatoshisPerBTC is the number of smallest units in one coin, for BTC and LBC alike
	SatoshisPerBTC = 100000000

	// InternalAPIsDown is the error code the service returns when its backends are unavailable
	InternalAPIsDown = "internal_apis_down"

	DefaultBaseURL           = "https://api.lbry.com"
	DefaultRequestsPerMinute = 200
	DefaultRequestTimeout    = 20 * time.Second

	maxResponseBytes int64 = 1024 * 1024
)

// ErrServiceDown is returned when the swap service reports its internal APIs are down
var ErrServiceDown = errors.New("swap service is down")

// APIError is an unsuccessful response from the swap service
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// SwapAPIClient calls the btc swap endpoints of the LBRY API
type SwapAPIClient struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Entry
}

// Option customises a SwapAPIClient
type Option func(*SwapAPIClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(s *SwapAPIClient) { s.httpClient = c }
}

// WithRequestsPerMinute sets the outbound request quota
func WithRequestsPerMinute(n int) Option {
	return func(s *SwapAPIClient) {
		if n > 0 {
			s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *logrus.Entry) Option {
	return func(s *SwapAPIClient) { s.logger = l }
}

// NewSwapAPIClient creates a new swap API client
func NewSwapAPIClient(baseURL, authToken string, opts ...Option) *SwapAPIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &SwapAPIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
		logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
	WithRequestsPerMinute(DefaultRequestsPerMinute)(c)

	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "swapapi")

	return c
}

// envelope is the common response wrapper of the LBRY API
type envelope struct {
	Success bool            `json:"success"`
	Error   *string         `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// Rate returns the exchange rate, in BTC per LBC
func (c *SwapAPIClient) Rate(ctx context.Context) (float64, error) {
	params := url.Values{}
	params.Set("satoshi", strconv.Itoa(SatoshisPerBTC))

	var rateValue float64
	if err := c.call(ctx, "rate", params, nil, &rateValue); err != nil {
		return 0, fmt.Errorf("failed to get rate: %w", err)
	}
	if rateValue <= 0 {
		return 0, fmt.Errorf("invalid rate %v", rateValue)
	}

	return rateValue, nil
}

// InitiateSwap opens a new charge. The returned payload carries the charge code in
// Exchange.ChargeCode and the deposit details in Charge.Data.
func (c *SwapAPIClient) InitiateSwap(ctx context.Context, req types.SwapRequest) (*types.StatusPayload, error) {
	params := url.Values{}
	params.Set("lbc_satoshi_requested", strconv.FormatInt(req.LBCSatoshiRequested, 10))
	params.Set("btc_satoshi_provided", strconv.FormatInt(req.BTCSatoshiProvided, 10))
	params.Set("pay_to_wallet_address", req.PayToWalletAddress)

	headers := http.Header{}
	headers.Set("Idempotency-Key", uuid.New().String())

	var payload types.StatusPayload
	if err := c.call(ctx, "swap", params, headers, &payload); err != nil {
		return nil, fmt.Errorf("failed to initiate swap: %w", err)
	}
	if payload.Exchange == nil || payload.Exchange.ChargeCode == "" {
		return nil, fmt.Errorf("swap response carries no charge code")
	}
	if payload.Charge.Data.Code == "" {
		payload.Charge.Data.Code = payload.Exchange.ChargeCode
	}

	return &payload, nil
}

// QueryStatus fetches the current status of a charge
func (c *SwapAPIClient) QueryStatus(ctx context.Context, chargeCode string) (*types.StatusPayload, error) {
	params := url.Values{}
	params.Set("charge_code", chargeCode)

	var payload types.StatusPayload
	if err := c.call(ctx, "status", params, nil, &payload); err != nil {
		return nil, fmt.Errorf("failed to query status of %s: %w", chargeCode, err)
	}
	if payload.Charge.Data.Code == "" {
		payload.Charge.Data.Code = chargeCode
	}

	return &payload, nil
}

func (c *SwapAPIClient) call(ctx context.Context, action string, params url.Values, headers http.Header, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	params.Set("auth_token", c.authToken)
	endpoint := fmt.Sprintf("%s/btc/%s", c.baseURL, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read body error: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"action":  action,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start),
	}).Debug("Swap API call")

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		}
		return fmt.Errorf("unmarshal body error: %w", err)
	}

	if env.Error != nil && *env.Error == InternalAPIsDown {
		return ErrServiceDown
	}
	if !env.Success || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := "request failed"
		if env.Error != nil && *env.Error != "" {
			msg = *env.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("unmarshal data error: %w", err)
	}

	return nil
}
