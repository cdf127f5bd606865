package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"coin-swap/pkg/types"
)

const (
	InitialReconnectDelay = 1 * time.Second
	MaxReconnectDelay     = 30 * time.Second
	HandshakeTimeout      = 5 * time.Second
	ReadTimeout           = 90 * time.Second
	WriteTimeout          = 10 * time.Second
	PingInterval          = 30 * time.Second
)

// PushConfig holds push channel settings
type PushConfig struct {
	URL              string
	AuthToken        string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	InitialDelay     time.Duration
	MaxDelay         time.Duration
}

// DefaultPushConfig returns a default push channel configuration
func DefaultPushConfig(wsURL, authToken string) PushConfig {
	return PushConfig{
		URL:              wsURL,
		AuthToken:        authToken,
		HandshakeTimeout: HandshakeTimeout,
		ReadTimeout:      ReadTimeout,
		WriteTimeout:     WriteTimeout,
		PingInterval:     PingInterval,
		InitialDelay:     InitialReconnectDelay,
		MaxDelay:         MaxReconnectDelay,
	}
}

// PushListener receives unsolicited charge updates over a websocket.
// Payloads from this channel never carry exchange rate context.
type PushListener struct {
	config  PushConfig
	handler func(types.StatusPayload)
	logger  *logrus.Entry
}

// NewPushListener creates a listener delivering decoded payloads to handler
func NewPushListener(cfg PushConfig, handler func(types.StatusPayload), logger *logrus.Entry) *PushListener {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PushListener{
		config:  cfg,
		handler: handler,
		logger:  logger.WithField("component", "push"),
	}
}

// Run keeps a connection open until ctx is cancelled, reconnecting with
// exponential backoff after failures.
func (p *PushListener) Run(ctx context.Context) error {
	delay := p.config.InitialDelay

	for {
		err := p.handleConnection(ctx)
		if ctx.Err() != nil {
			p.logger.Info("Push listener stopped")
			return nil
		}

		if err == nil {
			delay = p.config.InitialDelay
		} else {
			p.logger.WithError(err).Warnf("Push channel dropped, reconnecting in %v", delay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		if err != nil {
			delay *= 2
			if delay > p.config.MaxDelay {
				delay = p.config.MaxDelay
			}
		}
	}
}

func (p *PushListener) endpoint() (string, error) {
	u, err := url.Parse(p.config.URL)
	if err != nil {
		return "", fmt.Errorf("invalid WebSocket URL: %w", err)
	}
	if p.config.AuthToken != "" {
		q := u.Query()
		q.Set("auth_token", p.config.AuthToken)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// handleConnection manages a single connection lifecycle
func (p *PushListener) handleConnection(ctx context.Context) error {
	endpoint, err := p.endpoint()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: p.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to WebSocket: %w", err)
	}
	defer conn.Close()

	p.logger.Info("Connected to push channel")

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(p.config.ReadTimeout))
	})

	readErrors := make(chan error, 1)
	messages := make(chan []byte, 16)

	go func() {
		defer close(messages)
		for {
			conn.SetReadDeadline(time.Now().Add(p.config.ReadTimeout))
			_, message, err := conn.ReadMessage()
			if err != nil {
				readErrors <- err
				return
			}
			select {
			case messages <- message:
			case <-connCtx.Done():
				return
			}
		}
	}()

	pingTicker := time.NewTicker(p.config.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(p.config.WriteTimeout))
			return nil

		case err := <-readErrors:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("WebSocket read error: %w", err)

		case message, ok := <-messages:
			if !ok {
				messages = nil
				continue
			}
			payload, err := types.DecodeStatusPayload(message)
			if err != nil {
				p.logger.WithError(err).Warn("Skipping undecodable push message")
				continue
			}
			// The push channel never sends rate context.
			payload.Exchange = nil
			p.handler(payload)

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("failed to send ping: %w", err)
			}
		}
	}
}
