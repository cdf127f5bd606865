package deposit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"coin-swap/config"
	"coin-swap/pkg/types"
)

// Depositor pays a charge's deposit address from a local wallet
type Depositor interface {
	SendDeposit(ctx context.Context, coin, address string, amount decimal.Decimal) (string, error)
	Close()
}

// Manager handles auto-deposit for the coins a charge accepts
type Manager struct {
	config       config.AutoDepositConfig
	logger       *logrus.Entry
	newDepositor func(cfg config.EVMNetwork) (Depositor, error)
}

// NewManager creates a new deposit manager
func NewManager(cfg config.AutoDepositConfig, logger *logrus.Entry) *Manager {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		config: cfg,
		logger: logger.WithField("component", "deposit"),
		newDepositor: func(network config.EVMNetwork) (Depositor, error) {
			return NewEVMDepositor(network)
		},
	}
}

// IsEnabled returns whether auto-deposit is enabled globally
func (m *Manager) IsEnabled() bool {
	return m.config.Enabled
}

// IsEnabledForCoin returns whether the local wallet can pay in coin
func (m *Manager) IsEnabledForCoin(coin string) bool {
	if !m.config.Enabled {
		return false
	}

	coin = strings.ToLower(coin)
	if coin == "ethereum" {
		return true
	}
	_, ok := m.config.EVM.Tokens[coin]
	return ok
}

// SupportedCoins returns the coins that can be paid automatically
func (m *Manager) SupportedCoins() []string {
	if !m.config.Enabled {
		return nil
	}

	supported := []string{"ethereum"}
	for coin := range m.config.EVM.Tokens {
		supported = append(supported, coin)
	}
	sort.Strings(supported[1:])
	return supported
}

// PayRecord sends the amount the charge asks for in coin to its deposit address
func (m *Manager) PayRecord(ctx context.Context, record types.SwapRecord, coin string) (string, error) {
	if !m.IsEnabled() {
		return "", fmt.Errorf("auto-deposit is not enabled in configuration")
	}

	coin = strings.ToLower(coin)
	if !m.IsEnabledForCoin(coin) {
		return "", fmt.Errorf("auto-deposit not supported for coin: %s", coin)
	}

	address, ok := record.SendAddresses[coin]
	if !ok || address == "" {
		return "", fmt.Errorf("charge %s does not accept %s", record.ChargeCode, coin)
	}
	price, ok := record.SendAmounts[coin]
	if !ok || !price.Amount.IsPositive() {
		return "", fmt.Errorf("charge %s has no %s price", record.ChargeCode, coin)
	}

	depositor, err := m.newDepositor(m.config.EVM)
	if err != nil {
		return "", err
	}
	defer depositor.Close()

	txHash, err := depositor.SendDeposit(ctx, coin, address, price.Amount)
	if err != nil {
		return "", err
	}

	m.logger.WithFields(logrus.Fields{
		"charge_code": record.ChargeCode,
		"coin":        coin,
		"amount":      price.Amount.String(),
		"tx_hash":     txHash,
	}).Info("Deposit sent")

	return txHash, nil
}
