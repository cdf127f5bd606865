package deposit

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"coin-swap/config"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// ERC20 transfer and balanceOf ABI
const erc20ABI = `[{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}]`

// EVMDepositor pays ethereum and ERC20 deposit addresses
type EVMDepositor struct {
	network    config.EVMNetwork
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	erc20      abi.ABI
}

// NewEVMDepositor connects to the configured RPC endpoint
func NewEVMDepositor(network config.EVMNetwork) (*EVMDepositor, error) {
	if network.RPCUrl == "" {
		return nil, fmt.Errorf("RPC URL not configured for auto-deposit")
	}
	if network.PrivateKey == "" {
		return nil, fmt.Errorf("private key not configured for auto-deposit")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(network.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	client, err := ethclient.Dial(network.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	return &EVMDepositor{
		network:    network,
		client:     client,
		privateKey: privateKey,
		erc20:      parsedABI,
	}, nil
}

// SendDeposit sends amount of coin to address and returns the transaction hash.
// "ethereum" is sent natively; any other coin must be a configured token.
func (e *EVMDepositor) SendDeposit(ctx context.Context, coin, address string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid recipient address: %s", address)
	}

	fromAddress := crypto.PubkeyToAddress(e.privateKey.PublicKey)

	nonce, err := e.client.PendingNonceAt(ctx, fromAddress)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := e.getGasPrice(ctx)
	if err != nil {
		return "", err
	}

	var tx *types.Transaction
	if coin == "ethereum" {
		tx, err = e.buildNativeTransfer(ctx, fromAddress, address, amount, nonce, gasPrice)
	} else {
		token, ok := e.network.Tokens[coin]
		if !ok {
			return "", fmt.Errorf("no token contract configured for %s", coin)
		}
		tx, err = e.buildTokenTransfer(ctx, fromAddress, address, token, amount, nonce, gasPrice)
	}
	if err != nil {
		return "", err
	}

	if err := e.client.SendTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return tx.Hash().Hex(), nil
}

func (e *EVMDepositor) buildNativeTransfer(ctx context.Context, from common.Address, to string, amount decimal.Decimal, nonce uint64, gasPrice *big.Int) (*types.Transaction, error) {
	amountWei := toBaseUnits(amount, etherDecimals)

	balance, err := e.client.BalanceAt(ctx, from, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.Cmp(amountWei) < 0 {
		return nil, fmt.Errorf("insufficient balance: have %s wei, need %s wei", balance.String(), amountWei.String())
	}

	gasLimit := uint64(21000)
	if e.network.GasLimit != nil {
		gasLimit = *e.network.GasLimit
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(to), amountWei, gasLimit, gasPrice, nil)
	return e.sign(tx)
}

func (e *EVMDepositor) buildTokenTransfer(ctx context.Context, from common.Address, to string, token config.EVMToken, amount decimal.Decimal, nonce uint64, gasPrice *big.Int) (*types.Transaction, error) {
	if !common.IsHexAddress(token.Contract) {
		return nil, fmt.Errorf("invalid token contract address: %s", token.Contract)
	}
	tokenAddress := common.HexToAddress(token.Contract)
	amountUnits := toBaseUnits(amount, token.Decimals)

	balance, err := e.getTokenBalance(ctx, tokenAddress, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance: %w", err)
	}
	if balance.Cmp(amountUnits) < 0 {
		return nil, fmt.Errorf("insufficient token balance: have %s, need %s", balance.String(), amountUnits.String())
	}

	data, err := e.erc20.Pack("transfer", common.HexToAddress(to), amountUnits)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer data: %w", err)
	}

	gasLimit := uint64(100000)
	if e.network.GasLimit != nil {
		gasLimit = *e.network.GasLimit
	} else {
		estimated, err := e.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &tokenAddress, Data: data})
		if err == nil {
			gasLimit = estimated * 120 / 100
		}
	}

	tx := types.NewTransaction(nonce, tokenAddress, big.NewInt(0), gasLimit, gasPrice, data)
	return e.sign(tx)
}

func (e *EVMDepositor) sign(tx *types.Transaction) (*types.Transaction, error) {
	chainID := big.NewInt(e.network.ChainID)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), e.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signedTx, nil
}

func (e *EVMDepositor) getGasPrice(ctx context.Context) (*big.Int, error) {
	if e.network.GasPrice != nil {
		return big.NewInt(*e.network.GasPrice), nil
	}

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

func (e *EVMDepositor) getTokenBalance(ctx context.Context, tokenAddress, account common.Address) (*big.Int, error) {
	data, err := e.erc20.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}

	result, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &tokenAddress, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// Close closes the client connection
func (e *EVMDepositor) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// toBaseUnits converts a coin amount to its smallest unit, rounding up so the
// charge is never underpaid
func toBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Ceil().BigInt()
}
