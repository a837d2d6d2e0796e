package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Config contains EVM network configuration
type Config struct {
	RPCURL          string
	ContractAddress string
	ChainID         int64
	PrivateKey      string // hex, optional; required for Transfer
	CallTimeout     time.Duration
}

// Backend is the subset of ethclient.Client the client needs.
type Backend interface {
	bind.DeployBackend
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

// EVMClient talks to the registry contract and moves native currency.
type EVMClient struct {
	backend  Backend
	registry common.Address
	abi      abi.ABI
	chainID  *big.Int
	key      *ecdsa.PrivateKey
	from     common.Address
	timeout  time.Duration
	closer   func()
}

// Dial connects to the RPC endpoint described by cfg.
func Dial(ctx context.Context, cfg Config) (*EVMClient, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}
	c, err := NewEVMClient(eth, cfg)
	if err != nil {
		eth.Close()
		return nil, err
	}
	c.closer = eth.Close
	return c, nil
}

// NewEVMClient wraps an existing backend, e.g. a simulated one in tests.
func NewEVMClient(backend Backend, cfg Config) (*EVMClient, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	parsed, err := parseRegistryABI()
	if err != nil {
		return nil, err
	}

	c := &EVMClient{
		backend:  backend,
		registry: common.HexToAddress(cfg.ContractAddress),
		abi:      parsed,
		chainID:  big.NewInt(cfg.ChainID),
		timeout:  cfg.CallTimeout,
	}
	if c.timeout <= 0 {
		c.timeout = 20 * time.Second
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return c, nil
}

// Close releases the RPC connection when the client owns it.
func (c *EVMClient) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Address is the signer's address, lowercased, or "" without a key.
func (c *EVMClient) Address() string {
	if c.key == nil {
		return ""
	}
	return strings.ToLower(c.from.Hex())
}

func (c *EVMClient) Organization(ctx context.Context, address string) (*OrganizationRecord, error) {
	data, err := packOrganizationsCall(c.abi, address)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.registry, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("organizations(%s) call failed: %w", address, err)
	}
	return unpackOrganization(c.abi, out)
}

func (c *EVMClient) IssuanceFee(ctx context.Context, orgAddress string) (*big.Int, error) {
	return FeeFromRegistry(ctx, c, orgAddress)
}

func (c *EVMClient) Transfer(ctx context.Context, to string, amount *big.Int) (*Receipt, error) {
	if c.key == nil {
		return nil, ErrNoSigner
	}
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid recipient %q", to)
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}
	recipient := common.HexToAddress(to)

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{From: c.from, To: &recipient, Value: amount})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &recipient,
		Value:    amount,
		Gas:      gas,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.backend, signed)
	if err != nil {
		return nil, fmt.Errorf("transaction %s confirmation failed: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s", ErrTransactionFailed, signed.Hash().Hex())
	}

	return &Receipt{
		TxHash:      signed.Hash().Hex(),
		From:        strings.ToLower(c.from.Hex()),
		To:          strings.ToLower(recipient.Hex()),
		Amount:      new(big.Int).Set(amount),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// VerifyPayment checks that p.TxHash is a successful transfer of at least
// p.MinAmount from p.From to p.To.
func (c *EVMClient) VerifyPayment(ctx context.Context, p Payment) (*Receipt, error) {
	if !isTxHash(p.TxHash) {
		return nil, fmt.Errorf("%w: malformed transaction hash", ErrPaymentMismatch)
	}
	hash := common.HexToHash(p.TxHash)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tx, pending, err := c.backend.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("%w: transaction not found", ErrPaymentMismatch)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	if pending {
		return nil, ErrTransactionPending
	}

	receipt, err := c.backend.TransactionReceipt(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, ErrTransactionFailed
	}

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover sender: %w", err)
	}
	if tx.To() == nil || !strings.EqualFold(tx.To().Hex(), p.To) {
		return nil, fmt.Errorf("%w: wrong recipient", ErrPaymentMismatch)
	}
	if !strings.EqualFold(sender.Hex(), p.From) {
		return nil, fmt.Errorf("%w: wrong sender", ErrPaymentMismatch)
	}
	if p.MinAmount != nil && tx.Value().Cmp(p.MinAmount) < 0 {
		return nil, fmt.Errorf("%w: paid %s, expected %s", ErrPaymentMismatch, tx.Value(), p.MinAmount)
	}

	return &Receipt{
		TxHash:      hash.Hex(),
		From:        strings.ToLower(sender.Hex()),
		To:          strings.ToLower(tx.To().Hex()),
		Amount:      tx.Value(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

func isTxHash(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
