// Package chain is the narrow capability layer over the EVM network: reading an
// organization's issuance fee, paying it, and checking a payment after the fact.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrOrganizationNotRegistered = errors.New("organization not registered on chain")
	ErrTransactionFailed         = errors.New("transaction reverted")
	ErrTransactionPending        = errors.New("transaction not yet mined")
	ErrPaymentMismatch           = errors.New("payment does not match request")
	ErrNoSigner                  = errors.New("no signing key configured")
)

// OrganizationRecord mirrors the registry's organizations(address) getter.
type OrganizationRecord struct {
	Name         string
	IsRegistered bool
	IssuanceFee  *big.Int
}

// Receipt describes a mined value transfer.
type Receipt struct {
	TxHash      string   `json:"txHash"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Amount      *big.Int `json:"amount"`
	BlockNumber uint64   `json:"blockNumber"`
}

// Payment is what the backend expects to find on chain for a request.
type Payment struct {
	TxHash    string
	From      string
	To        string
	MinAmount *big.Int
}

type RegistryReader interface {
	Organization(ctx context.Context, address string) (*OrganizationRecord, error)
}

type FeeReader interface {
	// IssuanceFee returns the fee in wei, or ErrOrganizationNotRegistered.
	IssuanceFee(ctx context.Context, orgAddress string) (*big.Int, error)
}

type Transferer interface {
	// Transfer sends amount wei to the address and blocks until the transaction is mined.
	Transfer(ctx context.Context, to string, amount *big.Int) (*Receipt, error)
}

type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, p Payment) (*Receipt, error)
}

// FeeFromRegistry implements FeeReader on top of any RegistryReader.
func FeeFromRegistry(ctx context.Context, r RegistryReader, orgAddress string) (*big.Int, error) {
	rec, err := r.Organization(ctx, orgAddress)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.IsRegistered {
		return nil, ErrOrganizationNotRegistered
	}
	if rec.IssuanceFee == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(rec.IssuanceFee), nil
}

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// FormatEther renders wei as a decimal ether string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)

	whole, frac := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))
	out := whole.String()
	if frac.Sign() != 0 {
		fs := fmt.Sprintf("%018s", frac.String())
		out += "." + strings.TrimRight(fs, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ParseEther converts a decimal ether string to wei. At most 18 fractional digits.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 18 {
		return nil, fmt.Errorf("amount %q has more than 18 decimals", s)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", 18-len(frac))
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok || strings.ContainsAny(digits, "+-") {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return wei, nil
}

// ParseWei parses a non-negative base-10 wei amount.
func ParseWei(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	wei, ok := new(big.Int).SetString(s, 10)
	if !ok || wei.Sign() < 0 || strings.HasPrefix(s, "+") {
		return nil, fmt.Errorf("invalid wei amount %q", s)
	}
	return wei, nil
}
