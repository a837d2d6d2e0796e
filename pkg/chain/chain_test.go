package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegistry = "0x00000000000000000000000000000000000000c0"

type fakeBackend struct {
	callOutput []byte
	callErr    error
	tx         *types.Transaction
	pending    bool
	receipt    *types.Receipt
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if f.receipt == nil {
		return nil, ethereum.NotFound
	}
	return f.receipt, nil
}

func (f *fakeBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return f.callOutput, f.callErr
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.tx = tx
	f.receipt = &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash(), BlockNumber: big.NewInt(99)}
	return nil
}

func (f *fakeBackend) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	if f.tx == nil {
		return nil, false, ethereum.NotFound
	}
	return f.tx, f.pending, nil
}

func TestFormatAndParseEther(t *testing.T) {
	wei, err := ParseEther("0.05")
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000", wei.String())
	assert.Equal(t, "0.05", FormatEther(wei))

	wei, err = ParseEther("12")
	require.NoError(t, err)
	assert.Equal(t, "12", FormatEther(wei))

	assert.Equal(t, "0.000000000000000001", FormatEther(big.NewInt(1)))
	assert.Equal(t, "0", FormatEther(nil))

	_, err = ParseEther("1.0000000000000000001")
	assert.Error(t, err)
	_, err = ParseEther("-1")
	assert.Error(t, err)
	_, err = ParseEther("abc")
	assert.Error(t, err)
}

func TestParseWei(t *testing.T) {
	wei, err := ParseWei("")
	require.NoError(t, err)
	assert.Zero(t, wei.Sign())

	wei, err = ParseWei("50000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "50000000000000000", wei.String())

	for _, bad := range []string{"-5", "1.5", "+3", "0x10"} {
		_, err := ParseWei(bad)
		assert.Error(t, err, bad)
	}
}

func TestOrganizationDecodesRegistryOutput(t *testing.T) {
	parsed, err := parseRegistryABI()
	require.NoError(t, err)
	out, err := parsed.Methods["organizations"].Outputs.Pack("Org Test Org", true, big.NewInt(5e16))
	require.NoError(t, err)

	client, err := NewEVMClient(&fakeBackend{callOutput: out}, Config{ContractAddress: testRegistry, ChainID: 44787})
	require.NoError(t, err)

	rec, err := client.Organization(context.Background(), "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, "Org Test Org", rec.Name)
	assert.True(t, rec.IsRegistered)
	assert.Equal(t, int64(5e16), rec.IssuanceFee.Int64())

	fee, err := client.IssuanceFee(context.Background(), "0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, int64(5e16), fee.Int64())
}

func TestIssuanceFeeUnregistered(t *testing.T) {
	parsed, err := parseRegistryABI()
	require.NoError(t, err)
	out, err := parsed.Methods["organizations"].Outputs.Pack("", false, big.NewInt(0))
	require.NoError(t, err)

	client, err := NewEVMClient(&fakeBackend{callOutput: out}, Config{ContractAddress: testRegistry, ChainID: 44787})
	require.NoError(t, err)

	_, err = client.IssuanceFee(context.Background(), "0x00000000000000000000000000000000000000aa")
	assert.ErrorIs(t, err, ErrOrganizationNotRegistered)
}

func TestOrganizationRejectsBadAddress(t *testing.T) {
	client, err := NewEVMClient(&fakeBackend{}, Config{ContractAddress: testRegistry, ChainID: 1})
	require.NoError(t, err)

	_, err = client.Organization(context.Background(), "0xOrgTestOrg")
	assert.Error(t, err)
}

func TestTransferAndVerify(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyHex := common.Bytes2Hex(crypto.FromECDSA(key))

	backend := &fakeBackend{}
	client, err := NewEVMClient(backend, Config{ContractAddress: testRegistry, ChainID: 44787, PrivateKey: "0x" + keyHex})
	require.NoError(t, err)

	org := "0x00000000000000000000000000000000000000aa"
	receipt, err := client.Transfer(context.Background(), org, big.NewInt(5e16))
	require.NoError(t, err)
	assert.Equal(t, org, receipt.To)
	assert.Equal(t, client.Address(), receipt.From)
	assert.Equal(t, uint64(99), receipt.BlockNumber)
	assert.Equal(t, uint64(7), backend.tx.Nonce())

	verified, err := client.VerifyPayment(context.Background(), Payment{
		TxHash:    receipt.TxHash,
		From:      client.Address(),
		To:        org,
		MinAmount: big.NewInt(5e16),
	})
	require.NoError(t, err)
	assert.Equal(t, receipt.TxHash, verified.TxHash)

	_, err = client.VerifyPayment(context.Background(), Payment{
		TxHash:    receipt.TxHash,
		From:      client.Address(),
		To:        org,
		MinAmount: big.NewInt(6e16),
	})
	assert.ErrorIs(t, err, ErrPaymentMismatch)

	_, err = client.VerifyPayment(context.Background(), Payment{
		TxHash: receipt.TxHash,
		From:   client.Address(),
		To:     "0x00000000000000000000000000000000000000bb",
	})
	assert.ErrorIs(t, err, ErrPaymentMismatch)
}

func TestVerifyPaymentStates(t *testing.T) {
	client, err := NewEVMClient(&fakeBackend{}, Config{ContractAddress: testRegistry, ChainID: 1})
	require.NoError(t, err)

	_, err = client.VerifyPayment(context.Background(), Payment{TxHash: "0x1234"})
	assert.ErrorIs(t, err, ErrPaymentMismatch)

	_, err = client.VerifyPayment(context.Background(), Payment{TxHash: "0x" + strings.Repeat("ab", 32)})
	assert.ErrorIs(t, err, ErrPaymentMismatch)
}

func TestTransferRequiresKey(t *testing.T) {
	client, err := NewEVMClient(&fakeBackend{}, Config{ContractAddress: testRegistry, ChainID: 1})
	require.NoError(t, err)

	_, err = client.Transfer(context.Background(), "0x00000000000000000000000000000000000000aa", big.NewInt(1))
	assert.True(t, errors.Is(err, ErrNoSigner))
	assert.Empty(t, client.Address())
}
