package signer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"deposit-bridge/internal/bridge/builder"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackend struct {
	baseFee *big.Int
	sendErr error
	sent    []*types.Transaction
	lastMsg ethereum.CallMsg
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 7, nil }

func (f *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return big.NewInt(2), nil }

func (f *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{BaseFee: f.baseFee}, nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.lastMsg = msg
	return 100_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func newTestSigner(t *testing.T, backend *fakeBackend) *EVMSigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return NewEVMSigner(key, map[uint64]Backend{11155111: backend}, 1.5, zap.NewNop())
}

func TestSignAndSend(t *testing.T) {
	backend := &fakeBackend{baseFee: big.NewInt(10)}
	s := newTestSigner(t, backend)

	to := common.HexToAddress("0xa4A7Acf2f06b1CC296E15E8979B546D34446D5c4")
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	hash, err := s.SignAndSend(context.Background(), builder.ChainContext{ChainID: 11155111}, builder.CallSpec{
		From:   s.Address().Hex(),
		To:     to,
		Method: "bridge",
		Data:   data,
	})
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	require.Equal(t, tx.Hash().Hex(), hash)
	require.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, uint64(150_000), tx.Gas())
	require.Equal(t, int64(22), tx.GasFeeCap().Int64())
	require.Equal(t, int64(2), tx.GasTipCap().Int64())
	require.Equal(t, to, *tx.To())
	require.Equal(t, data, tx.Data())
	require.Zero(t, tx.Value().Sign())
	require.Equal(t, s.Address(), backend.lastMsg.From)

	sender, err := types.Sender(types.NewLondonSigner(big.NewInt(11155111)), tx)
	require.NoError(t, err)
	require.Equal(t, s.Address(), sender)
}

func TestSignAndSendErrors(t *testing.T) {
	ctx := context.Background()
	call := builder.CallSpec{To: common.HexToAddress("0x01")}

	s := newTestSigner(t, &fakeBackend{baseFee: big.NewInt(1)})
	_, err := s.SignAndSend(ctx, builder.ChainContext{ChainID: 1}, call)
	require.ErrorIs(t, err, ErrNoBackend)

	_, err = s.SignAndSend(ctx, builder.ChainContext{ChainID: 11155111}, builder.CallSpec{From: "0x0000000000000000000000000000000000000001"})
	require.ErrorIs(t, err, ErrSenderMismatch)

	s = newTestSigner(t, &fakeBackend{})
	_, err = s.SignAndSend(ctx, builder.ChainContext{ChainID: 11155111}, call)
	require.ErrorIs(t, err, ErrNoBaseFee)

	boom := errors.New("nonce too low")
	s = newTestSigner(t, &fakeBackend{baseFee: big.NewInt(1), sendErr: boom})
	_, err = s.SignAndSend(ctx, builder.ChainContext{ChainID: 11155111}, call)
	require.ErrorIs(t, err, boom)
}

func TestPrivateKeyFromEnv(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	t.Setenv("TEST_BRIDGE_KEY", "0x"+common.Bytes2Hex(crypto.FromECDSA(key)))

	got, err := PrivateKeyFromEnv("TEST_BRIDGE_KEY")
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(got.PublicKey))

	t.Setenv("TEST_BRIDGE_KEY", "")
	_, err = PrivateKeyFromEnv("TEST_BRIDGE_KEY")
	require.ErrorIs(t, err, ErrMissingKeyInEnv)
}
