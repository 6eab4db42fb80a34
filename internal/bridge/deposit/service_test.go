package deposit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"deposit-bridge/internal/bridge/bech32addr"
	"deposit-bridge/internal/bridge/builder"
	"deposit-bridge/internal/bridge/errs"
	"deposit-bridge/internal/bridge/ledger"
	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/registry"
	"deposit-bridge/internal/bridge/selector"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const evmOwner = "0x00000000000000000000000000000000000000Ab"

type fakeBalances struct {
	entries []model.BalanceEntry
	err     error
}

func (f fakeBalances) Balances(context.Context, model.SourceAccount) ([]model.BalanceEntry, error) {
	return f.entries, f.err
}

type fixedEstimator string

func (e fixedEstimator) EstimateUSD(context.Context, model.Token, string) *string {
	v := string(e)
	return &v
}

func newService(t *testing.T, opts ...Option) (*Service, *ledger.Ledger) {
	t.Helper()
	reg, err := registry.New(nil)
	require.NoError(t, err)
	l := ledger.New(zap.NewNop())
	return NewService(builder.NewBuilder(reg, zap.NewNop(), "dydx"), l, zap.NewNop(), opts...), l
}

func dydxAddress(t *testing.T) string {
	t.Helper()
	addr, err := bech32addr.Encode("dydx", []byte(strings.Repeat("\x42", 20)))
	require.NoError(t, err)
	return addr
}

func evmAccount() model.SourceAccount {
	return model.SourceAccount{Ecosystem: model.EcosystemEVM, Address: evmOwner, Connector: model.ConnectorInjected}
}

func TestDepositRecordsPending(t *testing.T) {
	s, l := newService(t, WithEstimator(fixedEstimator("25.00")))

	signer := builder.SignerFunc(func(context.Context, builder.ChainContext, builder.CallSpec) (string, error) {
		return "0xabc123", nil
	})
	rec, err := s.Deposit(context.Background(), Request{
		Account:   evmAccount(),
		Amount:    "25",
		Recipient: dydxAddress(t),
	}, signer)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(rec.ID, "deposit-"))
	require.Equal(t, "0xabc123", rec.TxHash)
	require.Equal(t, "11155111", rec.ChainID)
	require.Equal(t, model.DepositPending, rec.Status)
	require.Equal(t, "25000000", rec.TokenAmount)
	require.Equal(t, selector.SepoliaUSDC.Hex(), rec.Token.Denom)
	require.Equal(t, "25.00", *rec.EstimatedAmountUSD)
	require.False(t, rec.IsInstantDeposit)

	require.Equal(t, []model.DepositRecord{rec}, l.ListDeposits(evmOwner))
	require.Equal(t, l.ListDeposits(evmOwner), s.Deposits(evmOwner))
}

func TestDepositSignerFailureLeavesLedgerUntouched(t *testing.T) {
	s, l := newService(t)

	signer := builder.SignerFunc(func(context.Context, builder.ChainContext, builder.CallSpec) (string, error) {
		return "", errors.New("user rejected")
	})
	_, err := s.Deposit(context.Background(), Request{
		Account:          evmAccount(),
		Amount:           "1",
		OwnerDestination: dydxAddress(t),
	}, signer)
	require.Equal(t, errs.KindSubmission, errs.KindOf(err))
	require.Empty(t, l.ListDeposits(evmOwner))
}

func TestDepositUnsupportedChain(t *testing.T) {
	s, l := newService(t)
	calls := 0
	signer := builder.SignerFunc(func(context.Context, builder.ChainContext, builder.CallSpec) (string, error) {
		calls++
		return "0x1", nil
	})

	_, err := s.Deposit(context.Background(), Request{
		Account:   model.SourceAccount{Ecosystem: model.EcosystemSolana, Address: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"},
		Amount:    "1",
		Recipient: dydxAddress(t),
	}, signer)
	require.ErrorIs(t, err, errs.ErrUnsupportedChain)
	require.Zero(t, calls)
	require.Empty(t, l.ListDeposits("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"))
}

func TestDefaultToken(t *testing.T) {
	large := model.BalanceEntry{
		Token:     model.Token{ChainID: "11155111", Denom: "0x00000000000000000000000000000000000000cc", Decimals: 18},
		Magnitude: decimal.NewFromInt(500),
	}
	small := model.BalanceEntry{
		Token:     model.Token{ChainID: "11155111", Denom: selector.SepoliaUSDC.Hex(), Decimals: 6},
		Magnitude: decimal.NewFromInt(5),
	}

	s, _ := newService(t, WithBalances(fakeBalances{entries: []model.BalanceEntry{small, large}}))
	tok, err := s.DefaultToken(context.Background(), evmAccount())
	require.NoError(t, err)
	require.Equal(t, large.Token, tok)

	s, _ = newService(t, WithBalances(fakeBalances{err: errors.New("rpc down")}))
	tok, err = s.DefaultToken(context.Background(), evmAccount())
	require.NoError(t, err)
	fallback, _ := selector.FallbackToken(model.EcosystemEVM)
	require.Equal(t, fallback, tok)

	_, err = s.DefaultToken(context.Background(), model.SourceAccount{})
	require.ErrorIs(t, err, errs.ErrMissingSourceChain)
}
