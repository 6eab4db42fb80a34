package balance

import (
	"context"
	"fmt"
	"math/big"

	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/units"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// SolanaRPC *rpc.Client 满足
type SolanaRPC interface {
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
}

// SolanaProvider 查询 SPL 代币余额, 同一 mint 的多个账户累加
type SolanaProvider struct {
	chainID string
	client  SolanaRPC
	mints   []solana.PublicKey
	tl      *zap.Logger
}

func NewSolanaProvider(chainID string, client SolanaRPC, mints []string, tl *zap.Logger) (*SolanaProvider, error) {
	keys := make([]solana.PublicKey, 0, len(mints))
	for _, m := range mints {
		key, err := solana.PublicKeyFromBase58(m)
		if err != nil {
			return nil, fmt.Errorf("invalid mint %q: %w", m, err)
		}
		keys = append(keys, key)
	}
	return &SolanaProvider{chainID: chainID, client: client, mints: keys, tl: tl}, nil
}

func (p *SolanaProvider) Ecosystem() model.Ecosystem { return model.EcosystemSolana }

func (p *SolanaProvider) ChainID() string { return p.chainID }

func (p *SolanaProvider) Balances(ctx context.Context, owner string) ([]model.BalanceEntry, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return nil, fmt.Errorf("invalid solana address %q: %w", owner, err)
	}

	out := make([]model.BalanceEntry, 0, len(p.mints))
	for _, mint := range p.mints {
		entry, found, err := p.mintBalance(ctx, ownerKey, mint)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (p *SolanaProvider) mintBalance(ctx context.Context, owner, mint solana.PublicKey) (model.BalanceEntry, bool, error) {
	accounts, err := p.client.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return model.BalanceEntry{}, false, fmt.Errorf("get token accounts for mint %s: %w", mint, err)
	}
	if accounts == nil || len(accounts.Value) == 0 {
		return model.BalanceEntry{}, false, nil
	}

	total := new(big.Int)
	var decimals uint8
	for _, account := range accounts.Value {
		balance, err := p.client.GetTokenAccountBalance(ctx, account.Pubkey, rpc.CommitmentConfirmed)
		if err != nil {
			p.tl.Warn("get token account balance failed", zap.String("account", account.Pubkey.String()), zap.Error(err))
			continue
		}
		if balance == nil || balance.Value == nil {
			continue
		}
		amount, ok := new(big.Int).SetString(balance.Value.Amount, 10)
		if !ok {
			continue
		}
		total.Add(total, amount)
		decimals = balance.Value.Decimals
	}

	return model.BalanceEntry{
		Token: model.Token{
			ChainID:  p.chainID,
			Denom:    mint.String(),
			Decimals: decimals,
		},
		Magnitude: units.AdjustDecimals(total, decimals),
	}, true, nil
}
