package balance

import (
	"context"
	"fmt"

	"deposit-bridge/internal/bridge/model"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Provider 查询某条链上账户的代币余额
type Provider interface {
	Ecosystem() model.Ecosystem
	ChainID() string
	Balances(ctx context.Context, owner string) ([]model.BalanceEntry, error)
}

// Aggregator 并发查询账户所在生态的全部 provider
type Aggregator struct {
	providers []Provider
	tl        *zap.Logger
}

func NewAggregator(tl *zap.Logger, providers ...Provider) *Aggregator {
	return &Aggregator{providers: providers, tl: tl}
}

// Balances 按 provider 注册顺序拼接持有量大于 0 的结果, 部分失败只记录日志
// 全部失败时返回错误
func (a *Aggregator) Balances(ctx context.Context, account model.SourceAccount) ([]model.BalanceEntry, error) {
	var matched []Provider
	for _, p := range a.providers {
		if p.Ecosystem() == account.Ecosystem {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	results := make([][]model.BalanceEntry, len(matched))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(8)
	for i, provider := range matched {
		p.Go(func(ctx context.Context) error {
			entries, err := provider.Balances(ctx, account.Address)
			if err != nil {
				return fmt.Errorf("chain %s: %w", provider.ChainID(), err)
			}
			results[i] = entries
			return nil
		})
	}
	err := p.Wait()

	var out []model.BalanceEntry
	for _, entries := range results {
		for _, e := range entries {
			if e.Magnitude.IsPositive() {
				out = append(out, e)
			}
		}
	}
	if err != nil {
		a.tl.Warn("balance query partially failed",
			zap.String("ecosystem", account.Ecosystem.String()),
			zap.String("address", account.Address),
			zap.Error(err))
		if len(out) == 0 {
			return nil, err
		}
	}
	return out, nil
}
