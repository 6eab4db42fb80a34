package price

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/units"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fetcher JSON 价格接口, 生产环境为 httpclient.HTTPClient
type Fetcher interface {
	GetJSON(ctx context.Context, url string, queryParams map[string]string, out any) error
}

// Oracle 按 denom 估算充值的 USD 价值, 价格带本地缓存
type Oracle struct {
	baseURL string
	fetcher Fetcher
	ids     map[string]string
	cache   *cache.Cache
	tl      *zap.Logger
}

// NewOracle ids 为 denom -> 价格源 id, EVM 地址大小写不敏感
func NewOracle(baseURL string, fetcher Fetcher, ids map[string]string, ttl time.Duration, tl *zap.Logger) *Oracle {
	if ttl <= 0 {
		ttl = time.Minute
	}
	normalized := make(map[string]string, len(ids))
	for denom, id := range ids {
		normalized[denomKey(denom)] = id
	}
	return &Oracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
		ids:     normalized,
		cache:   cache.New(ttl, 2*ttl),
		tl:      tl,
	}
}

func denomKey(denom string) string {
	if strings.HasPrefix(denom, "0x") || strings.HasPrefix(denom, "0X") {
		return strings.ToLower(denom)
	}
	return denom
}

// PriceUSD 返回 token 的 USD 单价, 未配置的 token 返回 false
func (o *Oracle) PriceUSD(ctx context.Context, token model.Token) (decimal.Decimal, bool, error) {
	id, ok := o.ids[denomKey(token.Denom)]
	if !ok {
		return decimal.Zero, false, nil
	}
	if v, found := o.cache.Get(id); found {
		return v.(decimal.Decimal), true, nil
	}

	var out map[string]map[string]decimal.Decimal
	params := map[string]string{"ids": id, "vs_currencies": "usd"}
	if err := o.fetcher.GetJSON(ctx, o.baseURL+"/simple/price", params, &out); err != nil {
		return decimal.Zero, false, fmt.Errorf("fetch price %s: %w", id, err)
	}
	p, ok := out[id]["usd"]
	if !ok {
		return decimal.Zero, false, fmt.Errorf("price %s missing in response", id)
	}
	o.cache.SetDefault(id, p)
	return p, true, nil
}

// EstimateUSD 最小单位金额的 USD 估值, 保留两位小数
// 无价格时返回 nil, 估值失败不影响充值
func (o *Oracle) EstimateUSD(ctx context.Context, token model.Token, amountMinor string) *string {
	p, ok, err := o.PriceUSD(ctx, token)
	if err != nil {
		o.tl.Warn("estimate usd failed", zap.String("denom", token.Denom), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	amount, err := units.FromMinorUnits(amountMinor, token.Decimals)
	if err != nil {
		o.tl.Warn("estimate usd failed", zap.String("denom", token.Denom), zap.Error(err))
		return nil
	}
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return nil
	}
	usd := v.Mul(p).StringFixed(2)
	return &usd
}
