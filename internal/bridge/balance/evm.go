package balance

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/units"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var (
	balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}
	decimalsSelector  = []byte{0x31, 0x3c, 0xe5, 0x67}
)

// ContractCaller *ethclient.Client 满足
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EVMProvider 查询 ERC20 余额
type EVMProvider struct {
	chainID  uint64
	client   ContractCaller
	tokens   []common.Address
	decimals sync.Map // common.Address -> uint8
	tl       *zap.Logger
}

func NewEVMProvider(chainID uint64, client ContractCaller, tokens []string, tl *zap.Logger) (*EVMProvider, error) {
	addrs := make([]common.Address, 0, len(tokens))
	for _, t := range tokens {
		if !common.IsHexAddress(t) {
			return nil, fmt.Errorf("invalid token address %q on chain %d", t, chainID)
		}
		addrs = append(addrs, common.HexToAddress(t))
	}
	return &EVMProvider{chainID: chainID, client: client, tokens: addrs, tl: tl}, nil
}

func (p *EVMProvider) Ecosystem() model.Ecosystem { return model.EcosystemEVM }

func (p *EVMProvider) ChainID() string { return strconv.FormatUint(p.chainID, 10) }

// Balances 并发查询每个代币, 单个代币失败时跳过
func (p *EVMProvider) Balances(ctx context.Context, owner string) ([]model.BalanceEntry, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid evm address %q", owner)
	}
	wallet := common.HexToAddress(owner)

	results := make([]*model.BalanceEntry, len(p.tokens))
	pl := pool.New().WithContext(ctx).WithMaxGoroutines(8)
	for i, token := range p.tokens {
		pl.Go(func(ctx context.Context) error {
			entry, err := p.tokenBalance(ctx, wallet, token)
			if err != nil {
				return err
			}
			results[i] = &entry
			return nil
		})
	}
	err := pl.Wait()

	out := make([]model.BalanceEntry, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	if err != nil {
		if len(out) == 0 {
			return nil, err
		}
		p.tl.Warn("some token balances failed", zap.Uint64("chainId", p.chainID), zap.Error(err))
	}
	return out, nil
}

func (p *EVMProvider) tokenBalance(ctx context.Context, wallet, token common.Address) (model.BalanceEntry, error) {
	dec, err := p.tokenDecimals(ctx, token)
	if err != nil {
		return model.BalanceEntry{}, err
	}
	result, err := p.client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: BalanceOfCallData(wallet),
	}, nil)
	if err != nil {
		return model.BalanceEntry{}, fmt.Errorf("call balanceOf on %s: %w", token.Hex(), err)
	}
	raw, err := ParseUint256Result(result)
	if err != nil {
		return model.BalanceEntry{}, fmt.Errorf("parse balance for %s: %w", token.Hex(), err)
	}
	return model.BalanceEntry{
		Token: model.Token{
			ChainID:  p.ChainID(),
			Denom:    token.Hex(),
			Decimals: dec,
		},
		Magnitude: units.AdjustDecimals(raw, dec),
	}, nil
}

func (p *EVMProvider) tokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	if v, ok := p.decimals.Load(token); ok {
		return v.(uint8), nil
	}
	result, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: decimalsSelector}, nil)
	if err != nil {
		return 0, fmt.Errorf("call decimals on %s: %w", token.Hex(), err)
	}
	v, err := ParseUint256Result(result)
	if err != nil {
		return 0, fmt.Errorf("parse decimals for %s: %w", token.Hex(), err)
	}
	if !v.IsUint64() || v.Uint64() > 255 {
		return 0, fmt.Errorf("token %s reports decimals %s", token.Hex(), v)
	}
	dec := uint8(v.Uint64())
	p.decimals.Store(token, dec)
	return dec, nil
}

// BalanceOfCallData 构建 balanceOf(address) 调用数据
func BalanceOfCallData(wallet common.Address) []byte {
	data := make([]byte, 0, 4+32)
	data = append(data, balanceOfSelector...)
	return append(data, common.LeftPadBytes(wallet.Bytes(), 32)...)
}

// ParseUint256Result 取返回值的最后 32 字节
func ParseUint256Result(data []byte) (*big.Int, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("invalid result length: %d", len(data))
	}
	return new(big.Int).SetBytes(data[len(data)-32:]), nil
}
