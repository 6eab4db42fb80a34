package builder

import (
	"context"
	"math/big"

	"deposit-bridge/internal/bridge/model"

	"github.com/ethereum/go-ethereum/common"
)

// ChainContext 签名与广播所在的链
type ChainContext struct {
	ChainID uint64
}

// CallSpec 一次合约调用
type CallSpec struct {
	From   string
	To     common.Address
	Method string
	Args   []any
	Data   []byte   // ABI 编码后的调用数据
	Value  *big.Int // bridge 不携带原生币, 恒为 0
}

// Signer 外部签名者, 负责签名并广播, 返回交易哈希
type Signer interface {
	SignAndSend(ctx context.Context, chain ChainContext, call CallSpec) (string, error)
}

// SignerFunc 函数适配
type SignerFunc func(ctx context.Context, chain ChainContext, call CallSpec) (string, error)

func (f SignerFunc) SignAndSend(ctx context.Context, chain ChainContext, call CallSpec) (string, error) {
	return f(ctx, chain, call)
}

// DepositRequest 一次充值请求
type DepositRequest struct {
	Owner  string // 来源链地址, 作为交易发送方
	Token  model.Token
	Amount string // 用户输入的十进制金额

	// Recipient 目标链收款地址(bech32), 为空时充值给自己
	Recipient string
	// OwnerDestination 用户自己在目标链上的地址, 由钱包会话提供
	OwnerDestination string
}

// Submission 提交成功的结果
type Submission struct {
	TxHash      string
	ChainID     string
	Contract    common.Address
	AmountMinor string
	Recipient   string // 0x 十六进制
	Memo        []byte
}
