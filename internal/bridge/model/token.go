package model

import (
	"github.com/shopspring/decimal"
)

// Ecosystem 链生态, 决定地址与交易格式
type Ecosystem int

const (
	EcosystemUnset Ecosystem = iota
	EcosystemEVM
	EcosystemSolana
	EcosystemCosmos

	numEcosystems
)

// Ecosystems 所有已知生态(不含 Unset)
var Ecosystems = [...]Ecosystem{EcosystemEVM, EcosystemSolana, EcosystemCosmos}

// NumEcosystems 供定长映射表使用
const NumEcosystems = int(numEcosystems)

func (e Ecosystem) String() string {
	switch e {
	case EcosystemEVM:
		return "evm"
	case EcosystemSolana:
		return "solana"
	case EcosystemCosmos:
		return "cosmos"
	default:
		return "unset"
	}
}

// ParseEcosystem 解析配置中的生态名称
func ParseEcosystem(s string) Ecosystem {
	for _, e := range Ecosystems {
		if e.String() == s {
			return e
		}
	}
	return EcosystemUnset
}

// ConnectorKind 钱包连接方式
type ConnectorKind string

const (
	ConnectorInjected      ConnectorKind = "injected"
	ConnectorWalletConnect ConnectorKind = "walletConnect"
	ConnectorPrivy         ConnectorKind = "privy"
	ConnectorPhantom       ConnectorKind = "phantomSolana"
	ConnectorCosmos        ConnectorKind = "cosmos"
	ConnectorPrivateKey    ConnectorKind = "privateKey"
)

// Token 可转账代币, 构造后不可变
type Token struct {
	ChainID  string `json:"chainId"`
	Denom    string `json:"denom"`
	Decimals uint8  `json:"decimals"`
}

// SourceAccount 用户的来源链账户, 由钱包会话维护
type SourceAccount struct {
	Ecosystem Ecosystem     `json:"chain"`
	Address   string        `json:"address"`
	Connector ConnectorKind `json:"connectorType"`
}

// BalanceEntry 某代币的余额(已按精度换算)
type BalanceEntry struct {
	Token     Token           `json:"token"`
	Magnitude decimal.Decimal `json:"magnitude"`
}
