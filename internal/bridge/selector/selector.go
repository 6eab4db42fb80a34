package selector

import (
	"strconv"

	"deposit-bridge/internal/bridge/errs"
	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/registry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

const USDCDecimals = 6

// 各生态默认链
const (
	SolanaMainnetID = "solana"
	OsmosisChainID  = "osmosis-1"
)

// USDC 地址/denom
var (
	SepoliaUSDC = common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	SolanaUSDC  = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	OsmosisUSDC = "ibc/498A0751C798A0D9A389AA3691123DADA57DAA4FE165D5C75894505B876BA6E4"
)

// fallbackTokens 按生态索引, 无余额时使用
var fallbackTokens = [model.NumEcosystems]model.Token{
	model.EcosystemEVM: {
		ChainID:  strconv.FormatUint(registry.SepoliaChainID, 10),
		Denom:    SepoliaUSDC.Hex(),
		Decimals: USDCDecimals,
	},
	model.EcosystemSolana: {
		ChainID:  SolanaMainnetID,
		Denom:    SolanaUSDC.String(),
		Decimals: USDCDecimals,
	},
	model.EcosystemCosmos: {
		ChainID:  OsmosisChainID,
		Denom:    OsmosisUSDC,
		Decimals: USDCDecimals,
	},
}

// FallbackToken 某生态的默认代币
func FallbackToken(eco model.Ecosystem) (model.Token, bool) {
	if eco <= model.EcosystemUnset || int(eco) >= model.NumEcosystems {
		return model.Token{}, false
	}
	t := fallbackTokens[eco]
	return t, t.Denom != ""
}

// ResolveDefaultToken 选出默认转账代币
// 有余额时取余额最大的(并列取先出现的), 否则取来源生态的 USDC
func ResolveDefaultToken(account model.SourceAccount, balances []model.BalanceEntry) (model.Token, error) {
	if account.Ecosystem == model.EcosystemUnset {
		return model.Token{}, errs.Newf(errs.CodeMissingSourceChain, "selector.ResolveDefaultToken",
			"no source chain detected for account %q", account.Address)
	}

	if len(balances) > 0 {
		best := 0
		for i := 1; i < len(balances); i++ {
			if balances[i].Magnitude.GreaterThan(balances[best].Magnitude) {
				best = i
			}
		}
		return balances[best].Token, nil
	}

	t, ok := FallbackToken(account.Ecosystem)
	if !ok {
		return model.Token{}, errs.Newf(errs.CodeMissingSourceChain, "selector.ResolveDefaultToken",
			"unknown source chain %d", int(account.Ecosystem))
	}
	return t, nil
}
