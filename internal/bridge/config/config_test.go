package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sample = `
log:
  level: debug
chains:
  "11155111":
    ecosystem: evm
    rpc_url: https://rpc.sepolia.org
    tokens:
      - "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
  "1":
    ecosystem: evm
    rpc_url: https://eth.llamarpc.com
  solana:
    ecosystem: solana
    rpc_url: https://api.mainnet-beta.solana.com
bridge:
  contracts:
    "1": "0x00000000000000000000000000000000000000AA"
observer:
  interval: 30s
price:
  base_url: https://api.coingecko.com/api/v3
  assets:
    - denom: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
      id: usd-coin
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "dydx", cfg.Bridge.DestinationHRP)
	require.Equal(t, "0x00000000000000000000000000000000000000AA", cfg.Bridge.Contracts["1"])
	require.Equal(t, 30*time.Second, cfg.Observer.Interval)
	require.Equal(t, 10, cfg.Observer.RateLimit)
	require.Equal(t, "BRIDGE_PRIVATE_KEY", cfg.Signer.PrivateKeyEnv)
	require.Equal(t, []string{"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"}, cfg.Chains["11155111"].Tokens)

	require.Equal(t, time.Minute, cfg.Price.CacheTTL)
	require.Equal(t, []PriceAsset{{Denom: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", ID: "usd-coin"}}, cfg.Price.Assets)

	require.Equal(t, []uint64{1, 11155111}, cfg.EvmChainIDs())
	require.Equal(t, []string{"solana"}, cfg.SolanaChainIDs())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
