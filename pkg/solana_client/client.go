package solana_client

import (
	"github.com/gagliardetto/solana-go/rpc"
)

// Init solana client, headers 用于需要鉴权的 RPC 服务商
func Init(rawUrl string, headers map[string]string) *rpc.Client {
	if len(headers) == 0 {
		return rpc.New(rawUrl)
	}
	return rpc.NewWithHeaders(rawUrl, headers)
}
