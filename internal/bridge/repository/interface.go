package repository

import (
	"deposit-bridge/pkg/evm_client"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

type RedisClient = *redis.Client
type DBClient = *gorm.DB
type MQClient = *kafka.Writer

// Repository 外部连接, 未配置的组件返回 nil
type Repository interface {
	GetDB() DBClient
	GetRDB() RedisClient
	GetMQ() MQClient
	GetEvmPool() *evm_client.Pool
	GetSolanaClient(chainID string) (*rpc.Client, bool)
	Close() error
}
