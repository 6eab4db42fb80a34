package repository

import (
	"context"
	"fmt"
	"strings"

	"deposit-bridge/internal/bridge/config"
	"deposit-bridge/internal/bridge/dao"
	"deposit-bridge/internal/bridge/writer/event"
	"deposit-bridge/pkg/database"
	"deposit-bridge/pkg/evm_client"
	"deposit-bridge/pkg/solana_client"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type repositoryImpl struct {
	cfg           config.Config
	logger        *zap.Logger
	db            *gorm.DB
	rdb           *redis.Client
	mq            *kafka.Writer
	evmPool       *evm_client.Pool
	solanaClients map[string]*rpc.Client
}

// New 按配置初始化连接, postgres/redis/kafka 均可选, RPC 连接失败直接返回错误
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (Repository, error) {
	r := &repositoryImpl{
		cfg:           cfg,
		logger:        logger,
		solanaClients: make(map[string]*rpc.Client),
	}
	if err := r.init(ctx); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *repositoryImpl) init(ctx context.Context) error {
	var err error

	if strings.TrimSpace(r.cfg.Postgres.DSN) != "" {
		r.db, err = database.Open(r.cfg.Postgres.Driver, r.cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		if err := dao.AutoMigrate(r.db); err != nil {
			return fmt.Errorf("migrate deposits table: %w", err)
		}
	} else {
		r.logger.Info("database dsn empty, deposits kept in memory only")
	}

	if r.cfg.Redis.Address != "" {
		r.rdb = redis.NewClient(&redis.Options{
			Addr:     r.cfg.Redis.Address,
			Password: r.cfg.Redis.Password,
			DB:       r.cfg.Redis.DB,
			PoolSize: 20,
		})
		if err := r.rdb.Ping(ctx).Err(); err != nil {
			r.logger.Warn("failed to connect to redis, continue without cache", zap.Error(err))
			_ = r.rdb.Close()
			r.rdb = nil
		}
	}

	if brokers := splitBrokers(r.cfg.Kafka.Brokers); len(brokers) > 0 {
		r.mq = event.NewKafkaWriter(brokers)
	} else {
		r.logger.Info("kafka brokers empty, deposit events disabled")
	}

	urls := make(map[uint64]string)
	for _, id := range r.cfg.EvmChainIDs() {
		urls[id] = r.cfg.Chains[fmt.Sprint(id)].RpcUrl
	}
	r.evmPool, err = evm_client.DialAll(ctx, urls)
	if err != nil {
		return err
	}

	for _, id := range r.cfg.SolanaChainIDs() {
		chain := r.cfg.Chains[id]
		r.solanaClients[id] = solana_client.Init(chain.RpcUrl, chain.Headers)
	}
	return nil
}

func splitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func (r *repositoryImpl) GetDB() *gorm.DB {
	return r.db
}

func (r *repositoryImpl) GetRDB() *redis.Client {
	return r.rdb
}

func (r *repositoryImpl) GetMQ() MQClient {
	return r.mq
}

func (r *repositoryImpl) GetEvmPool() *evm_client.Pool {
	return r.evmPool
}

func (r *repositoryImpl) GetSolanaClient(chainID string) (*rpc.Client, bool) {
	c, ok := r.solanaClients[chainID]
	return c, ok
}

func (r *repositoryImpl) Close() error {
	if r.db != nil {
		if sqlDB, err := r.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if r.rdb != nil {
		_ = r.rdb.Close()
	}
	if r.mq != nil {
		_ = r.mq.Close()
	}
	if r.evmPool != nil {
		r.evmPool.Close()
	}
	for _, c := range r.solanaClients {
		_ = c.Close()
	}
	return nil
}
