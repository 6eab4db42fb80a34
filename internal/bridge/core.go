package bridge

import (
	"context"
	"os"
	"strconv"
	"time"

	"deposit-bridge/internal/bridge/balance"
	"deposit-bridge/internal/bridge/builder"
	"deposit-bridge/internal/bridge/config"
	"deposit-bridge/internal/bridge/dao"
	"deposit-bridge/internal/bridge/deposit"
	"deposit-bridge/internal/bridge/job"
	"deposit-bridge/internal/bridge/ledger"
	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/monitor"
	"deposit-bridge/internal/bridge/observer"
	"deposit-bridge/internal/bridge/price"
	"deposit-bridge/internal/bridge/registry"
	"deposit-bridge/internal/bridge/repository"
	"deposit-bridge/internal/bridge/signer"
	"deposit-bridge/internal/bridge/writer"
	"deposit-bridge/internal/bridge/writer/event"
	"deposit-bridge/pkg/httpclient"

	"go.uber.org/zap"
)

const (
	eventWriterID        = "kafka_deposit_event"
	eventBatchSize       = 100
	eventFlushInterval   = time.Second
	defaultObserverEvery = 15 * time.Second
)

type Core struct {
	cfg         config.Config
	tl          *zap.Logger
	repo        repository.Repository
	registry    *registry.Registry
	ledger      *ledger.Ledger
	store       dao.DepositDAO
	builder     *builder.Builder
	service     *deposit.Service
	scheduler   *job.Scheduler
	eventWriter *writer.AsyncBatchWriter[model.DepositEvent]
	priceClient *httpclient.HTTPClient
	metrics     *monitor.MetricsServer
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Core, error) {
	repo, err := repository.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(cfg.Bridge.Contracts)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	c := &Core{
		cfg:       cfg,
		tl:        logger,
		repo:      repo,
		registry:  reg,
		scheduler: job.NewScheduler(logger),
		metrics:   monitor.NewMetricsServer(cfg.Monitor, logger),
	}

	// 账本: 可选落库与事件发布
	var opts []ledger.Option
	if db := repo.GetDB(); db != nil {
		c.store = dao.NewDepositDAO(db, repo.GetRDB(), logger)
		opts = append(opts, ledger.WithStore(c.store))
	}
	if mq := repo.GetMQ(); mq != nil {
		c.eventWriter = writer.NewAsyncBatchWriter[model.DepositEvent](logger,
			event.NewKafkaDepositEventWriter(mq, logger, cfg.Kafka.TopicDeposit),
			eventBatchSize, eventFlushInterval, eventWriterID, 1)
		opts = append(opts, ledger.WithEventSink(c.eventWriter))
	}
	c.ledger = ledger.New(logger, opts...)

	c.builder = builder.NewBuilder(reg, logger, cfg.Bridge.DestinationHRP)

	aggregator, err := c.balanceAggregator()
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	svcOpts := []deposit.Option{deposit.WithBalances(aggregator)}
	if oracle := c.priceOracle(); oracle != nil {
		svcOpts = append(svcOpts, deposit.WithEstimator(oracle))
	}
	c.service = deposit.NewService(c.builder, c.ledger, logger, svcOpts...)

	c.registerJobs()
	return c, nil
}

func (c *Core) balanceAggregator() (*balance.Aggregator, error) {
	var providers []balance.Provider
	pool := c.repo.GetEvmPool()
	for _, id := range pool.ChainIDs() {
		client, _ := pool.Client(id)
		p, err := balance.NewEVMProvider(id, client, c.cfg.Chains[strconv.FormatUint(id, 10)].Tokens, c.tl)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	for _, id := range c.cfg.SolanaChainIDs() {
		client, ok := c.repo.GetSolanaClient(id)
		if !ok {
			continue
		}
		p, err := balance.NewSolanaProvider(id, client, c.cfg.Chains[id].Tokens, c.tl)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return balance.NewAggregator(c.tl, providers...), nil
}

func (c *Core) priceOracle() *price.Oracle {
	pc := c.cfg.Price
	if pc.BaseURL == "" || len(pc.Assets) == 0 {
		return nil
	}
	c.priceClient = httpclient.NewHTTPClient(httpclient.HTTPClientConfig{
		Timeout:      5 * time.Second,
		RateLimit:    pc.RateLimit,
		MaxRetries:   1,
		UserAgent:    "deposit-bridge",
		APIKeyHeader: pc.APIKeyHeader,
		APIKey:       os.Getenv(pc.APIKeyEnv),
	}, c.tl)

	ids := make(map[string]string, len(pc.Assets))
	for _, a := range pc.Assets {
		ids[a.Denom] = a.ID
	}
	return price.NewOracle(pc.BaseURL, c.priceClient, ids, pc.CacheTTL, c.tl)
}

func (c *Core) registerJobs() {
	// 启动时恢复仍有 pending 记录的 owner, 之后由 deposit_observer 每轮同步
	if c.store != nil {
		c.scheduler.RegisterOnceJob("ledger_restore", c.restorePending)
	}

	sources := make(map[string]observer.ReceiptSource)
	pool := c.repo.GetEvmPool()
	for _, id := range pool.ChainIDs() {
		client, _ := pool.Client(id)
		sources[strconv.FormatUint(id, 10)] = client
	}
	if len(sources) == 0 {
		return
	}
	interval := c.cfg.Observer.Interval
	if interval <= 0 {
		interval = defaultObserverEvery
	}
	obs := observer.NewReceiptObserver(c.ledger, sources, c.cfg.Observer.RateLimit, c.tl)
	c.scheduler.RegisterJob("deposit_observer", interval, obs.CheckOnce)
}

func (c *Core) restorePending(ctx context.Context) error {
	n, err := c.ledger.Sync(ctx)
	if err != nil {
		return err
	}
	c.tl.Info("ledger restored", zap.Int("records", n))
	return nil
}

// Service 充值入口
func (c *Core) Service() *deposit.Service {
	return c.service
}

// Ledger 充值账本
func (c *Core) Ledger() *ledger.Ledger {
	return c.ledger
}

// Registry bridge 合约表
func (c *Core) Registry() *registry.Registry {
	return c.registry
}

// NewSigner 用环境变量中的私钥创建签名者, 覆盖所有已连接的 EVM 链
func (c *Core) NewSigner() (*signer.EVMSigner, error) {
	key, err := signer.PrivateKeyFromEnv(c.cfg.Signer.PrivateKeyEnv)
	if err != nil {
		return nil, err
	}
	backends := make(map[uint64]signer.Backend)
	pool := c.repo.GetEvmPool()
	for _, id := range pool.ChainIDs() {
		client, _ := pool.Client(id)
		backends[id] = client
	}
	return signer.NewEVMSigner(key, backends, c.cfg.Signer.GasMultiplier, c.tl), nil
}

// Start 启动后台组件, 不阻塞
func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting bridge core...",
		zap.Uint64s("bridgeChains", c.registry.ChainIDs()),
		zap.Bool("persistent", c.store != nil),
		zap.Bool("events", c.eventWriter != nil))

	c.metrics.Run()
	if c.eventWriter != nil {
		c.eventWriter.Start(ctx)
	}
	c.scheduler.Start(ctx)
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping bridge core...")

	c.scheduler.Stop(ctx)
	if c.eventWriter != nil {
		c.eventWriter.Close()
	}
	if err := c.metrics.Stop(ctx); err != nil {
		c.tl.Warn("metrics server shutdown failed", zap.Error(err))
	}
	if c.priceClient != nil {
		_ = c.priceClient.Close()
	}
	_ = c.repo.Close()

	c.tl.Info("Bridge core stopped.")
}
