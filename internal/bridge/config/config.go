package config

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config 定义整个配置的结构
type Config struct {
	Log      LogConfig              `mapstructure:"log"`
	Postgres DBConfig               `mapstructure:"postgres"`
	Redis    RedisConfig            `mapstructure:"redis"`
	Kafka    KafkaConfig            `mapstructure:"kafka"`
	Monitor  MonitorConfig          `mapstructure:"monitor"`
	Chains   map[string]ChainConfig `mapstructure:"chains"` // key 为 chainId
	Bridge   BridgeConfig           `mapstructure:"bridge"`
	Signer   SignerConfig           `mapstructure:"signer"`
	Observer ObserverConfig         `mapstructure:"observer"`
	Price    PriceConfig            `mapstructure:"price"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DBConfig 数据库配置, driver 为 postgres 或 mysql, dsn 为空则不落库
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig 账本事件 topic, brokers 为空则不发送
type KafkaConfig struct {
	Brokers      string `mapstructure:"brokers"`
	TopicDeposit string `mapstructure:"topic_deposit"`
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

// ChainConfig 来源链 RPC
type ChainConfig struct {
	Ecosystem string            `mapstructure:"ecosystem"` // evm / solana / cosmos
	RpcUrl    string            `mapstructure:"rpc_url"`
	Headers   map[string]string `mapstructure:"headers"`
	Tokens    []string          `mapstructure:"tokens"` // 余额查询的代币地址
}

// BridgeConfig 桥合约与目标链
type BridgeConfig struct {
	Contracts       map[string]string `mapstructure:"contracts"` // chainId -> 合约地址
	DestinationHRP  string            `mapstructure:"destination_hrp"`
	DestinationName string            `mapstructure:"destination_name"`
}

// SignerConfig 私钥签名者, 私钥只从环境变量读取
type SignerConfig struct {
	PrivateKeyEnv string  `mapstructure:"private_key_env"`
	GasMultiplier float64 `mapstructure:"gas_multiplier"`
}

// ObserverConfig 链上确认轮询
type ObserverConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	RateLimit int           `mapstructure:"rate_limit"` // 每秒 RPC 次数
}

// PriceConfig USD 估值, base_url 为空则不估值
type PriceConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKeyHeader string        `mapstructure:"api_key_header"`
	APIKeyEnv    string        `mapstructure:"api_key_env"`
	RateLimit    int           `mapstructure:"rate_limit"` // 每分钟请求次数
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	Assets       []PriceAsset  `mapstructure:"assets"`
}

// PriceAsset denom 与价格源 id 的映射, viper 会把 map 的 key 转成小写, 所以用列表
type PriceAsset struct {
	Denom string `mapstructure:"denom"`
	ID    string `mapstructure:"id"`
}

// SolanaChainIDs 配置中的 Solana 链
func (c Config) SolanaChainIDs() []string {
	var ids []string
	for key, chain := range c.Chains {
		if model.ParseEcosystem(chain.Ecosystem) == model.EcosystemSolana {
			ids = append(ids, key)
		}
	}
	sort.Strings(ids)
	return ids
}

// EvmChainIDs 配置中的 EVM 链
func (c Config) EvmChainIDs() []uint64 {
	var ids []uint64
	for key, chain := range c.Chains {
		if model.ParseEcosystem(chain.Ecosystem) != model.EcosystemEVM {
			continue
		}
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("postgres.driver", "postgres")
	v.SetDefault("kafka.topic_deposit", "bridge_deposit_events")
	v.SetDefault("bridge.destination_hrp", "dydx")
	v.SetDefault("bridge.destination_name", "dydx")
	v.SetDefault("signer.private_key_env", "BRIDGE_PRIVATE_KEY")
	v.SetDefault("signer.gas_multiplier", 1.2)
	v.SetDefault("observer.interval", "15s")
	v.SetDefault("observer.rate_limit", 10)
	v.SetDefault("price.rate_limit", 30)
	v.SetDefault("price.cache_ttl", "1m")
}

// Load 从指定文件加载
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	var config Config
	dc := &mapstructure.DecoderConfig{
		Result:           &config,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	}
	dec, err := mapstructure.NewDecoder(dc)
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(v.AllSettings()); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return config, nil
}

func InitConfig() Config {
	setDefaults(viper.GetViper())
	viper.SetConfigName("config.bridge")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config/")

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	config, err := decode(viper.GetViper())
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	return config
}

// WatchConfig 热加载, 目前只有日志级别即时生效
func WatchConfig(config *Config) {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := decode(viper.GetViper())
		if err != nil {
			return
		}
		config.Log = newConfig.Log
		logger.SetLogLevel(config.Log.Level)
	})
}
