package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deposit-bridge/internal/bridge"
	"deposit-bridge/internal/bridge/config"
	"deposit-bridge/internal/bridge/deposit"
	"deposit-bridge/internal/bridge/errs"
	"deposit-bridge/internal/bridge/model"
	"deposit-bridge/internal/bridge/units"
	"deposit-bridge/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// 一次性充值: 用环境变量中的私钥从 EVM 链 bridge 到目标链

func main() {
	os.Exit(execute())
}

// execute 返回退出码, defer 在退出前执行
func execute() int {
	var (
		configPath  = pflag.String("config", "./config/config.bridge.yaml", "config file")
		amount      = pflag.String("amount", "", "amount in token units, e.g. 10.5")
		recipient   = pflag.String("recipient", "", "destination address (bech32), empty deposits to --destination")
		destination = pflag.String("destination", "", "own destination chain address (bech32)")
		chainID     = pflag.String("chain", "", "source chain id of --token, both empty selects the token with the largest balance")
		denom       = pflag.String("token", "", "token address on the source chain, requires --chain")
		decimals    = pflag.Uint8("decimals", 6, "token decimals, used with --token")
		timeout     = pflag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	pflag.Parse()

	if err := checkTokenFlags(*chainID, *denom); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	shutdownTrace := logger.InitTrace("deposit-bridge", "deposit")
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = shutdownTrace(stopCtx)
	}()
	ctx, span := logger.StartSpan(context.Background(), "main", "deposit")
	defer span.End()

	tl := logger.WithTrace(ctx, logger.NewLogger("deposit"))
	logger.SetLogLevel(cfg.Log.Level)
	defer func() { _ = tl.Sync() }()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, tl, deposit.Request{
		Amount:           *amount,
		Recipient:        *recipient,
		OwnerDestination: *destination,
	}, *chainID, *denom, *decimals)
}

// checkTokenFlags --chain 与 --token 只能同时给出或同时省略
func checkTokenFlags(chainID, denom string) error {
	if (chainID == "") != (denom == "") {
		return errors.New("--chain and --token must be given together")
	}
	return nil
}

func run(ctx context.Context, cfg config.Config, tl *zap.Logger, req deposit.Request, chainID, denom string, decimals uint8) int {
	core, err := bridge.New(ctx, cfg, tl)
	if err != nil {
		tl.Error("Failed to init bridge core", zap.Error(err))
		return 1
	}
	core.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		core.Stop(stopCtx)
	}()

	s, err := core.NewSigner()
	if err != nil {
		tl.Error("Failed to load signer", zap.Error(err))
		return 1
	}

	req.Account = model.SourceAccount{
		Ecosystem: model.EcosystemEVM,
		Address:   s.Address().Hex(),
		Connector: model.ConnectorPrivateKey,
	}
	if denom != "" {
		req.Token = &model.Token{ChainID: chainID, Denom: denom, Decimals: decimals}
	}

	if _, err := core.Ledger().Restore(ctx, req.Account.Address); err != nil {
		tl.Warn("Failed to restore deposits", zap.Error(err))
	}

	record, err := core.Service().Deposit(ctx, req, s)
	if err != nil {
		tl.Error("Deposit failed",
			zap.String("kind", string(errs.KindOf(err))),
			zap.String("code", string(errs.CodeOf(err))),
			zap.Error(err))
		return 1
	}

	human, _ := units.FromMinorUnits(record.TokenAmount, record.Token.Decimals)
	tl.Info("Deposit submitted",
		zap.String("id", record.ID),
		zap.String("txHash", record.TxHash),
		zap.String("amount", human))

	out, _ := sonic.ConfigStd.MarshalIndent(record, "", "  ")
	fmt.Println(string(out))
	return 0
}
