package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fxnlabs/marketplace-sdk/internal/app"
	"github.com/fxnlabs/marketplace-sdk/internal/config"
	"github.com/fxnlabs/marketplace-sdk/internal/logger"
	"github.com/fxnlabs/marketplace-sdk/pkg/contracts"
	"github.com/fxnlabs/marketplace-sdk/pkg/ethclient"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "mktsdk",
		Usage: "Resolve and inspect marketplace contracts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   defaultConfigPath,
				Usage:   "Path to the config file",
				EnvVars: []string{"MKTSDK_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "network",
				Usage:   "Network name or chain id, overrides the config",
				EnvVars: []string{"MKTSDK_NETWORK"},
			},
			&cli.StringFlag{
				Name:    "registry",
				Usage:   "Registry base URL, overrides the config",
				EnvVars: []string{"MKTSDK_REGISTRY"},
			},
			&cli.StringFlag{
				Name:  "verbosity",
				Usage: "Log level, overrides the config",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := loadConfig(c.String("config"), c.IsSet("config"))
			if err != nil {
				return err
			}
			if c.IsSet("network") {
				cfg.Network = c.String("network")
			}
			if c.IsSet("registry") {
				cfg.Registry.URL = c.String("registry")
			}
			if c.IsSet("verbosity") {
				cfg.Logger.Verbosity = c.String("verbosity")
			}

			zapLogger, err := logger.NewConsole(cfg.Logger.Verbosity)
			if err != nil {
				return err
			}
			c.App.Metadata = map[string]interface{}{
				"config": cfg,
				"logger": zapLogger.Named("cli"),
			}
			return nil
		},
		Commands: []*cli.Command{
			resolveCommand(),
			prefetchCommand(),
			probeCommand(),
			serveRegistryCommand(),
		},
	}
}

// loadConfig reads path. A missing default config file falls back to the defaults.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return config.Default(), nil
	}
	return cfg, err
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func loggerFrom(c *cli.Context) *zap.Logger {
	return c.App.Metadata["logger"].(*zap.Logger)
}

// withRegistry starts the SDK components, runs fn with the contract registry
// and stops them again.
func withRegistry(c *cli.Context, fn func(ctx context.Context, r *contracts.Registry) error) error {
	cfg, log := configFrom(c), loggerFrom(c)

	var registry *contracts.Registry
	fxApp := fx.New(app.Module(cfg, log), fx.Populate(&registry))
	if err := fxApp.Start(c.Context); err != nil {
		return err
	}
	defer func() {
		if err := fxApp.Stop(context.Background()); err != nil {
			log.Warn("Failed to stop cleanly", zap.Error(err))
		}
	}()
	return fn(c.Context, registry)
}

// connect returns a read-only connection to the configured RPC provider.
func connect(ctx context.Context, cfg *config.Config) (*contracts.Connection, func(), error) {
	if cfg.RpcProvider == "" {
		return nil, nil, errors.New("rpcProvider is not configured")
	}
	client, err := ethclient.Dial(ctx, cfg.RpcProvider)
	if err != nil {
		return nil, nil, err
	}
	return contracts.ReadOnly(client), client.Close, nil
}
