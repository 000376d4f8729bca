package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fxnlabs/marketplace-sdk/internal/app"
	"github.com/fxnlabs/marketplace-sdk/pkg/batch"
	"github.com/fxnlabs/marketplace-sdk/pkg/contracts"
	"github.com/fxnlabs/marketplace-sdk/pkg/network"
)

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve contracts and print their addresses",
		ArgsUsage: "NAME...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "Use this address instead of the registered one",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.ShowSubcommandHelp(c)
			}
			cfg := configFrom(c)
			var opts []contracts.HandleOption
			if c.IsSet("address") {
				opts = append(opts, contracts.AtAddress(c.String("address")))
			}

			// Resolution itself never touches the chain, so a missing RPC provider is fine.
			conn := contracts.ReadOnly(nil)
			if cfg.RpcProvider != "" {
				var closeFn func()
				var err error
				conn, closeFn, err = connect(c.Context, cfg)
				if err != nil {
					return err
				}
				defer closeFn()
			}

			return withRegistry(c, func(ctx context.Context, r *contracts.Registry) error {
				for _, name := range c.Args().Slice() {
					h, err := r.GetHandle(ctx, name, cfg.Network, conn, opts...)
					if err != nil {
						return fmt.Errorf("resolve %s: %w", name, err)
					}
					fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\t%d methods\n",
						h.Name(), network.NewResolver(cfg.Networks).Name(h.ChainID()), h.Address().Hex(), len(h.ABI().Methods))
				}
				return nil
			})
		},
	}
}

func prefetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "prefetch",
		Usage:     "Fetch the ABIs of contracts, failing if any is missing",
		ArgsUsage: "NAME...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.ShowSubcommandHelp(c)
			}
			cfg := configFrom(c)
			names := c.Args().Slice()
			return withRegistry(c, func(ctx context.Context, r *contracts.Registry) error {
				if err := r.Prefetch(ctx, names, cfg.Network); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "prefetched %d contracts on %s\n", len(names), cfg.Network)
				return nil
			})
		},
	}
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "Detect the token standard of collection addresses",
		ArgsUsage: "ADDRESS...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Probes in flight at once, overrides batch.maxConcurrency",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.ShowSubcommandHelp(c)
			}
			cfg, log := configFrom(c), loggerFrom(c)
			opts := cfg.BatchOptions()
			opts.Logger = log
			if c.IsSet("concurrency") {
				opts.MaxConcurrency = c.Int("concurrency")
			}

			conn, closeFn, err := connect(c.Context, cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			return withRegistry(c, func(ctx context.Context, r *contracts.Registry) error {
				addresses := c.Args().Slice()
				ops := make([]batch.Operation[contracts.TokenStandard], len(addresses))
				for i, address := range addresses {
					ops[i] = func(ctx context.Context) (contracts.TokenStandard, error) {
						return r.ResolveTokenStandard(ctx, address, conn), nil
					}
				}

				outcomes, err := batch.Run(ctx, ops, opts)
				if err != nil {
					return err
				}
				for i, o := range outcomes {
					switch o.Status {
					case batch.Succeeded:
						fmt.Fprintf(c.App.Writer, "%s\t%s\n", addresses[i], o.Value)
					default:
						fmt.Fprintf(c.App.Writer, "%s\t%s\t%v\n", addresses[i], o.Status, o.Err)
					}
				}
				return batch.Err(outcomes)
			})
		},
	}
}

func serveRegistryCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve-registry",
		Usage: "Serve a local contract registry from a manifest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "Manifest path, overrides devRegistry.manifestPath",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Listen address, overrides devRegistry.listenAddress",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, log := configFrom(c), loggerFrom(c)
			if c.IsSet("manifest") {
				cfg.DevRegistry.ManifestPath = c.String("manifest")
			}
			if c.IsSet("listen") {
				cfg.DevRegistry.ListenAddress = c.String("listen")
			}
			if cfg.DevRegistry.ManifestPath == "" {
				return errors.New("no manifest configured")
			}
			// The registry client is not used by the server, but the module needs a valid URL.
			if cfg.Registry.URL == "" {
				cfg.Registry.URL = "http://" + cfg.DevRegistry.ListenAddress
			}

			figure.NewFigure("Registry", "", true).Print()
			fmt.Println("")
			fmt.Printf("Manifest: %s\n", cfg.DevRegistry.ManifestPath)
			fmt.Printf("Listening on: %s\n", cfg.DevRegistry.ListenAddress)
			fmt.Println("-----------------------------------------------")

			fxApp := fx.New(app.Module(cfg, log), app.DevRegistryModule())
			if err := fxApp.Start(c.Context); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			log.Info("Shutting down")
			if err := fxApp.Stop(context.Background()); err != nil {
				log.Error("Failed to stop cleanly", zap.Error(err))
				return err
			}
			return nil
		},
	}
}
