// Package commands implements the stellarpass CLI.
package commands

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stellarpass/stellarpass/internal/bootstrap"
	"github.com/stellarpass/stellarpass/internal/clock"
	"github.com/stellarpass/stellarpass/internal/config"
	"github.com/stellarpass/stellarpass/internal/infra"
	"github.com/stellarpass/stellarpass/internal/logging"
	"github.com/stellarpass/stellarpass/internal/notification"
)

// Options customises the CLI, mainly for tests.
type Options struct {
	Out   io.Writer
	Err   io.Writer
	Clock clock.Clock
}

type cli struct {
	opts Options

	storeDir   string
	backend    string
	passphrase string
	logLevel   string

	backends *infra.Backends
	core     *bootstrap.Core
}

// Execute runs the CLI against the process streams.
func Execute() error {
	return New(Options{Out: os.Stdout, Err: os.Stderr}).Execute()
}

// New builds the root command.
func New(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	c := &cli{opts: opts}

	root := &cobra.Command{
		Use:           "stellarpass",
		Short:         "Passkey wallet and tip links on Stellar",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.backends.Close()
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	root.PersistentFlags().StringVar(&c.storeDir, "store-dir", "", "state directory for the file store (default ~/.stellarpass)")
	root.PersistentFlags().StringVar(&c.backend, "store", "", "store backend: file, memory, redis or postgres")
	root.PersistentFlags().StringVarP(&c.passphrase, "passphrase", "p", "", "passphrase sealing wallet keys")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		c.registerCmd(),
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.walletCmd(),
		c.sendCmd(),
		c.receiveCmd(),
		c.tiplinkCmd(),
		c.tipCmd(),
		c.chainCmd(),
	)
	return root
}

func (c *cli) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.storeDir != "" {
		cfg.StoreDir = c.storeDir
	}
	if c.backend != "" {
		cfg.StoreBackend = c.backend
	}
	if c.passphrase != "" {
		cfg.KeyPassphrase = c.passphrase
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewWithFormat(c.opts.Err, c.logLevel, "text")
	if c.backends, err = infra.Open(ctx, cfg); err != nil {
		return err
	}
	c.core, err = bootstrap.Build(ctx, bootstrap.Deps{
		Cfg:      cfg,
		DB:       c.backends.DB,
		Cache:    c.backends.Cache,
		Logger:   logger,
		Clock:    c.opts.Clock,
		Notifier: notification.NewWriterNotifier(c.opts.Err),
	})
	if err != nil {
		c.backends.Close()
		return err
	}
	return nil
}
