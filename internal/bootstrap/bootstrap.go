// Package bootstrap assembles the StellarPass core from configuration. The HTTP server
// and the CLI share it.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/stellarpass/stellarpass/internal/auth"
	"github.com/stellarpass/stellarpass/internal/clock"
	"github.com/stellarpass/stellarpass/internal/config"
	"github.com/stellarpass/stellarpass/internal/contract"
	"github.com/stellarpass/stellarpass/internal/identity"
	"github.com/stellarpass/stellarpass/internal/keystore"
	"github.com/stellarpass/stellarpass/internal/kv"
	"github.com/stellarpass/stellarpass/internal/ledger"
	"github.com/stellarpass/stellarpass/internal/notification"
	"github.com/stellarpass/stellarpass/internal/passkey"
	"github.com/stellarpass/stellarpass/internal/payments"
	"github.com/stellarpass/stellarpass/internal/stellar"
	"github.com/stellarpass/stellarpass/internal/wallet"
)

const (
	redisKeyPrefix    = "stellarpass:"
	noticeHistory     = 50
	credentialTimeout = 60 * time.Second
)

// Deps carries the external resources the core is built from. DB and Cache are only
// required by the matching STORE_BACKEND.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	Clock  clock.Clock
	// Notifier receives notices in addition to the in-memory history.
	Notifier notification.Notifier
	// Platform is the credential authenticator. Nil means none is available.
	Platform passkey.Authenticator
	// Submitter overrides the contract backend.
	Submitter contract.Submitter
}

// Core is the wired application.
type Core struct {
	Store     kv.Store
	Roster    identity.Repository
	Records   *identity.Records
	Directory *identity.Directory
	Manager   *auth.Manager
	Tokens    *auth.Tokens
	Wallet    *wallet.Facade
	Contract  *contract.Client
	Payments  *payments.Service
	Notices   *notification.Recorder
	Logger    *slog.Logger
}

// Build wires the core and restores a persisted session.
func Build(ctx context.Context, d Deps) (*Core, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Platform == nil {
		d.Platform = passkey.NoPlatform{}
	}

	store, err := Store(ctx, d.Cfg, d.DB, d.Cache)
	if err != nil {
		return nil, err
	}
	roster, err := roster(ctx, d.Cfg, d.DB, store)
	if err != nil {
		return nil, err
	}

	notices := notification.NewRecorder(noticeHistory)
	notifier := notification.Fanout{notices, notification.NewLoggerNotifier(d.Logger)}
	if d.Notifier != nil {
		notifier = append(notifier, d.Notifier)
	}

	platform, err := passkey.NewWebAuthn(passkey.WebAuthnConfig{
		RPID:          d.Cfg.RPID,
		RPDisplayName: d.Cfg.RPDisplayName,
		RPOrigins:     d.Cfg.RPOrigins,
		Timeout:       credentialTimeout,
	}, d.Platform, d.Logger)
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}

	records := identity.NewRecords(store)
	manager := auth.NewManager(auth.Options{
		Roster:   roster,
		Records:  records,
		Real:     platform,
		Notifier: notifier,
		Clock:    d.Clock,
		Logger:   d.Logger.With("component", "session"),
	})
	tokens, err := auth.NewTokens(d.Cfg.SessionSecret, 0, d.Clock)
	if err != nil {
		return nil, err
	}

	facade := wallet.NewFacade(wallet.Options{
		Keys:        keystore.New(store, d.Cfg.KeyPassphrase),
		Ledger:      ledger.NewInMemory(),
		Notifier:    notifier,
		Clock:       d.Clock,
		TipLinkHost: d.Cfg.TipLinkHost,
		Logger:      d.Logger.With("component", "wallet"),
	})
	manager.Subscribe(facade.OnIdentity)

	submitter := d.Submitter
	if submitter == nil {
		if submitter, err = Submitter(d.Cfg, d.Clock, d.Logger); err != nil {
			return nil, err
		}
	}
	client := contract.NewClient(submitter, contract.Config{
		ContractID: d.Cfg.ContractID,
		BaseFee:    d.Cfg.BaseFee,
		Logger:     d.Logger.With("component", "contract"),
	})
	service := payments.NewService(payments.Options{
		Client:   client,
		Session:  manager,
		Keys:     facade,
		Token:    d.Cfg.NativeTokenID,
		Notifier: notifier,
		Logger:   d.Logger.With("component", "payments"),
	})

	if err := manager.Init(ctx); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}

	return &Core{
		Store:     store,
		Roster:    roster,
		Records:   records,
		Directory: identity.NewDirectory(roster, d.Cfg.TipLinkHost),
		Manager:   manager,
		Tokens:    tokens,
		Wallet:    facade,
		Contract:  client,
		Payments:  service,
		Notices:   notices,
		Logger:    d.Logger,
	}, nil
}

// Store opens the key-value backend named by STORE_BACKEND.
func Store(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client) (kv.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		return kv.NewMemory(), nil
	case config.StoreFile:
		return kv.NewFile(cfg.StoreDir)
	case config.StoreRedis:
		if cache == nil {
			return nil, fmt.Errorf("redis store selected without a redis client")
		}
		return kv.NewRedis(cache, redisKeyPrefix), nil
	case config.StorePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres store selected without a database pool")
		}
		return kv.NewPostgres(ctx, db)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func roster(ctx context.Context, cfg config.Config, db *pgxpool.Pool, store kv.Store) (identity.Repository, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		return identity.NewPostgresRepository(ctx, db)
	case config.StoreMemory:
		return identity.NewMemoryRepository(), nil
	default:
		return identity.NewKVRepository(store), nil
	}
}

// Submitter selects the Soroban RPC submitter when a contract is configured and the
// in-process contract otherwise.
func Submitter(cfg config.Config, c clock.Clock, logger *slog.Logger) (contract.Submitter, error) {
	if !cfg.ContractEnabled() {
		logger.Info("no contract configured, using the in-process contract")
		return contract.NewMemory(c), nil
	}
	sub, err := stellar.NewSubmitter(stellar.NewRPCClient(cfg.SorobanRPCURL), stellar.Config{
		NetworkPassphrase: cfg.NetworkPassphrase,
		Logger:            logger.With("component", "stellar"),
	})
	if err != nil {
		return nil, fmt.Errorf("configure soroban submitter: %w", err)
	}
	return sub, nil
}
