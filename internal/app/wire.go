package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	s3blob "github.com/predictx/marketd/internal/blob/s3"
	"github.com/predictx/marketd/internal/cache/redis"
	"github.com/predictx/marketd/internal/config"
	"github.com/predictx/marketd/internal/crypto"
	"github.com/predictx/marketd/internal/domain"
	"github.com/predictx/marketd/internal/market"
	"github.com/predictx/marketd/internal/platform/oracle"
	"github.com/predictx/marketd/internal/platform/treasury"
	"github.com/predictx/marketd/internal/store/memory"
	"github.com/predictx/marketd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	Store  domain.LedgerStore
	Oracle domain.Oracle
	Token  domain.TokenService

	Pools       domain.PoolCache
	RateLimiter domain.RateLimiter
	Locks       domain.LockManager
	Bus         domain.SignalBus

	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	Engine *market.Engine
}

// needsArchive returns true for modes that run the cold-storage sweep.
func needsArchive(cfg *config.Config) bool {
	mode := strings.ToLower(cfg.Mode)
	return mode == "archive" || (cfg.Archive.Enabled && mode == "full")
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// Dev mode runs entirely in-process: memory store, loopback
	// collaborators, no redis, no S3.
	if strings.ToLower(cfg.Mode) == "dev" {
		store := memory.NewStore()
		deps.Store = store
		deps.Oracle = newDevOracle()
		deps.Token = &devToken{logger: logger}
		deps.Engine = market.New(
			deps.Store, deps.Oracle, deps.Token,
			nil, nil, nil, nil,
			cfg.Market.CustodyAddress, logger,
		)
		return deps, cleanup, nil
	}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pgStore := postgres.NewStore(pgClient.Pool())
	deps.Store = pgStore

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Pools = redis.NewPoolCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.Locks = redis.NewLockManager(redisClient)
	deps.Bus = redis.NewSignalBus(redisClient)

	// --- Platform clients ---
	oracleAuth, err := hmacAuth(cfg.Oracle.ApiKey, crypto.SecretConfig{
		RawSecret:           cfg.Oracle.ApiSecret,
		EncryptedSecretPath: cfg.Oracle.EncryptedSecretPath,
		SecretPassword:      cfg.Oracle.SecretPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: oracle credentials: %w", err)
	}
	deps.Oracle = oracle.NewClient(cfg.Oracle.BaseURL, oracleAuth)

	treasuryAuth, err := hmacAuth(cfg.Treasury.ApiKey, crypto.SecretConfig{
		RawSecret:           cfg.Treasury.ApiSecret,
		EncryptedSecretPath: cfg.Treasury.EncryptedSecretPath,
		SecretPassword:      cfg.Treasury.SecretPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: treasury credentials: %w", err)
	}
	deps.Token = treasury.NewClient(cfg.Treasury.BaseURL, treasuryAuth)

	// --- S3 blob storage (only for modes that archive) ---
	if needsArchive(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.Bus, pgStore)
	}

	deps.Engine = market.New(
		deps.Store, deps.Oracle, deps.Token,
		deps.Bus, deps.Locks, deps.Pools, nil,
		cfg.Market.CustodyAddress, logger,
	)

	return deps, cleanup, nil
}

// hmacAuth resolves the platform API secret and builds the request signer.
// Returns nil when no key is configured, which leaves requests unsigned.
func hmacAuth(apiKey string, secret crypto.SecretConfig) (*crypto.HMACAuth, error) {
	if apiKey == "" {
		return nil, nil
	}
	s, err := crypto.LoadSecret(secret)
	if err != nil {
		return nil, err
	}
	return &crypto.HMACAuth{Key: apiKey, Secret: s}, nil
}

// devOracle is the in-process status authority used in dev mode. Polls
// default to active; statuses written through SetStatus stick.
type devOracle struct {
	mu       sync.RWMutex
	statuses map[uint64]domain.PollStatus
	updated  map[uint64]int64
}

func newDevOracle() *devOracle {
	return &devOracle{
		statuses: make(map[uint64]domain.PollStatus),
		updated:  make(map[uint64]int64),
	}
}

func (o *devOracle) Status(ctx context.Context, ref string, pollID uint64) (domain.PollStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if s, ok := o.statuses[pollID]; ok {
		return s, nil
	}
	return domain.PollStatusActive, nil
}

func (o *devOracle) StatusUpdatedAt(ctx context.Context, ref string, pollID uint64) (int64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.updated[pollID], nil
}

func (o *devOracle) SetStatus(ctx context.Context, ref string, pollID uint64, status domain.PollStatus) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses[pollID] = status
	o.updated[pollID] = time.Now().Unix()
	return nil
}

// devToken is the in-process value-transfer collaborator used in dev mode.
// Transfers always succeed and are only logged.
type devToken struct {
	logger *slog.Logger
}

func (t *devToken) Transfer(ctx context.Context, from, to string, amount int64) error {
	t.logger.InfoContext(ctx, "dev transfer",
		slog.String("from", from),
		slog.String("to", to),
		slog.Int64("amount", amount),
	)
	return nil
}

var (
	_ domain.Oracle       = (*devOracle)(nil)
	_ domain.TokenService = (*devToken)(nil)
)
