package bot

import (
	"context"
	"fmt"
	"log/slog"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	coredatabase "github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/core/logger"
	telegram "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/middleware"
	"github.com/m3rciful/shopbot/dialog"
	"github.com/m3rciful/shopbot/session"
	"github.com/m3rciful/shopbot/shop"

	tele "gopkg.in/telebot.v4"
)

// App assembles the store, the commerce client, and the dialog pipeline, and
// runs the bot until the context is cancelled.
type App struct {
	cfg       *coreconfig.Config
	transport *Transport
	pool      *dialog.Pool
	closeFns  []func() error
}

// New builds the full pipeline from configuration. The Telegram connection
// itself is established in Run.
func New(ctx context.Context, cfg *coreconfig.Config) (*App, error) {
	app := &App{cfg: cfg}

	store, err := app.buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := shop.NewClient(cfg.Shop.BaseURL, cfg.Shop.ClientID, cfg.ShopTimeout())
	tokens := shop.NewRefresher(client)

	app.transport = NewTransport()
	handlers := dialog.NewHandlers(client, app.transport)
	machine := dialog.NewMachine(store, tokens, handlers.Registry())
	app.pool = dialog.NewPool(machine, dialog.PoolOptions{
		Workers:   cfg.Dialog.Workers,
		QueueSize: cfg.Dialog.QueueSize,
	})

	return app, nil
}

// Run drives the bot until ctx is cancelled, then drains the pool and closes
// the store.
func (a *App) Run(ctx context.Context) error {
	err := telegram.RunTelegram(ctx, telegram.RunOptions{
		Config: a.cfg,
		Middlewares: []telegram.Middleware{
			{Name: "recover", Use: middleware.RecoverMiddleware},
			{Name: "logging", Use: middleware.LoggerMiddleware},
		},
		Routes: Routes(a.pool),
		OnStart: func(ctx context.Context, b *tele.Bot) error {
			a.transport.Bind(b)
			logger.Info(ctx, "tg", "bot.start",
				slog.String("status", "ok"),
				slog.String("username", b.Me.Username),
			)
			return nil
		},
		OnStop: func(ctx context.Context, b *tele.Bot) error {
			a.pool.Close()
			return nil
		},
	})

	a.shutdown()
	return err
}

func (a *App) shutdown() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		if err := a.closeFns[i](); err != nil {
			logger.L.Warn("shutdown close failed",
				slog.String("event", "app.shutdown"),
				slog.String("err", err.Error()),
			)
		}
	}
}

// buildStore selects the configured conversation store backend.
func (a *App) buildStore(ctx context.Context, cfg *coreconfig.Config) (session.Store, error) {
	switch cfg.Store.Backend {
	case coreconfig.StoreBackendMemory:
		return session.NewMemoryStore(), nil

	case coreconfig.StoreBackendRedis:
		opts := []session.RedisOption{session.WithTTL(cfg.Store.Redis.RedisTTL())}
		if cfg.Store.Redis.KeyPrefix != "" {
			opts = append(opts, session.WithPrefix(cfg.Store.Redis.KeyPrefix))
		}
		store := session.NewRedisStore(
			cfg.Store.Redis.Addr,
			cfg.Store.Redis.Password,
			cfg.Store.Redis.DB,
			opts...,
		)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("bot: redis ping: %w", err)
		}
		a.closeFns = append(a.closeFns, store.Close)
		return store, nil

	case coreconfig.StoreBackendPostgres:
		dbCfg := coredatabase.Config{
			Host:           cfg.Store.Postgres.Host,
			Port:           cfg.Store.Postgres.Port,
			User:           cfg.Store.Postgres.User,
			Password:       cfg.Store.Postgres.Password,
			Name:           cfg.Store.Postgres.Name,
			SSLMode:        cfg.Store.Postgres.SSLMode,
			MaxConnections: cfg.Store.Postgres.MaxConnections,
		}
		if err := coredatabase.RunMigrations(dbCfg); err != nil {
			return nil, err
		}
		db, err := coredatabase.Connect(dbCfg)
		if err != nil {
			return nil, err
		}
		a.closeFns = append(a.closeFns, db.Close)
		return session.NewPostgresStore(db), nil
	}
	return nil, fmt.Errorf("bot: unknown store backend %q", cfg.Store.Backend)
}
