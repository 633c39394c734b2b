package bot

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	coretelegram "gatebot/core/telegram"
	"gatebot/core/telegram/commands"
	"gatebot/core/telegram/router"
	"gatebot/core/telegram/state"

	"gatebot/internal/app"
	"gatebot/internal/repository/postgres"
	"gatebot/internal/service"
)

// App assembles the access gateway bot on top of the shared runtime.
type App struct {
	cfg      *app.Config
	db       *sqlx.DB
	rdb      *redis.Client
	gw       *Gateway
	handlers *Handlers
	fsm      state.Manager
}

// New wires repositories, services, and handlers from loaded configuration
// and an open database handle.
func New(cfg *app.Config, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}
	if db == nil {
		return nil, fmt.Errorf("bot: nil database handle")
	}

	users := postgres.NewUserRepository(db)
	downloads := postgres.NewDownloadRepository(db)

	gw := NewGateway(cfg.Access.Channel)

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	verifier := service.NewCachedVerifier(gw, rdb, cfg.Access.VerifyCacheTTL())

	access := service.NewAccessService(users, verifier, cfg.Access.TokenTTL(), cfg.Access.ReferralTTL())
	gate := service.NewDownloadGate(users, downloads,
		service.GatewayResolver{BaseURL: cfg.Access.ResolverURL},
		cfg.Access.DownloadLinkTTL(),
	)
	caster := service.NewBroadcaster(users, gw,
		cfg.Core.Telegram.AdminID,
		cfg.Access.BroadcastConcurrency,
		cfg.Access.BroadcastSendTimeout(),
	)

	fsm := state.NewMemoryManager()
	handlers := NewHandlers(access, gate, caster, users, downloads, gw, fsm, cfg.Core.Telegram.AdminID)
	state.RegisterHandler(StateBroadcastCompose, handlers.BroadcastCompose)

	return &App{
		cfg:      cfg,
		db:       db,
		rdb:      rdb,
		gw:       gw,
		handlers: handlers,
		fsm:      fsm,
	}, nil
}

// TelegramRunOptions builds the runtime options consumed by the shared runner.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handlers.Start,
		Description: "Register and check channel membership",
	})
	reg.RegisterCommand("/check", commands.Command{
		Handler:     a.handlers.Check,
		Description: "Re-check membership and show your access token",
	})
	reg.RegisterCommand("/broadcast", commands.Command{
		Handler:     a.handlers.Broadcast,
		Description: "Send an announcement to every user",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     a.handlers.Stats,
		Description: "Show user and download counters",
		AdminOnly:   true,
		Hidden:      true,
	})

	if err := reg.RegisterCallback(callbackCheckJoin, a.handlers.CheckCallback); err != nil {
		return coretelegram.RunOptions{}, err
	}

	fb := fallbacks{h: a.handlers}
	reg.SetTextFallback(fb.UnknownText())
	reg.SetCallbackNotFound(fb.UnknownCallback())

	coreCfg := a.cfg.CoreConfig()

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       coreCfg.Telegram.AdminID,
		OnAdminReject: a.handlers.RejectUnauthorized,
	})
	routes = append(routes, router.TextRoutes(a.fsm, reg, router.TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: fb.UnknownCallback(),
	}))

	opts := coretelegram.RunOptions{
		Config:      coreCfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(coreCfg, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			return a.gw.Bind(rt.Bot)
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			return a.Close()
		},
	}
	return opts, nil
}

// Close releases the database and cache handles.
func (a *App) Close() error {
	var firstErr error
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
