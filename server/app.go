package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pcbd/config"
	"pcbd/internal/ai"
	"pcbd/internal/auth"
	"pcbd/internal/chat"
	"pcbd/internal/db"
	"pcbd/internal/devices"
	"pcbd/internal/health"
	"pcbd/internal/logs"
	"pcbd/internal/middleware"
	"pcbd/internal/models"
	"pcbd/internal/storage"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	Router     *mux.Router
	httpServer *http.Server

	db     *gorm.DB
	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	if d == nil {
		log.Fatalf("database.driver is required")
	}
	a.db = d

	if err := a.db.AutoMigrate(
		&models.Device{},
		&models.ChatMessage{},
		&models.User{},
		&models.AuthToken{},
	); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	a.Router = mux.NewRouter()
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(middleware.LoggerMW)

	health.RegisterRoutesWithDB(a.Router, a.db) // /healthz and /readyz

	store, err := storage.New(a.cfg.Storage.Dir, a.cfg.Storage.PublicPath)
	if err != nil {
		log.Fatalf("image store init failed: %v", err)
	}
	a.RegisterStatic(store)

	// Provider picked once at startup; everything downstream sees only the
	// Invoker interface.
	inv := newInvoker(a.cfg.AI)

	devRepo := devices.NewRepo(a.db)
	chatRepo := chat.NewRepo(a.db)
	assembler := chat.NewAssembler(devRepo, chatRepo, inv, store.URL)

	authRepo := auth.NewRepo(a.db)
	auth.NewHTTP(authRepo).RegisterRoutes(a.Router)

	api := a.Router
	if a.cfg.Auth.Enabled {
		// Ownership scoping: the device/chat API runs behind token auth.
		sub := a.Router.NewRoute().Subrouter()
		sub.Use(auth.RequireToken(authRepo))
		api = sub
	}
	devices.NewHTTP(devRepo, store, inv).RegisterRoutes(api)
	chat.NewHTTP(devRepo, chatRepo, assembler).RegisterRoutes(api)

	a.Router.Walk(func(rt *mux.Route, r *mux.Router, ancestors []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

func newInvoker(cfg config.AIConfig) ai.Invoker {
	c := ai.ClientConfig{Model: cfg.Model, Timeout: cfg.Timeout}
	switch {
	case cfg.Provider == "openai" && cfg.APIKey != "":
		c.APIKey = cfg.APIKey
	default:
		// Local OpenAI-compatible endpoint (LM Studio etc). The key is
		// ignored there but the client requires one.
		c.APIKey = "lm-studio"
		c.BaseURL = cfg.BaseURL
	}
	logs.Logger.Infof("ai: using %s model %s", cfg.Provider, cfg.Model)
	return ai.NewOpenAIClient(c)
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return ErrNotInitialized
	}
	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() { <-sigs; a.cancel() }()

	a.httpServer = &http.Server{
		Addr:         bind,
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // chat turns wait on the model
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.httpServer.Shutdown(ctx)
	return nil
}

var ErrNotInitialized = &initError{"server not initialized (call Initialize(cfg) first)"}

type initError struct{ s string }

func (e *initError) Error() string { return e.s }
