package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/careershift/careershift/config"
	"github.com/careershift/careershift/internal/store"
	"github.com/careershift/careershift/internal/transition"
	"github.com/careershift/careershift/provider"
	"github.com/careershift/careershift/tools/web_fetch"
	"github.com/careershift/careershift/tools/web_search"
)

// Run wires the full service and serves the HTTP API until the listener
// stops. The analysis endpoints are async: POST /analyze launches a pipeline
// run on its own goroutine and status is polled separately.
func Run(addr string) error {
	cfg, err := appconfig.LoadConfig("")
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
		baseLogger.Printf("migrations: %v", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	llm, err := provider.NewProviderWithOptions(provider.Client(cfg.LLM.Provider), provider.Options{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return err
	}

	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search.APIKey, cfg.Search.Timeout)
	if err != nil {
		return err
	}
	var search web_search.WebSearcher = searcher
	if cfg.Storage.Redis.Addr != "" {
		search = web_search.NewCachedSearcher(searcher,
			cfg.Storage.Redis.Addr, cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Search.CacheTTL)
	}

	orchLogger := log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	orch := transition.NewOrchestrator(st, llm, search, transition.NewTracker(), orchLogger)
	if cfg.Research.FetchPages {
		orch.SetFetcher(web_fetch.NewFetcher(cfg.Research.FetchTimeout, cfg.Research.MaxChars, "careershift/1.0"))
	}

	th := &TransitionsHandler{
		Store:   st,
		Orch:    orch,
		Logger:  baseLogger,
		Timeout: cfg.General.DefaultTimeout,
	}
	th.Register(e.Group("/api/transitions"))

	if addr == "" {
		addr = cfg.Server.Address
	}
	if addr == "" {
		addr = ":10002"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// runTimeout bounds one detached pipeline run.
func runTimeout(base time.Duration) time.Duration {
	if base <= 0 {
		return 10 * time.Minute
	}
	// A run makes several provider calls; give it headroom over a single
	// call's timeout.
	return base * 20
}
