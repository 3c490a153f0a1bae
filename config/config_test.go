package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.Search.MaxResults != 10 {
		t.Fatalf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Search.Timeout != 15*time.Second {
		t.Fatalf("unexpected search timeout: %v", cfg.Search.Timeout)
	}
	if cfg.Search.CacheTTL != 24*time.Hour {
		t.Fatalf("unexpected cache ttl: %v", cfg.Search.CacheTTL)
	}
	if cfg.Server.Address != ":10002" {
		t.Fatalf("unexpected server address: %q", cfg.Server.Address)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{URL: "postgres://u:p@h:5432/db"}
	dsn, err := p.DSN()
	if err != nil || dsn != p.URL {
		t.Fatalf("explicit url must win: %q %v", dsn, err)
	}

	p = PostgresConfig{Host: "localhost", User: "u", Password: "p", DBName: "careershift"}
	dsn, err = p.DSN()
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	want := "postgres://u:p@localhost:5432/careershift?sslmode=disable"
	if dsn != want {
		t.Fatalf("dsn %q, want %q", dsn, want)
	}

	if _, err := (PostgresConfig{}).DSN(); err == nil {
		t.Fatalf("expected error when unconfigured")
	}
}
