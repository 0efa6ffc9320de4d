package config

import (
	"strings"
	"testing"
)

func ambienteMinimo(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DSN", "postgres://local/teste")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
}

func TestLoadRateLimitsComDefaults(t *testing.T) {
	ambienteMinimo(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateLimitPublic.RequestsPerSecond != 10 || cfg.RateLimitPublic.Burst != 20 {
		t.Fatalf("default público inesperado: %+v", cfg.RateLimitPublic)
	}
	if cfg.RateLimitAuth.RequestsPerSecond != 10 || cfg.RateLimitAuth.Burst != 40 {
		t.Fatalf("default autenticado inesperado: %+v", cfg.RateLimitAuth)
	}
}

func TestLoadRateLimitsDoAmbiente(t *testing.T) {
	ambienteMinimo(t)
	t.Setenv("RATE_LIMIT_PUBLIC_RPS", "2.5")
	t.Setenv("RATE_LIMIT_PUBLIC_BURST", "5")
	t.Setenv("RATE_LIMIT_AUTH_BURST", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RateLimitPublic.RequestsPerSecond != 2.5 || cfg.RateLimitPublic.Burst != 5 {
		t.Fatalf("limite público do ambiente ignorado: %+v", cfg.RateLimitPublic)
	}
	// knob não informado mantém o default
	if cfg.RateLimitAuth.RequestsPerSecond != 10 || cfg.RateLimitAuth.Burst != 100 {
		t.Fatalf("limite autenticado inesperado: %+v", cfg.RateLimitAuth)
	}
}

func TestLoadRateLimitInvalido(t *testing.T) {
	ambienteMinimo(t)
	t.Setenv("RATE_LIMIT_PUBLIC_RPS", "zero")

	if _, err := Load(); err == nil {
		t.Fatal("RPS não numérico deveria falhar o load")
	}
}
