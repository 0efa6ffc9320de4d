package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port            int
	DBDSN           string
	RedisURL        string
	JWTAccessTTL    time.Duration
	JWTRefreshTTL   time.Duration
	JWTSecret       string
	AllowOrigins    []string
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	// O painel mantém a sessão por até uma semana; o token de acesso cobre essa janela.
	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	allowOrigins := strings.Split(getEnv("ALLOW_ORIGINS", ""), ",")
	cfg.AllowOrigins = nil
	for _, origin := range allowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.RateLimitPublic, err = parseRateLimitEnv("RATE_LIMIT_PUBLIC", RateLimitConfig{RequestsPerSecond: 10, Burst: 20})
	if err != nil {
		return nil, err
	}
	cfg.RateLimitAuth, err = parseRateLimitEnv("RATE_LIMIT_AUTH", RateLimitConfig{RequestsPerSecond: 10, Burst: 40})
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseRateLimitEnv(prefix string, def RateLimitConfig) (RateLimitConfig, error) {
	out := def

	if val := getEnv(prefix+"_RPS", ""); val != "" {
		rps, err := strconv.ParseFloat(val, 64)
		if err != nil || rps <= 0 {
			return RateLimitConfig{}, errors.New(prefix + "_RPS inválido")
		}
		out.RequestsPerSecond = rps
	}
	if val := getEnv(prefix+"_BURST", ""); val != "" {
		burst, err := strconv.Atoi(val)
		if err != nil || burst <= 0 {
			return RateLimitConfig{}, errors.New(prefix + "_BURST inválido")
		}
		out.Burst = burst
	}
	return out, nil
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}
