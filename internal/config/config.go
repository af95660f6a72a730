// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreBackend はprofilesテーブルへのアクセス方式を表す。
type StoreBackend string

const (
	// StoreBackendREST はプラットフォームのデータAPI（PostgREST）経由でアクセスする。
	StoreBackendREST StoreBackend = "rest"
	// StoreBackendPostgres はプラットフォームのPostgreSQLに直接接続する。
	StoreBackendPostgres StoreBackend = "postgres"
)

// defaultCORSAllowedOrigins はフロントエンドの既知のオリジン。
var defaultCORSAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"https://netfluenz2-0.vercel.app",
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Platform
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string
	SupabaseHTTPTimeout    time.Duration

	// Store
	StoreBackend StoreBackend
	DatabaseURL  string

	// Rate Limit (req/min)
	RateLimitGeneral    int
	RateLimitModeration int

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigins []string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// SUPABASE_* が未設定の場合はフロントエンドと共有する VITE_SUPABASE_* を参照する。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.SupabaseURL = strings.TrimRight(firstEnv("SUPABASE_URL", "VITE_SUPABASE_URL"), "/")
	if cfg.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}

	cfg.SupabaseAnonKey = firstEnv("SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY")
	if cfg.SupabaseAnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}

	cfg.SupabaseServiceRoleKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if cfg.SupabaseServiceRoleKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}

	cfg.StoreBackend = StoreBackend(strings.ToLower(getEnvString("STORE_BACKEND", string(StoreBackendREST))))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StoreBackend == StoreBackendPostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if cfg.StoreBackend != StoreBackendREST && cfg.StoreBackend != StoreBackendPostgres {
		return nil, fmt.Errorf("unsupported STORE_BACKEND: %q (allowed: rest, postgres)", cfg.StoreBackend)
	}

	// Optional fields with defaults
	cfg.SupabaseJWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	cfg.SupabaseHTTPTimeout = getEnvDuration("SUPABASE_HTTP_TIMEOUT", 0)
	cfg.RateLimitGeneral = getEnvPositiveInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitModeration = getEnvPositiveInt("RATE_LIMIT_MODERATION", 30)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8000")
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", defaultCORSAllowedOrigins)

	return cfg, nil
}

// firstEnv は指定されたキーを順に参照し、最初に見つかった空でない値を返す。
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvPositiveInt は正の整数の環境変数を返す。未設定、数値でない、0以下の場合はdefaultValとする。
func getEnvPositiveInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの環境変数をスライスとして返す。
// 空要素は無視し、結果が空の場合はデフォルト値を返す。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
