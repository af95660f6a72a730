// Package app はプロセスの起動、依存関係のワイヤリング、サブコマンドの実行を担う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/netfluenz/netfluenz-api/internal/auth"
	"github.com/netfluenz/netfluenz-api/internal/config"
	"github.com/netfluenz/netfluenz-api/internal/database"
	"github.com/netfluenz/netfluenz-api/internal/handler"
	"github.com/netfluenz/netfluenz-api/internal/logger"
	"github.com/netfluenz/netfluenz-api/internal/metrics"
	"github.com/netfluenz/netfluenz-api/internal/middleware"
	"github.com/netfluenz/netfluenz-api/internal/moderation"
	"github.com/netfluenz/netfluenz-api/internal/profile"
	"github.com/netfluenz/netfluenz-api/internal/repository"
	"github.com/netfluenz/netfluenz-api/internal/security"
	"github.com/netfluenz/netfluenz-api/internal/supabase"
)

// Init はアプリケーションの初期化を行う。
// .envファイルがあれば読み込み（既存の環境変数は上書きしない）、環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envの読み込み
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 4. 設定されたログレベルで再初期化
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("store_backend", string(cfg.StoreBackend)),
	)

	switch cmd {
	case CommandVerify:
		return runVerify(context.Background(), cfg, w)
	default:
		return runServe(cfg)
	}
}

// stores はprofilesテーブルへのアクセス手段をまとめる。
type stores struct {
	self  repository.SelfProfileRepository
	admin repository.AdminProfileRepository
	db    *sql.DB
}

// Close は直接接続している場合にDB接続を閉じる。
func (s *stores) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// openStores は設定されたバックエンドのリポジトリを生成する。
func openStores(ctx context.Context, cfg *config.Config, client *supabase.Client) (*stores, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established")
		repo := repository.NewPostgresProfileRepo(db)
		return &stores{self: repo, admin: repo, db: db}, nil
	default:
		repo := repository.NewRestProfileRepo(client)
		return &stores{self: repo, admin: repo}, nil
	}
}

// newPlatformClient は外部プラットフォームのクライアントを生成する。
func newPlatformClient(cfg *config.Config, observer supabase.Observer) *supabase.Client {
	client := supabase.NewClient(supabase.Config{
		BaseURL:        cfg.SupabaseURL,
		AnonKey:        cfg.SupabaseAnonKey,
		ServiceRoleKey: cfg.SupabaseServiceRoleKey,
		Timeout:        cfg.SupabaseHTTPTimeout,
	}, slog.Default())
	if observer != nil {
		client.WithObserver(observer)
	}
	return client
}

// server はHTTPハンドラーと後始末処理をまとめる。
type server struct {
	handler http.Handler
	close   func()
}

// buildServer は全依存関係をワイヤリングしてHTTPハンドラーを構築する。
func buildServer(ctx context.Context, cfg *config.Config, reg *prometheus.Registry) (*server, error) {
	// 1. メトリクス
	collector := metrics.NewCollector(reg)

	// 2. 外部プラットフォーム
	client := newPlatformClient(cfg, collector)

	// 3. リポジトリ
	st, err := openStores(ctx, cfg, client)
	if err != nil {
		return nil, err
	}

	// 4. ドメインサービス
	verifier := auth.NewVerifier(client, cfg.SupabaseJWTSecret, slog.Default())
	profileService := profile.NewService(st.self, security.NewTextSanitizer(), security.NewURLGuard())
	moderationService := moderation.NewService(st.admin, collector)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitModeration),
	).WithRecorder(collector)

	router := handler.NewRouter(&handler.RouterDeps{
		Verifier:           verifier,
		RoleFinder:         st.admin,
		RateLimiter:        rateLimiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             slog.Default(),
		Metrics:            collector,
		MetricsGatherer:    reg,
		ProfileService:     profileService,
		ModerationService:  moderationService,
	})

	return &server{
		handler: router,
		close: func() {
			rateLimiter.Stop()
			if err := st.Close(); err != nil {
				slog.Error("failed to close store", slog.String("error", err.Error()))
			}
		},
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := buildServer(context.Background(), cfg, reg)
	if err != nil {
		return err
	}
	defer srv.close()

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runVerify は特権資格情報でprofilesテーブルを参照できること、
// および認証サービスが応答することを確認し、結果をwに出力する。
func runVerify(ctx context.Context, cfg *config.Config, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := newPlatformClient(cfg, nil)

	var failed []string
	report := func(name string, err error) {
		if err != nil {
			failed = append(failed, name)
			fmt.Fprintf(w, "[FAIL] %s: %v\n", name, err)
			slog.Error("verification failed", slog.String("check", name), slog.String("error", err.Error()))
			return
		}
		fmt.Fprintf(w, "[ OK ] %s\n", name)
	}

	st, err := openStores(ctx, cfg, client)
	if err != nil {
		report("profiles table", err)
	} else {
		report("profiles table", st.admin.Ping(ctx))
		st.Close()
	}

	report("auth service", client.AuthHealth(ctx))

	if len(failed) > 0 {
		return fmt.Errorf("verification failed: %v", failed)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /api/health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/api/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
