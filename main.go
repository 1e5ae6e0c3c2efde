package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/datadoc-engine/pkg/audit"
	"github.com/ekaya-inc/datadoc-engine/pkg/auth"
	"github.com/ekaya-inc/datadoc-engine/pkg/config"
	"github.com/ekaya-inc/datadoc-engine/pkg/explorer"
	"github.com/ekaya-inc/datadoc-engine/pkg/fixtures"
	"github.com/ekaya-inc/datadoc-engine/pkg/handlers"
	"github.com/ekaya-inc/datadoc-engine/pkg/logging"
	"github.com/ekaya-inc/datadoc-engine/pkg/middleware"
	"github.com/ekaya-inc/datadoc-engine/pkg/repositories"
	"github.com/ekaya-inc/datadoc-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configPath string

	exportOrg       string
	exportDatabase  string
	exportTable     string
	exportOutputDir string
	exportFilename  string
)

var rootCmd = &cobra.Command{
	Use:           "datadoc",
	Short:         "Browse fixture schemas, data quality metrics and generated table documentation",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the documentation export of one table to a JSON file",
	RunE:  runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to config.yaml")

	exportCmd.Flags().StringVar(&exportOrg, "org", "", "Organization to open (required)")
	exportCmd.Flags().StringVar(&exportDatabase, "database", "", "Database to switch to (default: the organization's default database)")
	exportCmd.Flags().StringVar(&exportTable, "table", "", "Table to export (default: first table of the database)")
	exportCmd.Flags().StringVarP(&exportOutputDir, "output-dir", "d", "", "Output directory (default: export.dir from config)")
	exportCmd.Flags().StringVarP(&exportFilename, "output", "o", "", "Output file name (default: <table>.json)")
	_ = exportCmd.MarkFlagRequired("org")

	rootCmd.AddCommand(serveCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(configPath, Version)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("fixtures", fixturesLabel(cfg.Fixtures.Path)),
		zap.Duration("session_ttl", cfg.Session.TTL()))

	store, err := fixtures.Load(cfg.Fixtures.Path)
	if err != nil {
		return err
	}

	handler, err := newRouter(cfg, store, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: handler,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting datadoc-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.Duration("timeout", cfg.ShutdownTimeout()))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// newRouter wires repositories, services and handlers into the HTTP handler tree.
func newRouter(cfg *config.Config, store *fixtures.Store, logger *zap.Logger) (http.Handler, error) {
	sessions := repositories.NewSessionRepository(cfg.Session.TTL(), cfg.Session.CleanupInterval())
	users := repositories.NewUserRepository()

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		// Only reachable with verification disabled.
		jwtSecret = auth.RandomSecret()
		logger.Warn("JWT_SECRET not set, login tokens will not survive a restart")
	}
	tokens, err := auth.NewTokenManager(jwtSecret, cfg.Auth.TokenTTL())
	if err != nil {
		return nil, err
	}

	auditor := audit.NewSecurityAuditor(logger)
	cookieSettings := auth.DeriveCookieSettings(cfg.BaseURL)
	sessionCookies := auth.NewSessionCookies(cfg.Session.CookieSecret, int(cfg.Session.TTL().Seconds()), cookieSettings.Secure)
	authMiddleware := auth.NewMiddleware(auth.NewAuthService(tokens, logger.Named("auth")), cfg.Auth.EnableVerification, logger.Named("auth"))

	explorerService := services.NewExplorerService(store, sessions, logger)
	accountService := services.NewAccountService(users, tokens, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, sessions, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(accountService, auditor, cfg, logger).RegisterRoutes(mux)
	handlers.NewExplorerHandler(explorerService, sessionCookies, auditor, logger).RegisterRoutes(mux, authMiddleware)

	return middleware.Chain(mux,
		middleware.Recover(logger),
		middleware.RequestLogger(logger.Named("http")),
	), nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(configPath, Version)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := fixtures.Load(cfg.Fixtures.Path)
	if err != nil {
		return err
	}

	outputDir := exportOutputDir
	if outputDir == "" {
		outputDir = cfg.Export.Dir
	}

	path, err := exportTableDocument(store, exportOrg, exportDatabase, exportTable, exportFilename, outputDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", path)
	return nil
}

// exportTableDocument drives a single explorer session to the requested table
// and writes its export document into outputDir. It returns the written path.
func exportTableDocument(store *fixtures.Store, org, database, table, filename, outputDir string) (string, error) {
	session := explorer.NewSession(store)
	if err := session.SelectOrganization(org); err != nil {
		return "", err
	}
	if database != "" {
		if err := session.SelectDatabase(database); err != nil {
			return "", err
		}
	}
	if table != "" {
		if err := session.SelectTable(table); err != nil {
			return "", err
		}
	}

	doc := session.Export()
	if doc == nil {
		return "", fmt.Errorf("database %q has no tables to export", session.State().Database)
	}
	if filename == "" {
		filename = explorer.DefaultExportFilename(doc.Table)
	}

	saver := explorer.DirSaver{Dir: outputDir}
	if _, err := explorer.ExportAsFile(doc, filename, saver); err != nil {
		return "", err
	}
	return saver.Path(filename), nil
}

func fixturesLabel(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
