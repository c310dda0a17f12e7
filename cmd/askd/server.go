package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/ryumin/askd/internal/api"
	"github.com/ryumin/askd/internal/config"
	"github.com/ryumin/askd/internal/corpus"
	"github.com/ryumin/askd/internal/engine"
	"github.com/ryumin/askd/internal/intent"
	"github.com/ryumin/askd/internal/qa"
	"github.com/ryumin/askd/internal/retrieval"
	"github.com/ryumin/askd/internal/similarity"
	"github.com/ryumin/askd/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the askd server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running askd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show askd system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the QA tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func pidFilePath(indexDir string) string {
	return filepath.Join(indexDir, "askd.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch {
	case strings.EqualFold(level, "debug"):
		logLevel = slog.LevelDebug
	case strings.EqualFold(level, "warn"):
		logLevel = slog.LevelWarn
	case strings.EqualFold(level, "error"):
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// loadPrompts reads the prompt templates. Missing or invalid templates
// are fatal: every request path needs them.
func loadPrompts(path string) (config.PromptSet, error) {
	ps, err := config.LoadPrompts(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.PromptSet{}, fmt.Errorf("no prompts file at %s; run `askd config init-prompts` to create one", path)
		}
		return config.PromptSet{}, err
	}
	return ps, nil
}

// core holds the wired QA pipeline shared by the HTTP and MCP servers.
type core struct {
	cfg       config.Config
	eng       engine.Engine
	cacheDB   *storage.DB
	corpusDB  *storage.DB
	cache     *retrieval.Store
	corpus    *retrieval.Store
	svc       *qa.Service
	reader    *corpus.Reader
	refresher *corpus.Refresher
}

func (c *core) close() {
	if err := c.cacheDB.Close(); err != nil {
		slog.Warn("closing cache store", "error", err)
	}
	if err := c.corpusDB.Close(); err != nil {
		slog.Warn("closing corpus store", "error", err)
	}
}

// buildCore wires engine, stores and the QA service, checks model
// readiness, and applies the cold-start bootstrap to both stores.
func buildCore(ctx context.Context, cfg config.Config, prompts config.PromptSet) (*core, error) {
	eng, err := engine.Detect(engine.DetectConfig{
		Kind:    cfg.Engine.Kind,
		BaseURL: cfg.Engine.BaseURL,
		APIKey:  cfg.Engine.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("detecting inference engine: %w", err)
	}
	if err := engine.EnsureReady(ctx, eng, cfg.Engine.Model, cfg.Engine.EmbedModel, os.Stderr); err != nil {
		return nil, err
	}

	cacheDB, err := storage.Open(filepath.Join(cfg.Index.Dir, "cache"))
	if err != nil {
		return nil, fmt.Errorf("opening cache store: %w", err)
	}
	corpusDB, err := storage.Open(filepath.Join(cfg.Index.Dir, "corpus"))
	if err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("opening corpus store: %w", err)
	}

	embedder := retrieval.NewEmbedder(eng, cfg.Engine.EmbedModel)
	cacheStore := retrieval.NewStore("cache", cacheDB, embedder, cfg.Index.TopK)
	corpusStore := retrieval.NewStore("corpus", corpusDB, embedder, cfg.Index.TopK)

	generator := engine.NewGenerator(eng, cfg.Engine.Model)
	classifier := intent.NewClassifier(generator, prompts.Intent)
	scorer := similarity.NewScorer(embedder)

	svc := qa.NewService(
		cacheStore,
		corpusStore,
		scorer,
		classifier,
		generator,
		qa.Prompts{System: prompts.System, User: prompts.User},
		cfg.Index.Threshold,
	)

	reader := corpus.NewReader()
	if err := os.MkdirAll(cfg.Corpus.Dir, 0o755); err != nil {
		cacheDB.Close()
		corpusDB.Close()
		return nil, fmt.Errorf("creating corpus directory: %w", err)
	}
	interval, err := time.ParseDuration(cfg.Corpus.Refresh)
	if err != nil {
		slog.Warn("invalid corpus refresh interval, polling disabled", "value", cfg.Corpus.Refresh, "error", err)
		interval = 0
	}
	refresher := corpus.NewRefresher(reader, corpusStore, cfg.Corpus.Dir, interval)

	if err := qa.Bootstrap(ctx, cacheStore, corpusStore, refresher); err != nil {
		cacheDB.Close()
		corpusDB.Close()
		return nil, err
	}

	return &core{
		cfg:       cfg,
		eng:       eng,
		cacheDB:   cacheDB,
		corpusDB:  corpusDB,
		cache:     cacheStore,
		corpus:    corpusStore,
		svc:       svc,
		reader:    reader,
		refresher: refresher,
	}, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "askd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	prompts, err := loadPrompts(cfg.Prompts.Path)
	if err != nil {
		return err
	}

	token, created, err := config.EnsureAdminToken(&cfg)
	if err != nil {
		return fmt.Errorf("initializing admin token: %w", err)
	}
	if created {
		slog.Info("generated admin token")
	}

	// Refuse a double start. The health probe catches a live server even
	// when a stale PID file was left behind by a crash.
	pidPath := pidFilePath(cfg.Index.Dir)
	healthURL := fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("askd is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("askd is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := buildCore(ctx, cfg, prompts)
	if err != nil {
		return err
	}
	defer c.close()

	handler := api.NewRouter(api.Deps{
		QA:        c.svc,
		Cache:     c.cache,
		Corpus:    c.corpus,
		Engine:    c.eng,
		Refresher: c.refresher,
		Token:     token,
		Version:   version,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go c.refresher.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "askd listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	prompts, err := loadPrompts(cfg.Prompts.Path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := buildCore(ctx, cfg, prompts)
	if err != nil {
		return err
	}
	defer c.close()

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		QA:      c.svc,
		Corpus:  c.corpus,
		Version: version,
	})

	stdioSrv := server.NewStdioServer(mcpSrv)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Index.Dir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("askd is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop askd (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to askd (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Engine", "%s at %s", cfg.Engine.Kind, cfg.Engine.BaseURL)
	printStatus("Model", "%s", cfg.Engine.Model)
	printStatus("Embed model", "%s", cfg.Engine.EmbedModel)
	printStatus("Threshold", "%.2f", cfg.Index.Threshold)

	if running {
		if c, err := newAPIClient(); err == nil {
			statusResp, err := c.get(context.Background(), "/admin/status")
			if err == nil {
				var st struct {
					Cache  struct{ Documents int } `json:"cache"`
					Corpus struct{ Documents int } `json:"corpus"`
				}
				if decodeJSON(statusResp, &st) == nil {
					printStatus("Cached answers", "%d", st.Cache.Documents)
					printStatus("Corpus passages", "%d", st.Corpus.Documents)
				}
			}
		}
	}

	printStatus("Index dir", "%s", cfg.Index.Dir)
	printStatus("Corpus dir", "%s", cfg.Corpus.Dir)
	return nil
}
