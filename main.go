package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gemini-studio/internal/api"
	"gemini-studio/internal/branddna"
	"gemini-studio/internal/common"
	"gemini-studio/internal/fbadmin"
	"gemini-studio/internal/gemini"
	"gemini-studio/internal/middleware"
	"gemini-studio/internal/reel"
	"gemini-studio/internal/seo"
	"gemini-studio/internal/siteprofile"
	"gemini-studio/internal/storage"
	"gemini-studio/internal/videoassets"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/iterator"
)

const serviceName = "gemini-studio"

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	showVersion = flag.Bool("version", false, "Show version information")
	transport   = flag.String("transport", "http", "Transport: http serves the REST API and /mcp, stdio runs only the MCP tools over stdin/stdout")
)

// app holds the wired services shared by the HTTP surface and the MCP tools.
type app struct {
	config    *common.Config
	logger    *slog.Logger
	gen       gemini.Generator
	storage   storage.Storage
	firebase  *fbadmin.Services
	profiles  branddna.Store
	reel      *reel.Service
	seo       *seo.Service
	extractor *branddna.Extractor
	analyzer  *siteprofile.Analyzer
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", serviceName, version)
		fmt.Println("Creative studio backend for Gemini, Imagen and Veo")
		fmt.Printf("Built: %s\n", buildTime)
		fmt.Printf("Commit: %s\n", gitCommit)
		return
	}

	config, err := common.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	// stdio carries MCP frames on stdout, so logs always go to stderr.
	logger := common.NewLogger(os.Stderr, config.LogLevel, config.LogFormat)
	if err := config.Validate(); err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, config, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	logger.Info("starting", "service", serviceName, "version", version, "transport", *transport,
		"firebase", a.firebase != nil, "remote_storage", a.storage.IsRemote())

	switch *transport {
	case "stdio":
		if err := a.mcpServer().Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("mcp server error", "error", err)
			os.Exit(1)
		}
	default:
		if err := a.runHTTPServer(ctx); err != nil {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}
}

func newApp(ctx context.Context, config *common.Config, logger *slog.Logger) (*app, error) {
	client, err := gemini.NewClient(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	fb, err := fbadmin.New(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	a := &app{config: config, logger: logger, gen: client, firebase: fb}

	if fb != nil {
		a.storage, err = storage.NewStorage(ctx, config, fb.Bucket, fb.BucketName, logger)
	} else {
		a.storage, err = storage.NewStorage(ctx, config, nil, "", logger)
	}
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var tracker videoassets.Tracker = videoassets.NopTracker{}
	if fb != nil {
		a.profiles = branddna.NewFirestoreStore(fb.Firestore)
		tracker = videoassets.NewFirestoreTracker(fb.Firestore, a.storage, logger)
	} else {
		logger.Warn("brand dna profiles are kept in memory and lost on restart")
		a.profiles = branddna.NewMemoryStore()
	}

	var images siteprofile.ImageSearcher
	if config.CSEAPIKey != "" && config.CSEID != "" {
		searcher, err := siteprofile.NewCSESearcher(ctx, config.CSEAPIKey, config.CSEID)
		if err != nil {
			a.close()
			return nil, err
		}
		images = searcher
	} else {
		logger.Warn("GCP_CSE_API_KEY or GCP_CSE_ID not set, site analysis returns no images")
	}

	a.reel = reel.NewService(client, config.Models, a.profiles, tracker, logger)
	a.seo = seo.NewService(client, config.Models, logger)
	a.extractor = branddna.NewExtractor(client, config.Models.Text, logger)
	a.analyzer = siteprofile.NewAnalyzer(client, config.Models,
		siteprofile.NewJinaReader(config.JinaReaderURL, config.JinaAPIKey), images, a.storage, logger)
	return a, nil
}

func (a *app) close() {
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("storage close failed", "error", err)
		}
	}
	if a.firebase != nil {
		if err := a.firebase.Close(); err != nil {
			a.logger.Warn("firebase close failed", "error", err)
		}
	}
}

// verifier returns nil when Firebase is disabled so the auth middleware
// answers 500 instead of panicking on a nil client.
func (a *app) verifier() middleware.TokenVerifier {
	if a.firebase == nil {
		return nil
	}
	return a.firebase.Auth
}

func (a *app) checks() []api.Check {
	checks := []api.Check{{Name: "storage", Fn: a.storage.Check}}
	if a.firebase != nil {
		checks = append(checks, api.Check{Name: "firestore", Fn: func(ctx context.Context) error {
			_, err := a.firebase.Firestore.Collection("visual_profiles").Limit(1).Documents(ctx).Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		}})
	}
	return checks
}

func (a *app) mcpHandler() http.Handler {
	server := a.mcpServer()
	handler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return server
	}, nil)

	if len(a.config.ServiceTokens) > 0 {
		a.logger.Info("mcp endpoint uses service tokens", "tokens", len(a.config.ServiceTokens))
		return middleware.ServiceTokenAuth(a.config.ServiceTokens, a.logger)(handler)
	}
	return middleware.FirebaseAuth(a.verifier(), a.logger)(handler)
}

func (a *app) runHTTPServer(ctx context.Context) error {
	opts := api.Options{
		Reel:         a.reel,
		SEO:          a.seo,
		Extractor:    a.extractor,
		Profiles:     a.profiles,
		Analyzer:     a.analyzer,
		Storage:      a.storage,
		Auth:         middleware.FirebaseAuth(a.verifier(), a.logger),
		Checks:       a.checks(),
		FrontendDist: a.config.FrontendDist,
		CORSOrigins:  a.config.CORSOrigins,
		Logger:       a.logger,
	}
	if a.config.MCPEnabled {
		opts.MCP = a.mcpHandler()
	}

	addr := ":" + a.config.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           middleware.Wrap(a.logger, api.New(opts)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", addr, "mcp", a.config.MCPEnabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down http server")
		// Video requests can run for minutes; give in-flight ones a moment to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
