package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/splitsy/internal/api"
	"github.com/zombor/splitsy/internal/scanning"
	"github.com/zombor/splitsy/pkg/logging"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A .env file in the working directory feeds the SPLITSY_* variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	fs := ff.NewFlagSet("splitsy")
	var (
		port         = fs.IntLong("port", 8080, "HTTP server port")
		scannerType  = fs.StringLong("scanner", "gemini", "Scanner type: 'gemini' or 'ollama'")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		scanCache    = fs.StringLong("scan-cache", "", "Path to a bbolt file caching scan results by image (optional)")
		retryBackoff = fs.DurationLong("retry-backoff", time.Second, "Backoff unit between scan retries (waits 1x, then 2x)")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		logLevel     = fs.StringLong("log-level", "", "Log level: debug, info, warn or error (default: LOG_LEVEL, then info)")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("SPLITSY"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Without --log-level or SPLITSY_LOG_LEVEL, LOG_LEVEL decides
	if *logLevel == "" {
		logging.Setup()
	} else {
		level, err := logging.ParseLevel(*logLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		logging.SetupWithLevel(level)
	}

	scanner, err := newScanner(*scannerType, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
	if err != nil {
		slog.Error("Failed to initialize scanner", "type", *scannerType, "error", err)
		os.Exit(1)
	}

	retrying := scanning.NewRetrying(scanner)
	retrying.Backoff = *retryBackoff
	scanner = retrying

	if *scanCache != "" {
		slog.Info("Opening scan cache...", "path", *scanCache)
		cache, err := scanning.NewBoltCache(*scanCache, scanner)
		if err != nil {
			slog.Error("Failed to open scan cache", "error", err)
			if cerr := scanner.Close(); cerr != nil {
				slog.Warn("Error closing scanner", "error", cerr)
			}
			os.Exit(1)
		}
		scanner = cache
	}

	service := api.NewService(scanner)
	basicAuth := api.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := api.NewServer(service, basicAuth)

	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	err = server.Start(ctx, addr)
	if cerr := scanner.Close(); cerr != nil {
		slog.Warn("Error closing scanner", "error", cerr)
	}
	if err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down cleanly")
}

// newScanner builds the extraction backend named by scannerType
func newScanner(scannerType, geminiKey, geminiModel, ollamaURL, ollamaModel string) (scanning.Scanner, error) {
	switch scannerType {
	case "gemini":
		apiKey := geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini scanner...", "model", geminiModel)
		gemini, err := scanning.NewGemini(apiKey, geminiModel)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", ollamaURL, "model", ollamaModel)
		ollama, err := scanning.NewOllama(ollamaURL, ollamaModel)
		if err != nil {
			return nil, err
		}
		return ollama, nil
	default:
		return nil, fmt.Errorf("invalid scanner type %q: valid types are gemini or ollama", scannerType)
	}
}
