package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/pantry-tracker/internal/parsing"
	"github.com/zombor/pantry-tracker/internal/receipt"
	"github.com/zombor/pantry-tracker/internal/scanning"
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

	fs := ff.NewFlagSet("pantry-tracker")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "pantry-tracker.db", "Database file path")
		storagePath = fs.StringLong("storage", "./receipts", "Storage directory for uploaded receipt images")
		visionType  = fs.StringLong("vision", "openai", "Vision backend: 'openai', 'gemini', 'ollama' or 'none'")
		openaiKey   = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiURL   = fs.StringLong("openai-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL")
		openaiModel = fs.StringLong("openai-model", "gpt-4o-mini", "OpenAI vision model name")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		parseFile   = fs.StringLong("parse-file", "", "Parse a receipt text file ('-' for stdin), print JSON and exit")
		storeName   = fs.StringLong("store", "", "Store name used with --parse-file (detected from the text if empty)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PANTRY_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	parsers := parsing.NewRegistry()

	if *parseFile != "" {
		if err := printParsed(os.Stdout, parsers, *parseFile, *storeName); err != nil {
			slog.Error("Failed to parse receipt", "file", *parseFile, "error", err)
			os.Exit(1)
		}
		return
	}

	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var model scanning.Model
	switch *visionType {
	case "openai":
		slog.Info("Initializing OpenAI vision model...", "url", *openaiURL, "model", *openaiModel)
		model = scanning.NewOpenAI(scanning.OpenAIConfig{
			APIKey:  *openaiKey,
			BaseURL: *openaiURL,
			Model:   *openaiModel,
			Timeout: 90 * time.Second,
		}, slog.Default())
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Warn("No Gemini API key configured; image scans will fail. Set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini vision model...", "model", *geminiModel)
		model = scanning.NewGemini(apiKey, *geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama vision model...", "url", *ollamaURL, "model", *ollamaModel)
		model = scanning.NewOllama(*ollamaURL, *ollamaModel)
	case "none":
		slog.Info("Image scanning disabled")
	default:
		slog.Error("Invalid vision backend", "type", *visionType, "valid", "openai, gemini, ollama or none")
		os.Exit(1)
	}

	// a nil *Extractor must not end up inside the Scanner interface
	var scanner receipt.Scanner
	if model != nil {
		extractor := scanning.NewExtractor(model, scanning.WithLogger(slog.Default()))
		defer extractor.Close()
		scanner = extractor
	}

	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	receiptService := receipt.NewService(db, parsers, scanner, store)

	basicAuth := receipt.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := receipt.NewServer(receiptService, basicAuth)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// printParsed parses one receipt text file without touching the archive
func printParsed(w io.Writer, parsers *parsing.Registry, path, store string) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading receipt text: %w", err)
	}

	text := string(data)
	strategy := parsers.Detect(text)
	if store != "" {
		strategy = parsers.Get(store)
	}
	slog.Debug("Parsing receipt", "parser", strategy.Name())

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(strategy.Parse(text)); err != nil {
		return fmt.Errorf("encoding parsed receipt: %w", err)
	}
	return nil
}
