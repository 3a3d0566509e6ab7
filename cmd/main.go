package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"

	"fnuxsummary/internal/config"
	"fnuxsummary/internal/confirm"
	"fnuxsummary/internal/fnux"
	"fnuxsummary/internal/summarizer"
)

// Exit codes: success, cancellation, and error are three distinct
// outcomes for calling pipelines.
const (
	exitErr       = 1
	exitCancelled = 2
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fnuxsummary [flags] [xml-path|-]\n\nReads a FNUX XML export, extracts the medical record, and asks the\nconfigured LLM backend for a clinical summary. With no path (or \"-\")\nthe XML is read from stdin.\n\nFlags:\n")
		flag.PrintDefaults()
	}

	configPath := flag.String("config", "", "path to llm config (default: config/llm_config.yaml or llm_config.yaml)")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	autoApprove := flag.Bool("auto-approve", false, "skip the confirmation gate before sending data to the backend")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitErr)
	}

	if err := run(ctx, *configPath, flag.Arg(0), *autoApprove); err != nil {
		if errors.Is(err, summarizer.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "Cancelled; nothing was sent to the backend.")
			os.Exit(exitCancelled)
		}

		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitErr)
	}
}

func run(ctx context.Context, configPath, xmlPath string, autoApprove bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg.LLM.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	doc, err := parseInput(xmlPath)
	if err != nil {
		return err
	}

	record := fnux.Extract(doc)

	var approver summarizer.Approver = confirm.Interactive{Out: os.Stderr}
	if autoApprove {
		approver = confirm.Auto{}
	}

	summary, err := summarizer.New(cfg.LLM, approver, log).Generate(ctx, record)
	if err != nil {
		return err
	}

	fmt.Println(renderSummary(summary))

	return nil
}

func parseInput(path string) (*fnux.Element, error) {
	if path == "" || path == "-" {
		return fnux.Parse(os.Stdin)
	}

	return fnux.ParseFile(path)
}

// newLogger builds the call logger described by the llm.logging block.
// Disabled logging gets a discard handler so components can log
// unconditionally.
func newLogger(cfg config.Logging) (*slog.Logger, func(), error) {
	if !cfg.Enabled {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open llm log file: %w", err)
	}

	var level slog.Level
	if unmarshalErr := level.UnmarshalText([]byte(cfg.Level)); unmarshalErr != nil {
		level = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))

	return log, func() { _ = f.Close() }, nil
}

// renderSummary formats the summary for the terminal, falling back to
// the raw text when the renderer is unavailable.
func renderSummary(summary string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return summary
	}

	out, err := r.Render(summary)
	if err != nil {
		return summary
	}

	return strings.TrimRight(out, "\n")
}

// loadDotEnv loads environment variables from path. Missing files are
// ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}
