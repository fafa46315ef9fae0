// Package main is the revalida CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/revalida/internal/cli"
	"github.com/hyperjump/revalida/internal/config"
	"github.com/hyperjump/revalida/internal/export"
	"github.com/hyperjump/revalida/internal/extract"
	"github.com/hyperjump/revalida/internal/keyword"
	"github.com/hyperjump/revalida/internal/metrics"
	"github.com/hyperjump/revalida/internal/models"
	"github.com/hyperjump/revalida/internal/parser"
	"github.com/hyperjump/revalida/internal/pipeline"
	"github.com/hyperjump/revalida/internal/search"
	"github.com/hyperjump/revalida/internal/server"
	"github.com/hyperjump/revalida/internal/storage"
	"github.com/hyperjump/revalida/internal/watcher"
	"github.com/hyperjump/revalida/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultServerURL = "http://localhost:8000"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A .env file in the current directory is loaded first so REVALIDA_* overrides apply.
// Returns the config and the path that was actually loaded (for saving, etc.); the path
// is empty when neither file exists and built-in defaults are used.
func loadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, "", err
	}
	if path == config.DefaultPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			// No config file anywhere: run on built-in defaults, nothing to save back to.
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			if err := config.ApplyEnv(cfg); err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	switch command {
	case "server":
		runServer(args)
	case "extract":
		runExtract(args)
	case "fix":
		runFix(args)
	case "list":
		runList(args)
	case "get":
		runGet(args)
	case "delete":
		runDelete(args)
	case "export":
		runExport(args)
	case "search":
		runSearch(args)
	case "status":
		runStatus(args)
	case "sync":
		runSync(args)
	case "prune":
		runPrune(args)
	case "watch":
		runWatch(args)
	case "version", "--version", "-v":
		fmt.Printf("revalida version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// fail prints a message to stderr and exits with status 1.
func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// reorderArgs moves any flags (and their values) that appear after the positional
// arguments to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument, so "revalida get <id> -output json"
// would otherwise leave -output unparsed.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// parseAge parses a duration that may also be given in days ("30d").
func parseAge(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid age %q", s)
	}
	return d, nil
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fail("%v", err)
	}
	return format
}

// newLogger creates the logger for a command, exiting on failure.
func newLogger(debug bool) *zap.Logger {
	logger, err := utils.NewLogger(debug)
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	return logger
}

// mustLoadConfig loads the config, exiting on failure.
func mustLoadConfig(path string) (*config.Config, string) {
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		fail("Failed to load config: %v", err)
	}
	return cfg, resolved
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (directory changes, extraction steps, etc.)")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath := mustLoadConfig(*configPath)
	debugMode := cfg.Debug || *debug
	logger := newLogger(debugMode)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := components.Pipeline.Sync(ctx); err != nil {
		logger.Warn("catalog sync failed", zap.Error(err))
	}

	pl := components.Pipeline
	watchSvc := watcher.New(
		func(ctx context.Context, path string) {
			if pipeline.IsAnswerKeyFile(path) {
				return
			}
			if _, err := pl.ExtractFile(ctx, path, ""); err != nil {
				if errors.Is(err, pipeline.ErrAlreadyExtracted) {
					logger.Debug("watch file already extracted", zap.String("path", path))
					return
				}
				logger.Warn("watch extract file failed", zap.String("path", path), zap.Error(err))
			}
		},
		watcher.WithRoots(cfg.Watch.Directories...),
		watcher.WithExtensions(cfg.Watch.Extensions...),
		watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Pipeline,
		components.Store,
		components.Catalog,
		components.Index,
		components.Engine,
		cfg,
		server.WithLogger(logger),
		server.WithMetrics(components.Metrics),
		server.WithWatch(watchSvc, resolvedConfigPath),
		server.WithVersion(version),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	watchSvc.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, `server URL (empty = extract directly into the extractions directory)`)
	answerKey := fs.String("answer-key", "", "answer key file (default: <exam>_gabarito.<ext> next to the exam)")
	recursive := fs.Bool("recursive", true, "when extracting a directory, include subdirectories (direct mode)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		fmt.Println("Usage: revalida extract [flags] <exam.pdf|directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	format := parseFormat(*outputFormat)
	ctx := context.Background()

	info, err := os.Stat(path)
	if err != nil {
		fail("Failed to stat path: %v", err)
	}

	if *serverURL != "" {
		if info.IsDir() {
			fail(`Extracting a directory needs direct mode (--server "")`)
		}
		keyPath := *answerKey
		if keyPath == "" {
			keyPath = pipeline.FindAnswerKey(path)
		}
		ext, err := cli.NewClient(*serverURL, nil).Extract(ctx, path, keyPath)
		if err != nil {
			fail("Extraction failed: %v", err)
		}
		if err := cli.WriteExtraction(os.Stdout, ext, format); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}

	// Direct mode writes extraction folders only, so it works while the server holds
	// the catalog and index; the server picks new folders up on its next sync.
	cfg, _ := mustLoadConfig(*configPath)
	logger := newLogger(cfg.Debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	defer components.Close()

	if info.IsDir() {
		n, err := components.Pipeline.ExtractDirectory(ctx, path, cfg.Watch.Extensions, *recursive)
		if err != nil {
			fail("Extracting directory failed: %v", err)
		}
		fmt.Printf("Extracted %d file(s) from %s\n", n, path)
		return
	}
	ext, err := components.Pipeline.ExtractFile(ctx, path, *answerKey)
	if err != nil {
		fail("Extraction failed: %v", err)
	}
	if err := cli.WriteExtraction(os.Stdout, ext, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// repairQuestionsFile re-splits stems with empty options in the questions document in
// and writes it to out, keeping its other top-level keys. It returns the numbers of the
// repaired questions.
func repairQuestionsFile(in, out string) ([]int, error) {
	doc, err := storage.ReadQuestionsDocument(in)
	if err != nil {
		return nil, err
	}
	repaired := parser.RepairEmptyOptions(doc.Questions)
	if err := doc.Write(out); err != nil {
		return nil, err
	}
	return repaired, nil
}

// fixedPath returns the default output of fix: questions.json -> questions_fixed.json.
func fixedPath(in string) string {
	ext := filepath.Ext(in)
	if ext == "" {
		ext = ".json"
	}
	return strings.TrimSuffix(in, filepath.Ext(in)) + "_fixed" + ext
}

func runFix(args []string) {
	fs := flag.NewFlagSet("fix", flag.ExitOnError)
	inPlace := fs.Bool("in-place", false, "overwrite the input file")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 1 {
		fmt.Println("Usage: revalida fix [--in-place] <questions.json> [output.json]")
		os.Exit(1)
	}
	in := fs.Arg(0)
	out := fixedPath(in)
	switch {
	case fs.NArg() > 1:
		out = fs.Arg(1)
	case *inPlace:
		out = in
	}
	repaired, err := repairQuestionsFile(in, out)
	if err != nil {
		fail("Fix failed: %v", err)
	}
	if len(repaired) == 0 {
		fmt.Printf("No questions needed repair; wrote %s\n", out)
		return
	}
	fmt.Printf("Repaired %d question(s) %v; wrote %s\n", len(repaired), repaired, out)
}

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the extractions directory)")
	offset := fs.Int("offset", 0, "number of extractions to skip")
	limit := fs.Int("limit", 0, "maximum number of extractions (0 = all)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	var list *models.ExtractionList
	if *serverURL != "" {
		var err error
		list, err = cli.NewClient(*serverURL, nil).List(context.Background(), *offset, *limit)
		if err != nil {
			fail("List failed: %v", err)
		}
	} else {
		cfg, _ := mustLoadConfig(*configPath)
		store, err := storage.NewDiskStore(cfg.Storage.ExtractionsDir)
		if err != nil {
			fail("Failed to open extractions: %v", err)
		}
		all, err := store.List()
		if err != nil {
			fail("List failed: %v", err)
		}
		list = &models.ExtractionList{Total: int64(len(all)), Extractions: storage.Page(all, *offset, *limit)}
	}
	if err := cli.WriteExtractionList(os.Stdout, list, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runGet(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the extractions directory)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 1 {
		fmt.Println("Usage: revalida get [flags] <extraction-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)
	format := parseFormat(*outputFormat)

	ext, err := loadExtraction(*serverURL, *configPath, id)
	if err != nil {
		fail("Get failed: %v", err)
	}
	if err := cli.WriteExtraction(os.Stdout, ext, format); err != nil {
		fail("Output failed: %v", err)
	}
}

// loadExtraction reads an extraction from the server, or from disk when serverURL is empty.
func loadExtraction(serverURL, configPath, id string) (*models.Extraction, error) {
	if serverURL != "" {
		return cli.NewClient(serverURL, nil).Get(context.Background(), id)
	}
	cfg, _ := mustLoadConfig(configPath)
	store, err := storage.NewDiskStore(cfg.Storage.ExtractionsDir)
	if err != nil {
		return nil, err
	}
	return store.Load(id)
}

func runDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = direct storage when the server is not running)")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 1 {
		fmt.Println("Usage: revalida delete [flags] <extraction-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	if *serverURL != "" {
		if err := cli.NewClient(*serverURL, nil).Delete(context.Background(), id); err != nil {
			fail("Deletion failed: %v", err)
		}
		fmt.Printf("Extraction deleted: %s\n", id)
		return
	}

	cfg, _ := mustLoadConfig(*configPath)
	logger := newLogger(cfg.Debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		fail("Failed to initialize: %v", err)
	}
	defer components.Close()
	if err := components.Pipeline.Delete(context.Background(), id); err != nil {
		fail("Deletion failed: %v", err)
	}
	fmt.Printf("Extraction deleted: %s\n", id)
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read the extractions directory)")
	output := fs.String("o", "", "output file (default: <pdf>_<id>.xlsx in the current directory)")
	_ = fs.Parse(reorderArgs(args))
	if fs.NArg() < 1 {
		fmt.Println("Usage: revalida export [flags] <extraction-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	ext, err := loadExtraction(*serverURL, *configPath, id)
	if err != nil {
		fail("Export failed: %v", err)
	}
	name := *output
	if name == "" {
		name = export.Filename(ext.Metadata)
	}
	f, err := os.Create(name)
	if err != nil {
		fail("Export failed: %v", err)
	}
	if *serverURL != "" {
		err = cli.NewClient(*serverURL, nil).Export(context.Background(), id, f)
	} else {
		err = export.WriteXLSX(f, ext.Metadata, ext.Questions)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(name)
		fail("Export failed: %v", err)
	}
	fmt.Printf("Exported %d question(s) to %s\n", len(ext.Questions), name)
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: revalida search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Searches question stems and options of every extraction.
  • Use --extraction to search a single extraction.
  • Use --fuzzy to tolerate one typo per term. A search with no results is retried fuzzy.

Examples:
  revalida search febre amarela
  revalida search --extraction 20240315_101500_0a1b2c3d dengue
  revalida search --fuzzy chikungunia
`)
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = direct storage when the server is not running)")
	limit := fs.Int("limit", 0, "number of results (0 = configured default)")
	extractionID := fs.String("extraction", "", "only search this extraction")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(reorderArgs(args))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	query := &models.SearchQuery{
		Query:        queryStr,
		Limit:        *limit,
		ExtractionID: *extractionID,
		Fuzzy:        *fuzzy,
	}
	ctx := context.Background()

	var run func(*models.SearchQuery) (*models.SearchResponse, error)
	if *serverURL != "" {
		client := cli.NewClient(*serverURL, nil)
		run = func(q *models.SearchQuery) (*models.SearchResponse, error) { return client.Search(ctx, q) }
	} else {
		cfg, _ := mustLoadConfig(*configPath)
		logger := newLogger(cfg.Debug)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, true)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()
		run = func(q *models.SearchQuery) (*models.SearchResponse, error) { return components.Engine.Search(ctx, q) }
	}

	response, err := run(query)
	if err != nil {
		fail("Search failed: %v", err)
	}
	// Auto-retry with fuzzy if no results and fuzzy not already enabled
	if !query.Fuzzy && response.Total == 0 {
		retry := *query
		retry.Fuzzy = true
		if fuzzyResponse, fuzzyErr := run(&retry); fuzzyErr == nil && fuzzyResponse.Total > 0 {
			response = fuzzyResponse
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	var status *models.Status
	if *serverURL != "" {
		var err error
		status, err = cli.NewClient(*serverURL, nil).Status(context.Background())
		if err != nil {
			fail("Status failed: %v", err)
		}
	} else {
		cfg, _ := mustLoadConfig(*configPath)
		logger := newLogger(cfg.Debug)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, true)
		if err != nil {
			fail("Failed to initialize: %v", err)
		}
		defer components.Close()
		status, err = server.CollectStatus(context.Background(), components.Catalog, components.Index, cfg, nil)
		if err != nil {
			fail("Status failed: %v", err)
		}
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = open the catalog and index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	var res *pipeline.SyncResult
	if *serverURL != "" {
		var err error
		res, err = cli.NewClient(*serverURL, nil).Sync(context.Background())
		if err != nil {
			fail("Sync failed: %v", err)
		}
	} else {
		cfg, _ := mustLoadConfig(*configPath)
		logger := newLogger(cfg.Debug)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, true)
		if err != nil {
			fail("Failed to initialize (is the server running?): %v", err)
		}
		defer components.Close()
		res, err = components.Pipeline.Sync(context.Background())
		if err != nil {
			fail("Sync failed: %v", err)
		}
	}
	if err := cli.WriteSyncResult(os.Stdout, res, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runPrune(args []string) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath, "config file path")
	olderThan := fs.String("older-than", "", `delete extractions older than this age, e.g. "30d" or "72h"`)
	dryRun := fs.Bool("dry-run", false, "list the extractions that would be deleted")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	format := parseFormat(*outputFormat)

	if *olderThan == "" {
		fmt.Println("Usage: revalida prune --older-than <age> [--dry-run]")
		os.Exit(1)
	}
	age, err := parseAge(*olderThan)
	if err != nil {
		fail("%v", err)
	}

	cfg, _ := mustLoadConfig(*configPath)
	logger := newLogger(cfg.Debug)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		fail("Failed to initialize (is the server running?): %v", err)
	}
	defer components.Close()

	pruned, err := components.Pipeline.Prune(context.Background(), time.Now().Add(-age), *dryRun)
	if err != nil {
		fail("Prune failed: %v", err)
	}
	if err := cli.WritePruneResult(os.Stdout, &cli.PruneResult{DryRun: *dryRun, Pruned: pruned}, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runWatch(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: revalida watch <add|remove|list> [path]")
		fmt.Println("  revalida watch add <path>     Add an inbox directory")
		fmt.Println("  revalida watch remove <path>  Remove an inbox directory")
		fmt.Println("  revalida watch list           List inbox directories")
		os.Exit(1)
	}
	sub := args[0]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	syncExisting := fs.Bool("sync", true, "extract the exams already in an added directory")
	_ = fs.Parse(reorderArgs(args[1:]))
	client := cli.NewClient(*serverURL, nil)
	ctx := context.Background()

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: revalida watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := client.WatchAdd(ctx, path, *syncExisting); err != nil {
			fail("Add failed: %v", err)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: revalida watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		if err := client.WatchRemove(ctx, path); err != nil {
			fail("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		dirs, err := client.WatchList(ctx)
		if err != nil {
			fail("List failed: %v", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		fail("Unknown watch subcommand: %s", sub)
	}
}

// Components holds initialized services.
type Components struct {
	Store    *storage.DiskStore
	Catalog  *storage.SQLiteCatalog
	Index    *keyword.BleveIndex
	Engine   *search.Engine
	Pipeline *pipeline.Pipeline
	Metrics  *metrics.Metrics
}

// Close releases the catalog and index.
func (c *Components) Close() {
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

// initializeComponents wires the extraction services. Without withIndexes, the catalog
// and search index are not opened and the pipeline only writes extraction folders.
func initializeComponents(cfg *config.Config, logger *zap.Logger, withIndexes bool) (*Components, error) {
	store, err := storage.NewDiskStore(cfg.Storage.ExtractionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extraction store: %w", err)
	}
	c := &Components{Store: store, Metrics: metrics.New()}

	// Interface values stay nil unless opened, so the pipeline sees a nil catalog and index.
	var catalog storage.Catalog
	var index keyword.QuestionIndex
	if withIndexes {
		c.Catalog, err = storage.NewSQLiteCatalog(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize catalog: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.BleveIndexPath), 0755); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
		c.Index, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to initialize search index: %w", err)
		}
		catalog, index = c.Catalog, c.Index
		c.Engine = search.NewEngine(catalog, index, &cfg.Search, search.WithLogger(logger))
	}

	extractor := extract.NewExtractor(
		extract.WithLogger(logger),
		extract.WithImages(cfg.Extraction.ExtractImagesOrDefault()),
	)
	p := parser.New(parser.Config{
		MaxQuestionNumber:  cfg.Extraction.MaxQuestionNumber,
		MaxStemChars:       cfg.Extraction.MaxStemChars,
		AnswerKeyTailChars: cfg.Extraction.AnswerKeyTailChars,
	})
	c.Pipeline = pipeline.New(store, catalog, index, extractor, p,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(c.Metrics),
	)
	return c, nil
}

func printUsage() {
	fmt.Println(`revalida - Exam PDF question extraction service

Usage:
  revalida server [flags]                 Start the HTTP server
  revalida extract [flags] <pdf|dir>      Extract questions from an exam PDF
  revalida fix <in.json> [out.json]       Recover options stuck in question stems (default out: <in>_fixed.json)
  revalida list [flags]                   List extractions, newest first
  revalida get [flags] <id>               Show an extraction and its questions
  revalida delete [flags] <id>            Delete an extraction
  revalida export [flags] <id>            Export an extraction as a spreadsheet
  revalida search [flags] <query>         Search questions
  revalida status [flags]                 Show catalog/index/storage status
  revalida sync [flags]                   Reconcile catalog and index with the extractions directory
  revalida prune --older-than <age>       Delete old extractions
  revalida watch <add|remove|list>        Manage inbox directories
  revalida version                        Show version
  revalida help                           Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/revalida/config.yaml, or ./config.yaml)
  --server string    Server URL (default: http://localhost:8000). Use empty (--server "") to work
                     directly on the extractions directory when the server is not running.
  --output string    Output format: text or json (default: text)

Server Flags:
  --debug            Enable debug logging

Extract Flags:
  --answer-key string  Answer key file (default: <exam>_gabarito.<ext> next to the exam)
  --recursive          Include subdirectories when extracting a directory (default: true)

List Flags:
  --offset int       Extractions to skip
  --limit int        Maximum extractions to show (0 = all)

Export Flags:
  -o string          Output file (default: <pdf>_<id>.xlsx)

Search Flags:
  --limit int          Number of results (default from config)
  --extraction string  Only search this extraction
  --fuzzy              Enable fuzzy matching for typo tolerance

Fix Flags:
  --in-place           Overwrite the input file instead of writing <in>_fixed.json

Prune Flags:
  --older-than string  Age cut-off, e.g. 30d or 72h
  --dry-run            Only list what would be deleted

Examples:
  revalida server
  revalida extract prova.pdf --answer-key gabarito.pdf
  revalida extract --server "" ~/provas
  revalida fix output/questions_20240315_101500_0a1b2c3d.json
  revalida list --limit 10
  revalida get 20240315_101500_0a1b2c3d --output json
  revalida export 20240315_101500_0a1b2c3d -o prova.xlsx
  revalida search "febre amarela"
  revalida prune --older-than 30d --dry-run
  revalida watch add /path/to/inbox
  revalida watch list`)
}
