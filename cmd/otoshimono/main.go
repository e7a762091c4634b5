// Package main is the otoshimono CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/otoshimono/internal/cli"
	"github.com/hyperjump/otoshimono/internal/config"
	"github.com/hyperjump/otoshimono/internal/imageload"
	"github.com/hyperjump/otoshimono/internal/matching"
	"github.com/hyperjump/otoshimono/internal/models"
	"github.com/hyperjump/otoshimono/internal/server"
	"github.com/hyperjump/otoshimono/internal/storage"
	"github.com/hyperjump/otoshimono/internal/watcher"
	"github.com/hyperjump/otoshimono/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/otoshimono/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	defaultMinScore   = 60
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded (for saving, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
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
	switch command {
	case "server":
		runServer()
	case "extract":
		runExtract()
	case "compare":
		runCompare()
	case "report":
		runReport()
	case "matches":
		runMatches()
	case "search":
		runSearch()
	case "items":
		runItems()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("otoshimono version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (requests, intake files, image fetches)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchOpts := []watcher.WatcherOption{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(&cfg.Watch, components.Registry, watchOpts...)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go func() {
		n := watchSvc.SyncExistingFiles()
		logger.Info("intake directories synced", zap.Int("files", n))
	}()

	srv := server.NewServer(
		components.Scorer,
		components.Registry,
		cfg,
		logger,
		server.WithWatch(watchSvc, resolvedConfigPath),
		server.WithModelStatus(components.Model),
		server.WithMetrics(components.Metrics, components.Prometheus),
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// localSession loads config and a logger for commands running without a server.
func localSession(configPath string) (*config.Config, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	return cfg, logger
}

func parseOutput(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func (a imageArg) source() imageload.Source {
	if a.URL != "" {
		return imageload.FromURL(a.URL)
	}
	return imageload.FromBytes(a.Data)
}

func runExtract() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = extract in this process)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fatalf("Usage: otoshimono extract [flags] <image-url|image-file>")
	}
	format := parseOutput(*outputFormat)
	img, err := parseImageArg(fs.Arg(0))
	if err != nil {
		fatalf("%v", err)
	}

	var resp *models.FeatureResponse
	if *serverURL != "" {
		resp, err = newAPIClient(*serverURL).features(img)
		if err != nil {
			fatalf("Extract failed: %v", err)
		}
	} else {
		cfg, logger := localSession(*configPath)
		defer logger.Sync()
		c, err := initializeScorer(cfg, logger, cfg.Debug)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer c.Close()
		result := c.Scorer.Extract(context.Background(), img.source())
		resp = &models.FeatureResponse{
			Kind:       string(result.Kind),
			Dimensions: result.Dimensions(),
			Vector:     result.Vector,
			Reason:     result.Reason,
		}
	}
	if err := cli.WriteFeatures(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runCompare() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = compare in this process)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		fatalf("Usage: otoshimono compare [flags] <image-a> <image-b>")
	}
	format := parseOutput(*outputFormat)
	a, err := parseImageArg(fs.Arg(0))
	if err != nil {
		fatalf("%v", err)
	}
	b, err := parseImageArg(fs.Arg(1))
	if err != nil {
		fatalf("%v", err)
	}

	var resp *models.SimilarityResponse
	if *serverURL != "" {
		resp, err = newAPIClient(*serverURL).similarity(a, b)
		if err != nil {
			fatalf("Compare failed: %v", err)
		}
	} else {
		cfg, logger := localSession(*configPath)
		defer logger.Sync()
		c, err := initializeScorer(cfg, logger, cfg.Debug)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer c.Close()
		cmp := c.Scorer.Compare(context.Background(), a.source(), b.source())
		resp = &models.SimilarityResponse{Score: cmp.Score, Degraded: cmp.Degraded, Reasons: cmp.Reasons()}
	}
	if err := cli.WriteSimilarity(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runReport() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = write to local storage)")
	kind := fs.String("kind", "lost", "item kind: lost or found")
	title := fs.String("title", "", "short item title (required)")
	description := fs.String("description", "", "item description")
	location := fs.String("location", "", "where the item was lost or found")
	id := fs.String("id", "", "item ID (default: generated; reusing an ID replaces the item)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	if fs.NArg() > 1 {
		fatalf("Usage: otoshimono report [flags] [image-url|image-file]")
	}
	format := parseOutput(*outputFormat)

	input := &models.ItemInput{
		ID:          *id,
		Kind:        models.Kind(*kind),
		Title:       *title,
		Description: *description,
		Location:    *location,
	}
	if fs.NArg() == 1 {
		img, err := parseImageArg(fs.Arg(0))
		if err != nil {
			fatalf("%v", err)
		}
		input.ImageURL = img.URL
		input.ImageData = img.Data
	}
	if err := input.Validate(); err != nil {
		fatalf("Invalid report: %v", err)
	}

	var item *models.Item
	var err error
	if *serverURL != "" {
		item, err = newAPIClient(*serverURL).report(input)
	} else {
		withLocalRegistry(*configPath, func(c *Components) {
			item, err = c.Registry.Report(context.Background(), input)
		})
	}
	if err != nil {
		fatalf("Report failed: %v", err)
	}
	if err := cli.WriteItem(os.Stdout, item, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// minScoreDefaultFromConfig returns matching.min_score from the config at path, or 60 when it cannot be loaded.
func minScoreDefaultFromConfig(path string) int {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return defaultMinScore
	}
	return cfg.Matching.MinScore
}

func runMatches() {
	args := argsReorder(os.Args[2:])
	configPath := configPathFromArgs(args, defaultConfigPath)

	fs := flag.NewFlagSet("matches", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path (local mode; also the default for -min-score)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use local storage)")
	limit := fs.Int("limit", 0, "maximum number of matches (default from config)")
	minScore := fs.Int("min-score", minScoreDefaultFromConfig(configPath), "minimum similarity percentage")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		fatalf("Usage: otoshimono matches [flags] <item-id>")
	}
	format := parseOutput(*outputFormat)
	query := &models.MatchQuery{ItemID: fs.Arg(0), Limit: *limit, MinScore: minScore}

	var resp *models.MatchResponse
	var err error
	if *serverURL != "" {
		resp, err = newAPIClient(*serverURL).matches(query)
	} else {
		withLocalRegistry(*configPathFlag, func(c *Components) {
			resp, err = c.Registry.FindMatches(context.Background(), query)
		})
	}
	if err != nil {
		fatalf("Matching failed: %v", err)
	}
	if err := cli.WriteMatches(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// configPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func configPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "otoshimono matches abc -min-score 40"
// would otherwise leave -min-score unparsed.
func argsReorder(args []string) []string {
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

func runSearch() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use local storage)")
	kind := fs.String("kind", "", "restrict to lost or found items")
	limit := fs.Int("limit", 10, "number of results")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fatalf("Usage: otoshimono search [flags] <query>")
	}
	format := parseOutput(*outputFormat)
	query := &models.SearchQuery{Query: queryStr, Kind: models.Kind(*kind), Limit: *limit, Fuzzy: *fuzzy}

	var search func(*models.SearchQuery) (*models.SearchResponse, error)
	if *serverURL != "" {
		search = newAPIClient(*serverURL).search
	} else {
		cfg, logger := localSession(*configPath)
		defer logger.Sync()
		c, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer c.Close()
		search = func(q *models.SearchQuery) (*models.SearchResponse, error) {
			return c.Registry.Search(context.Background(), q)
		}
	}

	response, err := search(query)
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	// Retry with fuzzy matching when an exact search finds nothing.
	if !query.Fuzzy && response.Total == 0 {
		query.Fuzzy = true
		if fuzzyResponse, fuzzyErr := search(query); fuzzyErr == nil && fuzzyResponse.Total > 0 {
			response = fuzzyResponse
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runItems() {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use local storage)")
	kind := fs.String("kind", "", "restrict to lost or found items")
	offset := fs.Int("offset", 0, "number of items to skip")
	limit := fs.Int("limit", 0, "number of items (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	var k models.Kind
	if *kind != "" {
		parsed, err := models.ParseKind(*kind)
		if err != nil {
			fatalf("%v", err)
		}
		k = parsed
	}

	var items []*models.Item
	var err error
	if *serverURL != "" {
		items, err = newAPIClient(*serverURL).listItems(k, *offset, *limit)
	} else {
		withLocalRegistry(*configPath, func(c *Components) {
			items, err = c.Registry.List(context.Background(), k, *offset, *limit)
		})
	}
	if err != nil {
		fatalf("List failed: %v", err)
	}
	if err := cli.WriteItems(os.Stdout, items, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use local storage)")
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 1 {
		fatalf("Usage: otoshimono delete [flags] <item-id>")
	}
	id := fs.Arg(0)

	var err error
	if *serverURL != "" {
		err = newAPIClient(*serverURL).deleteItem(id)
	} else {
		withLocalRegistry(*configPath, func(c *Components) {
			err = c.Registry.Delete(context.Background(), id)
		})
	}
	if err != nil {
		fatalf("Deletion failed: %v", err)
	}
	fmt.Printf("Item deleted: %s\n", id)
}

// withLocalRegistry runs fn against components opened directly on local storage.
func withLocalRegistry(configPath string, fn func(*Components)) {
	cfg, logger := localSession(configPath)
	defer logger.Sync()
	c, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer c.Close()
	fn(c)
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	EmbeddingDimensions int    `json:"embedding_dimensions,omitempty"`
	ImageSize           int    `json:"image_size,omitempty"`
	ModelPath           string `json:"model_path,omitempty"`
	MinScore            int    `json:"min_score"`
	DatabasePath        string `json:"database_path,omitempty"`
	BleveIndexPath      string `json:"bleve_index_path,omitempty"`
}

type modelStatusResponse struct {
	Loaded    bool   `json:"loaded"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Items          *matching.Stats       `json:"items"`
	Model          *modelStatusResponse  `json:"model,omitempty"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (local mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use local storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseOutput(*outputFormat)

	var status *statusResponse
	if *serverURL != "" {
		res, err := newAPIClient(*serverURL).status()
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		status = res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fatalf("Failed to load config: %v", err)
		}
		withLocalRegistry(*configPath, func(c *Components) {
			stats, statsErr := c.Registry.Stats(context.Background())
			if statsErr != nil {
				err = statsErr
				return
			}
			status = &statusResponse{
				Items: stats,
				Config: &statusConfigResponse{
					EmbeddingDimensions: cfg.Embedding.Dimensions,
					ImageSize:           cfg.Embedding.ImageSize,
					ModelPath:           cfg.Embedding.ModelPath,
					MinScore:            cfg.Matching.MinScore,
					DatabasePath:        cfg.Storage.DatabasePath,
					BleveIndexPath:      cfg.Storage.BleveIndexPath,
				},
			}
		})
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		paths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath), cfg.Storage.BleveIndexPath)
		if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fatalf("Output failed: %v", err)
		}
		return
	}
	writeStatusText(status)
}

func writeStatusText(status *statusResponse) {
	if s := status.Items; s != nil {
		fmt.Printf("lost:               %d   # reported lost items\n", s.Lost)
		fmt.Printf("found:              %d   # reported found items\n", s.Found)
		fmt.Printf("placeholders:       %d   # items without usable image features\n", s.Placeholders)
		fmt.Printf("indexed_lost:       %d\n", s.IndexedLost)
		fmt.Printf("indexed_found:      %d\n", s.IndexedFound)
	}
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:   %d   # storage + indices on disk\n", *status.DiskUsageBytes)
	}
	if m := status.Model; m != nil {
		fmt.Println()
		fmt.Println("# model")
		fmt.Printf("loaded:             %t\n", m.Loaded)
		fmt.Printf("load_attempts:      %d\n", m.Attempts)
		if m.LastError != "" {
			fmt.Printf("last_error:         %s\n", m.LastError)
		}
	}
	if c := status.Config; c != nil {
		fmt.Println()
		fmt.Println("# configuration")
		if c.EmbeddingDimensions > 0 {
			fmt.Printf("embedding_dims:     %d\n", c.EmbeddingDimensions)
		}
		if c.ImageSize > 0 {
			fmt.Printf("image_size:         %d\n", c.ImageSize)
		}
		fmt.Printf("min_score:          %d\n", c.MinScore)
		if c.ModelPath != "" {
			fmt.Printf("model_path:         %s\n", c.ModelPath)
		}
		if c.DatabasePath != "" {
			fmt.Printf("database_path:      %s\n", c.DatabasePath)
		}
		if c.BleveIndexPath != "" {
			fmt.Printf("bleve_index_path:   %s\n", c.BleveIndexPath)
		}
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: otoshimono watch <add|remove|list> [path]")
		fmt.Println("  otoshimono watch add <path>     Add an intake directory")
		fmt.Println("  otoshimono watch remove <path>  Remove an intake directory")
		fmt.Println("  otoshimono watch list           List intake directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[3:])
	client := newAPIClient(*serverURL)
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fatalf("Usage: otoshimono watch add <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body := map[string]interface{}{"path": path, "sync": true}
		if err := client.postJSON("/api/v1/watch/directories", body, http.StatusCreated, nil); err != nil {
			fatalf("Add failed: %v", err)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fatalf("Usage: otoshimono watch remove <path>")
		}
		path, _ := filepath.Abs(fs.Arg(0))
		err := client.do(http.MethodDelete, "/api/v1/watch/directories?path="+url.QueryEscape(path), "", nil, http.StatusOK, nil)
		if err != nil {
			fatalf("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := client.get("/api/v1/watch/directories", &out); err != nil {
			fatalf("List failed: %v", err)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fatalf("Unknown watch subcommand: %s", sub)
	}
}

func printUsage() {
	fmt.Println(`otoshimono - Lost & found image matching

Usage:
  otoshimono server [flags]                    Start the HTTP server
  otoshimono extract [flags] <image>           Print the feature vector of an image
  otoshimono compare [flags] <image> <image>   Similarity of two images (0-100)
  otoshimono report [flags] [image]            Report a lost or found item
  otoshimono matches [flags] <item-id>         Candidate matches for an item
  otoshimono search [flags] <query>            Full-text search over item reports
  otoshimono items [flags]                     List reported items
  otoshimono delete [flags] <item-id>          Delete an item
  otoshimono status [flags]                    Show item counts, model state, and storage
  otoshimono watch <add|remove|list>           Manage intake directories
  otoshimono version                           Show version
  otoshimono help                              Show this help

An <image> is an http(s) URL or a local file path.

Common Flags:
  --config string    Config file path (default: /usr/local/etc/otoshimono/config.yaml)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run
                     against local storage when the server is not running.
  --output string    Output format: text or json (default: text)

Server Flags:
  --debug            Enable debug logging

Report Flags:
  --kind string         lost or found (default: lost)
  --title string        Short title (required)
  --description string  Free-text description
  --location string     Where the item was lost or found
  --id string           Item ID (default: generated)

Matches Flags:
  --limit int        Maximum matches (default from config)
  --min-score int    Minimum similarity percentage (default from config, or 60)

Search Flags:
  --kind string      Restrict to lost or found
  --limit int        Number of results (default: 10)
  --fuzzy            Typo-tolerant matching (retried automatically when nothing matches)

Examples:
  otoshimono server
  otoshimono compare wallet-photo.jpg https://example.com/found/123.jpg
  otoshimono report --kind lost --title "Black wallet" --location "Line 2" wallet.jpg
  otoshimono matches 7d0c5f7e-8a1b-4a47-9d55-3f0c9ab1c2de --min-score 75
  otoshimono search --kind found umbrella
  otoshimono status --output json
  otoshimono watch add /srv/intake/found`)
}
