package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cuemby/tableside/pkg/board"
	"github.com/cuemby/tableside/pkg/cache"
	"github.com/cuemby/tableside/pkg/catalog"
	"github.com/cuemby/tableside/pkg/client"
	"github.com/cuemby/tableside/pkg/config"
	"github.com/cuemby/tableside/pkg/coordinator"
	"github.com/cuemby/tableside/pkg/events"
	"github.com/cuemby/tableside/pkg/journal"
	"github.com/cuemby/tableside/pkg/log"
	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/cuemby/tableside/pkg/storage"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// app is the wired set of components behind every command
type app struct {
	cfg         config.Config
	format      string
	out         io.Writer
	printer     *message.Printer
	store       storage.Store
	journal     *journal.Journal
	client      *client.Client
	cache       *cache.QueryCache
	board       *board.Board
	coordinator *coordinator.Coordinator
	broker      *events.Broker
	catalog     *catalog.Catalog
}

// loadConfig resolves configuration and lets explicitly set flags win
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configFile, opts.envFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIBaseURL = opts.apiURL
	}
	if flags.Changed("token") {
		cfg.Token = opts.token
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	if flags.Changed("storage") {
		cfg.Storage = opts.storage
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = opts.logJSON
	}
	return cfg, cfg.Validate()
}

func openStore(cfg config.Config) (storage.Store, error) {
	switch cfg.Storage {
	case config.StorageRedis:
		return storage.NewRedisStore(storage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			Timeout:  cfg.RequestTimeout,
		})
	case config.StorageMemory:
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewBoltStore(cfg.DataDir)
	}
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
		Output:     cmd.ErrOrStderr(),
	})
	metrics.SetVersion(Version)

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal storage: %w", err)
	}

	var journalOpts []journal.Option
	if cfg.SerializeJournalWrites {
		journalOpts = append(journalOpts, journal.WithSerializedWrites())
	}
	j := journal.New(store, journalOpts...)

	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		if cat, err = catalog.Load(cfg.CatalogFile); err != nil {
			store.Close()
			return nil, err
		}
	}

	c := client.NewClient(client.Config{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.Token,
		Timeout: cfg.RequestTimeout,
	})

	var requester coordinator.Requester = coordinator.ImmediateRequester{}
	if cfg.WireOrderItems {
		requester = client.NewOrderItemsRequester(c)
	}

	broker := events.NewBroker()
	broker.Start()

	qc := cache.NewQueryCache()
	a := &app{
		cfg:         cfg,
		format:      opts.format,
		out:         cmd.OutOrStdout(),
		printer:     message.NewPrinter(language.Make(cfg.Locale)),
		store:       store,
		journal:     j,
		client:      c,
		cache:       qc,
		board:       board.New(c, j, qc),
		coordinator: coordinator.New(qc, j, requester, events.NewNotifier(broker)),
		broker:      broker,
		catalog:     cat,
	}
	return a, nil
}

// Close waits for background refetches and releases storage
func (a *app) Close() {
	a.cache.Wait()
	a.cache.Close()
	a.broker.Stop()
	if err := a.store.Close(); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to close journal storage")
	}
}

// notification waits briefly for the event published by a mutation
func notification(sub events.Subscriber) *events.Event {
	select {
	case e := <-sub:
		return e
	case <-time.After(time.Second):
		return nil
	}
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
