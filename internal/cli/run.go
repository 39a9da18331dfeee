package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/ppiankov/onionpan/internal/checkpoint"
	"github.com/ppiankov/onionpan/internal/config"
	"github.com/ppiankov/onionpan/internal/discovery"
	"github.com/ppiankov/onionpan/internal/logger"
	"github.com/ppiankov/onionpan/internal/pipeline"
	"github.com/ppiankov/onionpan/internal/source"
	"github.com/spf13/cobra"
)

var runLimit int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch new channel posts and append found .onion links",
	RunE:  runAction,
}

// newClient builds the platform client. Tests swap it for a fake.
var newClient = func(cfg *config.Config) (source.Client, error) {
	return source.NewCollector(source.CollectorOptions{
		ScriptPath:     cfg.Telegram.Script,
		PythonPath:     cfg.Telegram.PythonPath,
		APIID:          cfg.Telegram.APIID,
		APIHash:        cfg.Telegram.APIHash,
		SessionDir:     cfg.Telegram.SessionDir,
		RequestTimeout: cfg.Fetch.RequestTimeout.Duration,
	})
}

func init() {
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max messages to fetch (default from config)")
	rootCmd.AddCommand(runCmd)
}

func runAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(logger.String("run_id", uuid.NewString()))

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("create telegram client: %w", err)
	}

	fetcher := source.NewFetcher(client, source.FetcherOptions{
		MaxRetries: cfg.Fetch.MaxRetries,
		MaxWait:    cfg.Fetch.MaxWait.Duration,
	}, log)
	checkpoints := checkpoint.NewFile(cfg.Checkpoint.Path, log)
	sink := discovery.NewSink(cfg.Output.Path, log)
	p := pipeline.New(fetcher, checkpoints, cfg.Telegram.Channel, log)

	limit := cfg.Fetch.Limit
	if runLimit > 0 {
		limit = runLimit
	}

	res := p.Run(cmd.Context(), limit)
	saved := sink.Append(res.Records)
	p.Commit(res)

	fmt.Printf("Found %d onion links in %d messages", len(res.Records), res.Messages)
	if saved != len(res.Records) {
		fmt.Printf(" (%d not saved)", len(res.Records)-saved)
	}
	fmt.Println()

	log.Info("extraction completed",
		logger.Int("messages", res.Messages),
		logger.Int("links", len(res.Records)),
		logger.Int64("newest_id", res.NewestID),
	)
	return nil
}
