// Command officetrack scans Greek and English news sources for corporate
// office projects and mails a digest of findings not seen before.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/argyx/officetrack/internal/config"
	"github.com/argyx/officetrack/internal/extract"
	"github.com/argyx/officetrack/internal/metrics"
	"github.com/argyx/officetrack/internal/notify"
	"github.com/argyx/officetrack/internal/pipeline"
	"github.com/argyx/officetrack/internal/query"
	"github.com/argyx/officetrack/internal/report"
	"github.com/argyx/officetrack/internal/scrape"
	"github.com/argyx/officetrack/internal/search"
	"github.com/argyx/officetrack/internal/store"
	"github.com/argyx/officetrack/internal/store/leveldb"
	"github.com/argyx/officetrack/internal/store/postgres"
	"github.com/argyx/officetrack/internal/store/sqlite"
)

// exitCode is set by commands before Execute returns; partial runs exit 2,
// fatal ones 1.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "officetrack",
	Short: "Office project scanner and notifier for the Greek market",
	Long: `officetrack generates bilingual (English/Greek) search queries about
office projects, resolves them through Google Custom Search and Google News,
extracts company and location facts from the results, and mails a digest of
findings that have never been notified before.

All settings come from environment variables; see internal/config for the
full list and defaults.`,
	// Invoked with no arguments (the scheduler case), the root runs one scan.
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context())
	},
}

var jsonOutput bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one scan run",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.Context())
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Mail the weekly analytics report from the run log",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalytics(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the run summary as JSON")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyticsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func runScan(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	// One run at a time per host; overlapping cron firings bail out instead
	// of racing on the store.
	lock := flock.New(cfg.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another run holds %s", cfg.LockFile)
	}
	defer lock.Unlock()

	if cfg.MetricsPort > 0 {
		srv := metrics.Start(cfg.MetricsPort)
		defer srv.Stop(context.Background())
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	providers, err := buildProviders(cfg, logger)
	if err != nil {
		return err
	}

	var enricher pipeline.Enricher
	if cfg.FetchPages {
		fetcher, err := scrape.NewFetcher(scrape.FetchConfig{
			Timeout:           cfg.HTTPTimeout,
			RequestsPerSecond: 2,
			Jitter:            0.3,
			Logger:            logger,
		})
		if err != nil {
			return err
		}
		enricher = fetcher
	}

	notifier := buildNotifier(cfg, logger)

	p, err := pipeline.New(pipeline.Config{
		Queries:     query.New(cfg.MaxSearchQueries),
		Providers:   providers,
		Enricher:    enricher,
		Extractor:   extract.New(logger),
		Store:       st,
		Notifier:    notifier,
		Concurrency: cfg.SearchConcurrency,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	summary, runErr := p.Run(ctx)

	if log, err := report.NewRunLog(cfg.RunLogDir); err != nil {
		logger.Error("run log unavailable", "error", err)
	} else if err := log.Append(summary); err != nil {
		logger.Error("run log append failed", "error", err)
	}

	if jsonOutput {
		if err := report.WriteJSON(os.Stdout, summary); err != nil {
			return err
		}
	} else if err := report.WriteText(os.Stdout, summary); err != nil {
		return err
	}

	if runErr != nil {
		exitCode = 1
		return runErr
	}

	// The weekly analytics mail piggybacks on the Monday run.
	if cfg.SendAnalytics && time.Now().Weekday() == time.Monday {
		if err := sendAnalytics(ctx, cfg, logger); err != nil {
			logger.Error("analytics mail failed", "error", err)
			summary.AddError("analytics", "", err.Error(), time.Now())
		}
	}

	if summary.Status == report.StatusPartial {
		exitCode = 2
	}
	return nil
}

func runAnalytics(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	return sendAnalytics(ctx, cfg, logger)
}

func sendAnalytics(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	runLog, err := report.NewRunLog(cfg.RunLogDir)
	if err != nil {
		return err
	}
	runs, err := runLog.Scan(time.Now().AddDate(0, 0, -7))
	if err != nil {
		return err
	}

	if !cfg.MailConfigured() {
		return errors.New("analytics mail requires EMAIL_USERNAME, EMAIL_PASSWORD, and RECEIVER_EMAIL")
	}
	notifier, err := smtpNotifier(cfg, logger)
	if err != nil {
		return err
	}
	return notifier.SendAnalytics(ctx, report.Aggregate(runs))
}

func setupLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeLog := func() {}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeLog = func() { f.Close() }
	}

	return slog.New(slog.NewTextHandler(w, nil)), closeLog, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "postgres":
		return postgres.New(ctx, cfg.StoreDSN)
	case "leveldb":
		return leveldb.New(cfg.StoreDSN)
	default:
		return sqlite.New(cfg.StoreDSN)
	}
}

func buildProviders(cfg *config.Config, logger *slog.Logger) ([]search.Provider, error) {
	cse, err := search.NewGoogleCSE(search.GoogleCSEConfig{
		APIKey:       cfg.GoogleAPIKey,
		EngineID:     cfg.GoogleCSEID,
		MaxPages:     cfg.MaxPagesPerQuery,
		DateRestrict: "d7",
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	news := search.NewGoogleNews(search.GoogleNewsConfig{})
	return []search.Provider{cse, news}, nil
}

func smtpNotifier(cfg *config.Config, logger *slog.Logger) (*notify.Notifier, error) {
	sender, err := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailUsername,
		Password: cfg.EmailPassword,
	})
	if err != nil {
		return nil, err
	}
	return notify.New(sender, notify.Config{
		From:     cfg.EmailUsername,
		To:       cfg.ReceiverEmail,
		Language: cfg.EmailLanguage,
		Logger:   logger,
	}), nil
}

func buildNotifier(cfg *config.Config, logger *slog.Logger) pipeline.Digester {
	if cfg.MailConfigured() {
		if n, err := smtpNotifier(cfg, logger); err == nil {
			return n
		} else {
			logger.Error("smtp setup failed, digests cannot be delivered", "error", err)
		}
	}
	return unconfiguredNotifier{}
}

// unconfiguredNotifier stands in when mail settings are absent. Findings stay
// unrecorded, so they will be notified by the first properly configured run.
type unconfiguredNotifier struct{}

func (unconfiguredNotifier) SendDigest(ctx context.Context, findings []*extract.Finding, now time.Time) error {
	if len(findings) == 0 {
		return nil
	}
	return fmt.Errorf("%d new findings but mail delivery is not configured", len(findings))
}
