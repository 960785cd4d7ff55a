// Command snd syncs configured mailboxes, threads and deduplicates new
// messages, and drafts replies for threads that need one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sndlabs/snd/internal/credential"
	"github.com/sndlabs/snd/internal/draft"
	"github.com/sndlabs/snd/internal/mail/imapfeed"
	"github.com/sndlabs/snd/internal/memory"
	"github.com/sndlabs/snd/internal/model"
	"github.com/sndlabs/snd/internal/rules"
	"github.com/sndlabs/snd/internal/store"
	"github.com/sndlabs/snd/internal/sync"
)

func main() {
	var (
		configPath = flag.String("config", model.DefaultConfigPath(), "path to config file")
		dbPath     = flag.String("db", defaultDBPath(), "path to the sqlite database")
		accountID  = flag.String("account", "", "sync a single account id (default: all)")
		daemon     = flag.Bool("daemon", false, "keep running and sync on the poll interval")
		interval   = flag.Int("interval", 0, "poll interval override in seconds (daemon mode)")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logger.WithField("app", "snd")

	if err := run(log, *configPath, *dbPath, *accountID, *daemon, *interval); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(log *logrus.Entry, configPath, dbPath, accountID string, daemon bool, interval int) error {
	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if interval > 0 {
		cfg.Poll.IntervalSec = interval
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	secrets := credential.Store{}
	openai := draft.NewOpenAIProducer(cfg.LLM.BaseURL, cfg.LLM.APIKeySecretKey, secrets)
	registry := draft.NewRegistry(openai, log)

	syncer := sync.New(
		st,
		imapfeed.New(secrets, log),
		rules.New(),
		memory.New(st),
		draft.NewBuilder(registry),
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !daemon {
		stats, err := syncer.RunOnce(ctx, cfg, accountID)
		printStats(stats)
		return err
	}

	runner := sync.NewRunner(syncer, log)
	runner.Start(ctx, cfg, accountID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down at next cycle boundary")
	runner.Stop()
	return nil
}

func printStats(stats []sync.Stats) {
	for _, s := range stats {
		fmt.Printf(
			"%s: fetched=%d imported=%d drafted=%d ignored=%d\n",
			s.AccountID, s.Fetched, s.Imported, s.Drafted, s.Ignored,
		)
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "snd.db")
	}
	return filepath.Join(home, ".config", "snd", "snd.db")
}
