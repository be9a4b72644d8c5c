package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schollz/progressbar/v3"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/datanorm"
	"github.com/ignite/customer-alerts/internal/pkg/logger"
	"github.com/ignite/customer-alerts/internal/runner"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	todayFlag := flag.String("today", "", "run date as YYYY-MM-DD (default: current day)")
	ledger := flag.String("ledger", "", "ledger file, overrides source.path")
	output := flag.String("output", "", "output directory, overrides storage.local_path")
	quiet := flag.Bool("quiet", false, "hide the progress bar")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	configureLogger(cfg.Log)

	if *ledger != "" {
		cfg.Source.Type = "file"
		cfg.Source.Path = *ledger
	}
	if *output != "" {
		cfg.Storage.Type = "local"
		cfg.Storage.LocalPath = *output
	}

	today := datanorm.Day(time.Now())
	if *todayFlag != "" {
		if today, err = time.Parse("2006-01-02", *todayFlag); err != nil {
			log.Fatalf("Invalid --today %q: want YYYY-MM-DD", *todayFlag)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var client redis.Cmdable
	if cfg.Redis.Addr != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rc.Close()
		client = rc
	}

	deps, err := runner.FromConfig(ctx, cfg, client)
	if err != nil {
		log.Fatalf("Failed to configure run: %v", err)
	}
	defer deps.Close()

	if !*quiet {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("ingesting rows"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		deps.Runner.OnRow = func() { _ = bar.Add(1) }
		defer bar.Finish()
	}

	res, err := deps.Runner.Run(ctx, today)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	s := res.Summary
	fmt.Printf("run %s for %s\n", res.RunID, res.Today.Format("2006-01-02"))
	fmt.Printf("  rows %d, customers %d, zero-order %d\n", s.Rows, s.Customers, s.ZeroOrder)
	fmt.Printf("  worklist %d (high %d, mid %d, cooldown %d), no reply %d\n",
		s.Worklist, s.HighPrio, s.MidPrio, s.Cooldown, s.NoReply)
	fmt.Printf("  sku push %d, high return %d, low margin %d, manufacturers %d\n",
		len(res.SKU.Push), len(res.SKU.HighReturn), len(res.SKU.LowMargin), len(res.SKU.Manufacturers))
}

func configureLogger(cfg config.LogConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	if cfg.RedactPII != nil {
		logger.SetRedactPII(*cfg.RedactPII)
	}
}
