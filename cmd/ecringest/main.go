// ecringest ingests a SAM4S ECR serial stream and aggregates it into hourly
// CSV rows. See cmd/ecringest for the flag surface; internal/engine owns the
// actual parsing/aggregation pipeline.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"

	"github.com/sam4s/ecringest/internal/aggregator"
	"github.com/sam4s/ecringest/internal/businesshours"
	"github.com/sam4s/ecringest/internal/catalog"
	"github.com/sam4s/ecringest/internal/checkpoint"
	"github.com/sam4s/ecringest/internal/config"
	"github.com/sam4s/ecringest/internal/engine"
	"github.com/sam4s/ecringest/internal/metrics"
	"github.com/sam4s/ecringest/internal/normalizer"
	"github.com/sam4s/ecringest/internal/output"
	"github.com/sam4s/ecringest/internal/serialio"
	"github.com/sam4s/ecringest/internal/sitemap"
	"github.com/sam4s/ecringest/internal/txparser"
)

const clientIdentifier = "ecringest"

var app = &cli.App{
	Name:    clientIdentifier,
	Usage:   "SAM4S ECR serial stream ingestion and hourly aggregation",
	Version: "1.0.0",
}

func init() {
	app.Action = run
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "path to a YAML/JSON config file"},
		&cli.StringFlag{Name: "serial-path", Usage: "path to the serial device or FIFO to read chunks from (stdin if unset)"},
		&cli.StringFlag{Name: "catalog-path", Usage: "path to the newline-delimited PLU catalog", Required: true},
		&cli.StringFlag{Name: "shops-path", Usage: "path to shops.csv for site-id resolution"},
		&cli.StringFlag{Name: "site-hostname", Usage: "hostname used to resolve the site id via shops.csv"},
		&cli.StringFlag{Name: "register", Usage: "optional register suffix for output file names"},
		&cli.StringFlag{Name: "output-dir", Usage: "directory hourly CSV rows are written to"},
		&cli.StringFlag{Name: "checkpoint-dir", Usage: "directory checkpoint-<HH>.dat files are written to"},
		&cli.StringFlag{Name: "dialect-marker-dir", Usage: "directory checked for a config/520 marker file"},
		&cli.StringFlag{Name: "dialect", Usage: `"420" or "520", overrides the marker file`},
		&cli.IntFlag{Name: "opening-hour", Usage: "business-hours gate opening hour (0-23)"},
		&cli.IntFlag{Name: "closing-hour", Usage: "business-hours gate closing hour (0-23)"},
		&cli.IntFlag{Name: "quiet-seconds", Usage: "seconds of inactivity required before a clock-timeout flush"},
		&cli.Float64Flag{Name: "single-item-cap", Usage: "single line-item price cap, at or above which a PLU line is rejected"},
		&cli.StringFlag{Name: "currency-symbol", Usage: "currency symbol the stream uses"},
		&cli.BoolFlag{Name: "monitor-mode", Usage: "run read-only, never writing CSV/checkpoint output"},
		&cli.StringFlag{Name: "metrics-addr", Usage: "address to serve /metrics and /healthz on"},
	}

	app.Before = func(ctx *cli.Context) error {
		log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliFlagSet adapts the urfave/cli flags onto a pflag.FlagSet so
// internal/config can bind them through viper's flag-override precedence.
func cliFlagSet(ctx *cli.Context) *pflag.FlagSet {
	fs := pflag.NewFlagSet(clientIdentifier, pflag.ContinueOnError)
	for _, name := range ctx.FlagNames() {
		switch v := ctx.Value(name).(type) {
		case string:
			fs.String(name, v, "")
		case int:
			fs.Int(name, v, "")
		case float64:
			fs.Float64(name, v, "")
		case bool:
			fs.Bool(name, v, "")
		}
		// Mark flags given on the command line as changed, so viper ranks them
		// above env, file and defaults instead of as a last-resort flag default.
		if f := fs.Lookup(name); f != nil && ctx.IsSet(name) {
			f.Changed = true
		}
	}
	return fs
}

func run(ctx *cli.Context) error {
	cfg, err := config.Watch(cliFlagSet(ctx), ctx.String("config"), func(next config.OperatingConfig) {
		// The Engine, Parser and Normalizer are already wired to the values
		// read at startup; a config file edit is surfaced here so an
		// operator knows to restart rather than silently having no effect.
		log.Warn("ecringest: config file changed, restart to apply", "dialect", dialectName(next.Dialect), "quietSeconds", next.QuietSeconds)
	})
	if err != nil {
		return fmt.Errorf("ecringest: load config: %w", err)
	}
	if cfg.LoggingEnabled {
		if err := enableFileLogging(cfg.CheckpointDir); err != nil {
			log.Warn("ecringest: could not open log file, continuing with terminal logging only", "err", err)
		}
	}
	if v := ctx.String("catalog-path"); v != "" {
		cfg.CatalogPath = v
	}
	if v := ctx.String("shops-path"); v != "" {
		cfg.ShopsPath = v
	}
	if v := ctx.String("site-hostname"); v != "" {
		cfg.SiteHostname = v
	}
	if v := ctx.String("register"); v != "" {
		cfg.Register = v
	}
	if v := ctx.String("serial-path"); v != "" {
		cfg.SerialPath = v
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("ecringest: load catalog: %w", err)
	}

	siteID := "UNKNOWN"
	if cfg.ShopsPath != "" {
		resolver, err := sitemap.Load(cfg.ShopsPath)
		if err != nil {
			return fmt.Errorf("ecringest: load shops map: %w", err)
		}
		siteID = resolver.ResolveSiteID(cfg.SiteHostname)
	}

	agg := aggregator.New(cat)
	parser := txparser.New(agg, txparser.Config{
		Dialect:       cfg.Dialect,
		Currency:      cfg.CurrencySymbol,
		SingleItemCap: cfg.SingleItemCap,
	})
	norm := normalizer.New(cfg.Dialect, cfg.CurrencySymbol)

	var ckpt aggregator.CheckpointStore
	var ckptStore *checkpoint.Store
	if !cfg.MonitorMode {
		ckptStore = checkpoint.New(cfg.CheckpointDir)
		ckpt = ckptStore
		if row, ok, nPLU := ckptStore.LoadIfCurrentHour(time.Now().Hour()); ok {
			if nPLU == cat.Len() {
				agg.Adopt(row)
				log.Info("ecringest: resumed from checkpoint", "hour", row.Hour)
			} else {
				log.Warn("ecringest: discarding checkpoint with mismatched catalog size", "got", nPLU, "want", cat.Len())
			}
		}
	}

	var out aggregator.OutputWriter = discardWriter{}
	var outWriter *output.Writer
	var raw engine.RawRecorder
	var rawWriter *output.RawWriter
	if cfg.MonitorMode {
		// §6: Monitor Mode persists raw chunks and skips parsing entirely,
		// so the CSV/checkpoint sinks above stay discarded/nil and this is
		// the only sink Engine ever writes to.
		rawWriter = output.NewRawWriter(cfg.OutputDir, siteID, cfg.Register)
		raw = rawWriter
		defer rawWriter.Close()
	} else {
		outWriter = output.New(cfg.OutputDir, siteID, cfg.Register)
		out = outWriter
	}

	source, closeSource, err := openChunkSource(cfg.SerialPath)
	if err != nil {
		return fmt.Errorf("ecringest: open serial source: %w", err)
	}
	defer closeSource()

	eng := engine.New(source, norm, agg, parser, ckpt, out, raw, engine.Config{
		Dialect:      cfg.Dialect,
		QuietSeconds: cfg.QuietSeconds,
		MonitorMode:  cfg.MonitorMode,
	})
	gate := businesshours.New(cfg.OpeningHour, cfg.ClosingHour)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dumpCh := make(chan os.Signal, 1)
	signal.Notify(dumpCh, syscall.SIGUSR1)
	defer signal.Stop(dumpCh)

	metricsSrv := serveMetrics(cfg.MetricsAddr)
	defer metricsSrv.Close()

	log.Info("ecringest: starting", "dialect", dialectName(cfg.Dialect), "site", siteID, "monitor", cfg.MonitorMode)
	mainLoop(runCtx, eng, gate, dumpCh)

	log.Info("ecringest: shutting down, final flush")
	eng.EnterIdle()
	return nil
}

// mainLoop implements §5's cooperative scheduling: Step when there is work,
// a short sleep and a Tick probe when there is none, and a once-a-minute
// business-hours check that idles the engine outside opening hours.
func mainLoop(ctx context.Context, eng *engine.Engine, gate businesshours.Gate, dumpCh <-chan os.Signal) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	gateCheck := time.NewTicker(time.Minute)
	defer gateCheck.Stop()

	wasOpen := gate.IsOpen(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-dumpCh:
			eng.Dump(os.Stderr)
		case now := <-gateCheck.C:
			open := gate.IsOpen(now)
			if wasOpen && !open {
				eng.EnterIdle()
			}
			wasOpen = open
		case <-ticker.C:
			if !wasOpen {
				continue
			}
			eng.Tick(time.Now())
			for {
				ok, err := eng.Step(ctx)
				if err != nil {
					log.Error("ecringest: step failed", "err", err)
					break
				}
				if !ok {
					break
				}
			}
		}
	}
}

func openChunkSource(path string) (serialio.ChunkSource, func(), error) {
	if path == "" {
		return serialio.New(os.Stdin, 0), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	src := serialio.New(f, 0)
	return src, func() {
		if err := src.Close(); err != nil {
			log.Warn("ecringest: failed to close serial source", "err", err)
		}
	}, nil
}

func serveMetrics(addr string) *http.Server {
	if addr == "" {
		return &http.Server{}
	}
	reg := metrics.Registry()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ecringest: metrics server failed", "err", err)
		}
	}()
	return srv
}

// enableFileLogging adds a second sink alongside the terminal handler
// installed in app.Before: a plain-text file under dir, for sites where the
// terminal's scrollback is not retained.
func enableFileLogging(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, "ecringest.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := io.MultiWriter(os.Stderr, f)
	log.SetDefault(log.NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: log.LevelInfo})))
	return nil
}

func dialectName(d normalizer.Dialect) string {
	if d == normalizer.Dialect520 {
		return "520"
	}
	return "420"
}

// discardWriter is the MonitorMode OutputWriter: it drops every row. In
// MonitorMode the Engine never parses, so no row reaches it; it only fills
// the OutputWriter slot.
type discardWriter struct{}

func (discardWriter) WriteRow(row *aggregator.Row, cat *catalog.Catalog) error { return nil }
