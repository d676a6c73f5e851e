package main

import (
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradeforge/index-backtest/internal/backtest"
	"github.com/tradeforge/index-backtest/internal/logger"
	"github.com/tradeforge/index-backtest/internal/monitoring"
	"github.com/tradeforge/index-backtest/internal/regime"
	"github.com/tradeforge/index-backtest/internal/risk"
	"github.com/tradeforge/index-backtest/internal/strategy"
	"github.com/tradeforge/index-backtest/pkg/config"
	"github.com/tradeforge/index-backtest/pkg/data"
	"github.com/tradeforge/index-backtest/pkg/reporting"
)

var (
	runConfigPath  string
	runSymbols     []string
	runOutputPath  string
	runWorkers     int
	runMetricsAddr string
	runPeriod      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest over the configured symbols",
	RunE:  runBacktest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "configs/backtest.yaml", "path to YAML config")
	runCmd.Flags().StringSliceVarP(&runSymbols, "symbols", "s", nil, "symbols to simulate (overrides config)")
	runCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "trade ledger path (.csv or .xlsx)")
	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 0, "parallel workers (0 = one per CPU)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	runCmd.Flags().StringVarP(&runPeriod, "period", "p", "", "trailing window like 180d (overrides config)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}
	symbols := cfg.Symbols
	if len(runSymbols) > 0 {
		symbols = runSymbols
	}
	if runPeriod != "" {
		cfg.Data.Period = runPeriod
	}

	if runMetricsAddr != "" {
		go serveMetrics(runMetricsAddr)
	}

	log := logger.New(os.Stderr)
	jobs, skipped, err := loadJobs(cfg, symbols, log)
	if err != nil {
		return err
	}

	factory, err := engineFactory(cfg, log)
	if err != nil {
		return err
	}

	pool := backtest.NewWorkerPool(runWorkers, factory, cfg.AccountCapital, log)
	result := pool.RunBatch(jobs)
	result.Skipped = append(result.Skipped, skipped...)
	sort.Strings(result.Skipped)

	reporting.NewDefaultConsoleReporter().OutputResults(&result)
	if runOutputPath != "" {
		if err := reporting.WriteTradesCSV(&result, runOutputPath); err != nil {
			return fmt.Errorf("write trades: %w", err)
		}
		fmt.Printf("Trade ledger written to %s\n", runOutputPath)
	}
	return nil
}

// loadJobs reads every symbol's series, trims it to the configured trailing
// period and aligns the optional VIX file. A symbol whose data fails to load
// or validate is skipped with a warning; only config problems are fatal.
func loadJobs(cfg *config.Config, symbols []string, log *logger.Logger) ([]backtest.SymbolJob, []string, error) {
	provider := data.NewCSVProvider(cfg.Data.Root)

	var period time.Duration
	if cfg.Data.Period != "" {
		var err error
		period, err = data.ParseTrailingPeriod(cfg.Data.Period)
		if err != nil {
			return nil, nil, fmt.Errorf("data.period: %w", err)
		}
	}

	jobs := make([]backtest.SymbolJob, 0, len(symbols))
	var skipped []string
	for _, symbol := range symbols {
		bars, err := provider.Load(symbol)
		if err != nil {
			log.Warn("skipping %s: %v", symbol, err)
			skipped = append(skipped, symbol)
			monitoring.RecordSymbol("skipped")
			continue
		}
		if period > 0 {
			bars = data.FilterByPeriod(bars, period)
		}

		var vix []float64
		if cfg.Data.VIXFile != "" {
			vix, err = data.LoadVIX(cfg.Data.VIXFile, bars)
			if err != nil {
				log.Warn("skipping %s: vix: %v", symbol, err)
				skipped = append(skipped, symbol)
				monitoring.RecordSymbol("skipped")
				continue
			}
		}
		jobs = append(jobs, backtest.SymbolJob{Symbol: symbol, Data: bars, VIX: vix})
	}
	return jobs, skipped, nil
}

// engineFactory builds one engine per worker job. Strategies and the risk
// manager are per-engine so parallel symbols never share mutable state.
func engineFactory(cfg *config.Config, log *logger.Logger) (func() *backtest.Engine, error) {
	ids := cfg.EnabledStrategies()
	if len(ids) == 0 {
		return nil, fmt.Errorf("no strategies enabled")
	}
	sort.Strings(ids)

	// Fail on unknown identifiers before any worker starts.
	for _, id := range ids {
		if _, err := strategy.Build(id, cfg.Strategies[id].Params); err != nil {
			return nil, err
		}
	}

	runCfg := backtest.RunConfig{
		InitialCapital: cfg.AccountCapital,
		CommissionRate: cfg.CommissionRate,
		SlippageRate:   cfg.SlippageRate,
		WarmupBars:     cfg.WarmupBars,
		VIXFallback:    cfg.Regime.VIXFallback,
		RegimeThresholds: regime.Thresholds{
			VIXHigh: cfg.Regime.VIXHigh,
			VIXLow:  cfg.Regime.VIXLow,
		},
		Exit: exitConfig(cfg.Exit),
	}
	limits := risk.Limits{
		AccountCapital:    cfg.AccountCapital,
		MaxRiskPerTrade:   cfg.MaxRiskPerTrade,
		MaxOpenPositions:  cfg.Risk.MaxOpenPositions,
		MaxPerSymbol:      cfg.Risk.MaxPerSymbol,
		MaxDailyLossPct:   cfg.Risk.MaxDailyLossPct,
		MaxPortfolioDelta: cfg.Risk.MaxPortfolioDelta,
		KellyFractionCap:  cfg.Risk.KellyFractionCap,
	}

	return func() *backtest.Engine {
		strategies := make([]strategy.Strategy, 0, len(ids))
		for _, id := range ids {
			s, _ := strategy.Build(id, cfg.Strategies[id].Params)
			strategies = append(strategies, s)
		}
		return backtest.NewEngine(runCfg, strategies, risk.NewManager(limits), log)
	}, nil
}

func exitConfig(ec config.ExitConfig) backtest.ExitConfig {
	out := backtest.ExitConfig{
		TrailingPct:              ec.TrailingPct,
		TrailingATRMult:          ec.TrailingATRMult,
		MaxHoldingBars:           ec.MaxHoldingBars,
		VolatilityExitPercentile: ec.VolatilityExitPercentile,
	}
	for _, lvl := range ec.PartialLevels {
		out.PartialLevels = append(out.PartialLevels, backtest.PartialLevel{Pct: lvl.Pct, Fraction: lvl.Fraction})
	}
	return out
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
	}
}
