package backtest

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/tradeforge/index-backtest/internal/logger"
	"github.com/tradeforge/index-backtest/internal/monitoring"
	"github.com/tradeforge/index-backtest/pkg/types"
)

// WorkerPool runs symbol simulations in parallel. Each job gets its own
// engine from the factory so no mutable state is shared between workers; the
// merge at the end is a plain reduce.
type WorkerPool struct {
	workerCount int
	newEngine   func() *Engine
	capital     float64
	log         *logger.Logger
	jobQueue    chan SymbolJob
	resultQueue chan symbolJobResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// SymbolJob is one instrument's series plus its optional aligned VIX values.
type SymbolJob struct {
	Symbol string
	Data   []types.OHLCV
	VIX    []float64
}

type symbolJobResult struct {
	symbol   string
	result   *SymbolResult
	duration time.Duration
	err      error
}

// BatchResult is the merged output of a parallel run.
type BatchResult struct {
	Trades   []Trade
	DailyPnL map[string]float64
	Skipped  []string
	Summary  Summary
}

// NewWorkerPool creates a pool; workerCount <= 0 uses one worker per CPU.
func NewWorkerPool(workerCount int, newEngine func() *Engine, capital float64, log *logger.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if log == nil {
		log = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workerCount: workerCount,
		newEngine:   newEngine,
		capital:     capital,
		log:         log,
		jobQueue:    make(chan SymbolJob, workerCount),
		resultQueue: make(chan symbolJobResult, workerCount),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// RunBatch simulates every job and reduces the per-symbol results into one
// batch result. Malformed series are skipped with a warning, never fatal.
func (wp *WorkerPool) RunBatch(jobs []SymbolJob) BatchResult {
	started := time.Now()
	wp.start()

	go func() {
		for _, job := range jobs {
			select {
			case wp.jobQueue <- job:
			case <-wp.ctx.Done():
				return
			}
		}
		close(wp.jobQueue)
	}()

	merged := BatchResult{DailyPnL: make(map[string]float64)}
	for i := 0; i < len(jobs); i++ {
		res := <-wp.resultQueue
		if res.err != nil {
			wp.log.Warn("skipping %s: %v", res.symbol, res.err)
			merged.Skipped = append(merged.Skipped, res.symbol)
			monitoring.RecordSymbol("skipped")
			continue
		}
		monitoring.RecordSymbol("completed")
		merged.Trades = append(merged.Trades, res.result.Trades...)
		for day, pnl := range res.result.DailyPnL {
			merged.DailyPnL[day] += pnl
		}
	}
	wp.stop()
	sort.Strings(merged.Skipped)

	// Deterministic trade order regardless of worker scheduling.
	sort.Slice(merged.Trades, func(i, j int) bool {
		a, b := merged.Trades[i], merged.Trades[j]
		if !a.ExitTime.Equal(b.ExitTime) {
			return a.ExitTime.Before(b.ExitTime)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.PositionID < b.PositionID
	})

	merged.Summary = Aggregate(merged.Trades, merged.DailyPnL, wp.capital)
	monitoring.SetRunDuration(time.Since(started).Seconds())
	return merged
}

func (wp *WorkerPool) start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

func (wp *WorkerPool) stop() {
	wp.wg.Wait()
	wp.cancel()
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			res := wp.processJob(job)
			select {
			case wp.resultQueue <- res:
			case <-wp.ctx.Done():
				return
			}
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job SymbolJob) symbolJobResult {
	started := time.Now()
	engine := wp.newEngine()
	result, err := engine.RunSymbol(job.Symbol, job.Data, job.VIX)
	return symbolJobResult{
		symbol:   job.Symbol,
		result:   result,
		duration: time.Since(started),
		err:      err,
	}
}
