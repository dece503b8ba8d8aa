// Command sweep runs the full (W, L) grid across the configured number of
// seeds per point and writes one CSV row per trial. Flags are parsed by
// hand, following ctrl/bulk's os.Args walk rather than the standard
// library's flag package.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/arqlab/srarq/channel"
	"github.com/arqlab/srarq/internal/metrics"
	"github.com/arqlab/srarq/internal/resultio"
	"github.com/arqlab/srarq/internal/sweepconfig"
	"github.com/arqlab/srarq/simulation"
)

type options struct {
	configPath  string
	outputPath  string
	numCPUs     int
	metricsAddr string
}

func parseArgs(args []string) (options, error) {
	opt := options{
		outputPath: "results.csv",
		numCPUs:    runtime.NumCPU(),
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			i++
			if i >= len(args) {
				return opt, fmt.Errorf("sweep: --config requires a path")
			}
			opt.configPath = args[i]
		case "--out":
			i++
			if i >= len(args) {
				return opt, fmt.Errorf("sweep: --out requires a path")
			}
			opt.outputPath = args[i]
		case "--cpus":
			i++
			if i >= len(args) {
				return opt, fmt.Errorf("sweep: --cpus requires a count")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 {
				return opt, fmt.Errorf("sweep: --cpus must be a positive integer")
			}
			opt.numCPUs = n
		case "--metrics-listen":
			i++
			if i >= len(args) {
				return opt, fmt.Errorf("sweep: --metrics-listen requires an address")
			}
			// overrides the config file's metrics.listen when both are given
			opt.metricsAddr = args[i]
		default:
			return opt, fmt.Errorf("sweep: unrecognized flag %q", args[i])
		}
	}
	return opt, nil
}

// trial is one (W, L, run_id) point waiting to be simulated.
type trial struct {
	w, l, runID int
	seed        int64
}

func buildTrials(cfg *sweepconfig.Config) []trial {
	var trials []trial
	for _, w := range cfg.WindowSizes {
		for _, l := range cfg.PayloadSizes {
			for runID := 0; runID < cfg.RunsPerPoint; runID++ {
				trials = append(trials, trial{
					w:     w,
					l:     l,
					runID: runID,
					seed:  int64(w)*10000 + int64(l)*100 + int64(runID),
				})
			}
		}
	}
	return trials
}

// outcome carries one trial's verdict back to the writer loop: either a
// completed row or the trial that failed and why.
type outcome struct {
	t   trial
	row simulation.Row
	err error
}

// runTrial executes one simulation point, recovering any panic so a single
// misbehaving trial flags a failed row instead of taking the whole sweep
// down with it.
func runTrial(t trial, params channel.Params) (row simulation.Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in trial W=%d L=%d seed=%d run=%d: %v", t.w, t.l, t.seed, t.runID, r)
		}
	}()
	return simulation.Run(simulation.Config{
		W:      t.w,
		L:      t.l,
		Seed:   t.seed,
		RunID:  t.runID,
		Params: params,
	})
}

func main() {
	opt, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := sweepconfig.Load(opt.configPath)
	if err != nil {
		log.Fatal(err)
	}
	params := cfg.ResolveParams()

	metricsAddr, metricsPath := opt.metricsAddr, "/metrics"
	if metricsAddr == "" && cfg.Metrics.Enabled {
		metricsAddr, metricsPath = cfg.Metrics.Listen, cfg.Metrics.Path
	}

	var metricsServer *metrics.Server
	if metricsAddr != "" {
		metricsServer = metrics.NewServer()
		if err := metricsServer.Start(metricsAddr, metricsPath); err != nil {
			log.Fatal(err)
		}
		defer metricsServer.Stop()
	}

	if dir := filepath.Dir(opt.outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal(err)
		}
	}

	writer, err := resultio.Create(opt.outputPath)
	if err != nil {
		log.Fatal(err)
	}
	defer writer.Close()

	trials := buildTrials(cfg)
	total := len(trials)
	log.Printf("sweep: running %d trials across %d workers", total, opt.numCPUs)

	jobs := make(chan trial)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for n := 0; n < opt.numCPUs; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if metricsServer != nil {
					metricsServer.Metrics().ActiveWorkers.Inc()
				}
				start := time.Now()
				row, err := runTrial(t, params)
				if metricsServer != nil {
					if err == nil {
						metricsServer.Metrics().RecordCompletion(row.GoodputMbps, row.Retransmissions, row.BufferEvents, time.Since(start).Seconds())
					} else {
						metricsServer.Metrics().RecordFailure()
					}
					metricsServer.Metrics().ActiveWorkers.Dec()
				}
				outcomes <- outcome{t: t, row: row, err: err}
			}
		}()
	}

	go func() {
		for _, t := range trials {
			jobs <- t
		}
		close(jobs)
		wg.Wait()
		close(outcomes)
	}()

	completed, failed := 0, 0
	for o := range outcomes {
		if o.err != nil {
			log.Printf("sweep: trial W=%d L=%d seed=%d run=%d failed: %v", o.t.w, o.t.l, o.t.seed, o.t.runID, o.err)
			if err := writer.WriteFailure(o.t.w, o.t.l, o.t.runID, o.err); err != nil {
				log.Fatal(err)
			}
			failed++
			continue
		}
		if err := writer.WriteRow(o.row); err != nil {
			log.Fatal(err)
		}
		completed++
		log.Printf("sweep: [%d/%d] W=%d L=%d -> goodput=%.3f Mbps", completed+failed, total, o.t.w, o.t.l, o.row.GoodputMbps)
	}
	log.Printf("sweep: done, wrote %d rows (%d failed) to %s", completed+failed, failed, opt.outputPath)
}
