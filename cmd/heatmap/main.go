// Command heatmap reads a sweep's CSV output and renders one PNG per
// requested metric over the (W, L) grid. Flags are parsed by hand, matching
// cmd/sweep.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/arqlab/srarq/internal/heatmap"
)

type options struct {
	inputPath string
	outputDir string
	metrics   []string
}

func parseArgs(args []string) (options, error) {
	opt := options{
		outputDir: ".",
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--in":
			i++
			if i >= len(args) {
				return opt, fmt.Errorf("heatmap: --in requires a path")
			}
			opt.inputPath = args[i]
		case "--out-dir":
			i++
			if i >= len(args) {
				return opt, fmt.Errorf("heatmap: --out-dir requires a path")
			}
			opt.outputDir = args[i]
		case "--metric":
			i++
			if i >= len(args) {
				return opt, fmt.Errorf("heatmap: --metric requires a name")
			}
			opt.metrics = append(opt.metrics, args[i])
		default:
			return opt, fmt.Errorf("heatmap: unrecognized flag %q", args[i])
		}
	}
	if opt.inputPath == "" {
		return opt, fmt.Errorf("heatmap: --in is required")
	}
	for _, name := range opt.metrics {
		if !isKnownMetric(name) {
			return opt, fmt.Errorf("heatmap: unrecognized --metric %q", name)
		}
	}
	return opt, nil
}

func isKnownMetric(name string) bool {
	for _, known := range heatmap.MetricNames() {
		if name == known {
			return true
		}
	}
	return false
}

func main() {
	opt, err := parseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(opt.outputDir, 0755); err != nil {
		log.Fatal(err)
	}

	if err := heatmap.LoadAndRenderAll(opt.inputPath, opt.outputDir, opt.metrics); err != nil {
		log.Fatal(err)
	}
	log.Printf("heatmap: wrote plots to %s", opt.outputDir)
}
