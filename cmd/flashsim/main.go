// Package main provides the flashsim trace replayer: it services a
// recorded trace through the ECC and in-flash processing models and
// reports read-path statistics.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/datarecording"
	"go.uber.org/zap"

	"github.com/sarchlab/flashsim/ecc"
	"github.com/sarchlab/flashsim/params"
	"github.com/sarchlab/flashsim/replay"
)

var (
	tracePath  = flag.String("trace", "", "Trace file to replay")
	configPath = flag.String("config", "", "Flash parameter XML file")
	rberModel  = flag.String("rber", "linear", "RBER model: linear or powerlaw")
	statsPath  = flag.String("stats", "", "SQLite stats database path (no extension)")
	peCycles   = flag.Uint("pe", 0, "P/E cycle count of every block")
	retention  = flag.Float64("retention", 0, "Retention age of every block in hours")
	ifpEnabled = flag.Bool("ifp", false, "Force-enable in-flash processing")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if *tracePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: flashsim -trace <file> [options]\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	p := loadParams()
	if *ifpEnabled {
		p.IFPEnabled = true
	}

	records := loadTrace()

	engine := buildECCEngine(p)
	wear := replay.NewWearModel(p, uint32(*peCycles), *retention)

	opts := []replay.Option{replay.WithLogger(logger)}
	if *statsPath != "" {
		opts = append(opts, replay.WithRecorder(datarecording.NewDataRecorder(*statsPath)))
	}

	replayer := replay.NewReplayer(p, engine, wear, records, opts...)

	stats, err := replayer.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error replaying trace: %v\n", err)
		os.Exit(1)
	}

	printStats(stats)
}

// loadParams builds the parameter set: defaults, then the optional XML
// overlay. A parse failure names the offending attribute and exits.
func loadParams() *params.FlashParameters {
	p := params.Default()

	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening config: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()

		if err := p.ReadXML(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error in flash parameters: %v\n", err)
			os.Exit(1)
		}
	}

	if err := p.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in flash parameters: %v\n", err)
		os.Exit(1)
	}
	return p
}

func loadTrace() []replay.TraceRecord {
	f, err := os.Open(*tracePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening trace: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	records, err := replay.ParseTrace(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing trace: %v\n", err)
		os.Exit(1)
	}
	return records
}

func buildECCEngine(p *params.FlashParameters) ecc.Engine {
	switch *rberModel {
	case "linear":
		return ecc.NewLinearEngineFromParams(p)
	case "powerlaw":
		return ecc.NewPowerLawEngineFromParams(p, ecc.TLC72LayerCoefficients())
	}
	fmt.Fprintf(os.Stderr, "Unknown RBER model: %s\n", *rberModel)
	os.Exit(1)
	return nil
}

func printStats(stats replay.Stats) {
	fmt.Printf("Reads:               %d\n", stats.Reads)
	fmt.Printf("Writes:              %d\n", stats.Writes)
	fmt.Printf("IFP reads:           %d\n", stats.IFPReads)
	fmt.Printf("Requests completed:  %d\n", stats.RequestsCompleted)
	fmt.Printf("Uncorrectable:       %d\n", stats.Uncorrectable)
	fmt.Printf("Reclaim candidates:  %d\n", stats.ReclaimCandidates)
	fmt.Printf("Total service time:  %.3f ms\n",
		float64(stats.TotalServiceTime)/1e6)
	fmt.Printf("Trace end:           %.3f s\n", float64(stats.EndTimeUS)/1e6)

	fmt.Printf("Retry histogram:\n")
	for r := -1; r <= 16; r++ {
		if n, ok := stats.RetryHistogram[r]; ok {
			label := fmt.Sprintf("%d", r)
			if r < 0 {
				label = "uncorrectable"
			}
			fmt.Printf("  %-14s %d\n", label, n)
		}
	}
}
