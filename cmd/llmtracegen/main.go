// Package main provides the LLM trace generator: it lays a model's
// weights across the SSD's logical address space and emits a read trace
// for the simulator.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sarchlab/flashsim/workload"
)

var (
	modelKey  string
	numTokens uint32
	output    string
	traceType string
	computeUS float64
)

var rootCmd = &cobra.Command{
	Use:   "llmtracegen",
	Short: "Generate LLM weight-streaming read traces for the flash simulator",
	Long: `llmtracegen maps an LLM's weight matrices onto the SSD's logical
address space and emits a read trace in one of three shapes:

  compact   one iteration (recommended; replay with Relay_Count)
  decode    one traversal per generated token (large file)
  full      prefill + decode (very large file)`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&modelKey, "model", "m", "llama7b",
		"model name: "+strings.Join(workload.ModelKeys(), "|"))
	rootCmd.Flags().Uint32VarP(&numTokens, "tokens", "n", 10000,
		"number of tokens to simulate")
	rootCmd.Flags().StringVarP(&output, "output", "o", "llm_trace.txt",
		"output trace file")
	rootCmd.Flags().StringVarP(&traceType, "type", "t", "compact",
		"trace type: compact|decode|full")
	rootCmd.Flags().Float64VarP(&computeUS, "compute", "c", 1000.0,
		"compute time per token in us")
}

func run(_ *cobra.Command, _ []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	model, err := workload.ModelByKey(modelKey)
	if err != nil {
		return err
	}

	tt, err := workload.ParseTraceType(traceType)
	if err != nil {
		return err
	}

	cfg := workload.DefaultInferenceConfig()
	cfg.NumTokens = numTokens
	cfg.ComputeTimePerTokenUS = computeUS

	gen, err := workload.NewGenerator(
		model, cfg, workload.DefaultSSDConfig(), workload.WithLogger(logger))
	if err != nil {
		return err
	}

	gen.Stats().Log(logger)

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("cannot open trace file %s: %w", output, err)
	}

	if err := gen.WriteTrace(f, tt); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing trace file %s: %w", output, err)
	}

	logger.Info("trace generation complete",
		zap.String("output", output),
		zap.String("type", string(tt)))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
