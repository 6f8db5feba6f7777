package workload

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// TraceType selects the shape of the emitted trace.
type TraceType string

const (
	// TraceCompact is a single traversal of all weights plus one compute
	// tick, meant to be replayed by the simulator's relay count.
	TraceCompact TraceType = "compact"

	// TraceDecode is one traversal plus compute delay per generated token.
	TraceDecode TraceType = "decode"

	// TraceFull is a prefill traversal and compute burst followed by the
	// decode section.
	TraceFull TraceType = "full"
)

// ParseTraceType validates a CLI trace-type string.
func ParseTraceType(s string) (TraceType, error) {
	switch TraceType(s) {
	case TraceCompact, TraceDecode, TraceFull:
		return TraceType(s), nil
	}
	return "", fmt.Errorf("unknown trace type: %s", s)
}

// deviceID is the only device the traces address.
const deviceID = 0

// WriteTrace emits the trace of the given type.
func (g *Generator) WriteTrace(w io.Writer, t TraceType) error {
	switch t {
	case TraceCompact:
		return g.WriteCompactTrace(w)
	case TraceDecode:
		return g.WriteDecodeTrace(w)
	case TraceFull:
		return g.WriteFullTrace(w)
	}
	return fmt.Errorf("unknown trace type: %s", t)
}

// WriteCompactTrace emits one traversal of all weight blocks plus the
// per-iteration compute delay. Replaying the trace N times simulates N
// generated tokens.
func (g *Generator) WriteCompactTrace(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# LLM Single-Iteration Trace (Compact)\n")
	fmt.Fprintf(bw, "# Model: %s\n", g.model.Name)
	fmt.Fprintf(bw, "# One pass through all weights; replay with Relay_Count=N to simulate N tokens\n")
	fmt.Fprintf(bw, "# Compute time per iteration: %g us\n", g.cfg.ComputeTimePerTokenUS)
	fmt.Fprintf(bw, "# Format: arrival_time(us) device_id lba size_sectors read/write(1/0)\n")

	ts := uint64(0)
	if err := g.writeTraversal(bw, &ts); err != nil {
		return err
	}
	ts += uint64(g.cfg.ComputeTimePerTokenUS)

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}

	g.logger.Info("compact trace complete",
		zap.String("model", g.model.Name),
		zap.Uint64("iteration_us", ts))
	return nil
}

// WriteDecodeTrace emits a traversal and compute delay for every
// generated token.
func (g *Generator) WriteDecodeTrace(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# LLM Decode Phase Trace\n")
	fmt.Fprintf(bw, "# Model: %s\n", g.model.Name)
	fmt.Fprintf(bw, "# Tokens to generate: %d\n", g.cfg.NumTokens)
	fmt.Fprintf(bw, "# Format: arrival_time(us) device_id lba size_sectors read/write(1/0)\n")

	ts := uint64(0)
	if err := g.writeDecodeSection(bw, &ts); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}

	g.logger.Info("decode trace complete",
		zap.String("model", g.model.Name),
		zap.Uint32("tokens", g.cfg.NumTokens),
		zap.Float64("trace_seconds", float64(ts)/1e6))
	return nil
}

// WriteFullTrace emits a prefill traversal and compute burst followed by
// the decode section.
func (g *Generator) WriteFullTrace(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# LLM Full Inference Trace (Prefill + Decode)\n")
	fmt.Fprintf(bw, "# Model: %s\n", g.model.Name)
	fmt.Fprintf(bw, "# Prefill length: %d\n", g.cfg.PrefillLength)
	fmt.Fprintf(bw, "# Tokens to generate: %d\n", g.cfg.NumTokens)
	fmt.Fprintf(bw, "# Format: arrival_time(us) device_id lba size_sectors read/write(1/0)\n")

	ts := uint64(0)

	fmt.Fprintf(bw, "# PREFILL PHASE START\n")
	if err := g.writeTraversal(bw, &ts); err != nil {
		return err
	}
	// Prefill processes the whole prompt in one pass; its compute burst
	// scales with the prompt length.
	ts += uint64(g.cfg.ComputeTimePerTokenUS * float64(g.cfg.PrefillLength) * 0.5)

	fmt.Fprintf(bw, "# DECODE PHASE START\n")
	if err := g.writeDecodeSection(bw, &ts); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}

	g.logger.Info("full inference trace complete",
		zap.String("model", g.model.Name),
		zap.Uint32("prefill_length", g.cfg.PrefillLength),
		zap.Uint32("tokens", g.cfg.NumTokens))
	return nil
}

// writeDecodeSection emits NumTokens traversals, each followed by the
// per-token compute delay.
func (g *Generator) writeDecodeSection(bw *bufio.Writer, ts *uint64) error {
	for token := uint32(0); token < g.cfg.NumTokens; token++ {
		if err := g.writeTraversal(bw, ts); err != nil {
			return err
		}
		*ts += uint64(g.cfg.ComputeTimePerTokenUS)

		if (token+1)%1000 == 0 {
			g.logger.Info("trace progress",
				zap.Uint32("tokens", token+1),
				zap.Float64("trace_seconds", float64(*ts)/1e6))
		}
	}
	return nil
}

// writeTraversal emits one pass over every weight block in layout order.
// Each block is read in page-sized chunks with the inter-read delay
// between consecutive reads.
func (g *Generator) writeTraversal(bw *bufio.Writer, ts *uint64) error {
	sectorsPerPage := uint64(g.ssd.PageSizeBytes / SectorSize)

	for _, wb := range g.blocks {
		lba := wb.LBAStart
		remaining := wb.Sectors()

		for remaining > 0 {
			chunk := sectorsPerPage
			if remaining < chunk {
				chunk = remaining
			}

			if _, err := fmt.Fprintf(bw, "%d %d %d %d 1\n",
				*ts, deviceID, lba, chunk); err != nil {
				return fmt.Errorf("writing trace: %w", err)
			}

			lba += chunk
			remaining -= chunk
			*ts += g.interReadDelayUS
		}
	}
	return nil
}
