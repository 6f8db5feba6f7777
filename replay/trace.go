// Package replay drives a recorded trace through the IFP read path: per
// read it applies the ECC retry model against evolving block wear, and in
// IFP mode it fans dot-product partials through the aggregation unit, all
// under an Akita discrete-event engine.
package replay

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TraceRecord is one I/O in the trace file format
// "<arrival_time_us> <device_id> <lba> <size_sectors> <op>".
type TraceRecord struct {
	ArrivalUS uint64
	Device    uint32
	LBA       uint64
	Sectors   uint32
	Write     bool
}

// ParseTrace reads a trace stream. Lines starting with '#' and blank
// lines are skipped. A malformed data line fails the parse with its line
// number.
func ParseTrace(r io.Reader) ([]TraceRecord, error) {
	var records []TraceRecord

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 5 {
			return nil, fmt.Errorf("trace line %d: want 5 fields, got %d",
				lineNo, len(fields))
		}

		var vals [5]uint64
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("trace line %d: field %d: %w",
					lineNo, i+1, err)
			}
			vals[i] = v
		}
		if vals[4] > 1 {
			return nil, fmt.Errorf("trace line %d: op must be 0 or 1", lineNo)
		}

		records = append(records, TraceRecord{
			ArrivalUS: vals[0],
			Device:    uint32(vals[1]),
			LBA:       vals[2],
			Sectors:   uint32(vals[3]),
			Write:     vals[4] == 0,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}

	return records, nil
}
