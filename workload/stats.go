package workload

import "go.uber.org/zap"

// Stats summarizes the read workload a trace represents.
type Stats struct {
	Model        string
	WeightBlocks int

	// TotalSectors is the LBA span of the layout.
	TotalSectors uint64

	// SectorsPerToken and BytesPerToken are the volume of one traversal.
	SectorsPerToken uint64
	BytesPerToken   uint64

	// TotalBytes is the volume of the whole decode campaign.
	TotalBytes uint64

	// BlocksTouched is the number of flash blocks the layout spans;
	// AvgReadsPerBlock is the per-block read pressure over the campaign.
	BlocksTouched    uint64
	AvgReadsPerBlock float64
}

// Stats computes workload statistics for the configured model and device.
func (g *Generator) Stats() Stats {
	s := Stats{
		Model:        g.model.Name,
		WeightBlocks: len(g.blocks),
	}

	for _, wb := range g.blocks {
		s.SectorsPerToken += wb.Sectors()
	}
	s.TotalSectors = g.blocks[len(g.blocks)-1].LBAEnd + 1
	s.BytesPerToken = s.SectorsPerToken * SectorSize
	s.TotalBytes = s.BytesPerToken * uint64(g.cfg.NumTokens)

	sectorsPerBlock := uint64(g.ssd.PagesPerBlock) * uint64(g.ssd.PageSizeBytes) / SectorSize
	if sectorsPerBlock > 0 {
		s.BlocksTouched = (s.TotalSectors + sectorsPerBlock - 1) / sectorsPerBlock
	}
	if s.BlocksTouched > 0 {
		totalReads := s.SectorsPerToken * uint64(g.cfg.NumTokens)
		s.AvgReadsPerBlock = float64(totalReads) / float64(s.BlocksTouched)
	}

	return s
}

// Log writes the statistics through the given logger.
func (s Stats) Log(l *zap.Logger) {
	l.Info("workload statistics",
		zap.String("model", s.Model),
		zap.Int("weight_blocks", s.WeightBlocks),
		zap.Uint64("total_sectors", s.TotalSectors),
		zap.Uint64("bytes_per_token", s.BytesPerToken),
		zap.Uint64("total_bytes", s.TotalBytes),
		zap.Uint64("blocks_touched", s.BlocksTouched),
		zap.Float64("avg_reads_per_block", s.AvgReadsPerBlock))
}
