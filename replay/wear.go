package replay

import (
	"github.com/sarchlab/flashsim/ecc"
	"github.com/sarchlab/flashsim/params"
)

// WearModel tracks per-block read counts over the logical address space
// and snapshots them into ECC wear states. P/E cycles and retention age
// are fixed for the run; read disturb accumulates as the trace replays.
type WearModel struct {
	sectorsPerBlock uint64
	pagesPerBlock   uint32

	peCycles         uint32
	retentionHours   float64
	reclaimThreshold uint32

	blockReads map[uint64]uint64
}

// NewWearModel creates a wear model for the configured geometry.
// peCycles and retentionHours set the starting wear of every block.
func NewWearModel(
	p *params.FlashParameters, peCycles uint32, retentionHours float64,
) *WearModel {
	return &WearModel{
		sectorsPerBlock: uint64(p.PageNoPerBlock) * uint64(p.SectorsPerPage()),
		pagesPerBlock:   p.PageNoPerBlock,
		peCycles:        peCycles,
		retentionHours:  retentionHours,
		reclaimThreshold: p.ReadReclaimThreshold,
		blockReads:      make(map[uint64]uint64),
	}
}

func (m *WearModel) blockOf(lba uint64) uint64 {
	return lba / m.sectorsPerBlock
}

// RecordRead bumps the read-disturb counter of the block behind an LBA.
func (m *WearModel) RecordRead(lba uint64) {
	m.blockReads[m.blockOf(lba)]++
}

// StateFor snapshots the wear state behind an LBA. The per-page read
// count is the block average, which is exact for the sequential
// weight-streaming workload.
func (m *WearModel) StateFor(lba uint64) ecc.WearState {
	reads := m.blockReads[m.blockOf(lba)]
	return ecc.WearState{
		PECycles:       m.peCycles,
		PageReads:      reads / uint64(m.pagesPerBlock),
		BlockReads:     reads,
		PagesPerBlock:  m.pagesPerBlock,
		RetentionHours: m.retentionHours,
	}
}

// ReclaimCandidates counts blocks whose read count crossed the
// read-reclaim threshold.
func (m *WearModel) ReclaimCandidates() int {
	n := 0
	for _, reads := range m.blockReads {
		if reads >= uint64(m.reclaimThreshold) {
			n++
		}
	}
	return n
}

// BlockReads returns the read count of the block behind an LBA.
func (m *WearModel) BlockReads(lba uint64) uint64 {
	return m.blockReads[m.blockOf(lba)]
}
