package workload

import (
	"fmt"

	"go.uber.org/zap"
)

// SectorSize is the logical block size: one LBA addresses 512 bytes.
const SectorSize = 512

// matrixNames is the fixed per-layer matrix order: the four attention
// projections followed by the two feed-forward matrices.
var matrixNames = [6]string{"Q_proj", "K_proj", "V_proj", "O_proj", "FFN1", "FFN2"}

// WeightBlock is the LBA range one weight matrix occupies. Blocks are
// laid out layer-major, matrix order fixed, contiguous from LBA 0.
type WeightBlock struct {
	LBAStart   uint64
	LBAEnd     uint64 // inclusive
	LayerID    uint32
	MatrixName string
}

// Sectors returns the number of sectors the block spans.
func (b WeightBlock) Sectors() uint64 {
	return b.LBAEnd - b.LBAStart + 1
}

// SSDConfig is the device geometry the trace generator assumes. The
// simulator must be configured consistently.
type SSDConfig struct {
	CapacityBytes uint64
	PageSizeBytes uint32
	PagesPerBlock uint32
}

// DefaultSSDConfig returns the assumed device: 256 GiB, 16 KiB pages,
// 256 pages per block.
func DefaultSSDConfig() SSDConfig {
	return SSDConfig{
		CapacityBytes: 256 * GiB,
		PageSizeBytes: 16 * 1024,
		PagesPerBlock: 256,
	}
}

// Generator deterministically maps a model's weights to LBA ranges and
// emits read traces over them.
type Generator struct {
	model ModelSpec
	cfg   InferenceConfig
	ssd   SSDConfig

	interReadDelayUS uint64
	logger           *zap.Logger

	blocks []WeightBlock
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger routes progress and statistics logging. Defaults to a no-op
// logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithInterReadDelayUS sets the timestamp advance between consecutive
// page reads within a traversal. Defaults to 30 us.
func WithInterReadDelayUS(us uint64) Option {
	return func(g *Generator) { g.interReadDelayUS = us }
}

// NewGenerator computes the weight layout for a model on a device.
func NewGenerator(
	model ModelSpec, cfg InferenceConfig, ssd SSDConfig, opts ...Option,
) (*Generator, error) {
	if ssd.PageSizeBytes == 0 || ssd.PageSizeBytes%SectorSize != 0 {
		return nil, fmt.Errorf(
			"page size %d is not a positive multiple of the %d B sector",
			ssd.PageSizeBytes, SectorSize)
	}
	if model.NumLayers == 0 {
		return nil, fmt.Errorf("model %s has no layers", model.Name)
	}
	matrixBytes := model.WeightsPerLayer / uint64(len(matrixNames))
	if matrixBytes < SectorSize {
		return nil, fmt.Errorf(
			"model %s: %d B per matrix is below one sector", model.Name, matrixBytes)
	}

	g := &Generator{
		model:            model,
		cfg:              cfg,
		ssd:              ssd,
		interReadDelayUS: 30,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.layoutWeights()

	if total := g.blocks[len(g.blocks)-1].LBAEnd * SectorSize; total > ssd.CapacityBytes {
		g.logger.Warn("model does not fit the configured device",
			zap.String("model", model.Name),
			zap.Uint64("model_bytes", model.SizeBytes),
			zap.Uint64("capacity_bytes", ssd.CapacityBytes))
	}

	return g, nil
}

// layoutWeights assigns each layer's matrices to consecutive LBA ranges:
// layer-major, fixed matrix order, first block at LBA 0.
func (g *Generator) layoutWeights() {
	g.blocks = g.blocks[:0]

	matrixBytes := g.model.WeightsPerLayer / uint64(len(matrixNames))
	matrixSectors := matrixBytes / SectorSize

	cursor := uint64(0)
	for layer := uint32(0); layer < g.model.NumLayers; layer++ {
		for _, name := range matrixNames {
			g.blocks = append(g.blocks, WeightBlock{
				LBAStart:   cursor,
				LBAEnd:     cursor + matrixSectors - 1,
				LayerID:    layer,
				MatrixName: name,
			})
			cursor += matrixSectors
		}
	}

	g.logger.Info("generated weight layout",
		zap.String("model", g.model.Name),
		zap.Int("weight_blocks", len(g.blocks)),
		zap.Uint64("total_sectors", cursor))
}

// WeightBlocks returns the layout in emission order.
func (g *Generator) WeightBlocks() []WeightBlock {
	return g.blocks
}

// Model returns the model being laid out.
func (g *Generator) Model() ModelSpec { return g.model }

// Config returns the inference configuration.
func (g *Generator) Config() InferenceConfig { return g.cfg }
