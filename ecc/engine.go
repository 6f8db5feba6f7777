// Package ecc models the error-correction path of a flash read: a
// physics-inspired raw bit error rate (RBER) estimate turned into a number
// of decode retries and a total decode latency.
//
// Two RBER models are provided. LinearEngine is the simple first-order
// model driven by read and erase counts. PowerLawEngine is the
// characterization-based model
//
//	RBER = epsilon + alpha*c^k + beta*c^m*t^n + gamma*c^p*r^q
//
// with c = P/E cycles, t = retention time in hours, and r = average reads
// per page. Both engines share the same retry ladder and latency policy;
// select one at construction time.
package ecc

import (
	"math"

	"github.com/sarchlab/flashsim/params"
)

// Uncorrectable is returned by AttemptCorrection when the expected error
// count exceeds the correction capability even after all soft retries.
const Uncorrectable = -1

// An Engine decides how many decode retries a read needs given the wear
// state of the page behind it.
type Engine interface {
	// AttemptCorrection returns the number of retries needed (0 = first
	// pass success) or Uncorrectable.
	AttemptCorrection(w WearState) int

	// Latency returns the total decode latency for the given
	// AttemptCorrection result.
	Latency(retries int) params.SimTime
}

// policy holds the decode parameters shared by both RBER models.
type policy struct {
	pageSizeInBits       uint64
	correctionCapability uint32
	decodeLatency        params.SimTime
	maxRetries           uint32
}

// retriesFor walks the retry ladder for an expected bit-error count.
// Retry r raises the effective capability to capability*(1+0.5r),
// modeling soft-decision LDPC decoding.
func (p policy) retriesFor(expectedErrors float64) int {
	capability := float64(p.correctionCapability)
	if expectedErrors <= capability {
		return 0
	}
	for retry := uint32(1); retry <= p.maxRetries; retry++ {
		if expectedErrors <= capability*(1.0+0.5*float64(retry)) {
			return int(retry)
		}
	}
	return Uncorrectable
}

// Latency returns decodeLatency*(1+retries). An uncorrectable read still
// paid for the initial decode and every retry.
func (p policy) Latency(retries int) params.SimTime {
	if retries < 0 {
		return p.decodeLatency * params.SimTime(1+p.maxRetries)
	}
	return p.decodeLatency * params.SimTime(1+retries)
}

// clampRBER keeps the error rate non-negative. Negative coefficients are
// legal configuration (parameter sweeps) but must not drive RBER below 0.
func clampRBER(rber float64) float64 {
	if rber < 0 {
		return 0
	}
	return rber
}

// LinearEngine estimates RBER as a linear function of the page read count
// and the block erase count.
type LinearEngine struct {
	policy

	baseRBER    float64
	readFactor  float64
	eraseFactor float64
}

// NewLinearEngine creates a linear-model ECC engine.
func NewLinearEngine(
	baseRBER, readFactor, eraseFactor float64,
	pageSizeInBits uint64,
	correctionCapability uint32,
	decodeLatency params.SimTime,
	maxRetries uint32,
) *LinearEngine {
	return &LinearEngine{
		policy: policy{
			pageSizeInBits:       pageSizeInBits,
			correctionCapability: correctionCapability,
			decodeLatency:        decodeLatency,
			maxRetries:           maxRetries,
		},
		baseRBER:    baseRBER,
		readFactor:  readFactor,
		eraseFactor: eraseFactor,
	}
}

// NewLinearEngineFromParams derives a linear engine from the flash
// parameter set: page-sized decode granularity, correction capability
// scaled from per-codeword to per-page, and the configured IFP ECC
// decode latency.
func NewLinearEngineFromParams(p *params.FlashParameters) *LinearEngine {
	return NewLinearEngine(
		p.ECCBaseRBER, p.ECCReadCountFactor, p.ECCPECycleFactor,
		p.PageSizeInBits(),
		perPageCapability(p),
		p.IFPECCDecodeLatency,
		p.IFPECCMaxRetries,
	)
}

// RBER returns the clamped error rate for the given wear counters.
func (e *LinearEngine) RBER(readCount, eraseCount uint64) float64 {
	return clampRBER(e.baseRBER +
		e.readFactor*float64(readCount) +
		e.eraseFactor*float64(eraseCount))
}

// AttemptCorrection implements Engine using the page read count and the
// block P/E cycle count.
func (e *LinearEngine) AttemptCorrection(w WearState) int {
	rber := e.RBER(w.PageReads, uint64(w.PECycles))
	return e.retriesFor(rber * float64(e.pageSizeInBits))
}

// Coefficients are the nine parameters of the power-law RBER model.
type Coefficients struct {
	// Epsilon is the base error rate of fresh flash.
	Epsilon float64

	// Alpha and K set the wear-out term alpha*c^K.
	Alpha, K float64

	// Beta, M, and N set the retention term beta*c^M*t^N.
	Beta, M, N float64

	// Gamma, P, and Q set the read-disturb term gamma*c^P*r^Q.
	Gamma, P, Q float64
}

// TLC72LayerCoefficients returns power-law coefficients characterized for
// 72-layer TLC NAND.
func TLC72LayerCoefficients() Coefficients {
	return Coefficients{
		Epsilon: 1.48e-03,
		Alpha:   3.90e-10, K: 2.05,
		Beta: 6.28e-05, M: 0.14, N: 0.54,
		Gamma: 3.73e-09, P: 0.33, Q: 1.71,
	}
}

// PowerLawEngine estimates RBER from P/E cycles, retention time, and read
// disturb using the characterized power-law model.
type PowerLawEngine struct {
	policy

	c Coefficients
}

// NewPowerLawEngine creates a power-law-model ECC engine.
func NewPowerLawEngine(
	c Coefficients,
	pageSizeInBits uint64,
	correctionCapability uint32,
	decodeLatency params.SimTime,
	maxRetries uint32,
) *PowerLawEngine {
	return &PowerLawEngine{
		policy: policy{
			pageSizeInBits:       pageSizeInBits,
			correctionCapability: correctionCapability,
			decodeLatency:        decodeLatency,
			maxRetries:           maxRetries,
		},
		c: c,
	}
}

// NewPowerLawEngineFromParams derives a power-law engine from the flash
// parameter set and explicit model coefficients.
func NewPowerLawEngineFromParams(
	p *params.FlashParameters, c Coefficients,
) *PowerLawEngine {
	return NewPowerLawEngine(
		c,
		p.PageSizeInBits(),
		perPageCapability(p),
		p.IFPECCDecodeLatency,
		p.IFPECCMaxRetries,
	)
}

// RBER returns the clamped error rate for the given wear inputs.
// retentionTimeHours must already be in hours.
func (e *PowerLawEngine) RBER(
	peCycles uint32, retentionTimeHours, avgReadsPerPage float64,
) float64 {
	cycles := float64(peCycles)
	rber := e.c.Epsilon +
		e.c.Alpha*math.Pow(cycles, e.c.K) +
		e.c.Beta*math.Pow(cycles, e.c.M)*math.Pow(retentionTimeHours, e.c.N) +
		e.c.Gamma*math.Pow(cycles, e.c.P)*math.Pow(avgReadsPerPage, e.c.Q)
	return clampRBER(rber)
}

// AttemptCorrection implements Engine using P/E cycles, retention time,
// and the block-average read count.
func (e *PowerLawEngine) AttemptCorrection(w WearState) int {
	rber := e.RBER(w.PECycles, w.RetentionHours, w.AvgReadsPerPage())
	return e.retriesFor(rber * float64(e.pageSizeInBits))
}

// perPageCapability scales the per-codeword correction capability to the
// whole page. A page smaller than one codeword still gets one codeword's
// worth of correction.
func perPageCapability(p *params.FlashParameters) uint32 {
	codewords := p.PageCapacity / p.ECCCodewordSize
	if codewords == 0 {
		codewords = 1
	}
	return p.ECCCorrectionCapability * codewords
}
