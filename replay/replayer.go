package replay

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/akita/v4/datarecording"
	"github.com/sarchlab/akita/v4/sim"
	"go.uber.org/zap"

	"github.com/sarchlab/flashsim/ecc"
	"github.com/sarchlab/flashsim/ifp"
	"github.com/sarchlab/flashsim/params"
)

// Stats is the outcome of one replay run.
type Stats struct {
	Reads         uint64
	Writes        uint64
	IFPReads      uint64
	Uncorrectable uint64

	// RetryHistogram counts reads by retries taken; the Uncorrectable
	// bucket is keyed by ecc.Uncorrectable.
	RetryHistogram map[int]uint64

	RequestsCompleted uint64
	ReclaimCandidates int

	// TotalServiceTime is the summed service latency of all records: for
	// reads the page sense, dot-product, ECC, and aggregation shares; for
	// writes the page program latency.
	TotalServiceTime params.SimTime

	// EndTimeUS is the arrival time of the last trace record.
	EndTimeUS uint64
}

// readRow is the per-read record written to the data recorder.
type readRow struct {
	TimeUS        uint64
	LBA           uint64
	Sectors       uint32
	Retries       int
	Uncorrectable bool
	ServiceNS     uint64
}

// requestRow is the per-user-request record written to the data recorder.
type requestRow struct {
	TimeUS        uint64
	RequestID     string
	Partials      int
	Result        float64
	AggregationNS uint64
}

// A Replayer services a parsed trace. In IFP mode each run of ascending
// LBAs forms one user request (one GEMV's fan-out), each read becomes an
// IFP transaction, and the aggregation unit closes the fan-in.
type Replayer struct {
	p      *params.FlashParameters
	engine sim.Engine
	eng    ecc.Engine
	wear   *WearModel
	agg    *ifp.AggregationUnit

	recorder          datarecording.DataRecorder
	logger            *zap.Logger
	dramAccessLatency params.SimTime

	items []*replayItem
	sums  map[string]float64
	sizes map[string]int
	stats Stats
}

type replayItem struct {
	rec TraceRecord
	txn *ifp.Transaction
	req *ifp.UserRequest
}

// readEvent fires when one trace record arrives at the device.
type readEvent struct {
	*sim.EventBase

	item *replayItem
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithRecorder streams per-read and per-request rows into a data
// recorder.
func WithRecorder(r datarecording.DataRecorder) Option {
	return func(rp *Replayer) { rp.recorder = r }
}

// WithLogger routes replay diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(rp *Replayer) { rp.logger = l }
}

// WithDRAMAccessLatency sets the controller DRAM access time charged per
// partial result in controller-level aggregation. Default: 1 us.
func WithDRAMAccessLatency(t params.SimTime) Option {
	return func(rp *Replayer) { rp.dramAccessLatency = t }
}

// NewReplayer builds a replayer over a parsed trace. The ECC engine and
// wear model encode the device's wear assumptions; IFP dispatch follows
// p.IFPEnabled.
func NewReplayer(
	p *params.FlashParameters,
	engine ecc.Engine,
	wear *WearModel,
	records []TraceRecord,
	opts ...Option,
) *Replayer {
	r := &Replayer{
		p:                 p,
		eng:               engine,
		wear:              wear,
		dramAccessLatency: 1000,
		logger:            zap.NewNop(),
		sums:              make(map[string]float64),
		sizes:             make(map[string]int),
	}
	r.stats.RetryHistogram = make(map[int]uint64)

	for _, opt := range opts {
		opt(r)
	}

	r.agg = ifp.NewAggregationUnit(
		ifp.AggregationMode(p.IFPAggregationMode), r.dramAccessLatency)

	r.buildItems(records)

	return r
}

// buildItems turns trace records into replay items. A user request spans
// a maximal run of reads with non-decreasing LBAs: the weight traversals
// emitted by the workload generator scan the address space upward, so an
// LBA drop marks the next GEMV.
func (r *Replayer) buildItems(records []TraceRecord) {
	var (
		req     *ifp.UserRequest
		lastLBA uint64
	)

	for _, rec := range records {
		item := &replayItem{rec: rec}

		if !rec.Write && r.p.IFPEnabled {
			if req == nil || rec.LBA < lastLBA {
				req = ifp.NewUserRequest()
			}
			lastLBA = rec.LBA

			sectorsPerPage := uint64(r.p.SectorsPerPage())
			txn := ifp.NewIFPTransaction(
				ifp.SourceUserIO, rec.Device,
				rec.Sectors*sectorSize,
				rec.LBA/sectorsPerPage, rec.LBA/sectorsPerPage,
				req, 0, sectorsBitmap(rec.Sectors), rec.ArrivalUS)
			req.Add(txn)

			item.txn = txn
			item.req = req
			r.sizes[req.ID]++
		}

		r.items = append(r.items, item)
	}
}

// sectorSize matches the workload generator's 512 B LBA granularity.
const sectorSize = 512

func sectorsBitmap(sectors uint32) uint64 {
	if sectors >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << sectors) - 1
}

// Run replays the whole trace on a fresh serial engine and returns the
// accumulated statistics.
func (r *Replayer) Run() (Stats, error) {
	r.engine = sim.NewSerialEngine()

	if r.recorder != nil {
		r.recorder.CreateTable("flash_reads", readRow{})
		r.recorder.CreateTable("ifp_requests", requestRow{})
	}

	for _, item := range r.items {
		evt := readEvent{
			EventBase: sim.NewEventBase(
				sim.VTimeInSec(float64(item.rec.ArrivalUS)*1e-6), r),
			item: item,
		}
		r.engine.Schedule(evt)
	}

	if err := r.engine.Run(); err != nil {
		return Stats{}, fmt.Errorf("replay engine: %w", err)
	}

	r.stats.ReclaimCandidates = r.wear.ReclaimCandidates()
	if r.recorder != nil {
		r.recorder.Flush()
	}

	if pending := r.agg.PendingRequests(); pending > 0 {
		r.logger.Warn("trace ended with incomplete user requests",
			zap.Int("pending", pending))
	}

	return r.stats, nil
}

// Handle dispatches engine events.
func (r *Replayer) Handle(e sim.Event) error {
	switch evt := e.(type) {
	case readEvent:
		r.handleRecord(evt)
	default:
		return fmt.Errorf("replay: cannot handle event of type %s",
			reflect.TypeOf(e).String())
	}
	return nil
}

func (r *Replayer) handleRecord(evt readEvent) {
	rec := evt.item.rec
	r.stats.EndTimeUS = rec.ArrivalUS

	if rec.Write {
		r.stats.Writes++
		r.stats.TotalServiceTime += r.p.PageProgramLatencyLSB
		return
	}

	r.stats.Reads++
	r.wear.RecordRead(rec.LBA)

	retries := r.eng.AttemptCorrection(r.wear.StateFor(rec.LBA))
	service := r.readLatency(rec.Sectors) + r.eng.Latency(retries)

	r.stats.RetryHistogram[retries]++
	if retries == ecc.Uncorrectable {
		r.stats.Uncorrectable++
	}

	if txn := evt.item.txn; txn != nil {
		service += r.handleIFP(evt, txn, retries)
	}

	r.stats.TotalServiceTime += service

	if r.recorder != nil {
		r.recorder.InsertData("flash_reads", readRow{
			TimeUS:        rec.ArrivalUS,
			LBA:           rec.LBA,
			Sectors:       rec.Sectors,
			Retries:       retries,
			Uncorrectable: retries == ecc.Uncorrectable,
			ServiceNS:     uint64(service),
		})
	}
}

// handleIFP finishes one IFP transaction: the plane's dot product, the
// fan-in through the aggregation unit, and (on completion) the
// aggregation latency. The transaction detaches from the request's
// pending list for the submission and reattaches afterwards so that the
// list still holds the full fan-out when the aggregation latency is
// charged.
func (r *Replayer) handleIFP(
	evt readEvent, txn *ifp.Transaction, retries int,
) params.SimTime {
	req := evt.item.req

	r.stats.IFPReads++

	txn.PartialDotProduct = float64(evt.item.rec.Sectors)
	txn.ECCRetryNeeded = retries != 0
	if retries > 0 {
		txn.ECCRetryCount = uint32(retries)
	} else if retries == ecc.Uncorrectable {
		txn.ECCRetryCount = r.p.IFPECCMaxRetries
	}

	r.sums[req.ID] += txn.PartialDotProduct

	req.Remove(txn)
	done := r.agg.AggregatePartialResult(txn)
	req.Add(txn)

	service := r.p.IFPDotProductLatency
	if !done {
		return service
	}

	aggLatency := r.agg.AggregationLatency(req)
	service += aggLatency
	req.Transactions = nil

	r.stats.RequestsCompleted++
	if r.recorder != nil {
		r.recorder.InsertData("ifp_requests", requestRow{
			TimeUS:        evt.item.rec.ArrivalUS,
			RequestID:     req.ID,
			Partials:      r.sizes[req.ID],
			Result:        r.sums[req.ID],
			AggregationNS: uint64(aggLatency),
		})
	}
	delete(r.sums, req.ID)
	delete(r.sizes, req.ID)

	return service
}

// readLatency models the flash array time of one read: one page sense
// per page-sized chunk.
func (r *Replayer) readLatency(sectors uint32) params.SimTime {
	perPage := r.p.SectorsPerPage()
	pages := (sectors + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	return r.p.PageReadLatencyLSB * params.SimTime(pages)
}
