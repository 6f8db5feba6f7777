package ifp

import (
	"fmt"
	"sync"

	"github.com/sarchlab/flashsim/params"
)

// AggregationMode selects where partial dot products are summed.
type AggregationMode int

const (
	// ControllerLevel transfers every partial to controller DRAM and
	// accumulates there, paying one DRAM access per partial.
	ControllerLevel AggregationMode = iota

	// ChipLevel accumulates on the flash die; only the final scalar
	// crosses the chip boundary.
	ChipLevel
)

// aggregationState tracks the fan-in of one user request.
type aggregationState struct {
	accumulatedResult float64
	completedCount    uint32
	totalCount        uint32
}

// AggregationUnit accumulates partial dot-product results per user
// request and reports when a request's fan-in is complete.
//
// The per-request total is fixed at the first submission: it is the
// number of IFP transactions still pending on the request's list plus one
// for the transaction being submitted. The dispatcher must therefore
// enqueue every IFP transaction of a request before any of them
// completes, and must remove a completing transaction from the list
// before submitting it here.
type AggregationUnit struct {
	mode                        AggregationMode
	dramAccessLatencyPerPartial params.SimTime

	mu      sync.Mutex
	pending map[string]*aggregationState
}

// NewAggregationUnit creates an aggregation unit.
// dramAccessLatencyPerPartial is only charged in ControllerLevel mode.
func NewAggregationUnit(
	mode AggregationMode, dramAccessLatencyPerPartial params.SimTime,
) *AggregationUnit {
	return &AggregationUnit{
		mode:                        mode,
		dramAccessLatencyPerPartial: dramAccessLatencyPerPartial,
		pending:                     make(map[string]*aggregationState),
	}
}

// Mode returns the configured aggregation mode.
func (u *AggregationUnit) Mode() AggregationMode { return u.mode }

// AggregatePartialResult folds a completed IFP transaction into its user
// request's accumulator. It returns true when all IFP transactions of the
// request are complete; the completing transaction is marked with
// AggregationComplete and the request's state is released.
//
// A transaction with no user request is trivially complete.
func (u *AggregationUnit) AggregatePartialResult(t *Transaction) bool {
	if t.Request == nil {
		return true
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	st, ok := u.pending[t.Request.ID]
	if !ok {
		st = &aggregationState{
			accumulatedResult: t.PartialDotProduct,
			completedCount:    1,
			totalCount:        uint32(t.Request.PendingIFP()) + 1,
		}
		if st.completedCount >= st.totalCount {
			t.AggregationComplete = true
			return true
		}
		u.pending[t.Request.ID] = st
		return false
	}

	st.accumulatedResult += t.PartialDotProduct
	st.completedCount++

	if st.completedCount > st.totalCount {
		panic(fmt.Sprintf(
			"ifp: aggregation for request %s overran: %d completed of %d",
			t.Request.ID, st.completedCount, st.totalCount))
	}

	if st.completedCount == st.totalCount {
		t.AggregationComplete = true
		delete(u.pending, t.Request.ID)
		return true
	}

	return false
}

// AggregationLatency returns the latency of merging the request's
// partials: zero for chip-level accumulation, one DRAM access per pending
// IFP transaction for controller-level. Call it while the request's
// transaction list still holds the IFP transactions being merged.
func (u *AggregationUnit) AggregationLatency(req *UserRequest) params.SimTime {
	if u.mode == ChipLevel {
		return 0
	}
	return u.dramAccessLatencyPerPartial * params.SimTime(req.PendingIFP())
}

// AccumulatedResult returns the in-flight accumulator for a request, if
// any. Once the request completes the state is gone.
func (u *AggregationUnit) AccumulatedResult(req *UserRequest) (float64, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	st, ok := u.pending[req.ID]
	if !ok {
		return 0, false
	}
	return st.accumulatedResult, true
}

// PendingRequests returns the number of requests with in-flight
// aggregation state.
func (u *AggregationUnit) PendingRequests() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.pending)
}
