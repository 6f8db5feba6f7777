// Package ifp models in-flash processing (IFP): flash read transactions
// that carry a GEMV partial dot product, and the aggregation unit that
// fans the per-plane partials back into one result per user request.
package ifp

import "fmt"

// Source identifies which part of the SSD issued a transaction.
type Source int

const (
	SourceUserIO Source = iota
	SourceCache
	SourceGCWearLeveling
	SourceMapping
)

// Type is the operation a transaction performs on the flash array.
type Type int

const (
	TypeRead Type = iota
	TypeWrite
	TypeErase
	// TypeIFPGemv is a read whose page feeds an in-flash dot product.
	TypeIFPGemv
)

// Priority is the I/O flow priority class of a transaction.
type Priority int

const (
	PriorityUndefined Priority = iota
	PriorityUrgent
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// PhysicalAddress locates a page in the flash geometry.
type PhysicalAddress struct {
	ChannelID uint32
	ChipID    uint32
	DieID     uint32
	PlaneID   uint32
	BlockID   uint32
	PageID    uint32
}

func (a PhysicalAddress) String() string {
	return fmt.Sprintf("ch%d.w%d.d%d.p%d.b%d.pg%d",
		a.ChannelID, a.ChipID, a.DieID, a.PlaneID, a.BlockID, a.PageID)
}

// Transaction is a flash transaction. IFP transactions are ordinary reads
// (Type == TypeIFPGemv) with the IFP payload fields filled in as the plane
// executes the dot product; there is no separate transaction hierarchy.
type Transaction struct {
	Source   Source
	Type     Type
	StreamID uint32
	Priority Priority

	// DataSize is the transfer size in bytes.
	DataSize uint32

	// LPA and PPA are the logical and physical page addresses. Address,
	// when set, pins the transaction to a concrete geometry location.
	LPA     uint64
	PPA     uint64
	Address *PhysicalAddress

	// Request is the user request this transaction serves. May be nil for
	// internally generated traffic.
	Request *UserRequest

	Content       uint64
	SectorsBitmap uint64
	DataTimestamp uint64

	// IFP payload. All fields start at their zero values and are filled
	// in as the simulated plane executes and the result flows through ECC
	// and aggregation.
	PartialDotProduct   float64
	ECCRetryNeeded      bool
	ECCRetryCount       uint32
	AggregationComplete bool
}

// NewIFPTransaction creates an IFP GEMV read with undefined priority.
func NewIFPTransaction(
	source Source, streamID uint32, dataSize uint32,
	lpa, ppa uint64, req *UserRequest,
	content, sectorsBitmap, dataTimestamp uint64,
) *Transaction {
	return &Transaction{
		Source:        source,
		Type:          TypeIFPGemv,
		StreamID:      streamID,
		Priority:      PriorityUndefined,
		DataSize:      dataSize,
		LPA:           lpa,
		PPA:           ppa,
		Request:       req,
		Content:       content,
		SectorsBitmap: sectorsBitmap,
		DataTimestamp: dataTimestamp,
	}
}

// NewIFPTransactionWithAddress creates an IFP GEMV read pinned to a
// physical address.
func NewIFPTransactionWithAddress(
	source Source, streamID uint32, dataSize uint32,
	lpa, ppa uint64, address PhysicalAddress, req *UserRequest,
	content, sectorsBitmap, dataTimestamp uint64,
) *Transaction {
	t := NewIFPTransaction(
		source, streamID, dataSize, lpa, ppa, req,
		content, sectorsBitmap, dataTimestamp)
	addr := address
	t.Address = &addr
	return t
}

// NewIFPTransactionWithPriority creates an IFP GEMV read with an explicit
// priority class.
func NewIFPTransactionWithPriority(
	source Source, streamID uint32, dataSize uint32,
	lpa, ppa uint64, req *UserRequest, priority Priority,
	content, sectorsBitmap, dataTimestamp uint64,
) *Transaction {
	t := NewIFPTransaction(
		source, streamID, dataSize, lpa, ppa, req,
		content, sectorsBitmap, dataTimestamp)
	t.Priority = priority
	return t
}
