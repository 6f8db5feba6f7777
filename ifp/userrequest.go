package ifp

import "github.com/rs/xid"

// UserRequest is one host-level request that fans out into flash
// transactions. Its identity is the ID string, never the pointer; the
// aggregation unit keys its state on the ID.
type UserRequest struct {
	ID string

	// Transactions is the list of transactions still pending for this
	// request. The dispatcher removes a transaction from the list when it
	// completes, before handing it to the aggregation unit.
	Transactions []*Transaction
}

// NewUserRequest creates a request with a fresh opaque handle.
func NewUserRequest() *UserRequest {
	return &UserRequest{ID: xid.New().String()}
}

// Add appends a transaction to the pending list and back-links it.
func (r *UserRequest) Add(t *Transaction) {
	t.Request = r
	r.Transactions = append(r.Transactions, t)
}

// Remove drops a transaction from the pending list. Removing a
// transaction that is not on the list is a no-op.
func (r *UserRequest) Remove(t *Transaction) {
	for i, tr := range r.Transactions {
		if tr == t {
			r.Transactions = append(r.Transactions[:i], r.Transactions[i+1:]...)
			return
		}
	}
}

// PendingIFP counts the IFP transactions still on the pending list.
func (r *UserRequest) PendingIFP() int {
	n := 0
	for _, t := range r.Transactions {
		if t.Type == TypeIFPGemv {
			n++
		}
	}
	return n
}
