package warehouse

import (
	"fmt"
	"sort"

	"github.com/erp/warehouse/internal/domain/shared"
)

// Line is a requested quantity against a ledger row identified by RefID
// (a purchase order product for pallets, a pallet product for shipments).
type Line struct {
	RefID    int64
	Quantity int
}

// QuantityDelta returns the signed change from oldQty to newQty.
// Positive deltas consume availability, negative deltas restore it.
func QuantityDelta(oldQty, newQty int) int {
	return newQty - oldQty
}

// CheckAllocation fails with QUANTITY_EXCEEDED when requested > available
func CheckAllocation(requested, available int) error {
	if requested > available {
		return shared.NewDomainError(shared.CodeQuantityExceeded,
			fmt.Sprintf("Requested quantity %d exceeds available quantity %d", requested, available))
	}
	return nil
}

// CheckReallocation validates replacing an existing allocation of oldQty with
// newQty when available units are still free: the new quantity may use what
// is free plus what the line already holds.
func CheckReallocation(oldQty, newQty, available int) error {
	if QuantityDelta(oldQty, newQty) <= 0 {
		return nil
	}
	return CheckAllocation(newQty, available+oldQty)
}

// MergeLines validates quantities and folds duplicate references into one
// line, returning lines ordered by RefID so that row locks are always taken
// in the same order.
func MergeLines(lines []Line) ([]Line, error) {
	totals := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.RefID <= 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Line reference is required")
		}
		if l.Quantity <= 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Line quantity must be positive")
		}
		totals[l.RefID] += l.Quantity
	}
	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{RefID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].RefID < merged[j].RefID })
	return merged, nil
}

// LineChange moves the quantity held against one reference from Old to
// New. Old is 0 for a line being added and New is 0 for one being removed.
type LineChange struct {
	RefID int64
	Old   int
	New   int
}

// Delta returns the signed quantity change
func (c LineChange) Delta() int {
	return QuantityDelta(c.Old, c.New)
}

// IsAdded reports whether the reference is new to the pallet or shipment
func (c LineChange) IsAdded() bool { return c.Old == 0 }

// IsRemoved reports whether the reference leaves the pallet or shipment
func (c LineChange) IsRemoved() bool { return c.New == 0 }

// PlanLines diffs current against desired (both with positive quantities)
// into a single list ordered by RefID, so that applying it locks rows in the
// same order as every other mutation. Unchanged lines are dropped and cause
// no ledger mutation.
func PlanLines(current, desired []Line) []LineChange {
	changes := make(map[int64]*LineChange, len(current)+len(desired))
	for _, l := range current {
		changes[l.RefID] = &LineChange{RefID: l.RefID, Old: l.Quantity}
	}
	for _, l := range desired {
		c, ok := changes[l.RefID]
		if !ok {
			c = &LineChange{RefID: l.RefID}
			changes[l.RefID] = c
		}
		c.New = l.Quantity
	}

	plan := make([]LineChange, 0, len(changes))
	for _, c := range changes {
		if c.Old != c.New {
			plan = append(plan, *c)
		}
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].RefID < plan[j].RefID })
	return plan
}
