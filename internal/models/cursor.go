package models

import "fmt"

// Cursor is a tagged variant over the two pagination positions: a physical
// (page, slot) row identifier, or the text-encoded value of a monotonic
// column. The zero value of the column variant means "from the beginning".
type Cursor struct {
	Mode PaginationMode `json:"mode"`

	// Physical mode: the (page, slot) pair of the last seen ctid.
	Page uint32 `json:"page,omitempty"`
	Slot uint16 `json:"slot,omitempty"`

	// Column mode: last seen value, text-encoded for checkpointing.
	// Postgres compares the text form against the column's declared type,
	// so the encoding must round-trip through a cast (see extract.EncodeValue).
	Value string `json:"value,omitempty"`
}

// InitialCursor returns the "from the beginning" position for a mode.
// Physical mode starts at (0,0), the defined minimum of a ctid.
func InitialCursor(mode PaginationMode) Cursor {
	return Cursor{Mode: mode}
}

// TID renders the physical position in Postgres tid literal form.
func (c Cursor) TID() string {
	return fmt.Sprintf("(%d,%d)", c.Page, c.Slot)
}

// Equal reports whether two cursors denote the same position. The batch
// loop uses this to detect a stalled cursor.
func (c Cursor) Equal(other Cursor) bool {
	if c.Mode != other.Mode {
		return false
	}
	if c.Mode == PaginationPhysical {
		return c.Page == other.Page && c.Slot == other.Slot
	}
	return c.Value == other.Value
}
