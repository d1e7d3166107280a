package models

import "testing"

func TestInitialCursorPhysical(t *testing.T) {
	cur := InitialCursor(PaginationPhysical)
	if cur.TID() != "(0,0)" {
		t.Fatalf("tid=%s want=(0,0)", cur.TID())
	}
}

func TestCursorTID(t *testing.T) {
	cur := Cursor{Mode: PaginationPhysical, Page: 42, Slot: 7}
	if cur.TID() != "(42,7)" {
		t.Fatalf("tid=%s want=(42,7)", cur.TID())
	}
}

func TestCursorEqual(t *testing.T) {
	a := Cursor{Mode: PaginationPhysical, Page: 1, Slot: 2}
	b := Cursor{Mode: PaginationPhysical, Page: 1, Slot: 2}
	if !a.Equal(b) {
		t.Fatal("identical physical cursors should be equal")
	}

	b.Slot = 3
	if a.Equal(b) {
		t.Fatal("cursors at different slots should not be equal")
	}

	c := Cursor{Mode: PaginationColumn, Value: "100"}
	d := Cursor{Mode: PaginationColumn, Value: "100"}
	if !c.Equal(d) {
		t.Fatal("identical column cursors should be equal")
	}
	if a.Equal(c) {
		t.Fatal("cursors of different modes should not be equal")
	}
}

func TestJobStatusTerminal(t *testing.T) {
	if JobStatusPending.Terminal() || JobStatusRunning.Terminal() {
		t.Fatal("pending and running are not terminal")
	}
	if !JobStatusCompleted.Terminal() || !JobStatusFailed.Terminal() {
		t.Fatal("completed and failed are terminal")
	}
}
