package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type widget struct {
	ID    uint64
	Price uint64
}

func (w widget) PrimaryKey() uint64 { return w.ID }

func newWidgetTable(s *Store) (*Table[uint64, widget], *OrderedIndexHandle[uint64, widget, uint64]) {
	t := NewTable[uint64, widget](s, "widgets")
	h := AddIndex(t, IndexSpec[uint64, widget, uint64]{
		Name:  "by_price",
		KeyFn: func(w widget) uint64 { return w.Price },
		Less:  func(a, b uint64) bool { return a < b },
	}).Bind(t)
	return t, h
}

func TestTableInsertGetRemove(t *testing.T) {
	s := New()
	tbl, byPrice := newWidgetTable(s)

	require.NoError(t, tbl.Insert(widget{ID: 1, Price: 50}))
	require.NoError(t, tbl.Insert(widget{ID: 2, Price: 10}))
	require.NoError(t, tbl.Insert(widget{ID: 3, Price: 30}))

	require.Error(t, tbl.Insert(widget{ID: 1, Price: 99}), "duplicate primary key must fail")

	var order []uint64
	byPrice.Ascending(func(w widget) bool {
		order = append(order, w.ID)
		return true
	})
	require.Equal(t, []uint64{2, 3, 1}, order)

	require.NoError(t, tbl.Remove(2))
	_, ok := tbl.Get(2)
	require.False(t, ok)
	require.Equal(t, 2, tbl.Len())
}

func TestScopeAbortUndoesAllDeltas(t *testing.T) {
	s := New()
	tbl, byPrice := newWidgetTable(s)
	require.NoError(t, tbl.Insert(widget{ID: 1, Price: 10}))

	outer := s.Begin()
	require.NoError(t, tbl.Modify(1, func(w *widget) { w.Price = 20 }))

	inner := s.Begin()
	require.NoError(t, tbl.Insert(widget{ID: 2, Price: 5}))
	require.NoError(t, tbl.Modify(1, func(w *widget) { w.Price = 999 }))
	inner.Abort()

	// inner scope's deltas are reversed: widget 2 gone, widget 1 back to 20.
	_, ok := tbl.Get(2)
	require.False(t, ok)
	w1, _ := tbl.Get(1)
	require.Equal(t, uint64(20), w1.Price)

	outer.Abort()
	// outer reversed too: widget 1 back to its original price of 10.
	w1, _ = tbl.Get(1)
	require.Equal(t, uint64(10), w1.Price)
	require.Equal(t, 1, byPrice.Len())
}

func TestScopeCommitFoldsIntoParent(t *testing.T) {
	s := New()
	tbl, _ := newWidgetTable(s)

	outer := s.Begin()
	inner := s.Begin()
	require.NoError(t, tbl.Insert(widget{ID: 7, Price: 1}))
	inner.Commit()
	outer.Abort()

	_, ok := tbl.Get(7)
	require.False(t, ok, "parent abort must reverse a committed child scope's deltas")
}

func TestNestedUndoScopesMustCloseInOrder(t *testing.T) {
	s := New()
	outer := s.Begin()
	_ = s.Begin()
	require.Panics(t, func() { outer.Commit() })
}
