/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package fragment

import (
	"testing"

	"github.com/krotik/grape/errs"
)

func personTable() *PropertyTable {
	return &PropertyTable{
		Label: "person",
		OIDs:  []VertexID{"a", "b", "c"},
		Inner: []bool{true, true, false},
		Columns: []Column{
			{Name: "age", Type: PropInt64, Data: []int64{30, 40, 50}},
		},
	}
}

func TestColumnFragmentInnerVertexIterator(t *testing.T) {
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, nil)

	it := f.InnerVertexIterator("person")
	var got []VertexID
	for it.HasNext() {
		got = append(got, it.Next())
	}

	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected inner vertices: %v", got)
	}
}

func TestColumnFragmentWithColumn(t *testing.T) {
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, nil)

	f2, err := f.WithColumn("person", Column{Name: "score", Type: PropFloat64, Data: []float64{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}

	table, _ := f2.Table("person")
	if _, ok := table.Column("score"); !ok {
		t.Fatal("expected new column to be present on the new fragment")
	}

	origTable, _ := f.Table("person")
	if _, ok := origTable.Column("score"); ok {
		t.Fatal("expected original fragment to remain unmodified (copy-on-write)")
	}
}

func TestColumnFragmentWithColumnDuplicate(t *testing.T) {
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, nil)

	if _, err := f.WithColumn("person", Column{Name: "age", Type: PropInt64, Data: []int64{1, 2, 3}}); errs.KindOf(err) != errs.DuplicateID {
		t.Fatalf("expected DuplicateId, got %v", err)
	}
}

func TestColumnFragmentWithColumnLengthMismatch(t *testing.T) {
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, nil)

	if _, err := f.WithColumn("person", Column{Name: "score", Type: PropFloat64, Data: []float64{1, 2}}); errs.KindOf(err) != errs.InvalidValue {
		t.Fatalf("expected InvalidValue, got %v", err)
	}
}

func TestColumnFragmentTableNotFound(t *testing.T) {
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, nil)

	if _, err := f.Table("company"); errs.KindOf(err) != errs.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestColumnFragmentEdgeCount(t *testing.T) {
	edges := map[string][]ColumnEdge{
		"knows": {{From: "a", To: "b", Label: "knows"}, {From: "c", To: "a", Label: "knows"}},
	}
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, edges)

	// only edges whose source ("a") is inner count towards this fragment's total
	if got := f.EdgeCount(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}
