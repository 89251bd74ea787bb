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
	"sort"

	"github.com/krotik/grape/errs"
)

/*
Column is one typed, dense property column. Data holds a Go slice whose
element type matches Type (e.g. []int64 for PropInt64, []string for
PropString); every column on a label has the same length as that
label's inner+mirror vertex count.
*/
type Column struct {
	Name string
	Type PropertyType
	Data interface{}
}

/*
Len reports the column's row count.
*/
func (c Column) Len() int {
	switch d := c.Data.(type) {
	case []int32:
		return len(d)
	case []int64:
		return len(d)
	case []uint32:
		return len(d)
	case []uint64:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	case []string:
		return len(d)
	default:
		return 0
	}
}

/*
At returns row i of the column as an interface{} value.
*/
func (c Column) At(i int) interface{} {
	switch d := c.Data.(type) {
	case []int32:
		return d[i]
	case []int64:
		return d[i]
	case []uint32:
		return d[i]
	case []uint64:
		return d[i]
	case []float32:
		return d[i]
	case []float64:
		return d[i]
	case []string:
		return d[i]
	default:
		return nil
	}
}

/*
PropertyTable is one label's set of property columns plus the ordered
OIDs (and inner/mirror membership) each row belongs to.
*/
type PropertyTable struct {
	Label   string
	OIDs    []VertexID
	Inner   []bool
	Columns []Column
}

/*
Column looks up a property table's column by name.
*/
func (t *PropertyTable) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

/*
RowOf returns the row index of oid within this table, or -1.
*/
func (t *PropertyTable) RowOf(oid VertexID) int {
	for i, o := range t.OIDs {
		if o == oid {
			return i
		}
	}
	return -1
}

/*
ColumnEdge is one directed labeled edge in a columnar fragment.
*/
type ColumnEdge struct {
	From, To VertexID
	Label    string
}

/*
ColumnFragment is the immutable, arrow-style representation backing the
ARROW_PROPERTY and ARROW_PROJECTED graph types: fixed per-label property
tables built once at load time, generalized from graph/util's
name<->code table shape (graph/util/namesmanager.go) to typed columnar
storage. Being immutable, mutation operations (AddColumn, Project,
CopyGraph) return a new ColumnFragment rather than editing in place.
*/
type ColumnFragment struct {
	Shard

	tablesByLabel map[string]*PropertyTable
	edges         map[string][]ColumnEdge // by edge label
}

/*
NewColumnFragment builds a columnar fragment from already-materialized
per-label property tables and edges.
*/
func NewColumnFragment(fid, fnum uint64, directed bool, vm *VertexMap, tables []*PropertyTable, edges map[string][]ColumnEdge) *ColumnFragment {
	byLabel := make(map[string]*PropertyTable, len(tables))
	for _, t := range tables {
		byLabel[t.Label] = t
	}
	if edges == nil {
		edges = make(map[string][]ColumnEdge)
	}
	return &ColumnFragment{
		Shard: Shard{
			Fid:           fid,
			Fnum:          fnum,
			Directed:      directed,
			VertexMap:     vm,
			MirrorsByFrag: make(map[uint64][]VertexID),
		},
		tablesByLabel: byLabel,
		edges:         edges,
	}
}

/*
VertexLabels returns the fragment's vertex labels, sorted.
*/
func (f *ColumnFragment) VertexLabels() []string {
	labels := make([]string, 0, len(f.tablesByLabel))
	for l := range f.tablesByLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

/*
EdgeLabels returns the fragment's edge labels, sorted.
*/
func (f *ColumnFragment) EdgeLabels() []string {
	labels := make([]string, 0, len(f.edges))
	for l := range f.edges {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

/*
Table fetches label's property table.
*/
func (f *ColumnFragment) Table(label string) (*PropertyTable, error) {
	t, ok := f.tablesByLabel[label]
	if !ok {
		return nil, errs.Newf(errs.NotFound, "vertex label %q not found", label)
	}
	return t, nil
}

/*
Edges fetches label's edges.
*/
func (f *ColumnFragment) Edges(label string) []ColumnEdge {
	return f.edges[label]
}

/*
InnerVertexIterator iterates label's inner OIDs in row order.
*/
func (f *ColumnFragment) InnerVertexIterator(label string) *InnerVertexIterator {
	t, ok := f.tablesByLabel[label]
	if !ok {
		return NewInnerVertexIterator(nil)
	}
	oids := make([]VertexID, 0, len(t.OIDs))
	for i, oid := range t.OIDs {
		if t.Inner[i] {
			oids = append(oids, oid)
		}
	}
	return NewInnerVertexIterator(oids)
}

/*
InnerVertexCount counts label's inner rows.
*/
func (f *ColumnFragment) InnerVertexCount(label string) int {
	t, ok := f.tablesByLabel[label]
	if !ok {
		return 0
	}
	n := 0
	for _, inner := range t.Inner {
		if inner {
			n++
		}
	}
	return n
}

/*
EdgeCount counts every edge whose source is an inner vertex, across all
labels.
*/
func (f *ColumnFragment) EdgeCount() int {
	n := 0
	for _, edges := range f.edges {
		for _, e := range edges {
			if f.isInner(e.From) {
				n++
			}
		}
	}
	return n
}

func (f *ColumnFragment) isInner(oid VertexID) bool {
	for _, t := range f.tablesByLabel {
		if i := t.RowOf(oid); i >= 0 {
			return t.Inner[i]
		}
	}
	return false
}

/*
WithColumn returns a copy of this fragment with an added property
column on label, satisfying AddColumn's immutability (new columns never
mutate an existing wrapper's fragment in place, matching the teacher's
copy-on-write style for shared, concurrently-read structures).
*/
func (f *ColumnFragment) WithColumn(label string, col Column) (*ColumnFragment, error) {
	t, ok := f.tablesByLabel[label]
	if !ok {
		return nil, errs.Newf(errs.NotFound, "vertex label %q not found", label)
	}
	if col.Len() != len(t.OIDs) {
		return nil, errs.Newf(errs.InvalidValue, "column %q has %d rows, want %d", col.Name, col.Len(), len(t.OIDs))
	}
	for _, c := range t.Columns {
		if c.Name == col.Name {
			return nil, errs.Newf(errs.DuplicateID, "property %q already exists on label %q", col.Name, label)
		}
	}

	newTable := &PropertyTable{
		Label:   t.Label,
		OIDs:    t.OIDs,
		Inner:   t.Inner,
		Columns: append(append([]Column{}, t.Columns...), col),
	}

	newTables := make(map[string]*PropertyTable, len(f.tablesByLabel))
	for l, orig := range f.tablesByLabel {
		if l == label {
			newTables[l] = newTable
		} else {
			newTables[l] = orig
		}
	}

	return &ColumnFragment{
		Shard:         f.Shard,
		tablesByLabel: newTables,
		edges:         f.edges,
	}, nil
}
