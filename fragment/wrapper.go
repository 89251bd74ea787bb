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
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/store"
)

/*
SelectorKind identifies which part of a vertex (or of a context's
result) ToNdArray/ToDataframe/AddColumn addresses.
*/
type SelectorKind string

/*
Known selector kinds.
*/
const (
	SelVertexID      SelectorKind = "vertex_id"
	SelVertexData    SelectorKind = "vertex_data"
	SelVertexLabelID SelectorKind = "vertex_label_id"
	SelResult        SelectorKind = "result"
)

/*
Selector names one column to extract: its kind, and for
vertex_data/result, the property name or result field it refers to.
*/
type Selector struct {
	Kind SelectorKind
	Name string // property name (vertex_data) or field key (result); "" for vertex_id/vertex_label_id
}

/*
VertexRange restricts ToNdArray/ToDataframe to a [Start,End) local-offset
window; with Unbounded set it means "all vertices" and Start/End are
ignored. The zero value (Unbounded false, Start==End==0) selects nothing.
*/
type VertexRange struct {
	Unbounded bool
	Start     uint64
	End       uint64
}

/*
ColumnContext is the narrow view of a Context Wrapper (SPEC_FULL.md §4.6)
that AddColumn needs. It is declared here, rather than importing the
gcontext package, so that fragment and gcontext never form an import
cycle — gcontext.Context implementations satisfy this interface
structurally.
*/
type ColumnContext interface {
	ContextType() string
	VertexMapFnum() int
	VertexMapIdentity(fid uint64) (mapID, oidArrayID string)
	TargetLabel() string
	Columns(fid uint64) ([]Column, error)
}

/*
Wrapper is the uniform polymorphic handle over a concrete fragment
representation (spec.md §4.3). Every variant implements the full
interface; operations it does not support reject with
UnsupportedOperation or InvalidOperation rather than panicking or being
absent, so the dispatcher can treat all four variants uniformly.
*/
type Wrapper interface {
	Fragment() interface{}
	GraphDef() GraphDef

	CopyGraph(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, copyType CopyType) (Wrapper, error)
	Project(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, vertexProps map[string][]string, edgeProps map[string][]string) (Wrapper, error)
	AddColumn(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, cc ColumnContext, label string) (Wrapper, error)
	ToNdArray(ctx context.Context, c comm.Communicator, sel Selector, rng VertexRange) ([]byte, error)
	ToDataframe(ctx context.Context, c comm.Communicator, sels []Selector, rng VertexRange) ([]byte, error)
	ToDirected(ctx context.Context, c comm.Communicator, dstName string) (Wrapper, error)
	ToUnDirected(ctx context.Context, c comm.Communicator, dstName string) (Wrapper, error)
	CreateGraphView(ctx context.Context, c comm.Communicator, viewID string, viewType ViewType, filter VertexFilter) (Wrapper, error)
}

func rejectProject(graphType GraphType) error {
	return errs.Newf(errs.UnsupportedOperation, "%s does not support Project", graphType)
}

func rejectAddColumn(graphType GraphType) error {
	return errs.Newf(errs.UnsupportedOperation, "%s does not support AddColumn", graphType)
}

func rejectToDirected(graphType GraphType) error {
	return errs.Newf(errs.InvalidOperation, "%s does not support ToDirected/ToUnDirected", graphType)
}

func rejectCreateGraphView(graphType GraphType) error {
	return errs.Newf(errs.InvalidOperation, "%s does not support CreateGraphView", graphType)
}

func rejectSelector(graphType GraphType, kind SelectorKind) error {
	return errs.Newf(errs.UnsupportedOperation, "%s does not support selector kind %q", graphType, kind)
}

/*
inRange reports whether local offset i falls inside rng.
*/
func (r VertexRange) inRange(i uint64) bool {
	return r.Unbounded || (i >= r.Start && i < r.End)
}

// ---------------------------------------------------------------------
// Labeled-property wrapper (ARROW_PROPERTY): column-rich, over
// ColumnFragment. Supports the full selector matrix and every mutation
// except ToDirected/ToUnDirected/CreateGraphView.
// ---------------------------------------------------------------------

/*
LabeledPropertyFragmentWrapper wraps a ColumnFragment for the
ARROW_PROPERTY graph type.
*/
type LabeledPropertyFragmentWrapper struct {
	def *GraphDef
	f   *ColumnFragment
}

/*
NewLabeledPropertyFragmentWrapper wraps f under def, which must declare
GraphType == ArrowProperty.
*/
func NewLabeledPropertyFragmentWrapper(def GraphDef, f *ColumnFragment) *LabeledPropertyFragmentWrapper {
	return &LabeledPropertyFragmentWrapper{def: &def, f: f}
}

func (w *LabeledPropertyFragmentWrapper) Fragment() interface{} { return w.f }
func (w *LabeledPropertyFragmentWrapper) GraphDef() GraphDef     { return *w.def }

func (w *LabeledPropertyFragmentWrapper) CopyGraph(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, copyType CopyType) (Wrapper, error) {
	newVM := w.f.VertexMap.Clone(dstName)

	tables := make([]*PropertyTable, 0, len(w.f.tablesByLabel))
	for _, t := range w.f.tablesByLabel {
		nt := &PropertyTable{Label: t.Label, OIDs: t.OIDs, Inner: t.Inner}
		if copyType == CopyIdentical {
			nt.Columns = append([]Column{}, t.Columns...)
		}
		tables = append(tables, nt)
	}

	var edges map[string][]ColumnEdge
	if copyType == CopyIdentical {
		edges = w.f.edges
	}

	newFrag := NewColumnFragment(w.f.Fid, w.f.Fnum, w.f.Directed, newVM, tables, edges)

	newDef := *w.def
	newDef.Key = dstName

	shardID, groupID, err := PersistShard(ctx, c, sc, dstName, newFrag)
	if err != nil {
		return nil, err
	}
	newDef.ShardID = shardID
	newDef.VineyardID = groupID
	newDef.HasVineyard = true

	return NewLabeledPropertyFragmentWrapper(newDef, newFrag), nil
}

func (w *LabeledPropertyFragmentWrapper) Project(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, vertexProps map[string][]string, edgeProps map[string][]string) (Wrapper, error) {
	tables := make([]*PropertyTable, 0, len(vertexProps))
	for label, props := range vertexProps {
		src, ok := w.f.tablesByLabel[label]
		if !ok {
			return nil, errs.Newf(errs.NotFound, "vertex label %q not found", label)
		}
		nt := &PropertyTable{Label: label, OIDs: src.OIDs, Inner: src.Inner}
		for _, p := range props {
			col, ok := src.Column(p)
			if !ok {
				return nil, errs.Newf(errs.NotFound, "property %q not found on label %q", p, label)
			}
			nt.Columns = append(nt.Columns, col)
		}
		tables = append(tables, nt)
	}

	edges := make(map[string][]ColumnEdge, len(edgeProps))
	for label := range edgeProps {
		if es, ok := w.f.edges[label]; ok {
			edges[label] = es
		}
	}

	newVM := w.f.VertexMap.Clone(dstName)
	newFrag := NewColumnFragment(w.f.Fid, w.f.Fnum, w.f.Directed, newVM, tables, edges)

	newDef := *w.def
	newDef.Key = dstName

	shardID, groupID, err := PersistShard(ctx, c, sc, dstName, newFrag)
	if err != nil {
		return nil, err
	}
	newDef.ShardID = shardID
	newDef.VineyardID = groupID
	newDef.HasVineyard = true

	return NewLabeledPropertyFragmentWrapper(newDef, newFrag), nil
}

func (w *LabeledPropertyFragmentWrapper) AddColumn(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, cc ColumnContext, label string) (Wrapper, error) {
	switch cc.ContextType() {
	case "vertex_data", "labeled_vertex_data", "vertex_property", "labeled_vertex_property":
	default:
		return nil, errs.Newf(errs.IllegalState, "AddColumn requires a data/property context, got %q", cc.ContextType())
	}

	if cc.VertexMapFnum() != w.f.VertexMap.Fnum() {
		return nil, errs.Newf(errs.IllegalState, "context vertex-map fragment count %d does not match fragment count %d", cc.VertexMapFnum(), w.f.VertexMap.Fnum())
	}

	mapID, oidArrayID := cc.VertexMapIdentity(w.f.Fid)
	if mapID != w.f.VertexMap.ID || oidArrayID != w.f.VertexMap.OIDArrayID[w.f.Fid] {
		return nil, errs.Newf(errs.IllegalState, "context vertex-map identity does not match this fragment's")
	}

	if cc.TargetLabel() != label {
		return nil, errs.Newf(errs.IllegalState, "context target label %q does not match requested label %q", cc.TargetLabel(), label)
	}

	if _, err := w.f.Table(label); err != nil {
		return nil, errs.Newf(errs.IllegalState, "label %q not found in graph schema", label)
	}

	cols, err := cc.Columns(w.f.Fid)
	if err != nil {
		return nil, err
	}

	frag := w.f
	for _, col := range cols {
		frag, err = frag.WithColumn(label, col)
		if err != nil {
			return nil, err
		}
	}

	newDef := *w.def
	newDef.Key = dstName

	shardID, groupID, persistErr := PersistShard(ctx, c, sc, dstName, frag)
	if persistErr != nil {
		return nil, persistErr
	}
	newDef.ShardID = shardID
	newDef.VineyardID = groupID
	newDef.HasVineyard = true

	return NewLabeledPropertyFragmentWrapper(newDef, frag), nil
}

func (w *LabeledPropertyFragmentWrapper) ToNdArray(ctx context.Context, c comm.Communicator, sel Selector, rng VertexRange) ([]byte, error) {
	return toNdArrayColumnar(ctx, c, w.f, ArrowProperty, sel, rng)
}

func (w *LabeledPropertyFragmentWrapper) ToDataframe(ctx context.Context, c comm.Communicator, sels []Selector, rng VertexRange) ([]byte, error) {
	return toDataframeColumnar(ctx, c, w.f, ArrowProperty, sels, rng)
}

func (w *LabeledPropertyFragmentWrapper) ToDirected(ctx context.Context, c comm.Communicator, dstName string) (Wrapper, error) {
	return nil, rejectToDirected(ArrowProperty)
}

func (w *LabeledPropertyFragmentWrapper) ToUnDirected(ctx context.Context, c comm.Communicator, dstName string) (Wrapper, error) {
	return nil, rejectToDirected(ArrowProperty)
}

func (w *LabeledPropertyFragmentWrapper) CreateGraphView(ctx context.Context, c comm.Communicator, viewID string, viewType ViewType, filter VertexFilter) (Wrapper, error) {
	return nil, rejectCreateGraphView(ArrowProperty)
}

// ---------------------------------------------------------------------
// Projected wrapper (ARROW_PROJECTED): column-poor, algorithm-facing.
// Supports VertexId/VertexData/Result selectors only; no Project or
// AddColumn (those apply to the labeled-property source, not to an
// already-projected simple graph).
// ---------------------------------------------------------------------

/*
ProjectedFragmentWrapper wraps a ColumnFragment restricted to a single
vertex label / edge label pair, for the ARROW_PROJECTED graph type.
*/
type ProjectedFragmentWrapper struct {
	def *GraphDef
	f   *ColumnFragment
}

func NewProjectedFragmentWrapper(def GraphDef, f *ColumnFragment) *ProjectedFragmentWrapper {
	return &ProjectedFragmentWrapper{def: &def, f: f}
}

func (w *ProjectedFragmentWrapper) Fragment() interface{} { return w.f }
func (w *ProjectedFragmentWrapper) GraphDef() GraphDef     { return *w.def }

func (w *ProjectedFragmentWrapper) CopyGraph(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, copyType CopyType) (Wrapper, error) {
	newVM := w.f.VertexMap.Clone(dstName)

	tables := make([]*PropertyTable, 0, len(w.f.tablesByLabel))
	for _, t := range w.f.tablesByLabel {
		nt := &PropertyTable{Label: t.Label, OIDs: t.OIDs, Inner: t.Inner}
		if copyType == CopyIdentical {
			nt.Columns = append([]Column{}, t.Columns...)
		}
		tables = append(tables, nt)
	}
	var edges map[string][]ColumnEdge
	if copyType == CopyIdentical {
		edges = w.f.edges
	}
	newFrag := NewColumnFragment(w.f.Fid, w.f.Fnum, w.f.Directed, newVM, tables, edges)

	newDef := *w.def
	newDef.Key = dstName

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return NewProjectedFragmentWrapper(newDef, newFrag), nil
}

func (w *ProjectedFragmentWrapper) Project(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, vertexProps map[string][]string, edgeProps map[string][]string) (Wrapper, error) {
	return nil, rejectProject(ArrowProjected)
}

func (w *ProjectedFragmentWrapper) AddColumn(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, cc ColumnContext, label string) (Wrapper, error) {
	return nil, rejectAddColumn(ArrowProjected)
}

func (w *ProjectedFragmentWrapper) ToNdArray(ctx context.Context, c comm.Communicator, sel Selector, rng VertexRange) ([]byte, error) {
	if sel.Kind == SelVertexLabelID {
		return nil, rejectSelector(ArrowProjected, sel.Kind)
	}
	return toNdArrayColumnar(ctx, c, w.f, ArrowProjected, sel, rng)
}

func (w *ProjectedFragmentWrapper) ToDataframe(ctx context.Context, c comm.Communicator, sels []Selector, rng VertexRange) ([]byte, error) {
	for _, sel := range sels {
		if sel.Kind == SelVertexLabelID {
			return nil, rejectSelector(ArrowProjected, sel.Kind)
		}
	}
	return toDataframeColumnar(ctx, c, w.f, ArrowProjected, sels, rng)
}

func (w *ProjectedFragmentWrapper) ToDirected(ctx context.Context, c comm.Communicator, dstName string) (Wrapper, error) {
	return nil, rejectToDirected(ArrowProjected)
}

func (w *ProjectedFragmentWrapper) ToUnDirected(ctx context.Context, c comm.Communicator, dstName string) (Wrapper, error) {
	return nil, rejectToDirected(ArrowProjected)
}

func (w *ProjectedFragmentWrapper) CreateGraphView(ctx context.Context, c comm.Communicator, viewID string, viewType ViewType, filter VertexFilter) (Wrapper, error) {
	return nil, rejectCreateGraphView(ArrowProjected)
}

// ---------------------------------------------------------------------
// Dynamic-property wrapper (DYNAMIC_PROPERTY): mutable, over
// DynamicFragment. Only variant supporting ToDirected/ToUnDirected and
// CreateGraphView; no Project (that is arrow-only) or AddColumn (the
// dynamic representation has no fixed per-label schema to append to).
// ---------------------------------------------------------------------

/*
DynamicPropertyFragmentWrapper wraps a DynamicFragment for the
DYNAMIC_PROPERTY graph type.
*/
type DynamicPropertyFragmentWrapper struct {
	def *GraphDef
	f   *DynamicFragment
}

func NewDynamicPropertyFragmentWrapper(def GraphDef, f *DynamicFragment) *DynamicPropertyFragmentWrapper {
	return &DynamicPropertyFragmentWrapper{def: &def, f: f}
}

func (w *DynamicPropertyFragmentWrapper) Fragment() interface{} { return w.f }
func (w *DynamicPropertyFragmentWrapper) GraphDef() GraphDef     { return *w.def }

/*
CopyGraph clones the vertex map then clones the fragment payload.
*/
func (w *DynamicPropertyFragmentWrapper) CopyGraph(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, copyType CopyType) (Wrapper, error) {
	newVM := w.f.VertexMap.Clone(dstName)
	newFrag := w.f.Clone(newVM, copyType == CopyIdentical)

	newDef := *w.def
	newDef.Key = dstName

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}

	return NewDynamicPropertyFragmentWrapper(newDef, newFrag), nil
}

func (w *DynamicPropertyFragmentWrapper) Project(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, vertexProps map[string][]string, edgeProps map[string][]string) (Wrapper, error) {
	return nil, rejectProject(DynamicProperty)
}

func (w *DynamicPropertyFragmentWrapper) AddColumn(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, cc ColumnContext, label string) (Wrapper, error) {
	return nil, rejectAddColumn(DynamicProperty)
}

func (w *DynamicPropertyFragmentWrapper) ToNdArray(ctx context.Context, c comm.Communicator, sel Selector, rng VertexRange) ([]byte, error) {
	if sel.Kind == SelVertexLabelID {
		return nil, rejectSelector(DynamicProperty, sel.Kind)
	}
	return toNdArrayDynamic(ctx, c, w.f, sel, rng)
}

func (w *DynamicPropertyFragmentWrapper) ToDataframe(ctx context.Context, c comm.Communicator, sels []Selector, rng VertexRange) ([]byte, error) {
	for _, sel := range sels {
		if sel.Kind == SelVertexLabelID {
			return nil, rejectSelector(DynamicProperty, sel.Kind)
		}
	}
	return toDataframeDynamic(ctx, c, w.f, sels, rng)
}

/*
ToDirected clones the vertex map then rebuilds edges directed
(dropping the reverse copies UnDirected fragments carry).
*/
func (w *DynamicPropertyFragmentWrapper) ToDirected(ctx context.Context, c comm.Communicator, dstName string) (Wrapper, error) {
	newVM := w.f.VertexMap.Clone(dstName)
	newFrag := NewDynamicFragment(w.f.Fid, w.f.Fnum, true, newVM)

	for _, oid := range concatAll(w.f.byLabel) {
		v := w.f.vertices[oid]
		newFrag.UpsertVertex(oid, v.Label, v.Inner, cloneAttrs(v.Attrs))
	}
	for _, edges := range w.f.outEdges {
		for _, e := range edges {
			if !w.f.Directed && e.From > e.To {
				continue // undirected mirror copy; keep the logical edge once
			}
			newFrag.AddEdge(e.From, e.To, e.Label, cloneAttrs(e.Attrs))
		}
	}

	newDef := *w.def
	newDef.Key = dstName
	newDef.Directed = true

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return NewDynamicPropertyFragmentWrapper(newDef, newFrag), nil
}

/*
ToUnDirected clones the vertex map then rebuilds edges undirected
(mirroring each edge in both directions).
*/
func (w *DynamicPropertyFragmentWrapper) ToUnDirected(ctx context.Context, c comm.Communicator, dstName string) (Wrapper, error) {
	newVM := w.f.VertexMap.Clone(dstName)
	newFrag := NewDynamicFragment(w.f.Fid, w.f.Fnum, false, newVM)

	for _, oid := range concatAll(w.f.byLabel) {
		v := w.f.vertices[oid]
		newFrag.UpsertVertex(oid, v.Label, v.Inner, cloneAttrs(v.Attrs))
	}
	for _, edges := range w.f.outEdges {
		for _, e := range edges {
			if !w.f.Directed && e.From > e.To {
				continue // undirected mirror copy; keep the logical edge once
			}
			newFrag.AddEdge(e.From, e.To, e.Label, cloneAttrs(e.Attrs))
		}
	}

	newDef := *w.def
	newDef.Key = dstName
	newDef.Directed = false

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return NewDynamicPropertyFragmentWrapper(newDef, newFrag), nil
}

/*
CreateGraphView constructs a read-only DynamicProjected-typed wrapper
over a derived fragment: reversed swaps every edge's endpoints;
subgraph_by_filter keeps only vertices filter.Matches (and only the
edges whose both endpoints survived). ViewReversed ignores filter (a
zero-value VertexFilter matches everything, so callers that pass none
still get the whole reversed graph).
*/
func (w *DynamicPropertyFragmentWrapper) CreateGraphView(ctx context.Context, c comm.Communicator, viewID string, viewType ViewType, filter VertexFilter) (Wrapper, error) {
	newVM := w.f.VertexMap.Clone(viewID)
	newFrag := NewDynamicFragment(w.f.Fid, w.f.Fnum, w.f.Directed, newVM)

	kept := map[VertexID]bool{}
	for _, oid := range concatAll(w.f.byLabel) {
		v := w.f.vertices[oid]
		if viewType == ViewSubgraphByFilter && !filter.Matches(v.Label, v.Attrs) {
			continue
		}
		kept[oid] = true
		newFrag.UpsertVertex(oid, v.Label, v.Inner, cloneAttrs(v.Attrs))
	}

	for _, edges := range w.f.outEdges {
		for _, e := range edges {
			if !w.f.Directed && e.From > e.To {
				continue // undirected mirror copy; keep the logical edge once
			}
			if !kept[e.From] || !kept[e.To] {
				continue
			}
			switch viewType {
			case ViewReversed:
				newFrag.AddEdge(e.To, e.From, e.Label, cloneAttrs(e.Attrs))
			default:
				newFrag.AddEdge(e.From, e.To, e.Label, cloneAttrs(e.Attrs))
			}
		}
	}

	newDef := *w.def
	newDef.Key = viewID
	newDef.GraphType = DynamicProjected

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return NewDynamicProjectedFragmentWrapper(newDef, newFrag), nil
}

// ---------------------------------------------------------------------
// Dynamic-projected wrapper (DYNAMIC_PROJECTED): the read-only,
// algorithm-facing counterpart of dynamic-property. Rejects the same
// operations projected/arrow rejects, plus ToDirected/CreateGraphView
// (views are taken of the mutable source, not of a projection).
// ---------------------------------------------------------------------

/*
DynamicProjectedFragmentWrapper wraps a DynamicFragment restricted to a
single vertex/edge label pair, for the DYNAMIC_PROJECTED graph type.
*/
type DynamicProjectedFragmentWrapper struct {
	def *GraphDef
	f   *DynamicFragment
}

func NewDynamicProjectedFragmentWrapper(def GraphDef, f *DynamicFragment) *DynamicProjectedFragmentWrapper {
	return &DynamicProjectedFragmentWrapper{def: &def, f: f}
}

func (w *DynamicProjectedFragmentWrapper) Fragment() interface{} { return w.f }
func (w *DynamicProjectedFragmentWrapper) GraphDef() GraphDef     { return *w.def }

func (w *DynamicProjectedFragmentWrapper) CopyGraph(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, copyType CopyType) (Wrapper, error) {
	newVM := w.f.VertexMap.Clone(dstName)
	newFrag := w.f.Clone(newVM, copyType == CopyIdentical)

	newDef := *w.def
	newDef.Key = dstName

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}
	return NewDynamicProjectedFragmentWrapper(newDef, newFrag), nil
}

func (w *DynamicProjectedFragmentWrapper) Project(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, vertexProps map[string][]string, edgeProps map[string][]string) (Wrapper, error) {
	return nil, rejectProject(DynamicProjected)
}

func (w *DynamicProjectedFragmentWrapper) AddColumn(ctx context.Context, c comm.Communicator, sc store.Client, dstName string, cc ColumnContext, label string) (Wrapper, error) {
	return nil, rejectAddColumn(DynamicProjected)
}

func (w *DynamicProjectedFragmentWrapper) ToNdArray(ctx context.Context, c comm.Communicator, sel Selector, rng VertexRange) ([]byte, error) {
	if sel.Kind == SelVertexLabelID {
		return nil, rejectSelector(DynamicProjected, sel.Kind)
	}
	return toNdArrayDynamic(ctx, c, w.f, sel, rng)
}

func (w *DynamicProjectedFragmentWrapper) ToDataframe(ctx context.Context, c comm.Communicator, sels []Selector, rng VertexRange) ([]byte, error) {
	for _, sel := range sels {
		if sel.Kind == SelVertexLabelID {
			return nil, rejectSelector(DynamicProjected, sel.Kind)
		}
	}
	return toDataframeDynamic(ctx, c, w.f, sels, rng)
}

func (w *DynamicProjectedFragmentWrapper) ToDirected(ctx context.Context, c comm.Communicator, dstName string) (Wrapper, error) {
	return nil, rejectToDirected(DynamicProjected)
}

func (w *DynamicProjectedFragmentWrapper) ToUnDirected(ctx context.Context, c comm.Communicator, dstName string) (Wrapper, error) {
	return nil, rejectToDirected(DynamicProjected)
}

func (w *DynamicProjectedFragmentWrapper) CreateGraphView(ctx context.Context, c comm.Communicator, viewID string, viewType ViewType, filter VertexFilter) (Wrapper, error) {
	return nil, rejectCreateGraphView(DynamicProjected)
}

// ---------------------------------------------------------------------
// Shared ToNdArray/ToDataframe archive assembly. Every worker builds its
// own shard payload, then a Gather(root=0) concatenates shards in
// ascending rank order (comm.Communicator's contract); worker 0 prepends
// the header.
// ---------------------------------------------------------------------

func selectColumnarValue(f *ColumnFragment, sel Selector, oid VertexID, table *PropertyTable, row int) (Column, error) {
	switch sel.Kind {
	case SelVertexID:
		return Column{Name: "id", Type: PropString, Data: []string{string(oid)}}, nil
	case SelVertexLabelID:
		return Column{Name: "label_id", Type: PropString, Data: []string{table.Label}}, nil
	case SelVertexData, SelResult:
		col, ok := table.Column(sel.Name)
		if !ok {
			return Column{}, errs.Newf(errs.NotFound, "property %q not found", sel.Name)
		}
		return singleRow(col, row)
	}
	return Column{}, errs.Newf(errs.InvalidValue, "unknown selector kind %q", sel.Kind)
}

func singleRow(col Column, row int) (Column, error) {
	switch d := col.Data.(type) {
	case []int32:
		return Column{Name: col.Name, Type: col.Type, Data: []int32{d[row]}}, nil
	case []int64:
		return Column{Name: col.Name, Type: col.Type, Data: []int64{d[row]}}, nil
	case []uint32:
		return Column{Name: col.Name, Type: col.Type, Data: []uint32{d[row]}}, nil
	case []uint64:
		return Column{Name: col.Name, Type: col.Type, Data: []uint64{d[row]}}, nil
	case []float32:
		return Column{Name: col.Name, Type: col.Type, Data: []float32{d[row]}}, nil
	case []float64:
		return Column{Name: col.Name, Type: col.Type, Data: []float64{d[row]}}, nil
	case []string:
		return Column{Name: col.Name, Type: col.Type, Data: []string{d[row]}}, nil
	}
	return Column{}, errs.Newf(errs.DataType, "unsupported column payload type")
}

func appendColumn(dst *Column, src Column) {
	switch d := src.Data.(type) {
	case []int32:
		dst.Data = append(dst.Data.([]int32), d...)
	case []int64:
		dst.Data = append(dst.Data.([]int64), d...)
	case []uint32:
		dst.Data = append(dst.Data.([]uint32), d...)
	case []uint64:
		dst.Data = append(dst.Data.([]uint64), d...)
	case []float32:
		dst.Data = append(dst.Data.([]float32), d...)
	case []float64:
		dst.Data = append(dst.Data.([]float64), d...)
	case []string:
		dst.Data = append(dst.Data.([]string), d...)
	}
}

func emptyLike(t PropertyType) Column {
	switch t {
	case PropInt32:
		return Column{Type: t, Data: []int32{}}
	case PropInt64:
		return Column{Type: t, Data: []int64{}}
	case PropUint32:
		return Column{Type: t, Data: []uint32{}}
	case PropUint64:
		return Column{Type: t, Data: []uint64{}}
	case PropFloat32:
		return Column{Type: t, Data: []float32{}}
	case PropFloat64:
		return Column{Type: t, Data: []float64{}}
	default:
		return Column{Type: PropString, Data: []string{}}
	}
}

func gatherShards(ctx context.Context, c comm.Communicator, shard []byte) ([]byte, error) {
	shards, err := c.Gather(ctx, 0, shard)
	if err != nil {
		return nil, err
	}
	if c.Rank() != 0 {
		return nil, nil
	}
	var out bytes.Buffer
	for _, s := range shards {
		out.Write(s)
	}
	return out.Bytes(), nil
}

/*
gatherCount gathers every worker's local row count and sums them at
root, so an NdArray/Dataframe header's total_count reflects the whole
graph rather than just worker 0's shard.
*/
func gatherCount(ctx context.Context, c comm.Communicator, count int64) (int64, error) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(count))

	shards, err := c.Gather(ctx, 0, b)
	if err != nil {
		return 0, err
	}
	if c.Rank() != 0 {
		return 0, nil
	}
	var total int64
	for _, s := range shards {
		total += int64(binary.LittleEndian.Uint64(s))
	}
	return total, nil
}

/*
gatherTypeCode reaches consensus on an NdArray's single type code:
every worker sends its locally-resolved code (or -1 if this shard had no
matching rows to infer it from), and root picks the first non-(-1)
value. If no worker had a match the column is empty everywhere and the
resolved code is arbitrary (PropString's code).
*/
func gatherTypeCode(ctx context.Context, c comm.Communicator, code int32, found bool) (int32, error) {
	local := int32(-1)
	if found {
		local = code
	}
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(local))

	shards, err := c.Gather(ctx, 0, b)
	if err != nil {
		return 0, err
	}
	if c.Rank() != 0 {
		return 0, nil
	}
	for _, s := range shards {
		v := int32(binary.LittleEndian.Uint32(s))
		if v != -1 {
			return v, nil
		}
	}
	stringCode, _ := TypeCode(PropString)
	return stringCode, nil
}

/*
columnarSelectorType resolves the static wire type of a selector against
a columnar fragment's schema, independent of which rows this worker
happens to hold — vertex_id/label_id are always strings, vertex_data
resolves to the named property's declared column type wherever it is
first found.
*/
func columnarSelectorType(f *ColumnFragment, sel Selector) (PropertyType, bool) {
	switch sel.Kind {
	case SelVertexID, SelVertexLabelID:
		return PropString, true
	case SelVertexData, SelResult:
		for _, label := range f.VertexLabels() {
			if col, ok := f.tablesByLabel[label].Column(sel.Name); ok {
				return col.Type, true
			}
		}
	}
	return "", false
}

func toNdArrayColumnar(ctx context.Context, c comm.Communicator, f *ColumnFragment, graphType GraphType, sel Selector, rng VertexRange) ([]byte, error) {
	colType, found := columnarSelectorType(f, sel)
	if !found {
		return nil, errs.Newf(errs.NotFound, "property %q not found", sel.Name)
	}
	col := emptyLike(colType)

	for _, label := range f.VertexLabels() {
		table := f.tablesByLabel[label]
		for i, oid := range table.OIDs {
			if !table.Inner[i] || !rng.inRange(uint64(i)) {
				continue
			}
			v, err := selectColumnarValue(f, sel, oid, table, i)
			if err != nil {
				return nil, err
			}
			appendColumn(&col, v)
		}
	}

	code, err := TypeCode(col.Type)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WritePayload(&buf, col); err != nil {
		return nil, err
	}

	total, err := gatherCount(ctx, c, int64(col.Len()))
	if err != nil {
		return nil, err
	}
	out, err := gatherShards(ctx, c, buf.Bytes())
	if err != nil {
		return nil, err
	}
	if c.Rank() != 0 {
		return nil, nil
	}

	var header bytes.Buffer
	WriteNdArrayHeader(&header, code, total)
	header.Write(out)
	return header.Bytes(), nil
}

/*
toDataframeColumnar builds the shared dataframe archive column-by-column:
each selector becomes exactly one `[name][type_code][payload]` block
whose payload is every worker's matching rows concatenated in ascending
rank order — not one block per worker, so a column's bytes are
contiguous the way a reader expects.
*/
func toDataframeColumnar(ctx context.Context, c comm.Communicator, f *ColumnFragment, graphType GraphType, sels []Selector, rng VertexRange) ([]byte, error) {
	localCols := make([]Column, len(sels))
	colNames := make([]string, len(sels))
	rowCount := 0

	for si, sel := range sels {
		colType, found := columnarSelectorType(f, sel)
		if !found {
			return nil, errs.Newf(errs.NotFound, "property %q not found", sel.Name)
		}
		localCols[si] = emptyLike(colType)
		colNames[si] = columnName(sel, si)
	}

	for _, label := range f.VertexLabels() {
		table := f.tablesByLabel[label]
		for i, oid := range table.OIDs {
			if !table.Inner[i] || !rng.inRange(uint64(i)) {
				continue
			}
			rowCount++
			for si, sel := range sels {
				v, err := selectColumnarValue(f, sel, oid, table, i)
				if err != nil {
					return nil, err
				}
				appendColumn(&localCols[si], v)
			}
		}
	}

	return assembleDataframe(ctx, c, localCols, colNames, rowCount, nil)
}

/*
assembleDataframe gathers rowCount and each column's payload across
workers and, at root, writes the full dataframe archive. types, when
non-nil, overrides each column's wire type code at assembly time — used
when a column's type can only be known by consensus across workers
(dynamic fragments, where a worker with no matching rows cannot infer
the type of a property it never saw). When nil, each local column's own
Type is authoritative (columnar fragments, where the type comes from
the shared schema regardless of row presence).
*/
func assembleDataframe(ctx context.Context, c comm.Communicator, localCols []Column, colNames []string, localRowCount int, types []PropertyType) ([]byte, error) {
	total, err := gatherCount(ctx, c, int64(localRowCount))
	if err != nil {
		return nil, err
	}

	type gathered struct {
		name string
		typ  PropertyType
		data []byte
	}
	blocks := make([]gathered, len(localCols))

	for si, col := range localCols {
		var buf bytes.Buffer
		if err := WritePayload(&buf, col); err != nil {
			return nil, err
		}
		merged, err := gatherShards(ctx, c, buf.Bytes())
		if err != nil {
			return nil, err
		}
		typ := col.Type
		if types != nil {
			typ = types[si]
		}
		blocks[si] = gathered{name: colNames[si], typ: typ, data: merged}
	}

	if c.Rank() != 0 {
		return nil, nil
	}

	var out bytes.Buffer
	WriteDataframeHeader(&out, int64(len(localCols)), total)
	for _, b := range blocks {
		code, err := TypeCode(b.typ)
		if err != nil {
			return nil, err
		}
		nameBytes := []byte(b.name)
		binary.Write(&out, binary.LittleEndian, int64(len(nameBytes)))
		out.Write(nameBytes)
		binary.Write(&out, binary.LittleEndian, code)
		out.Write(b.data)
	}
	return out.Bytes(), nil
}

func columnName(sel Selector, index int) string {
	if sel.Name != "" {
		return sel.Name
	}
	if sel.Kind == SelVertexID {
		return "id"
	}
	if sel.Kind == SelVertexLabelID {
		return "label_id"
	}
	return fmt.Sprintf("col%d", index)
}

func selectDynamicValue(sel Selector, v *DynamicVertex) (Column, error) {
	switch sel.Kind {
	case SelVertexID:
		return Column{Name: "id", Type: PropString, Data: []string{string(v.OID)}}, nil
	case SelVertexData, SelResult:
		val, ok := v.Attrs[sel.Name]
		if !ok {
			return Column{}, errs.Newf(errs.NotFound, "property %q not found", sel.Name)
		}
		return dynamicColumn(sel.Name, val)
	}
	return Column{}, errs.Newf(errs.InvalidValue, "unknown selector kind %q", sel.Kind)
}

func dynamicColumn(name string, val interface{}) (Column, error) {
	switch v := val.(type) {
	case int32:
		return Column{Name: name, Type: PropInt32, Data: []int32{v}}, nil
	case int64:
		return Column{Name: name, Type: PropInt64, Data: []int64{v}}, nil
	case int:
		return Column{Name: name, Type: PropInt64, Data: []int64{int64(v)}}, nil
	case float64:
		return Column{Name: name, Type: PropFloat64, Data: []float64{v}}, nil
	case float32:
		return Column{Name: name, Type: PropFloat32, Data: []float32{v}}, nil
	case string:
		return Column{Name: name, Type: PropString, Data: []string{v}}, nil
	}
	return Column{}, errs.Newf(errs.DataType, "unsupported attribute type for %q", name)
}

/*
dynamicRows walks rng's window of every label's inner vertices, in
InnerVertexIterator order, applying visit to each.
*/
func dynamicRows(f *DynamicFragment, rng VertexRange, visit func(*DynamicVertex)) {
	for _, label := range f.VertexLabels() {
		it := f.InnerVertexIterator(label)
		i := uint64(0)
		for it.HasNext() {
			oid := it.Next()
			if rng.inRange(i) {
				v, _ := f.GetVertex(oid)
				visit(v)
			}
			i++
		}
	}
}

func toNdArrayDynamic(ctx context.Context, c comm.Communicator, f *DynamicFragment, sel Selector, rng VertexRange) ([]byte, error) {
	col := emptyLike(PropString)
	found := false

	var visitErr error
	dynamicRows(f, rng, func(v *DynamicVertex) {
		if visitErr != nil {
			return
		}
		val, err := selectDynamicValue(sel, v)
		if err != nil {
			visitErr = err
			return
		}
		if !found {
			col = emptyLike(val.Type)
			found = true
		}
		appendColumn(&col, val)
	})
	if visitErr != nil {
		return nil, visitErr
	}

	code, err := gatherTypeCode(ctx, c, mustTypeCode(col.Type), found)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WritePayload(&buf, col); err != nil {
		return nil, err
	}

	total, err := gatherCount(ctx, c, int64(col.Len()))
	if err != nil {
		return nil, err
	}
	out, err := gatherShards(ctx, c, buf.Bytes())
	if err != nil {
		return nil, err
	}
	if c.Rank() != 0 {
		return nil, nil
	}

	var header bytes.Buffer
	WriteNdArrayHeader(&header, code, total)
	header.Write(out)
	return header.Bytes(), nil
}

func mustTypeCode(t PropertyType) int32 {
	code, err := TypeCode(t)
	if err != nil {
		return 0
	}
	return code
}

func toDataframeDynamic(ctx context.Context, c comm.Communicator, f *DynamicFragment, sels []Selector, rng VertexRange) ([]byte, error) {
	localCols := make([]Column, len(sels))
	found := make([]bool, len(sels))
	colNames := make([]string, len(sels))
	for i := range localCols {
		localCols[i] = emptyLike(PropString)
		colNames[i] = columnName(sels[i], i)
	}

	rowCount := 0
	var visitErr error
	dynamicRows(f, rng, func(v *DynamicVertex) {
		if visitErr != nil {
			return
		}
		rowCount++
		for si, sel := range sels {
			val, err := selectDynamicValue(sel, v)
			if err != nil {
				visitErr = err
				return
			}
			if !found[si] {
				localCols[si] = emptyLike(val.Type)
				found[si] = true
			}
			appendColumn(&localCols[si], val)
		}
	})
	if visitErr != nil {
		return nil, visitErr
	}

	resolvedTypes := make([]PropertyType, len(sels))
	for si, col := range localCols {
		code, err := gatherTypeCode(ctx, c, mustTypeCode(col.Type), found[si])
		if err != nil {
			return nil, err
		}
		if c.Rank() == 0 {
			resolvedTypes[si] = codeToType(code)
		}
	}

	return assembleDataframe(ctx, c, localCols, colNames, rowCount, resolvedTypes)
}

func codeToType(code int32) PropertyType {
	switch code {
	case 0:
		return PropInt32
	case 1:
		return PropInt64
	case 2:
		return PropUint32
	case 3:
		return PropUint64
	case 4:
		return PropFloat32
	case 5:
		return PropFloat64
	case 7:
		return PropLargeUTF8
	default:
		return PropString
	}
}
