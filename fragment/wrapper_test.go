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
	"context"
	"encoding/binary"
	"testing"

	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/store"
)

func singleRankComm() comm.Communicator {
	return comm.NewGroup(1)[0]
}

func memStore() store.Client {
	return store.NewMemClient("test")
}

func labeledWrapper() *LabeledPropertyFragmentWrapper {
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, map[string][]ColumnEdge{
		"knows": {{From: "a", To: "b", Label: "knows"}},
	})
	def := GraphDef{Key: "g1", GraphType: ArrowProperty, Directed: true}
	return NewLabeledPropertyFragmentWrapper(def, f)
}

func TestLabeledPropertyCopyGraphIdentical(t *testing.T) {
	w := labeledWrapper()
	c := singleRankComm()

	copied, err := w.CopyGraph(context.Background(), c, memStore(), "g2", CopyIdentical)
	if err != nil {
		t.Fatal(err)
	}

	cf := copied.Fragment().(*ColumnFragment)
	table, _ := cf.Table("person")
	if _, ok := table.Column("age"); !ok {
		t.Fatal("expected identical copy to preserve columns")
	}
	if copied.GraphDef().Key != "g2" {
		t.Fatalf("expected dst key g2, got %s", copied.GraphDef().Key)
	}
	if !copied.GraphDef().HasVineyard {
		t.Fatal("expected copy to be persisted to the object store")
	}
}

func TestLabeledPropertyCopyGraphReset(t *testing.T) {
	w := labeledWrapper()
	c := singleRankComm()

	copied, err := w.CopyGraph(context.Background(), c, memStore(), "g2", CopyReset)
	if err != nil {
		t.Fatal(err)
	}

	cf := copied.Fragment().(*ColumnFragment)
	table, _ := cf.Table("person")
	if _, ok := table.Column("age"); ok {
		t.Fatal("expected reset copy to drop columns")
	}
}

func TestLabeledPropertyProject(t *testing.T) {
	w := labeledWrapper()
	c := singleRankComm()

	projected, err := w.Project(context.Background(), c, memStore(), "g3",
		map[string][]string{"person": {"age"}},
		map[string][]string{"knows": nil})
	if err != nil {
		t.Fatal(err)
	}

	cf := projected.Fragment().(*ColumnFragment)
	if len(cf.EdgeLabels()) != 1 || cf.EdgeLabels()[0] != "knows" {
		t.Fatalf("expected knows edges to be carried over, got %v", cf.EdgeLabels())
	}
}

func TestLabeledPropertyProjectMissingProperty(t *testing.T) {
	w := labeledWrapper()
	c := singleRankComm()

	if _, err := w.Project(context.Background(), c, memStore(), "g3", map[string][]string{"person": {"missing"}}, nil); errs.KindOf(err) != errs.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

type fakeColumnContext struct {
	fnum  int
	mapID string
	oidID string
	label string
	cols  []Column
}

func (c *fakeColumnContext) ContextType() string      { return "vertex_data" }
func (c *fakeColumnContext) VertexMapFnum() int       { return c.fnum }
func (c *fakeColumnContext) TargetLabel() string      { return c.label }
func (c *fakeColumnContext) Columns(fid uint64) ([]Column, error) { return c.cols, nil }
func (c *fakeColumnContext) VertexMapIdentity(fid uint64) (string, string) {
	return c.mapID, c.oidID
}

func TestAddColumnSuccess(t *testing.T) {
	w := labeledWrapper()
	c := singleRankComm()

	cc := &fakeColumnContext{
		fnum:  1,
		mapID: w.f.VertexMap.ID,
		oidID: w.f.VertexMap.OIDArrayID[0],
		label: "person",
		cols:  []Column{{Name: "score", Type: PropFloat64, Data: []float64{1, 2, 3}}},
	}

	updated, err := w.AddColumn(context.Background(), c, memStore(), "g1", cc, "person")
	if err != nil {
		t.Fatal(err)
	}

	table, _ := updated.Fragment().(*ColumnFragment).Table("person")
	if _, ok := table.Column("score"); !ok {
		t.Fatal("expected score column to be added")
	}
}

func TestAddColumnRejectsMismatchedVertexMap(t *testing.T) {
	w := labeledWrapper()
	c := singleRankComm()

	cc := &fakeColumnContext{fnum: 1, mapID: "other", oidID: "other", label: "person"}

	if _, err := w.AddColumn(context.Background(), c, memStore(), "g1", cc, "person"); errs.KindOf(err) != errs.IllegalState {
		t.Fatalf("expected IllegalState, got %v", err)
	}
}

func TestAddColumnRejectedOnProjectedWrapper(t *testing.T) {
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, nil)
	def := GraphDef{Key: "g1", GraphType: ArrowProjected}
	w := NewProjectedFragmentWrapper(def, f)

	if _, err := w.AddColumn(context.Background(), singleRankComm(), memStore(), "g1", &fakeColumnContext{}, "person"); errs.KindOf(err) != errs.UnsupportedOperation {
		t.Fatalf("expected UnsupportedOperation, got %v", err)
	}
}

func TestToNdArrayHeaderAndPayload(t *testing.T) {
	w := labeledWrapper()
	c := singleRankComm()

	out, err := w.ToNdArray(context.Background(), c, Selector{Kind: SelVertexData, Name: "age"}, VertexRange{Unbounded: true})
	if err != nil {
		t.Fatal(err)
	}

	typeCode := int32(binary.LittleEndian.Uint32(out[0:4]))
	totalCount := int64(binary.LittleEndian.Uint64(out[4:12]))
	wantCode, _ := TypeCode(PropInt64)
	if typeCode != wantCode {
		t.Fatalf("expected type_code=%d (i64), got %d", wantCode, typeCode)
	}
	if totalCount != 2 {
		t.Fatalf("expected 2 inner vertices, got %d", totalCount)
	}
}

func TestToDataframeHeader(t *testing.T) {
	w := labeledWrapper()
	c := singleRankComm()

	out, err := w.ToDataframe(context.Background(), c,
		[]Selector{{Kind: SelVertexID}, {Kind: SelVertexData, Name: "age"}},
		VertexRange{Unbounded: true})
	if err != nil {
		t.Fatal(err)
	}

	numColumns := int64(binary.LittleEndian.Uint64(out[0:8]))
	totalCount := int64(binary.LittleEndian.Uint64(out[8:16]))
	if numColumns != 2 {
		t.Fatalf("expected num_columns=2, got %d", numColumns)
	}
	if totalCount != 2 {
		t.Fatalf("expected 2 rows, got %d", totalCount)
	}
}

func TestProjectedWrapperRejectsLabelIdSelector(t *testing.T) {
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, nil)
	w := NewProjectedFragmentWrapper(GraphDef{Key: "g1", GraphType: ArrowProjected}, f)

	if _, err := w.ToNdArray(context.Background(), singleRankComm(), Selector{Kind: SelVertexLabelID}, VertexRange{Unbounded: true}); errs.KindOf(err) != errs.UnsupportedOperation {
		t.Fatalf("expected UnsupportedOperation, got %v", err)
	}
}

func TestDynamicPropertyToDirected(t *testing.T) {
	vm := NewVertexMap(1, "g1")
	df := NewDynamicFragment(0, 1, false, vm)
	df.UpsertVertex("a", "person", true, nil)
	df.UpsertVertex("b", "person", true, nil)
	df.AddEdge("a", "b", "knows", nil)

	w := NewDynamicPropertyFragmentWrapper(GraphDef{Key: "g1", GraphType: DynamicProperty, Directed: false}, df)
	c := singleRankComm()

	directed, err := w.ToDirected(context.Background(), c, "g2")
	if err != nil {
		t.Fatal(err)
	}
	if !directed.GraphDef().Directed {
		t.Fatal("expected resulting graph-def to be directed")
	}
	dfr := directed.Fragment().(*DynamicFragment)
	if len(dfr.OutEdges("b")) != 0 {
		t.Fatal("expected directed conversion to drop the reverse mirror edge")
	}
}

func TestDynamicPropertyCopyGraph(t *testing.T) {
	vm := NewVertexMap(1, "g1")
	df := NewDynamicFragment(0, 1, true, vm)
	df.UpsertVertex("a", "person", true, nil)
	df.UpsertVertex("b", "person", true, nil)
	df.AddEdge("a", "b", "knows", nil)

	w := NewDynamicPropertyFragmentWrapper(GraphDef{Key: "g1", GraphType: DynamicProperty, Directed: true}, df)
	c := singleRankComm()

	copied, err := w.CopyGraph(context.Background(), c, memStore(), "g2", CopyIdentical)
	if err != nil {
		t.Fatal(err)
	}

	cf := copied.Fragment().(*DynamicFragment)
	if len(cf.OutEdges("a")) != 1 || cf.OutEdges("a")[0].To != "b" {
		t.Fatalf("expected the knows edge to survive the copy, got %v", cf.OutEdges("a"))
	}
}

func TestDynamicProjectedRejectsToDirected(t *testing.T) {
	df := NewDynamicFragment(0, 1, true, NewVertexMap(1, "g1"))
	w := NewDynamicProjectedFragmentWrapper(GraphDef{Key: "g1", GraphType: DynamicProjected}, df)

	if _, err := w.ToDirected(context.Background(), singleRankComm(), "g2"); errs.KindOf(err) != errs.InvalidOperation {
		t.Fatalf("expected InvalidOperation, got %v", err)
	}
}

func TestLabeledPropertyRejectsCreateGraphView(t *testing.T) {
	w := labeledWrapper()

	if _, err := w.CreateGraphView(context.Background(), singleRankComm(), "v1", ViewReversed, VertexFilter{}); errs.KindOf(err) != errs.InvalidOperation {
		t.Fatalf("expected InvalidOperation, got %v", err)
	}
}

func TestCreateGraphViewReversed(t *testing.T) {
	vm := NewVertexMap(1, "g1")
	df := NewDynamicFragment(0, 1, true, vm)
	df.UpsertVertex("a", "person", true, nil)
	df.UpsertVertex("b", "person", true, nil)
	df.AddEdge("a", "b", "knows", nil)

	w := NewDynamicPropertyFragmentWrapper(GraphDef{Key: "g1", GraphType: DynamicProperty, Directed: true}, df)

	view, err := w.CreateGraphView(context.Background(), singleRankComm(), "v1", ViewReversed, VertexFilter{})
	if err != nil {
		t.Fatal(err)
	}

	vf := view.Fragment().(*DynamicFragment)
	if len(vf.OutEdges("b")) != 1 || vf.OutEdges("b")[0].To != "a" {
		t.Fatalf("expected reversed edge b->a, got %v", vf.OutEdges("b"))
	}
}

func TestCreateGraphViewSubgraphByFilter(t *testing.T) {
	vm := NewVertexMap(1, "g1")
	df := NewDynamicFragment(0, 1, true, vm)
	df.UpsertVertex("a", "person", true, nil)
	df.UpsertVertex("b", "person", true, nil)
	df.UpsertVertex("c", "company", true, nil)
	df.AddEdge("a", "b", "knows", nil)
	df.AddEdge("a", "c", "works_at", nil)

	w := NewDynamicPropertyFragmentWrapper(GraphDef{Key: "g1", GraphType: DynamicProperty, Directed: true}, df)

	view, err := w.CreateGraphView(context.Background(), singleRankComm(), "v1", ViewSubgraphByFilter, VertexFilter{Label: "person"})
	if err != nil {
		t.Fatal(err)
	}

	vf := view.Fragment().(*DynamicFragment)
	if len(vf.OutEdges("a")) != 1 || vf.OutEdges("a")[0].To != "b" {
		t.Fatalf("expected only the person-person edge a->b, got %v", vf.OutEdges("a"))
	}
	if _, ok := vf.GetVertex("c"); ok {
		t.Fatal("expected the company vertex to be filtered out")
	}
}
