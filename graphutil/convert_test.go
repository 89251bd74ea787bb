/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graphutil

import (
	"context"
	"testing"

	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/store"
)

func TestToDynamicFragmentRoundTrip(t *testing.T) {
	u := ForSignature("test-sig-dyn")
	c := singleRankComm()
	vertices, edges := samplePeople()

	src, err := u.LoadGraph(context.Background(), c, store.NewMemClient("test-socket"), "g1", true, vertices, edges)
	if err != nil {
		t.Fatal(err)
	}

	dst, err := u.ToDynamicFragment(context.Background(), c, src, "g2")
	if err != nil {
		t.Fatal(err)
	}

	dyn, ok := dst.(*fragment.DynamicPropertyFragmentWrapper)
	if !ok {
		t.Fatalf("expected *DynamicPropertyFragmentWrapper, got %T", dst)
	}
	df := dyn.Fragment().(*fragment.DynamicFragment)
	v, ok := df.GetVertex("a")
	if !ok {
		t.Fatal("expected vertex a to exist")
	}
	if v.Attrs["age"] != int64(30) {
		t.Fatalf("expected age 30, got %v", v.Attrs["age"])
	}
	if len(df.OutEdges("a")) != 1 {
		t.Fatal("expected one out-edge from a")
	}
}

func TestToDynamicFragmentRejectsParallelEdgesAcrossLabels(t *testing.T) {
	u := ForSignature("test-sig-dyn-parallel")
	c := singleRankComm()

	vertices := []VertexRecord{
		{OID: "a", Label: "person", Properties: nil},
		{OID: "b", Label: "person", Properties: nil},
	}
	edges := []EdgeRecord{
		{From: "a", To: "b", Label: "knows"},
		{From: "a", To: "b", Label: "follows"},
	}

	src, err := u.LoadGraph(context.Background(), c, store.NewMemClient("test-socket"), "g1", true, vertices, edges)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := u.ToDynamicFragment(context.Background(), c, src, "g2"); errs.KindOf(err) != errs.IllegalState {
		t.Fatalf("expected IllegalState, got %v", err)
	}
}

func TestToDynamicFragmentRejectsNonColumnarSource(t *testing.T) {
	u := ForSignature("test-sig-dyn-reject")
	c := singleRankComm()
	df := fragment.NewDynamicFragment(0, 1, true, fragment.NewVertexMap(1, "g1"))
	w := fragment.NewDynamicPropertyFragmentWrapper(fragment.GraphDef{Key: "g1", GraphType: fragment.DynamicProperty}, df)

	if _, err := u.ToDynamicFragment(context.Background(), c, w, "g2"); errs.KindOf(err) != errs.InvalidOperation {
		t.Fatalf("expected InvalidOperation, got %v", err)
	}
}

func TestToArrowFragmentRoundTrip(t *testing.T) {
	vm := fragment.NewVertexMap(1, "g1")
	df := fragment.NewDynamicFragment(0, 1, true, vm)
	df.UpsertVertex("a", "person", true, map[string]interface{}{"age": int64(30)})
	df.UpsertVertex("b", "person", true, map[string]interface{}{"age": int64(25)})
	if err := df.AddEdge("a", "b", "knows", nil); err != nil {
		t.Fatal(err)
	}

	w := fragment.NewDynamicPropertyFragmentWrapper(fragment.GraphDef{Key: "g1", GraphType: fragment.DynamicProperty, Directed: true}, df)

	u := ForSignature("test-sig-arrow")
	c := singleRankComm()

	sc := store.NewMemClient("test-socket")
	dst, err := u.ToArrowFragment(context.Background(), sc, c, w, "g2")
	if err != nil {
		t.Fatal(err)
	}

	if !dst.GraphDef().HasVineyard {
		t.Fatal("expected ToArrowFragment to persist the converted fragment")
	}
	if !sc.Has(context.Background(), dst.GraphDef().VineyardID) {
		t.Fatal("expected the fragment-group id to exist in the store")
	}

	labeled, ok := dst.(*fragment.LabeledPropertyFragmentWrapper)
	if !ok {
		t.Fatalf("expected *LabeledPropertyFragmentWrapper, got %T", dst)
	}
	cf := labeled.Fragment().(*fragment.ColumnFragment)
	table, err := cf.Table("person")
	if err != nil {
		t.Fatal(err)
	}
	if len(table.OIDs) != 2 {
		t.Fatalf("expected 2 vertices, got %d", len(table.OIDs))
	}
	if len(cf.Edges("knows")) != 1 {
		t.Fatal("expected one knows edge")
	}
}

func TestToArrowFragmentRejectsUnsupportedAttributeType(t *testing.T) {
	vm := fragment.NewVertexMap(1, "g1")
	df := fragment.NewDynamicFragment(0, 1, true, vm)
	df.UpsertVertex("a", "person", true, map[string]interface{}{"tags": []string{"x"}})

	w := fragment.NewDynamicPropertyFragmentWrapper(fragment.GraphDef{Key: "g1", GraphType: fragment.DynamicProperty, Directed: true}, df)

	u := ForSignature("test-sig-arrow-reject")
	c := singleRankComm()

	if _, err := u.ToArrowFragment(context.Background(), store.NewMemClient("test-socket"), c, w, "g2"); errs.KindOf(err) != errs.DataType {
		t.Fatalf("expected DataType, got %v", err)
	}
}

func TestToArrowFragmentRejectsNonDynamicSource(t *testing.T) {
	u := ForSignature("test-sig-arrow-reject2")
	c := singleRankComm()
	vertices, edges := samplePeople()

	src, err := u.LoadGraph(context.Background(), c, store.NewMemClient("test-socket"), "g1", true, vertices, edges)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := u.ToArrowFragment(context.Background(), store.NewMemClient("test-socket"), c, src, "g2"); errs.KindOf(err) != errs.InvalidOperation {
		t.Fatalf("expected InvalidOperation, got %v", err)
	}
}

func TestProjectToSimple(t *testing.T) {
	u := ForSignature("test-sig-simple")
	c := singleRankComm()
	vertices, edges := samplePeople()

	src, err := u.LoadGraph(context.Background(), c, store.NewMemClient("test-socket"), "g1", true, vertices, edges)
	if err != nil {
		t.Fatal(err)
	}

	dst, err := u.ProjectToSimple(context.Background(), c, src, "g2", "person", "age", "knows", "")
	if err != nil {
		t.Fatal(err)
	}

	proj, ok := dst.(*fragment.ProjectedFragmentWrapper)
	if !ok {
		t.Fatalf("expected *ProjectedFragmentWrapper, got %T", dst)
	}
	if proj.GraphDef().GraphType != fragment.ArrowProjected {
		t.Fatalf("expected ARROW_PROJECTED, got %v", proj.GraphDef().GraphType)
	}
	cf := proj.Fragment().(*fragment.ColumnFragment)
	table, err := cf.Table("person")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := table.Column("name"); ok {
		t.Fatal("expected name property to be dropped")
	}
	if _, ok := table.Column("age"); !ok {
		t.Fatal("expected age property to survive")
	}
}

func TestProjectToSimpleRejectsEdgeProperty(t *testing.T) {
	u := ForSignature("test-sig-simple-reject")
	c := singleRankComm()
	vertices, edges := samplePeople()

	src, err := u.LoadGraph(context.Background(), c, store.NewMemClient("test-socket"), "g1", true, vertices, edges)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := u.ProjectToSimple(context.Background(), c, src, "g2", "person", "age", "knows", "weight"); errs.KindOf(err) != errs.UnsupportedOperation {
		t.Fatalf("expected UnsupportedOperation, got %v", err)
	}
}
