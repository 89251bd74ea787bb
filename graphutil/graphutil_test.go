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

	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/store"
)

func singleRankComm() comm.Communicator {
	return comm.NewGroup(1)[0]
}

func samplePeople() ([]VertexRecord, []EdgeRecord) {
	vertices := []VertexRecord{
		{OID: "a", Label: "person", Properties: map[string]interface{}{"age": int64(30), "name": "alice"}},
		{OID: "b", Label: "person", Properties: map[string]interface{}{"age": int64(25), "name": "bob"}},
	}
	edges := []EdgeRecord{
		{From: "a", To: "b", Label: "knows"},
	}
	return vertices, edges
}

func TestLoadGraphBuildsColumnarFragment(t *testing.T) {
	u := ForSignature("test-sig")
	c := singleRankComm()
	vertices, edges := samplePeople()

	sc := store.NewMemClient("test-socket")
	w, err := u.LoadGraph(context.Background(), c, sc, "g1", true, vertices, edges)
	if err != nil {
		t.Fatal(err)
	}

	if !w.GraphDef().HasVineyard {
		t.Fatal("expected LoadGraph to persist the fragment to the object store")
	}
	if !sc.Has(context.Background(), w.GraphDef().VineyardID) {
		t.Fatal("expected the fragment-group id to exist in the store")
	}

	labeled, ok := w.(*fragment.LabeledPropertyFragmentWrapper)
	if !ok {
		t.Fatalf("expected *LabeledPropertyFragmentWrapper, got %T", w)
	}
	cf := labeled.Fragment().(*fragment.ColumnFragment)
	table, err := cf.Table("person")
	if err != nil {
		t.Fatal(err)
	}
	if len(table.OIDs) != 2 {
		t.Fatalf("expected 2 person vertices, got %d", len(table.OIDs))
	}
	if _, ok := table.Column("age"); !ok {
		t.Fatal("expected age column")
	}
	if len(cf.Edges("knows")) != 1 {
		t.Fatal("expected one knows edge")
	}
}

func TestLoadGraphMixedPropertyTypeIsDataTypeError(t *testing.T) {
	u := ForSignature("test-sig-mixed")
	c := singleRankComm()

	vertices := []VertexRecord{
		{OID: "a", Label: "person", Properties: map[string]interface{}{"age": int64(30)}},
		{OID: "b", Label: "person", Properties: map[string]interface{}{"age": "not-a-number"}},
	}

	if _, err := u.LoadGraph(context.Background(), c, store.NewMemClient("test-socket"), "g1", true, vertices, nil); errs.KindOf(err) != errs.DataType {
		t.Fatalf("expected DataType, got %v", err)
	}
}

func TestAddLabelsToGraphMergesLabels(t *testing.T) {
	u := ForSignature("test-sig-add")
	c := singleRankComm()
	vertices, edges := samplePeople()

	base, err := u.LoadGraph(context.Background(), c, store.NewMemClient("test-socket"), "g1", true, vertices, edges)
	if err != nil {
		t.Fatal(err)
	}

	moreVertices := []VertexRecord{
		{OID: "co1", Label: "company", Properties: map[string]interface{}{"name": "acme"}},
	}
	sc := store.NewMemClient("test-socket")
	updated, err := u.AddLabelsToGraph(context.Background(), c, sc, base, "g2", moreVertices, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !updated.GraphDef().HasVineyard || updated.GraphDef().VineyardID == base.GraphDef().VineyardID {
		t.Fatal("expected the merged graph to get its own persisted fragment-group id")
	}

	cf := updated.Fragment().(*fragment.ColumnFragment)
	if _, err := cf.Table("person"); err != nil {
		t.Fatal("expected person label to survive merge")
	}
	if _, err := cf.Table("company"); err != nil {
		t.Fatal("expected company label to be added")
	}
}

func TestAddLabelsToGraphRejectsNonColumnarSource(t *testing.T) {
	u := ForSignature("test-sig-add-reject")
	c := singleRankComm()
	df := fragment.NewDynamicFragment(0, 1, true, fragment.NewVertexMap(1, "g1"))
	w := fragment.NewDynamicPropertyFragmentWrapper(fragment.GraphDef{Key: "g1", GraphType: fragment.DynamicProperty}, df)

	if _, err := u.AddLabelsToGraph(context.Background(), c, store.NewMemClient("test-socket"), w, "g2", nil, nil); errs.KindOf(err) != errs.InvalidOperation {
		t.Fatalf("expected InvalidOperation, got %v", err)
	}
}
