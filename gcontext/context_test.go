/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package gcontext

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/store"
)

func singleRankComm() comm.Communicator {
	return comm.NewGroup(1)[0]
}

func sampleWrapper() fragment.Wrapper {
	table := &fragment.PropertyTable{
		Label: "person",
		OIDs:  []fragment.VertexID{"a", "b", "c"},
		Inner: []bool{true, true, true},
	}
	f := fragment.NewColumnFragment(0, 1, true, fragment.NewVertexMap(1, "g1"), []*fragment.PropertyTable{table}, nil)
	return fragment.NewLabeledPropertyFragmentWrapper(fragment.GraphDef{Key: "g1", GraphType: fragment.ArrowProperty}, f)
}

func TestVertexDataContextToNdArray(t *testing.T) {
	w := sampleWrapper()
	oids := []fragment.VertexID{"a", "b", "c"}
	data := fragment.Column{Name: "rank", Type: fragment.PropFloat64, Data: []float64{0.1, 0.2, 0.3}}
	ctx := NewVertexDataContext(w, oids, data, nil)

	if ctx.ContextType() != VertexData {
		t.Fatalf("expected vertex_data, got %v", ctx.ContextType())
	}

	out, err := ctx.ToNdArray(context.Background(), singleRankComm(), "v.data", fragment.VertexRange{Unbounded: true})
	if err != nil {
		t.Fatal(err)
	}

	typeCode := int32(binary.LittleEndian.Uint32(out[0:4]))
	totalCount := int64(binary.LittleEndian.Uint64(out[4:12]))
	wantCode, _ := fragment.TypeCode(fragment.PropFloat64)
	if typeCode != wantCode {
		t.Fatalf("expected type_code=%d, got %d", wantCode, typeCode)
	}
	if totalCount != 3 {
		t.Fatalf("expected 3 rows, got %d", totalCount)
	}
}

func TestVertexDataContextToDataframe(t *testing.T) {
	w := sampleWrapper()
	oids := []fragment.VertexID{"a", "b"}
	data := fragment.Column{Name: "rank", Type: fragment.PropFloat64, Data: []float64{0.5, 0.7}}
	ctx := NewVertexDataContext(w, oids, data, nil)

	out, err := ctx.ToDataframe(context.Background(), singleRankComm(), []string{"v.id", "v.data"}, fragment.VertexRange{Unbounded: true})
	if err != nil {
		t.Fatal(err)
	}

	numColumns := int64(binary.LittleEndian.Uint64(out[0:8]))
	totalCount := int64(binary.LittleEndian.Uint64(out[8:16]))
	if numColumns != 2 {
		t.Fatalf("expected 2 columns, got %d", numColumns)
	}
	if totalCount != 2 {
		t.Fatalf("expected 2 rows, got %d", totalCount)
	}
}

func TestLabeledVertexDataRequiresLabelForLabelID(t *testing.T) {
	w := sampleWrapper()
	oids := []fragment.VertexID{"a"}
	data := fragment.Column{Name: "rank", Type: fragment.PropFloat64, Data: []float64{1}}
	ctx := NewVertexDataContext(w, oids, data, nil)

	if _, err := ctx.ToNdArray(context.Background(), singleRankComm(), "v.label_id", fragment.VertexRange{Unbounded: true}); errs.KindOf(err) != errs.UnsupportedOperation {
		t.Fatalf("expected UnsupportedOperation, got %v", err)
	}
}

func TestVertexPropertyContextSatisfiesColumnContext(t *testing.T) {
	w := sampleWrapper()
	oids := []fragment.VertexID{"a", "b", "c"}
	props := map[string]fragment.Column{
		"score": {Name: "score", Type: fragment.PropFloat64, Data: []float64{1, 2, 3}},
	}
	ctx := NewLabeledVertexPropertyContext(w, "person", oids, props)

	var cc fragment.ColumnContext = ctx.(fragment.ColumnContext)
	if cc.TargetLabel() != "person" {
		t.Fatalf("expected target label person, got %q", cc.TargetLabel())
	}
	cols, err := cc.Columns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 {
		t.Fatalf("expected 1 column, got %d", len(cols))
	}
}

func TestToVineyardTensorPersistsBlob(t *testing.T) {
	w := sampleWrapper()
	oids := []fragment.VertexID{"a"}
	data := fragment.Column{Name: "rank", Type: fragment.PropInt64, Data: []int64{7}}
	ctx := NewVertexDataContext(w, oids, data, nil)

	sc := store.NewMemClient("test-socket")
	id, err := ctx.ToVineyardTensor(context.Background(), singleRankComm(), sc, "obj1", "v.data", fragment.VertexRange{Unbounded: true})
	if err != nil {
		t.Fatal(err)
	}
	if id == store.NoObject {
		t.Fatal("expected a real object id")
	}
	if !sc.Has(context.Background(), id) {
		t.Fatal("expected object to be persisted")
	}
}

func TestResultFieldSelector(t *testing.T) {
	w := sampleWrapper()
	oids := []fragment.VertexID{"a", "b"}
	results := []ResultCell{{Fields: []interface{}{1.5, "x"}}, {Fields: []interface{}{2.5, "y"}}}
	ctx := NewVertexDataContext(w, oids, fragment.Column{}, results)

	cols, err := ctx.ToArrowArrays([]string{"r.1"})
	if err != nil {
		t.Fatal(err)
	}
	data := cols[0].Data.([]string)
	if data[0] != "x" || data[1] != "y" {
		t.Fatalf("unexpected result field data: %v", data)
	}
}
