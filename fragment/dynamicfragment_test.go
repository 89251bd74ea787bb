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

func TestUpsertAndGetVertex(t *testing.T) {
	vm := NewVertexMap(1, "g1")
	f := NewDynamicFragment(0, 1, true, vm)

	f.UpsertVertex("a", "person", true, map[string]interface{}{"age": int64(30)})

	v, ok := f.GetVertex("a")
	if !ok {
		t.Fatal("expected vertex a to exist")
	}
	if v.Attrs["age"] != int64(30) {
		t.Fatalf("unexpected attrs: %v", v.Attrs)
	}
	if f.InnerVertexCount("person") != 1 {
		t.Fatalf("expected 1 inner vertex, got %d", f.InnerVertexCount("person"))
	}
}

func TestRemoveVertexNotFound(t *testing.T) {
	f := NewDynamicFragment(0, 1, true, NewVertexMap(1, "g1"))

	if err := f.RemoveVertex("missing"); errs.KindOf(err) != errs.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAddEdgeRequiresKnownVertices(t *testing.T) {
	f := NewDynamicFragment(0, 1, true, NewVertexMap(1, "g1"))
	f.UpsertVertex("a", "person", true, nil)

	if err := f.AddEdge("a", "b", "knows", nil); errs.KindOf(err) != errs.InvalidValue {
		t.Fatalf("expected InvalidValue, got %v", err)
	}
}

func TestUndirectedEdgeMirrorsBothWays(t *testing.T) {
	f := NewDynamicFragment(0, 1, false, NewVertexMap(1, "g1"))
	f.UpsertVertex("a", "person", true, nil)
	f.UpsertVertex("b", "person", true, nil)

	if err := f.AddEdge("a", "b", "knows", nil); err != nil {
		t.Fatal(err)
	}

	if len(f.OutEdges("a")) != 1 || len(f.OutEdges("b")) != 1 {
		t.Fatalf("expected mirrored edge on both endpoints, got a=%v b=%v", f.OutEdges("a"), f.OutEdges("b"))
	}
}

func TestDirectedEdgeIsOneWay(t *testing.T) {
	f := NewDynamicFragment(0, 1, true, NewVertexMap(1, "g1"))
	f.UpsertVertex("a", "person", true, nil)
	f.UpsertVertex("b", "person", true, nil)
	f.AddEdge("a", "b", "knows", nil)

	if len(f.OutEdges("a")) != 1 {
		t.Fatal("expected one outgoing edge on a")
	}
	if len(f.OutEdges("b")) != 0 {
		t.Fatal("expected no outgoing edge on b")
	}
}

func TestOwnerFidIsStableAndCoversAllFragments(t *testing.T) {
	seen := map[uint64]bool{}
	for i := 0; i < 200; i++ {
		oid := VertexID(string(rune('a' + i%26)))
		seen[OwnerFid(oid, 4)] = true
	}
	if OwnerFid("x", 4) != OwnerFid("x", 4) {
		t.Fatal("expected OwnerFid to be deterministic")
	}
	for fid := range seen {
		if fid >= 4 {
			t.Fatalf("owner fid %d out of range", fid)
		}
	}
}

func TestCloneResetDropsAttrsAndEdges(t *testing.T) {
	f := NewDynamicFragment(0, 1, true, NewVertexMap(1, "g1"))
	f.UpsertVertex("a", "person", true, map[string]interface{}{"age": int64(1)})
	f.UpsertVertex("b", "person", true, map[string]interface{}{"age": int64(2)})
	f.AddEdge("a", "b", "knows", map[string]interface{}{"since": int64(2020)})

	clone := f.Clone(NewVertexMap(1, "g2"), false)

	v, _ := clone.GetVertex("a")
	if v.Attrs != nil {
		t.Fatalf("expected reset clone to drop attrs, got %v", v.Attrs)
	}
	if clone.EdgeCount() != 0 {
		t.Fatalf("expected reset clone to drop edges, got %d", clone.EdgeCount())
	}
}

func TestCloneIdenticalPreservesAttrsAndEdges(t *testing.T) {
	f := NewDynamicFragment(0, 1, true, NewVertexMap(1, "g1"))
	f.UpsertVertex("a", "person", true, map[string]interface{}{"age": int64(1)})
	f.UpsertVertex("b", "person", true, map[string]interface{}{"age": int64(2)})
	f.AddEdge("a", "b", "knows", map[string]interface{}{"since": int64(2020)})

	clone := f.Clone(NewVertexMap(1, "g2"), true)

	v, _ := clone.GetVertex("a")
	if v.Attrs["age"] != int64(1) {
		t.Fatalf("expected identical clone to preserve attrs, got %v", v.Attrs)
	}
	if clone.EdgeCount() != 1 {
		t.Fatalf("expected identical clone to preserve edges, got %d", clone.EdgeCount())
	}
}
