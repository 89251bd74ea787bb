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
	"hash/fnv"
	"sort"
	"sync"

	"github.com/krotik/grape/errs"
)

/*
DynamicVertex is one vertex of a dynamic-property (mutable, heterogeneous
attribute) fragment.
*/
type DynamicVertex struct {
	OID   VertexID
	Label string
	Inner bool // owned by this fragment, vs. a mirror of a remote fragment's vertex
	Attrs map[string]interface{}
}

/*
DynamicEdge is one directed edge of a dynamic fragment.
*/
type DynamicEdge struct {
	From, To VertexID
	Label    string
	Attrs    map[string]interface{}
}

/*
DynamicFragment is the mutable, heterogeneous-attribute representation
of one worker's shard.

Its CRUD shape is adapted from the teacher's graph.Manager
(graphmanager_nodes.go/graphmanager_edges.go): a coarse per-fragment
RWMutex guarding two maps (vertices by id, out-edges by source id), with
the transaction/rule/full-text-index machinery the teacher layers on top
of that (trans.go, rules.go, util/indexmanager.go) dropped — this
fragment answers to a single-threaded-per-worker dispatcher (spec.md
§5), so there is no concurrent-writer contention to arbitrate and no
interactive query surface to index for (spec.md §1 excludes the
interactive query frontend).
*/
type DynamicFragment struct {
	Shard

	mu       sync.RWMutex
	vertices map[VertexID]*DynamicVertex
	outEdges map[VertexID][]*DynamicEdge
	byLabel  map[string][]VertexID // insertion-ordered per label, inner+mirror
}

/*
NewDynamicFragment creates an empty dynamic fragment for the given
fragment id / count.
*/
func NewDynamicFragment(fid, fnum uint64, directed bool, vm *VertexMap) *DynamicFragment {
	return &DynamicFragment{
		Shard: Shard{
			Fid:           fid,
			Fnum:          fnum,
			Directed:      directed,
			VertexMap:     vm,
			MirrorsByFrag: make(map[uint64][]VertexID),
		},
		vertices: make(map[VertexID]*DynamicVertex),
		outEdges: make(map[VertexID][]*DynamicEdge),
		byLabel:  make(map[string][]VertexID),
	}
}

/*
OwnerFid computes which fragment id owns oid, under fnum-way hash
partitioning (the convention loaders use when no explicit placement is
given).
*/
func OwnerFid(oid VertexID, fnum uint64) uint64 {
	if fnum == 0 {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(oid))
	return h.Sum64() % fnum
}

/*
UpsertVertex adds or updates a vertex. If it did not previously exist on
this fragment (as inner or mirror), it is appended to that label's
iteration order.
*/
func (f *DynamicFragment) UpsertVertex(oid VertexID, label string, inner bool, attrs map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v, ok := f.vertices[oid]; ok {
		v.Attrs = attrs
		v.Inner = v.Inner || inner
		return
	}

	f.vertices[oid] = &DynamicVertex{OID: oid, Label: label, Inner: inner, Attrs: attrs}
	f.byLabel[label] = append(f.byLabel[label], oid)

	if !inner {
		owner := OwnerFid(oid, f.Fnum)
		f.MirrorsByFrag[owner] = append(f.MirrorsByFrag[owner], oid)
	}
}

/*
GetVertex fetches a vertex by id.
*/
func (f *DynamicFragment) GetVertex(oid VertexID) (*DynamicVertex, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.vertices[oid]
	return v, ok
}

/*
RemoveVertex removes a vertex and its outgoing edges. Fails with
NotFound if oid is unknown.
*/
func (f *DynamicFragment) RemoveVertex(oid VertexID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.vertices[oid]
	if !ok {
		return errs.Newf(errs.NotFound, "vertex %q not found", oid)
	}

	delete(f.vertices, oid)
	delete(f.outEdges, oid)

	oids := f.byLabel[v.Label]
	for i, o := range oids {
		if o == oid {
			f.byLabel[v.Label] = append(oids[:i], oids[i+1:]...)
			break
		}
	}

	return nil
}

/*
AddEdge appends a directed edge. Both endpoints must already exist as
vertices on this fragment (inner or mirror) — a loader creates mirror
vertices for remote endpoints before calling AddEdge.
*/
func (f *DynamicFragment) AddEdge(from, to VertexID, label string, attrs map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.vertices[from]; !ok {
		return errs.Newf(errs.InvalidValue, "edge source %q is not a known vertex", from)
	}
	if _, ok := f.vertices[to]; !ok {
		return errs.Newf(errs.InvalidValue, "edge target %q is not a known vertex", to)
	}

	f.outEdges[from] = append(f.outEdges[from], &DynamicEdge{From: from, To: to, Label: label, Attrs: attrs})

	if !f.Directed {
		f.outEdges[to] = append(f.outEdges[to], &DynamicEdge{From: to, To: from, Label: label, Attrs: attrs})
	}

	return nil
}

/*
OutEdges returns oid's outgoing edges.
*/
func (f *DynamicFragment) OutEdges(oid VertexID) []*DynamicEdge {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return append([]*DynamicEdge(nil), f.outEdges[oid]...)
}

/*
VertexLabels returns all vertex labels present on this fragment, sorted
for deterministic iteration.
*/
func (f *DynamicFragment) VertexLabels() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	labels := make([]string, 0, len(f.byLabel))
	for l := range f.byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

/*
InnerVertexIterator iterates label's inner (owned) vertex OIDs in
insertion order, mirroring graph.Manager.NodeKeyIterator's contract.
*/
func (f *DynamicFragment) InnerVertexIterator(label string) *InnerVertexIterator {
	f.mu.RLock()
	defer f.mu.RUnlock()

	oids := make([]VertexID, 0, len(f.byLabel[label]))
	for _, oid := range f.byLabel[label] {
		if f.vertices[oid].Inner {
			oids = append(oids, oid)
		}
	}
	return NewInnerVertexIterator(oids)
}

/*
InnerVertexCount counts label's inner (owned) vertices.
*/
func (f *DynamicFragment) InnerVertexCount(label string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := 0
	for _, oid := range f.byLabel[label] {
		if f.vertices[oid].Inner {
			n++
		}
	}
	return n
}

/*
EdgeCount counts every edge stored on this fragment whose source is an
inner vertex (so summing across fragments gives the true global edge
count without double counting). On an undirected fragment the mirrored
copy of an edge between two inner vertices is not counted a second time.
*/
func (f *DynamicFragment) EdgeCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := 0
	for oid, edges := range f.outEdges {
		if v, ok := f.vertices[oid]; !ok || !v.Inner {
			continue
		}
		for _, e := range edges {
			if !f.Directed && e.From > e.To {
				if to, ok := f.vertices[e.To]; ok && to.Inner {
					continue // undirected mirror copy; counted under e.To
				}
			}
			n++
		}
	}
	return n
}

/*
ClearEdges drops every edge on this fragment while leaving vertices and
labels untouched.
*/
func (f *DynamicFragment) ClearEdges() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.outEdges = make(map[VertexID][]*DynamicEdge)
}

/*
ClearAll drops every vertex and edge on this fragment, leaving it in the
same state NewDynamicFragment would, but keeping the same VertexMap
identity (CLEAR_GRAPH resets a graph's data without unloading it).
*/
func (f *DynamicFragment) ClearAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.vertices = make(map[VertexID]*DynamicVertex)
	f.outEdges = make(map[VertexID][]*DynamicEdge)
	f.byLabel = make(map[string][]VertexID)
	f.MirrorsByFrag = make(map[uint64][]VertexID)
}

/*
RemoveEdge removes the first from->to edge labeled label (and, on an
undirected fragment, its mirrored to->from copy). Fails with NotFound if
no such edge exists.
*/
func (f *DynamicFragment) RemoveEdge(from, to VertexID, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := false
	if edges, ok := f.outEdges[from]; ok {
		filtered := edges[:0]
		for _, e := range edges {
			if !removed && e.To == to && e.Label == label {
				removed = true
				continue
			}
			filtered = append(filtered, e)
		}
		f.outEdges[from] = filtered
	}

	if !removed {
		return errs.Newf(errs.NotFound, "edge %q->%q (%s) not found", from, to, label)
	}

	if !f.Directed {
		if edges, ok := f.outEdges[to]; ok {
			filtered := edges[:0]
			mirrored := false
			for _, e := range edges {
				if !mirrored && e.To == from && e.Label == label {
					mirrored = true
					continue
				}
				filtered = append(filtered, e)
			}
			f.outEdges[to] = filtered
		}
	}

	return nil
}

/*
Clone deep-copies this fragment's payload, for CopyGraph's identical
copy mode. copyData controls whether attributes and edges are carried
over (CopyReset drops both, keeping only the vertices and their labels).
*/
func (f *DynamicFragment) Clone(vm *VertexMap, copyData bool) *DynamicFragment {
	f.mu.RLock()
	defer f.mu.RUnlock()

	clone := NewDynamicFragment(f.Fid, f.Fnum, f.Directed, vm)

	for _, oid := range concatAll(f.byLabel) {
		v := f.vertices[oid]
		var attrs map[string]interface{}
		if copyData {
			attrs = cloneAttrs(v.Attrs)
		}
		clone.UpsertVertex(oid, v.Label, v.Inner, attrs)
	}

	if copyData {
		for _, edges := range f.outEdges {
			for _, e := range edges {
				if !f.Directed && e.From > e.To {
					continue // undirected mirror copy; AddEdge regenerates it
				}
				clone.AddEdge(e.From, e.To, e.Label, cloneAttrs(e.Attrs))
			}
		}
	}

	return clone
}

func concatAll(byLabel map[string][]VertexID) []VertexID {
	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	var all []VertexID
	for _, l := range labels {
		all = append(all, byLabel[l]...)
	}
	return all
}

func cloneAttrs(attrs map[string]interface{}) map[string]interface{} {
	if attrs == nil {
		return nil
	}
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
