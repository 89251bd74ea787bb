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

/*
Shard carries the fields every concrete fragment representation has in
common (spec.md §3 Fragment invariants): its fragment id, the total
fragment count, whether the graph is directed, its vertex map, and the
mirror-vertex grouping supplemented from original_source (§ SPEC_FULL.md
Data Model).
*/
type Shard struct {
	Fid       uint64
	Fnum      uint64
	Directed  bool
	VertexMap *VertexMap

	// MirrorsByFrag groups this fragment's mirror (non-owned) vertices by
	// the fragment id that owns them, so REPORT_GRAPH and traversal code
	// can answer "which vertices do I need from fragment X" without a
	// full scan (original_source/analytical_engine's OuterVertices).
	MirrorsByFrag map[uint64][]VertexID
}

/*
InnerVertexRange describes the contiguous local-offset range [Start,End)
that fragment Fid owns for one vertex label, satisfying the invariant
that "for each (fid, label), the inner-vertex block is contiguous"
(spec.md §3).
*/
type InnerVertexRange struct {
	Start uint64
	End   uint64
}

/*
InnerVertexIterator iterates the OIDs of one label's inner vertices for
one fragment, in ascending local-offset order. Adapted from the
teacher's graph.NodeKeyIterator, generalized from an on-disk HTree
iterator to an in-memory ordered slice (columnar and dynamic fragments
both keep inner vertices in local-offset order already, so no sort is
needed here).
*/
type InnerVertexIterator struct {
	oids []VertexID
	pos  int
}

/*
NewInnerVertexIterator creates an iterator over oids, which must already
be in ascending local-offset order.
*/
func NewInnerVertexIterator(oids []VertexID) *InnerVertexIterator {
	return &InnerVertexIterator{oids: oids}
}

/*
HasNext reports whether there are more vertices to iterate.
*/
func (it *InnerVertexIterator) HasNext() bool {
	return it.pos < len(it.oids)
}

/*
Next returns the next vertex OID, or "" if exhausted.
*/
func (it *InnerVertexIterator) Next() VertexID {
	if !it.HasNext() {
		return ""
	}
	v := it.oids[it.pos]
	it.pos++
	return v
}
