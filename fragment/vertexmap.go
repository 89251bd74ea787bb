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
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/krotik/grape/errs"
)

/*
VertexID is a fragment-local original vertex id (OID), as supplied by
the loader or by MODIFY_VERTICES/MODIFY_EDGES.
*/
type VertexID string

/*
GID is a global numeric vertex id, unique across every fragment of one
graph. The low bits encode the owning fragment id and the high bits the
local offset, mirroring how
GraphScope's own GID packs fid and local offset into one integer.
*/
type GID uint64

/*
gidFidBits is the number of low-order bits of a GID reserved for the
owning fragment id, leaving the high bits for the local per-fragment
offset. 16 bits supports up to 65536 fragments, far beyond any realistic
cluster size for this engine.
*/
const gidFidBits = 16
const gidFidMask = (uint64(1) << gidFidBits) - 1

/*
MakeGID packs a fragment id and a local offset into one GID.
*/
func MakeGID(fid uint64, offset uint64) GID {
	return GID((offset << gidFidBits) | (fid & gidFidMask))
}

/*
Fid extracts the owning fragment id from a GID.
*/
func (g GID) Fid() uint64 {
	return uint64(g) & gidFidMask
}

/*
Offset extracts the local per-fragment offset from a GID.
*/
func (g GID) Offset() uint64 {
	return uint64(g) >> gidFidBits
}

/*
VertexMap translates between OIDs and GIDs. The encode/decode scheme is
adapted from graph/util.NamesManager (Encode32/Decode32): a counter per
key domain, with a paired forward/backward index.

A VertexMap is shared by construction across all fragments of one graph
(it is built once, in the same order, by every worker during a
collective LoadGraph/CopyGraph/Project). ID and OIDArrayID give it an
identity so that AddColumn's precondition ("the context's per-fragment
vertex-map object ids match this fragment's") can be checked cheaply by
comparing identity tokens instead of deep-comparing the maps.
*/
type VertexMap struct {
	mu sync.RWMutex

	fnum int

	// ID identifies this vertex map's shared o2g table. Two vertex maps
	// with equal ID are considered the same map for AddColumn purposes.
	ID string

	// OIDArrayID identifies, per fragment id, the array of OIDs owned by
	// that fragment (the "oid-arrays member" spec.md's AddColumn
	// precondition refers to).
	OIDArrayID map[uint64]string

	o2g map[VertexID]GID
	g2o map[GID]VertexID

	nextOffset map[uint64]uint64 // per-fid next local offset
}

/*
NewVertexMap creates an empty vertex map for a graph with fnum
fragments, stamped with a fresh identity.
*/
func NewVertexMap(fnum int, identity string) *VertexMap {
	oidArrayID := make(map[uint64]string, fnum)
	nextOffset := make(map[uint64]uint64, fnum)
	for fid := 0; fid < fnum; fid++ {
		oidArrayID[uint64(fid)] = fmt.Sprintf("%s/oids/%d", identity, fid)
		nextOffset[uint64(fid)] = 0
	}

	return &VertexMap{
		fnum:       fnum,
		ID:         identity,
		OIDArrayID: oidArrayID,
		o2g:        make(map[VertexID]GID),
		g2o:        make(map[GID]VertexID),
		nextOffset: nextOffset,
	}
}

/*
Fnum returns the fragment count this vertex map was built for.
*/
func (m *VertexMap) Fnum() int {
	return m.fnum
}

/*
AddVertex registers oid as owned by fragment fid, allocating a new GID
if oid is not already known. Returns the (possibly pre-existing) GID.
*/
func (m *VertexMap) AddVertex(fid uint64, oid VertexID) GID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gid, ok := m.o2g[oid]; ok {
		return gid
	}

	offset := m.nextOffset[fid]
	m.nextOffset[fid] = offset + 1

	gid := MakeGID(fid, offset)
	m.o2g[oid] = gid
	m.g2o[gid] = oid

	return gid
}

/*
GetGID looks up the GID for oid.
*/
func (m *VertexMap) GetGID(oid VertexID) (GID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gid, ok := m.o2g[oid]
	return gid, ok
}

/*
GetOID looks up the OID for gid.
*/
func (m *VertexMap) GetOID(gid GID) (VertexID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	oid, ok := m.g2o[gid]
	return oid, ok
}

/*
Clone deep-copies this vertex map under a new identity, in one pass over
the whole table. Used by CopyGraph.
*/
func (m *VertexMap) Clone(newIdentity string) *VertexMap {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clone := NewVertexMap(m.fnum, newIdentity)
	for oid, gid := range m.o2g {
		clone.o2g[oid] = gid
		clone.g2o[gid] = oid
	}
	for fid, offset := range m.nextOffset {
		clone.nextOffset[fid] = offset
	}

	return clone
}

/*
SameIdentity reports whether this vertex map and other are, by
AddColumn's precondition, "the same" vertex map for a given fragment id:
both the shared o2g table identity and that fragment's oid-array
identity must match.
*/
func (m *VertexMap) SameIdentity(other *VertexMap, fid uint64) bool {
	if m == nil || other == nil {
		return false
	}
	if m.ID != other.ID {
		return false
	}
	return m.OIDArrayID[fid] == other.OIDArrayID[fid]
}

/*
encodeGID is a small helper used when a GID needs to travel as raw bytes
(e.g. inside a serialized archive column), mirroring
graph/util.NamesManager's little-endian encode/decode idiom.
*/
func encodeGID(g GID) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(g))
	return b
}

func decodeGID(b []byte) (GID, error) {
	if len(b) != 8 {
		return 0, errs.Newf(errs.DataType, "expected 8-byte GID encoding, got %d bytes", len(b))
	}
	return GID(binary.LittleEndian.Uint64(b)), nil
}
