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
	"sort"

	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/store"
)

/*
EncodeShardSummary builds the opaque blob a worker hands to the object
store for its own shard. The store is an external collaborator
(spec.md §1) that never inspects a shard's contents, so this only needs
to be enough to identify the shard: `[fid:u64][fnum:u64][directed:u8]`,
the number of labels as an i64, then each vertex label's name
(length-prefixed) and inner-vertex count, sorted by label so the
encoding is deterministic.
*/
func EncodeShardSummary(fid, fnum uint64, directed bool, labelCounts map[string]int) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.LittleEndian, fid)
	binary.Write(buf, binary.LittleEndian, fnum)
	var d byte
	if directed {
		d = 1
	}
	buf.WriteByte(d)

	labels := make([]string, 0, len(labelCounts))
	for l := range labelCounts {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	binary.Write(buf, binary.LittleEndian, int64(len(labels)))
	for _, label := range labels {
		nameBytes := []byte(label)
		binary.Write(buf, binary.LittleEndian, int64(len(nameBytes)))
		buf.Write(nameBytes)
		binary.Write(buf, binary.LittleEndian, int64(labelCounts[label]))
	}
	return buf.Bytes()
}

/*
ShardSummary encodes f's own persisted-shard blob.
*/
func (f *ColumnFragment) ShardSummary() []byte {
	labelCounts := make(map[string]int, len(f.tablesByLabel))
	for _, label := range f.VertexLabels() {
		labelCounts[label] = f.InnerVertexCount(label)
	}
	return EncodeShardSummary(f.Fid, f.Fnum, f.Directed, labelCounts)
}

/*
PersistShard stores f's own shard in sc, then aggregates every worker's
shard id into one fragment-group object (spec.md §3, §4.3, §4.4).

Every worker calls PersistFragment for its own shard, gathers all shard
ids at rank 0, has rank 0 call ConstructFragmentGroup, then broadcasts
the resulting group id back out. The Gather/Broadcast round already
provides the fence store.Client.ConstructFragmentGroup's contract
requires — no caller observes the new graph as ready before every
worker has the group id — so this replaces a plain c.Barrier rather
than following one.
*/
func PersistShard(ctx context.Context, c comm.Communicator, sc store.Client, graphName string, f *ColumnFragment) (shardID, groupID store.ObjectID, err error) {
	rank := c.Rank()

	id, err := sc.PersistFragment(ctx, graphName, rank, f.ShardSummary())
	if err != nil {
		return store.NoObject, store.NoObject, err
	}

	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, uint64(id))

	gathered, err := c.Gather(ctx, 0, idBytes)
	if err != nil {
		return store.NoObject, store.NoObject, err
	}

	var groupBytes []byte
	if rank == 0 {
		shardIDs := make([]store.ObjectID, len(gathered))
		for i, b := range gathered {
			if len(b) != 8 {
				return store.NoObject, store.NoObject, errs.Newf(errs.IllegalState, "malformed shard id from rank %d", i)
			}
			shardIDs[i] = store.ObjectID(binary.LittleEndian.Uint64(b))
		}

		group, err := sc.ConstructFragmentGroup(ctx, graphName, shardIDs)
		if err != nil {
			return store.NoObject, store.NoObject, err
		}

		groupBytes = make([]byte, 8)
		binary.LittleEndian.PutUint64(groupBytes, uint64(group))
	}

	groupBytes, err = c.Broadcast(ctx, 0, groupBytes)
	if err != nil {
		return store.NoObject, store.NoObject, err
	}
	if len(groupBytes) != 8 {
		return store.NoObject, store.NoObject, errs.Newf(errs.IllegalState, "malformed fragment-group id broadcast")
	}

	return id, store.ObjectID(binary.LittleEndian.Uint64(groupBytes)), nil
}
