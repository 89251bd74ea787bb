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
	"bytes"
	"context"
	"encoding/binary"

	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/fragment"
)

/*
bytesBuffer is a tiny indirection so the ToNdArray/ToDataframe methods
in context.go can pass `buf.b` (a *bytes.Buffer) to the fragment package's
Write* helpers while keeping a value receiver locally.
*/
type bytesBuffer struct {
	b *bytes.Buffer
}

func (bb *bytesBuffer) bytes() []byte {
	if bb.b == nil {
		return nil
	}
	return bb.b.Bytes()
}

func newBuf() bytesBuffer { return bytesBuffer{b: &bytes.Buffer{}} }

/*
windowColumn restricts col to the rows whose oids fall within rng,
preserving row order. An unbounded range returns col unchanged.
*/
func windowColumn(col fragment.Column, oids []fragment.VertexID, rng fragment.VertexRange) fragment.Column {
	if rng.Unbounded || oids == nil {
		return col
	}
	out := fragment.Column{Name: col.Name, Type: col.Type}
	rows := []int{}
	for i := range oids {
		if uint64(i) >= rng.Start && uint64(i) < rng.End {
			rows = append(rows, i)
		}
	}
	out.Data = sliceRows(col, rows)
	return out
}

func sliceRows(col fragment.Column, rows []int) interface{} {
	switch d := col.Data.(type) {
	case []int32:
		out := make([]int32, len(rows))
		for i, r := range rows {
			out[i] = d[r]
		}
		return out
	case []int64:
		out := make([]int64, len(rows))
		for i, r := range rows {
			out[i] = d[r]
		}
		return out
	case []uint32:
		out := make([]uint32, len(rows))
		for i, r := range rows {
			out[i] = d[r]
		}
		return out
	case []uint64:
		out := make([]uint64, len(rows))
		for i, r := range rows {
			out[i] = d[r]
		}
		return out
	case []float32:
		out := make([]float32, len(rows))
		for i, r := range rows {
			out[i] = d[r]
		}
		return out
	case []float64:
		out := make([]float64, len(rows))
		for i, r := range rows {
			out[i] = d[r]
		}
		return out
	case []string:
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = d[r]
		}
		return out
	}
	return col.Data
}

func rowCountOf(cols []fragment.Column) int {
	if len(cols) == 0 {
		return 0
	}
	return cols[0].Len()
}

/*
gatherRowCount sums every worker's local row count via one Gather
round, so a header written once at rank 0 reflects the whole context,
not just its own shard (mirrors fragment.gatherCount for the fragment
Wrapper's own archive assembly).
*/
func gatherRowCount(ctx context.Context, c comm.Communicator, local int64) (int64, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(local))

	shards, err := c.Gather(ctx, 0, buf)
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
gatherAndConcat gathers every worker's local byte shard at rank 0 and
concatenates them in ascending rank order (comm.Communicator's gather
guarantee), returning the assembled buffer on rank 0 and nil elsewhere.
*/
func gatherAndConcat(ctx context.Context, c comm.Communicator, local []byte) ([]byte, error) {
	shards, err := c.Gather(ctx, 0, local)
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
