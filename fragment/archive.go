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
	"encoding/binary"

	"github.com/krotik/grape/errs"
)

/*
TypeCode maps a PropertyType to its wire type code (SPEC_FULL.md archive
wire format).
*/
func TypeCode(t PropertyType) (int32, error) {
	switch t {
	case PropInt32:
		return 0, nil
	case PropInt64:
		return 1, nil
	case PropUint32:
		return 2, nil
	case PropUint64:
		return 3, nil
	case PropFloat32:
		return 4, nil
	case PropFloat64:
		return 5, nil
	case PropString:
		return 6, nil
	case PropLargeUTF8:
		return 7, nil
	}
	return 0, errs.Newf(errs.DataType, "unsupported property type %q", t)
}

/*
WriteNdArrayHeader writes the `[type_code:i32][total_count:i64]` header
a worker-0 shard prepends to an NdArray archive (spec.md §6).
*/
func WriteNdArrayHeader(buf *bytes.Buffer, typeCode int32, totalCount int64) {
	binary.Write(buf, binary.LittleEndian, typeCode)
	binary.Write(buf, binary.LittleEndian, totalCount)
}

/*
WriteDataframeHeader writes the `[num_columns:i64][total_count:i64]`
header a worker-0 shard prepends to a Dataframe archive.
*/
func WriteDataframeHeader(buf *bytes.Buffer, numColumns int64, totalCount int64) {
	binary.Write(buf, binary.LittleEndian, numColumns)
	binary.Write(buf, binary.LittleEndian, totalCount)
}

/*
WritePayload appends col's raw values, with no name or type-code framing
(used for NdArray shards, whose type code lives in the archive header
rather than per-block).
*/
func WritePayload(buf *bytes.Buffer, col Column) error {
	switch d := col.Data.(type) {
	case []int32:
		binary.Write(buf, binary.LittleEndian, d)
	case []int64:
		binary.Write(buf, binary.LittleEndian, d)
	case []uint32:
		binary.Write(buf, binary.LittleEndian, d)
	case []uint64:
		binary.Write(buf, binary.LittleEndian, d)
	case []float32:
		binary.Write(buf, binary.LittleEndian, d)
	case []float64:
		binary.Write(buf, binary.LittleEndian, d)
	case []string:
		for _, s := range d {
			sb := []byte(s)
			binary.Write(buf, binary.LittleEndian, int64(len(sb)))
			buf.Write(sb)
		}
	default:
		return errs.Newf(errs.DataType, "unsupported column payload type")
	}
	return nil
}

/*
WriteColumnBlock appends one `[col_name:len-prefixed-string][type_code:i32][payload...]`
Dataframe column block (spec.md §6).
*/
func WriteColumnBlock(buf *bytes.Buffer, name string, col Column) error {
	code, err := TypeCode(col.Type)
	if err != nil {
		return err
	}

	nameBytes := []byte(name)
	binary.Write(buf, binary.LittleEndian, int64(len(nameBytes)))
	buf.Write(nameBytes)

	binary.Write(buf, binary.LittleEndian, code)

	return WritePayload(buf, col)
}
