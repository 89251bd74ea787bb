/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package fragment implements the per-worker shard of a partitioned graph
and the polymorphic wrapper hierarchy over it (spec.md §3, §4.3).

The dynamic mutable representation's CRUD shape (per-label attribute
storage keyed by vertex id, RWMutex-guarded access, an iterator over a
single label's keys) is adapted from the teacher's graph.Manager
(graphmanager_nodes.go, iterator.go); the columnar representation and
the OID<->GID vertex map's encode/decode idiom are adapted from
graph/util/namesmanager.go, generalized from name<->code translation to
oid<->gid translation.
*/
package fragment

import (
	"reflect"

	"github.com/krotik/grape/store"
)

/*
GraphType identifies the concrete representation backing a Wrapper.
*/
type GraphType string

/*
Known graph types.
*/
const (
	ArrowProperty    GraphType = "ARROW_PROPERTY"
	ArrowProjected   GraphType = "ARROW_PROJECTED"
	DynamicProperty  GraphType = "DYNAMIC_PROPERTY"
	DynamicProjected GraphType = "DYNAMIC_PROJECTED"
)

/*
CopyType controls whether CopyGraph preserves data.
*/
type CopyType string

/*
Known copy types.
*/
const (
	CopyIdentical CopyType = "identical"
	CopyReset     CopyType = "reset"
)

/*
ViewType identifies the kind of read-only view CreateGraphView builds.
*/
type ViewType string

/*
Known view types.
*/
const (
	ViewReversed         ViewType = "reversed"
	ViewSubgraphByFilter ViewType = "subgraph_by_filter"
)

/*
VertexFilter is subgraph_by_filter's keep predicate: a vertex survives
the view when its label matches Label (if set) and, when Property is
also set, attrs[Property] equals Equals. A zero-value VertexFilter
matches everything, which is what every other view type passes.
*/
type VertexFilter struct {
	Label    string
	Property string
	Equals   interface{}
}

/*
Matches reports whether a vertex with the given label and attributes
survives f.
*/
func (f VertexFilter) Matches(label string, attrs map[string]interface{}) bool {
	if f.Label != "" && f.Label != label {
		return false
	}
	if f.Property != "" {
		v, ok := attrs[f.Property]
		if !ok || !reflect.DeepEqual(v, f.Equals) {
			return false
		}
	}
	return true
}

/*
PropertyType is one of the eight primitive column types a columnar
fragment's properties may hold (SPEC_FULL.md Graph Utilities domain
stack).
*/
type PropertyType string

/*
Known property types.
*/
const (
	PropInt32     PropertyType = "i32"
	PropInt64     PropertyType = "i64"
	PropUint32    PropertyType = "u32"
	PropUint64    PropertyType = "u64"
	PropFloat32   PropertyType = "f32"
	PropFloat64   PropertyType = "f64"
	PropString    PropertyType = "utf8"
	PropLargeUTF8 PropertyType = "large_utf8"
)

/*
SchemaDef is the per-graph type/schema metadata carried on a GraphDef.
*/
type SchemaDef struct {
	OIDType          string
	VIDType          string
	VDataType        string
	EDataType        string
	PropertySchemaJSON string
}

/*
GraphDef is the serializable metadata record for a materialized graph.
*/
type GraphDef struct {
	Key         string
	GraphType   GraphType
	Directed    bool
	VineyardID  store.ObjectID
	HasVineyard bool
	// ShardID is this worker's own local shard object, distinct from the
	// cluster-wide VineyardID fragment-group aggregate. Only set when
	// HasVineyard is true. handleUnloadGraph deletes it before the
	// fragment-group id is torn down.
	ShardID     store.ObjectID
	Schema      SchemaDef
	SchemaPath  string
	GenerateEID bool
}

/*
VineyardIDOrDefault returns the wire encoding of VineyardID: -1 when the
graph is not backed by the object store (spec.md §3, §6).
*/
func (d GraphDef) VineyardIDOrDefault() int64 {
	if !d.HasVineyard {
		return -1
	}
	return int64(d.VineyardID)
}
