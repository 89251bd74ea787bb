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
Package graphutil implements per-type-signature loaders, converters, and
projectors over the fragment package's two representations (spec.md
§4.4). A Utility is looked up (and lazily built) by its type-signature
string and cached for reuse across commands, mirroring how the original
system caches one template instantiation per (OID, VID, VDATA, EDATA)
tuple; here that "template instantiation" is just a Utility value
closed over the property-type dispatch table.

Grounded on graph/graphmanager_nodes.go's node-insertion traversal shape
(iterate then dispatch on stored value kind), generalized from EliasDB's
untyped `interface{}` attribute store to the eight-primitive property
dispatch this engine's columnar representation requires.
*/
package graphutil

import (
	"context"
	"sync"

	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/store"
)

/*
VertexRecord is one loader-supplied vertex: its OID, label, and
properties as parsed values (already dispatched to a Go primitive type
matching one of the eight supported property kinds).
*/
type VertexRecord struct {
	OID        fragment.VertexID
	Label      string
	Properties map[string]interface{}
}

/*
EdgeRecord is one loader-supplied directed edge.
*/
type EdgeRecord struct {
	From, To   fragment.VertexID
	Label      string
	Properties map[string]interface{}
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Utility{}
)

/*
ForSignature returns the cached Utility for sig, creating and caching
one if this is the first time sig has been requested.
*/
func ForSignature(sig string) *Utility {
	registryMu.Lock()
	defer registryMu.Unlock()

	if u, ok := registry[sig]; ok {
		return u
	}
	u := &Utility{Signature: sig}
	registry[sig] = u
	return u
}

/*
Utility is a type-signature singleton (spec.md §4.4). The signature
itself is opaque here — the property-type dispatch below inspects each
value's own Go type rather than parsing the signature string, since
Go's structural typing does not need the signature to select a
monomorphized instantiation the way a C++ template would.
*/
type Utility struct {
	Signature string
}

/*
LoadGraph builds a new ARROW_PROPERTY fragment from loader-supplied
vertex/edge records, hash-partitioning ownership across fnum fragments
the way a real loader assigns fragment ids when none is given.
Inner/mirror status is derived from OwnerFid; this worker keeps every
record whose owner is its own fid as inner, and every other referenced
record as a mirror (needed so edges can resolve their endpoints).
*/
func (u *Utility) LoadGraph(ctx context.Context, c comm.Communicator, sc store.Client, graphName string, directed bool, vertices []VertexRecord, edges []EdgeRecord) (fragment.Wrapper, error) {
	fid := uint64(c.Rank())
	fnum := uint64(c.Size())

	vm := fragment.NewVertexMap(int(fnum), graphName)

	byLabel := map[string]*fragment.PropertyTable{}
	labelOrder := []string{}
	rowsByLabel := map[string][]VertexRecord{}
	innerByLabel := map[string][]bool{}

	referenced := map[fragment.VertexID]bool{}
	for _, e := range edges {
		referenced[e.From] = true
		referenced[e.To] = true
	}

	for _, v := range vertices {
		owner := fragment.OwnerFid(v.OID, fnum)
		inner := owner == fid
		if !inner && !referenced[v.OID] {
			continue // not owned here and not needed as a mirror endpoint
		}
		vm.AddVertex(owner, v.OID)

		if _, ok := byLabel[v.Label]; !ok {
			byLabel[v.Label] = &fragment.PropertyTable{Label: v.Label}
			labelOrder = append(labelOrder, v.Label)
		}
		rowsByLabel[v.Label] = append(rowsByLabel[v.Label], v)
		innerByLabel[v.Label] = append(innerByLabel[v.Label], inner)
	}

	tables := make([]*fragment.PropertyTable, 0, len(labelOrder))
	for _, label := range labelOrder {
		table, err := buildPropertyTable(label, rowsByLabel[label], innerByLabel[label])
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	_ = byLabel

	edgesByLabel := map[string][]fragment.ColumnEdge{}
	for _, e := range edges {
		if !referenced[e.From] && !referenced[e.To] {
			continue
		}
		edgesByLabel[e.Label] = append(edgesByLabel[e.Label], fragment.ColumnEdge{From: e.From, To: e.To, Label: e.Label})
	}

	frag := fragment.NewColumnFragment(fid, fnum, directed, vm, tables, edgesByLabel)

	def := fragment.GraphDef{
		Key:       graphName,
		GraphType: fragment.ArrowProperty,
		Directed:  directed,
	}

	shardID, groupID, err := fragment.PersistShard(ctx, c, sc, graphName, frag)
	if err != nil {
		return nil, err
	}
	def.ShardID = shardID
	def.VineyardID = groupID
	def.HasVineyard = true

	return fragment.NewLabeledPropertyFragmentWrapper(def, frag), nil
}

/*
buildPropertyTable assembles one label's property table, dispatching
every record's property values onto one of the eight supported
primitive column types. Duplicate property keys within a single vertex
cannot occur here (records carry a map), but a property present on some
records and absent on others is padded with each column's zero value so
every column stays as long as OIDs.
*/
func buildPropertyTable(label string, records []VertexRecord, inner []bool) (*fragment.PropertyTable, error) {
	table := &fragment.PropertyTable{Label: label}

	propNames := []string{}
	seen := map[string]bool{}
	for _, r := range records {
		for k := range r.Properties {
			if !seen[k] {
				seen[k] = true
				propNames = append(propNames, k)
			}
		}
	}

	propTypes := map[string]fragment.PropertyType{}
	for _, name := range propNames {
		for _, r := range records {
			if v, ok := r.Properties[name]; ok {
				t, err := dispatchType(v)
				if err != nil {
					return nil, errs.Newf(errs.DataType, "property %q on label %q: %v", name, label, err)
				}
				propTypes[name] = t
				break
			}
		}
	}

	for i, r := range records {
		table.OIDs = append(table.OIDs, r.OID)
		table.Inner = append(table.Inner, inner[i])
	}

	for _, name := range propNames {
		col, err := buildColumn(name, propTypes[name], records)
		if err != nil {
			return nil, err
		}
		table.Columns = append(table.Columns, col)
	}

	return table, nil
}

/*
checkType fails with DataType unless v's dispatched kind matches want —
every branch below runs this before the type assertion it protects, so
a property that switches primitive kind across records is reported as a
DataType error instead of panicking.
*/
func checkType(name string, v interface{}, want fragment.PropertyType) error {
	got, err := dispatchType(v)
	if err != nil {
		return err
	}
	if got != want {
		return errs.Newf(errs.DataType, "property %q has mixed types (%s and %s)", name, want, got)
	}
	return nil
}

func buildColumn(name string, t fragment.PropertyType, records []VertexRecord) (fragment.Column, error) {
	switch t {
	case fragment.PropInt32:
		data := make([]int32, len(records))
		for i, r := range records {
			if v, ok := r.Properties[name]; ok {
				if err := checkType(name, v, t); err != nil {
					return fragment.Column{}, err
				}
				data[i] = v.(int32)
			}
		}
		return fragment.Column{Name: name, Type: t, Data: data}, nil
	case fragment.PropInt64:
		data := make([]int64, len(records))
		for i, r := range records {
			if v, ok := r.Properties[name]; ok {
				if err := checkType(name, v, t); err != nil {
					return fragment.Column{}, err
				}
				data[i] = v.(int64)
			}
		}
		return fragment.Column{Name: name, Type: t, Data: data}, nil
	case fragment.PropUint32:
		data := make([]uint32, len(records))
		for i, r := range records {
			if v, ok := r.Properties[name]; ok {
				if err := checkType(name, v, t); err != nil {
					return fragment.Column{}, err
				}
				data[i] = v.(uint32)
			}
		}
		return fragment.Column{Name: name, Type: t, Data: data}, nil
	case fragment.PropUint64:
		data := make([]uint64, len(records))
		for i, r := range records {
			if v, ok := r.Properties[name]; ok {
				if err := checkType(name, v, t); err != nil {
					return fragment.Column{}, err
				}
				data[i] = v.(uint64)
			}
		}
		return fragment.Column{Name: name, Type: t, Data: data}, nil
	case fragment.PropFloat32:
		data := make([]float32, len(records))
		for i, r := range records {
			if v, ok := r.Properties[name]; ok {
				if err := checkType(name, v, t); err != nil {
					return fragment.Column{}, err
				}
				data[i] = v.(float32)
			}
		}
		return fragment.Column{Name: name, Type: t, Data: data}, nil
	case fragment.PropFloat64:
		data := make([]float64, len(records))
		for i, r := range records {
			if v, ok := r.Properties[name]; ok {
				if err := checkType(name, v, t); err != nil {
					return fragment.Column{}, err
				}
				data[i] = v.(float64)
			}
		}
		return fragment.Column{Name: name, Type: t, Data: data}, nil
	default: // PropString, PropLargeUTF8
		data := make([]string, len(records))
		for i, r := range records {
			if v, ok := r.Properties[name]; ok {
				if err := checkType(name, v, fragment.PropString); err != nil {
					return fragment.Column{}, err
				}
				data[i] = v.(string)
			}
		}
		return fragment.Column{Name: name, Type: t, Data: data}, nil
	}
}

/*
dispatchType maps a Go value onto one of the eight supported property
kinds. Anything else is a DataType error (spec.md §4.4).
*/
func dispatchType(v interface{}) (fragment.PropertyType, error) {
	switch v.(type) {
	case int32:
		return fragment.PropInt32, nil
	case int64:
		return fragment.PropInt64, nil
	case uint32:
		return fragment.PropUint32, nil
	case uint64:
		return fragment.PropUint64, nil
	case float32:
		return fragment.PropFloat32, nil
	case float64:
		return fragment.PropFloat64, nil
	case string:
		return fragment.PropString, nil
	}
	return "", errs.Newf(errs.DataType, "unsupported property value type %T", v)
}

/*
AddLabelsToGraph loads additional vertex/edge records into an existing
ARROW_PROPERTY graph, returning a new wrapper with the extra labels
appended alongside the existing ones.
*/
func (u *Utility) AddLabelsToGraph(ctx context.Context, c comm.Communicator, sc store.Client, src fragment.Wrapper, graphName string, vertices []VertexRecord, edges []EdgeRecord) (fragment.Wrapper, error) {
	labeled, ok := src.(*fragment.LabeledPropertyFragmentWrapper)
	if !ok {
		return nil, errs.Newf(errs.InvalidOperation, "AddLabelsToGraph requires an ARROW_PROPERTY source")
	}

	loaded, err := u.LoadGraph(ctx, c, sc, graphName, labeled.GraphDef().Directed, vertices, edges)
	if err != nil {
		return nil, err
	}
	newFrag := loaded.Fragment().(*fragment.ColumnFragment)
	srcFrag := labeled.Fragment().(*fragment.ColumnFragment)

	tables := []*fragment.PropertyTable{}
	for _, label := range srcFrag.VertexLabels() {
		t, _ := srcFrag.Table(label)
		tables = append(tables, t)
	}
	for _, label := range newFrag.VertexLabels() {
		t, _ := newFrag.Table(label)
		tables = append(tables, t)
	}

	edgesByLabel := map[string][]fragment.ColumnEdge{}
	for _, label := range srcFrag.EdgeLabels() {
		edgesByLabel[label] = srcFrag.Edges(label)
	}
	for _, label := range newFrag.EdgeLabels() {
		edgesByLabel[label] = append(edgesByLabel[label], newFrag.Edges(label)...)
	}

	merged := fragment.NewColumnFragment(srcFrag.Fid, srcFrag.Fnum, srcFrag.Directed, srcFrag.VertexMap, tables, edgesByLabel)

	def := labeled.GraphDef()
	def.Key = graphName

	shardID, groupID, err := fragment.PersistShard(ctx, c, sc, graphName, merged)
	if err != nil {
		return nil, err
	}
	def.ShardID = shardID
	def.VineyardID = groupID
	def.HasVineyard = true

	return fragment.NewLabeledPropertyFragmentWrapper(def, merged), nil
}
