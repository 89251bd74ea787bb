/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package graphutil

import (
	"context"

	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/store"
)

/*
ToDynamicFragment converts a columnar (ARROW_PROPERTY) source into a
DYNAMIC_PROPERTY fragment: rebuild the vertex map, then copy every
vertex (inner and mirror, keeping its flag) with its property values
one by one, and every edge label's edges without attributes
(spec.md §4.4). A duplicate edge between the same source-destination
pair carried under two different edge labels is a hard IllegalState —
the dynamic representation has one flat edge namespace and cannot
disambiguate them after conversion.
*/
func (u *Utility) ToDynamicFragment(ctx context.Context, c comm.Communicator, src fragment.Wrapper, dstName string) (fragment.Wrapper, error) {
	labeled, ok := src.(*fragment.LabeledPropertyFragmentWrapper)
	if !ok {
		return nil, errs.Newf(errs.InvalidOperation, "ToDynamicFragment requires an ARROW_PROPERTY source")
	}
	cf := labeled.Fragment().(*fragment.ColumnFragment)

	newVM := cf.VertexMap.Clone(dstName)
	dst := fragment.NewDynamicFragment(cf.Fid, cf.Fnum, cf.Directed, newVM)

	for _, label := range cf.VertexLabels() {
		table, _ := cf.Table(label)
		for i, oid := range table.OIDs {
			attrs := map[string]interface{}{}
			for _, col := range table.Columns {
				attrs[col.Name] = col.At(i)
			}
			dst.UpsertVertex(oid, label, table.Inner[i], attrs)
		}
	}

	seenPairs := map[[2]fragment.VertexID]string{}
	for _, label := range cf.EdgeLabels() {
		for _, e := range cf.Edges(label) {
			key := [2]fragment.VertexID{e.From, e.To}
			if prevLabel, ok := seenPairs[key]; ok && prevLabel != label {
				return nil, errs.Newf(errs.IllegalState, "parallel edge %s->%s under labels %q and %q cannot be flattened into a dynamic fragment", e.From, e.To, prevLabel, label)
			}
			seenPairs[key] = label
			if err := dst.AddEdge(e.From, e.To, label, nil); err != nil {
				return nil, err
			}
		}
	}

	def := labeled.GraphDef()
	def.Key = dstName
	def.GraphType = fragment.DynamicProperty

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}

	return fragment.NewDynamicPropertyFragmentWrapper(def, dst), nil
}

/*
ToArrowFragment converts a mutable (DYNAMIC_PROPERTY) source into a
columnar ARROW_PROPERTY fragment: walk every inner vertex, grouping by
label into property tables, dispatching each attribute value onto one
of the eight supported primitive column types (any other type is a
DataType error, spec.md §4.4).
*/
func (u *Utility) ToArrowFragment(ctx context.Context, sc store.Client, c comm.Communicator, src fragment.Wrapper, dstName string) (fragment.Wrapper, error) {
	dyn, ok := src.(*fragment.DynamicPropertyFragmentWrapper)
	if !ok {
		return nil, errs.Newf(errs.InvalidOperation, "ToArrowFragment requires a DYNAMIC_PROPERTY source")
	}
	df := dyn.Fragment().(*fragment.DynamicFragment)

	newVM := df.VertexMap.Clone(dstName)

	vertexRecords := map[string][]VertexRecord{}
	labelOrder := []string{}
	for _, label := range df.VertexLabels() {
		it := df.InnerVertexIterator(label)
		for it.HasNext() {
			oid := it.Next()
			v, _ := df.GetVertex(oid)
			for name, val := range v.Attrs {
				if _, err := dispatchType(val); err != nil {
					return nil, errs.Newf(errs.DataType, "property %q on vertex %q: %v", name, oid, err)
				}
			}
			vertexRecords[label] = append(vertexRecords[label], VertexRecord{OID: oid, Label: label, Properties: v.Attrs})
		}
		if len(vertexRecords[label]) > 0 {
			labelOrder = append(labelOrder, label)
		}
	}

	tables := make([]*fragment.PropertyTable, 0, len(labelOrder))
	for _, label := range labelOrder {
		records := vertexRecords[label]
		inner := make([]bool, len(records))
		for i := range inner {
			inner[i] = true
		}
		table, err := buildPropertyTable(label, records, inner)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}

	edgesByLabel := map[string][]fragment.ColumnEdge{}
	for _, label := range df.VertexLabels() {
		it := df.InnerVertexIterator(label)
		for it.HasNext() {
			oid := it.Next()
			for _, e := range df.OutEdges(oid) {
				edgesByLabel[e.Label] = append(edgesByLabel[e.Label], fragment.ColumnEdge{From: e.From, To: e.To, Label: e.Label})
			}
		}
	}

	newFrag := fragment.NewColumnFragment(df.Fid, df.Fnum, df.Directed, newVM, tables, edgesByLabel)

	def := dyn.GraphDef()
	def.Key = dstName
	def.GraphType = fragment.ArrowProperty

	shardID, groupID, err := fragment.PersistShard(ctx, c, sc, dstName, newFrag)
	if err != nil {
		return nil, err
	}
	def.ShardID = shardID
	def.VineyardID = groupID
	def.HasVineyard = true

	return fragment.NewLabeledPropertyFragmentWrapper(def, newFrag), nil
}
