/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package dispatcher

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/graphutil"
	"github.com/krotik/grape/params"
)

/*
dynamicOf requires w to be backed by a mutable DynamicFragment (the
representation MODIFY_VERTICES/MODIFY_EDGES/INDUCE_SUBGRAPH/CLEAR_GRAPH/
CLEAR_EDGES/REPORT_GRAPH operate on); anything else is InvalidOperation,
matching the "columnar graph rejects mutation" boundary spec.md §8 lists
for the fragment Wrapper's own operations.
*/
func dynamicOf(w fragment.Wrapper) (*fragment.DynamicFragment, error) {
	df, ok := w.Fragment().(*fragment.DynamicFragment)
	if !ok {
		return nil, errs.Newf(errs.InvalidOperation, "%s does not support this operation", w.GraphDef().GraphType)
	}
	return df, nil
}

/*
parseVertexRecords decodes params key (a list of structs, each shaped
{oid, label, properties{...}}) into graphutil.VertexRecords, the wire
shape ADD_LABELS uses to describe the labels/properties it is adding.
*/
func parseVertexRecords(p *params.Accessor, key string) ([]graphutil.VertexRecord, error) {
	items, err := p.List(key)
	if err != nil {
		return nil, err
	}

	out := make([]graphutil.VertexRecord, 0, len(items))
	for i, item := range items {
		s, ok := item.Kind.(*structpb.Value_StructValue)
		if !ok {
			return nil, errs.Newf(errs.InvalidValue, "%s[%d] is not an object", key, i)
		}
		m := s.StructValue.AsMap()

		oid, _ := m["oid"].(string)
		if oid == "" {
			return nil, errs.Newf(errs.InvalidValue, "%s[%d] is missing an oid", key, i)
		}
		label, _ := m["label"].(string)

		props := map[string]interface{}{}
		if raw, ok := m["properties"].(map[string]interface{}); ok {
			props = raw
		}

		out = append(out, graphutil.VertexRecord{OID: fragment.VertexID(oid), Label: label, Properties: props})
	}
	return out, nil
}

/*
parseNodeSpecs decodes params key as a list whose entries are either
bare id strings (the shorthand MODIFY_VERTICES' end-to-end scenario
uses: `nodes: ["1", "2", "3"]`) or full {oid, label, properties{...}}
objects, matching item-by-item so the two shapes can even be mixed
within one list.
*/
func parseNodeSpecs(p *params.Accessor, key string) ([]graphutil.VertexRecord, error) {
	items, err := p.List(key)
	if err != nil {
		return nil, err
	}

	out := make([]graphutil.VertexRecord, 0, len(items))
	for i, item := range items {
		switch v := item.Kind.(type) {
		case *structpb.Value_StringValue:
			out = append(out, graphutil.VertexRecord{OID: fragment.VertexID(v.StringValue)})
		case *structpb.Value_StructValue:
			m := v.StructValue.AsMap()
			oid, _ := m["oid"].(string)
			if oid == "" {
				return nil, errs.Newf(errs.InvalidValue, "%s[%d] is missing an oid", key, i)
			}
			label, _ := m["label"].(string)
			props := map[string]interface{}{}
			if raw, ok := m["properties"].(map[string]interface{}); ok {
				props = raw
			}
			out = append(out, graphutil.VertexRecord{OID: fragment.VertexID(oid), Label: label, Properties: props})
		default:
			return nil, errs.Newf(errs.InvalidValue, "%s[%d] must be a string or an object", key, i)
		}
	}
	return out, nil
}

/*
parseEdgeRecords is parseVertexRecords' edge counterpart, decoding
{from, to, label, properties{...}} objects.
*/
func parseEdgeRecords(p *params.Accessor, key string) ([]graphutil.EdgeRecord, error) {
	items, err := p.List(key)
	if err != nil {
		return nil, err
	}

	out := make([]graphutil.EdgeRecord, 0, len(items))
	for i, item := range items {
		s, ok := item.Kind.(*structpb.Value_StructValue)
		if !ok {
			return nil, errs.Newf(errs.InvalidValue, "%s[%d] is not an object", key, i)
		}
		m := s.StructValue.AsMap()

		from, _ := m["from"].(string)
		to, _ := m["to"].(string)
		if from == "" || to == "" {
			return nil, errs.Newf(errs.InvalidValue, "%s[%d] is missing from/to", key, i)
		}
		label, _ := m["label"].(string)

		props := map[string]interface{}{}
		if raw, ok := m["properties"].(map[string]interface{}); ok {
			props = raw
		}

		out = append(out, graphutil.EdgeRecord{From: fragment.VertexID(from), To: fragment.VertexID(to), Label: label, Properties: props})
	}
	return out, nil
}
