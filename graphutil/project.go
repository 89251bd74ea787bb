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
)

/*
ProjectToSimple reduces an ARROW_PROPERTY source to a "simple graph":
one vertex label carrying at most one property, and one edge label
carrying no property (spec.md §4.4's PROJECT_TO_SIMPLE); a non-empty
edgeProp fails with UnsupportedOperation. The
result is an ARROW_PROJECTED fragment, distinct from
LabeledPropertyFragmentWrapper.Project which keeps the ARROW_PROPERTY
representation and allows arbitrary label/property subsets.
*/
func (u *Utility) ProjectToSimple(ctx context.Context, c comm.Communicator, src fragment.Wrapper, dstName, vertexLabel, vertexProp, edgeLabel, edgeProp string) (fragment.Wrapper, error) {
	labeled, ok := src.(*fragment.LabeledPropertyFragmentWrapper)
	if !ok {
		return nil, errs.Newf(errs.InvalidOperation, "ProjectToSimple requires an ARROW_PROPERTY source")
	}
	cf := labeled.Fragment().(*fragment.ColumnFragment)

	table, err := cf.Table(vertexLabel)
	if err != nil {
		return nil, err
	}
	nt := &fragment.PropertyTable{Label: vertexLabel, OIDs: table.OIDs, Inner: table.Inner}
	if vertexProp != "" {
		col, ok := table.Column(vertexProp)
		if !ok {
			return nil, errs.Newf(errs.NotFound, "property %q not found on label %q", vertexProp, vertexLabel)
		}
		nt.Columns = append(nt.Columns, col)
	}

	edges, hasLabel := edgesForLabel(cf, edgeLabel)
	if !hasLabel {
		return nil, errs.Newf(errs.NotFound, "edge label %q not found", edgeLabel)
	}
	if edgeProp != "" {
		return nil, errs.Newf(errs.UnsupportedOperation, "edge properties are not carried by the simple-graph representation")
	}

	newVM := cf.VertexMap.Clone(dstName)
	newFrag := fragment.NewColumnFragment(cf.Fid, cf.Fnum, cf.Directed, newVM,
		[]*fragment.PropertyTable{nt}, map[string][]fragment.ColumnEdge{edgeLabel: edges})

	def := labeled.GraphDef()
	def.Key = dstName
	def.GraphType = fragment.ArrowProjected

	if err := c.Barrier(ctx); err != nil {
		return nil, err
	}

	return fragment.NewProjectedFragmentWrapper(def, newFrag), nil
}

func edgesForLabel(cf *fragment.ColumnFragment, label string) ([]fragment.ColumnEdge, bool) {
	for _, l := range cf.EdgeLabels() {
		if l == label {
			return cf.Edges(label), true
		}
	}
	return nil, false
}
