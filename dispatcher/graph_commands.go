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
	"context"
	"encoding/json"
	"strings"

	"github.com/krotik/grape/config"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/graphutil"
	"github.com/krotik/grape/params"
)

func handleCreateGraph(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	graphType, err := p.Enum("graph_type",
		string(fragment.ArrowProperty), string(fragment.ArrowProjected),
		string(fragment.DynamicProperty), string(fragment.DynamicProjected))
	if err != nil {
		return nil, err
	}

	name, err := mintName(ctx, in, "graph")
	if err != nil {
		return nil, err
	}

	fid, fnum := uint64(in.Comm.Rank()), uint64(in.Comm.Size())

	switch fragment.GraphType(graphType) {
	case fragment.DynamicProperty, fragment.DynamicProjected:
		directed, err := p.Bool("directed")
		if err != nil {
			return nil, err
		}
		vm := fragment.NewVertexMap(int(fnum), name)
		df := fragment.NewDynamicFragment(fid, fnum, directed, vm)
		def := fragment.GraphDef{Key: name, GraphType: fragment.GraphType(graphType), Directed: directed}

		var w fragment.Wrapper
		if graphType == string(fragment.DynamicProjected) {
			w = fragment.NewDynamicProjectedFragmentWrapper(def, df)
		} else {
			w = fragment.NewDynamicPropertyFragmentWrapper(def, df)
		}
		if err := in.Comm.Barrier(ctx); err != nil {
			return nil, err
		}
		return publishGraph(in, w)

	case fragment.ArrowProperty:
		sig, err := p.String("type_signature")
		if err != nil {
			return nil, err
		}
		directed, err := p.BoolOr("directed", true)
		if err != nil {
			return nil, err
		}
		u := graphutil.ForSignature(sig)
		w, err := u.LoadGraph(ctx, in.Comm, in.Store, name, directed, nil, nil)
		if err != nil {
			return nil, err
		}
		return publishGraph(in, w)

	case fragment.ArrowProjected:
		directed, err := p.BoolOr("directed", true)
		if err != nil {
			return nil, err
		}
		vm := fragment.NewVertexMap(int(fnum), name)
		cf := fragment.NewColumnFragment(fid, fnum, directed, vm, nil, nil)
		def := fragment.GraphDef{Key: name, GraphType: fragment.ArrowProjected, Directed: directed}
		if err := in.Comm.Barrier(ctx); err != nil {
			return nil, err
		}
		return publishGraph(in, fragment.NewProjectedFragmentWrapper(def, cf))
	}

	return nil, errs.Newf(errs.InvalidValue, "unsupported graph_type %q", graphType)
}

func handleUnloadGraph(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	def := w.GraphDef()

	if err := in.Reg.Remove(name); err != nil {
		return nil, err
	}

	if def.HasVineyard {
		if err := in.Store.Delete(ctx, def.ShardID); err != nil {
			return nil, err
		}
	}

	if err := in.Comm.Barrier(ctx); err != nil {
		return nil, err
	}

	if def.HasVineyard && in.Comm.Rank() == 0 {
		if err := in.Store.Delete(ctx, def.VineyardID); err != nil {
			return nil, err
		}
	}

	return &Result{Policy: PickFirst}, nil
}

func handleReportGraph(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	df, err := dynamicOf(w)
	if err != nil {
		return nil, err
	}

	labels := df.VertexLabels()
	localVertices := 0
	for _, l := range labels {
		localVertices += df.InnerVertexCount(l)
	}
	localEdges := df.EdgeCount()

	report := map[string]interface{}{
		"labels":       labels,
		"vertex_count": localVertices,
		"edge_count":   localEdges,
		"directed":     w.GraphDef().Directed,
	}
	blob, err := json.Marshal(report)
	if err != nil {
		return nil, errs.Newf(errs.InvalidValue, "report_graph: %v", err)
	}

	return &Result{Data: string(blob), Policy: PickFirst}, nil
}

func parseCollections(p *params.Accessor, key string) (map[string][]string, error) {
	entries, err := p.StringListOr(key, nil)
	if err != nil {
		return nil, err
	}
	out := map[string][]string{}
	for _, e := range entries {
		label, props, hasProps := strings.Cut(e, ":")
		if !hasProps {
			out[label] = nil
			continue
		}
		out[label] = strings.Split(props, ",")
	}
	return out, nil
}

func handleProjectGraph(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	vertexCols, err := parseCollections(p, "vertex_collections")
	if err != nil {
		return nil, err
	}
	if len(vertexCols) == 0 {
		return nil, errs.Newf(errs.InvalidValue, "vertex_collections must not be empty")
	}
	edgeCols, err := parseCollections(p, "edge_collections")
	if err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	dst, err := mintName(ctx, in, "graph")
	if err != nil {
		return nil, err
	}

	out, err := w.Project(ctx, in.Comm, in.Store, dst, vertexCols, edgeCols)
	if err != nil {
		return nil, err
	}
	return publishGraph(in, out)
}

func handleProjectToSimple(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	sig, err := p.String("type_signature")
	if err != nil {
		return nil, err
	}
	vertexLabel, err := p.String("vertex_label")
	if err != nil {
		return nil, err
	}
	vertexProp, err := p.StringOr("vertex_property", "")
	if err != nil {
		return nil, err
	}
	edgeLabel, err := p.String("edge_label")
	if err != nil {
		return nil, err
	}
	edgeProp, err := p.StringOr("edge_property", "")
	if err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	dst, err := mintName(ctx, in, "graph")
	if err != nil {
		return nil, err
	}

	u := graphutil.ForSignature(sig)
	out, err := u.ProjectToSimple(ctx, in.Comm, w, dst, vertexLabel, vertexProp, edgeLabel, edgeProp)
	if err != nil {
		return nil, err
	}
	return publishGraph(in, out)
}

func handleModifyVertices(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	modifyType, err := p.Enum("modify_type", "add", "remove")
	if err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	df, err := dynamicOf(w)
	if err != nil {
		return nil, err
	}

	if modifyType == "remove" {
		ids, err := p.StringList("nodes")
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if err := df.RemoveVertex(fragment.VertexID(id)); err != nil {
				return nil, err
			}
		}
		return &Result{Policy: PickFirst}, nil
	}

	records, err := parseNodeSpecs(p, "nodes")
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		label := r.Label
		if label == "" {
			label = "vertex"
		}
		df.UpsertVertex(r.OID, label, true, r.Properties)
	}

	return &Result{Policy: PickFirst}, nil
}

func handleModifyEdges(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	modifyType, err := p.Enum("modify_type", "add", "remove")
	if err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	df, err := dynamicOf(w)
	if err != nil {
		return nil, err
	}

	entries, err := p.StringList("edges")
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		fields := strings.Fields(e)
		if len(fields) < 2 {
			return nil, errs.Newf(errs.InvalidValue, "edge entry %q must be \"from to [label]\"", e)
		}
		from, to := fragment.VertexID(fields[0]), fragment.VertexID(fields[1])
		label := ""
		if len(fields) > 2 {
			label = fields[2]
		}

		if modifyType == "remove" {
			if err := df.RemoveEdge(from, to, label); err != nil {
				return nil, err
			}
			continue
		}
		if err := df.AddEdge(from, to, label, nil); err != nil {
			return nil, err
		}
	}

	return &Result{Policy: PickFirst}, nil
}

func handleTransformGraph(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	dstType, err := p.Enum("dst_graph_type", string(fragment.DynamicProperty), string(fragment.ArrowProperty))
	if err != nil {
		return nil, err
	}
	sig, err := p.String("type_signature")
	if err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	dst, err := mintName(ctx, in, "graph")
	if err != nil {
		return nil, err
	}

	u := graphutil.ForSignature(sig)

	var out fragment.Wrapper
	if dstType == string(fragment.DynamicProperty) {
		out, err = u.ToDynamicFragment(ctx, in.Comm, w, dst)
	} else {
		out, err = u.ToArrowFragment(ctx, in.Store, in.Comm, w, dst)
	}
	if err != nil {
		return nil, err
	}
	return publishGraph(in, out)
}

func handleCopyGraph(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	copyType, err := p.Enum("copy_type", string(fragment.CopyIdentical), string(fragment.CopyReset))
	if err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	dst, err := mintName(ctx, in, "graph")
	if err != nil {
		return nil, err
	}

	out, err := w.CopyGraph(ctx, in.Comm, in.Store, dst, fragment.CopyType(copyType))
	if err != nil {
		return nil, err
	}
	return publishGraph(in, out)
}

func handleToDirected(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	dst, err := mintName(ctx, in, "graph")
	if err != nil {
		return nil, err
	}
	out, err := w.ToDirected(ctx, in.Comm, dst)
	if err != nil {
		return nil, err
	}
	return publishGraph(in, out)
}

func handleToUndirected(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	dst, err := mintName(ctx, in, "graph")
	if err != nil {
		return nil, err
	}
	out, err := w.ToUnDirected(ctx, in.Comm, dst)
	if err != nil {
		return nil, err
	}
	return publishGraph(in, out)
}

func handleInduceSubgraph(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	df, err := dynamicOf(w)
	if err != nil {
		return nil, err
	}

	nodes, nodesErr := p.StringList("nodes")
	edges, edgesErr := p.StringList("edges")
	if nodesErr != nil && edgesErr != nil {
		return nil, errs.Newf(errs.InvalidValue, "INDUCE_SUBGRAPH requires nodes or edges")
	}

	keep := map[fragment.VertexID]bool{}
	for _, n := range nodes {
		keep[fragment.VertexID(n)] = true
	}
	for _, e := range edges {
		fields := strings.Fields(e)
		if len(fields) < 2 {
			continue
		}
		keep[fragment.VertexID(fields[0])] = true
		keep[fragment.VertexID(fields[1])] = true
	}

	dst, err := mintName(ctx, in, "graph")
	if err != nil {
		return nil, err
	}

	vm := df.VertexMap.Clone(dst)
	sub := fragment.NewDynamicFragment(df.Fid, df.Fnum, df.Directed, vm)

	for oid := range keep {
		if v, ok := df.GetVertex(oid); ok {
			sub.UpsertVertex(v.OID, v.Label, v.Inner, cloneMap(v.Attrs))
		}
	}
	for oid := range keep {
		for _, e := range df.OutEdges(oid) {
			if !keep[e.To] {
				continue
			}
			if !df.Directed && e.From > e.To {
				continue // undirected mirror copy; keep the logical edge once
			}
			if err := sub.AddEdge(e.From, e.To, e.Label, cloneMap(e.Attrs)); err != nil {
				return nil, err
			}
		}
	}

	def := w.GraphDef()
	def.Key = dst
	out := fragment.NewDynamicPropertyFragmentWrapper(def, sub)

	if err := in.Comm.Barrier(ctx); err != nil {
		return nil, err
	}
	return publishGraph(in, out)
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func handleClearGraph(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	df, err := dynamicOf(w)
	if err != nil {
		return nil, err
	}
	df.ClearAll()

	if err := in.Comm.Barrier(ctx); err != nil {
		return nil, err
	}
	def := w.GraphDef()
	return &Result{GraphDef: &def, Policy: PickFirst}, nil
}

func handleClearEdges(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	df, err := dynamicOf(w)
	if err != nil {
		return nil, err
	}
	df.ClearEdges()

	if err := in.Comm.Barrier(ctx); err != nil {
		return nil, err
	}
	def := w.GraphDef()
	return &Result{GraphDef: &def, Policy: PickFirst}, nil
}

func handleViewGraph(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	viewType, err := p.Enum("view_type", string(fragment.ViewReversed), string(fragment.ViewSubgraphByFilter))
	if err != nil {
		return nil, err
	}

	var filter fragment.VertexFilter
	if fragment.ViewType(viewType) == fragment.ViewSubgraphByFilter {
		raw, err := p.Struct("filter")
		if err != nil {
			return nil, errs.Newf(errs.InvalidValue, "VIEW_GRAPH subgraph_by_filter requires a filter object: %v", err)
		}
		if label, ok := raw["label"].(string); ok {
			filter.Label = label
		}
		if prop, ok := raw["property"].(string); ok {
			filter.Property = prop
		}
		filter.Equals = raw["equals"]
		if filter.Label == "" && filter.Property == "" {
			return nil, errs.Newf(errs.InvalidValue, "VIEW_GRAPH subgraph_by_filter's filter must set label and/or property")
		}
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	viewID, err := mintName(ctx, in, "view")
	if err != nil {
		return nil, err
	}

	out, err := w.CreateGraphView(ctx, in.Comm, viewID, fragment.ViewType(viewType), filter)
	if err != nil {
		return nil, err
	}
	return publishGraph(in, out)
}

func handleAddLabels(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	sig, err := p.String("type_signature")
	if err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}

	vertices, err := parseVertexRecords(p, "nodes")
	if err != nil && errs.KindOf(err) != errs.MissingKey {
		return nil, err
	}
	edges, err := parseEdgeRecords(p, "edges")
	if err != nil && errs.KindOf(err) != errs.MissingKey {
		return nil, err
	}

	dst, err := mintName(ctx, in, "graph")
	if err != nil {
		return nil, err
	}

	u := graphutil.ForSignature(sig)
	out, err := u.AddLabelsToGraph(ctx, in.Comm, in.Store, w, dst, vertices, edges)
	if err != nil {
		return nil, err
	}
	return publishGraph(in, out)
}

func handleRegisterGraphType(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	graphType, err := p.String("graph_type")
	if err != nil {
		return nil, err
	}
	sig, err := p.String("type_signature")
	if err != nil {
		return nil, err
	}
	libPath, err := p.String("graph_library_path")
	if err != nil {
		return nil, err
	}

	in.graphTypes[graphType] = typeRegistration{signature: sig, libraryPath: libPath}
	graphutil.ForSignature(sig) // warm the cache; idempotent (spec.md §9)

	return &Result{Policy: PickFirst}, nil
}

func handleGetEngineConfig(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	blob, err := json.Marshal(config.Map())
	if err != nil {
		return nil, errs.Newf(errs.InvalidValue, "get_engine_config: %v", err)
	}
	return &Result{Data: string(blob), Policy: PickFirst}, nil
}
