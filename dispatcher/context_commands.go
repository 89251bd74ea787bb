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

	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/gcontext"
	"github.com/krotik/grape/params"
	"github.com/krotik/grape/registry"
	"github.com/krotik/grape/store"
)

/*
vertexRange reads the optional vertex_range_start/vertex_range_end pair
(spec.md §6's O: vertex_range) into a fragment.VertexRange; absent on
either side means unbounded.
*/
func vertexRange(p *params.Accessor) (fragment.VertexRange, error) {
	if !p.Has("vertex_range_start") && !p.Has("vertex_range_end") {
		return fragment.VertexRange{Unbounded: true}, nil
	}
	start, err := p.Int64Or("vertex_range_start", 0)
	if err != nil {
		return fragment.VertexRange{}, err
	}
	end := ^uint64(0)
	if p.Has("vertex_range_end") {
		e, err := p.Int64("vertex_range_end")
		if err != nil {
			return fragment.VertexRange{}, err
		}
		end = uint64(e)
	}
	return fragment.VertexRange{Start: uint64(start), End: end}, nil
}

func splitSelectors(sel string) []string {
	parts := strings.Split(sel, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func handleContextToNumpy(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("ctx_name")
	if err != nil {
		return nil, err
	}
	sel, err := p.String("selector")
	if err != nil {
		return nil, err
	}
	rng, err := vertexRange(p)
	if err != nil {
		return nil, err
	}

	c, err := registry.Get[gcontext.Context](in.Reg, name)
	if err != nil {
		return nil, err
	}

	archive, err := c.ToNdArray(ctx, in.Comm, sel, rng)
	if err != nil {
		return nil, err
	}
	return &Result{Archive: archive, Policy: PickFirst}, nil
}

func handleContextToDataframe(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("ctx_name")
	if err != nil {
		return nil, err
	}
	sel, err := p.String("selector")
	if err != nil {
		return nil, err
	}
	rng, err := vertexRange(p)
	if err != nil {
		return nil, err
	}

	c, err := registry.Get[gcontext.Context](in.Reg, name)
	if err != nil {
		return nil, err
	}

	archive, err := c.ToDataframe(ctx, in.Comm, splitSelectors(sel), rng)
	if err != nil {
		return nil, err
	}
	return &Result{Archive: archive, Policy: PickFirst}, nil
}

func handleToVineyardTensor(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("ctx_name")
	if err != nil {
		return nil, err
	}
	sel, err := p.String("selector")
	if err != nil {
		return nil, err
	}
	rng, err := vertexRange(p)
	if err != nil {
		return nil, err
	}

	c, err := registry.Get[gcontext.Context](in.Reg, name)
	if err != nil {
		return nil, err
	}

	objName, err := mintName(ctx, in, "vy")
	if err != nil {
		return nil, err
	}

	id, err := c.ToVineyardTensor(ctx, in.Comm, in.Store, objName, sel, rng)
	if err != nil {
		return nil, err
	}
	return vineyardResult(id)
}

func handleToVineyardDataframe(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("ctx_name")
	if err != nil {
		return nil, err
	}
	sel, err := p.String("selector")
	if err != nil {
		return nil, err
	}
	rng, err := vertexRange(p)
	if err != nil {
		return nil, err
	}

	c, err := registry.Get[gcontext.Context](in.Reg, name)
	if err != nil {
		return nil, err
	}

	objName, err := mintName(ctx, in, "vy")
	if err != nil {
		return nil, err
	}

	id, err := c.ToVineyardDataframe(ctx, in.Comm, in.Store, objName, splitSelectors(sel), rng)
	if err != nil {
		return nil, err
	}
	return vineyardResult(id)
}

func vineyardResult(id store.ObjectID) (*Result, error) {
	blob, err := json.Marshal(map[string]interface{}{"object_id": uint64(id)})
	if err != nil {
		return nil, errs.Newf(errs.InvalidValue, "vineyard result: %v", err)
	}
	return &Result{Data: string(blob), Policy: PickFirst}, nil
}

func handleAddColumn(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	graphName, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	ctxName, err := p.String("ctx_name")
	if err != nil {
		return nil, err
	}
	// selector is accepted for wire compatibility with spec.md §6; the
	// underlying fragment.Wrapper.AddColumn takes every column the
	// property context already carries rather than re-selecting one, so
	// selector is only checked for presence here (an Open Question
	// resolved in DESIGN.md).
	if _, err := p.String("selector"); err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, graphName)
	if err != nil {
		return nil, err
	}
	produced, err := registry.Get[gcontext.Context](in.Reg, ctxName)
	if err != nil {
		return nil, err
	}

	cc, ok := produced.(fragment.ColumnContext)
	if !ok {
		return nil, errs.Newf(errs.IllegalState, "context %q is not a column-shaped context", ctxName)
	}

	dst, err := mintName(ctx, in, "graph")
	if err != nil {
		return nil, err
	}

	out, err := w.AddColumn(ctx, in.Comm, in.Store, dst, cc, cc.TargetLabel())
	if err != nil {
		return nil, err
	}
	return publishGraph(in, out)
}

func handleGraphToNumpy(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	selStr, err := p.String("selector")
	if err != nil {
		return nil, err
	}
	rng, err := vertexRange(p)
	if err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}
	sel, err := parseFragmentSelector(selStr)
	if err != nil {
		return nil, err
	}

	archive, err := w.ToNdArray(ctx, in.Comm, sel, rng)
	if err != nil {
		return nil, err
	}
	return &Result{Archive: archive, Policy: PickFirst}, nil
}

func handleGraphToDataframe(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	name, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	selStr, err := p.String("selector")
	if err != nil {
		return nil, err
	}
	rng, err := vertexRange(p)
	if err != nil {
		return nil, err
	}

	w, err := graphWrapper(in, name)
	if err != nil {
		return nil, err
	}

	sels := make([]fragment.Selector, 0)
	for _, s := range splitSelectors(selStr) {
		sel, err := parseFragmentSelector(s)
		if err != nil {
			return nil, err
		}
		sels = append(sels, sel)
	}

	archive, err := w.ToDataframe(ctx, in.Comm, sels, rng)
	if err != nil {
		return nil, err
	}
	return &Result{Archive: archive, Policy: PickFirst}, nil
}

/*
parseFragmentSelector parses the spec.md §6 selector grammar restricted
to what a fragment.Wrapper's own ToNdArray/ToDataframe accept
(v.id/v.data/v.label_id — no result selectors, which only exist on a
produced Context, and no #<label_id>: prefix — the wrapper resolves the
label from graph_name itself and not from a selector prefix).
*/
func parseFragmentSelector(s string) (fragment.Selector, error) {
	switch {
	case s == "v.id":
		return fragment.Selector{Kind: fragment.SelVertexID}, nil
	case s == "v.label_id":
		return fragment.Selector{Kind: fragment.SelVertexLabelID}, nil
	case s == "v.data":
		return fragment.Selector{Kind: fragment.SelVertexData}, nil
	case strings.HasPrefix(s, "v.property."):
		return fragment.Selector{Kind: fragment.SelVertexData, Name: strings.TrimPrefix(s, "v.property.")}, nil
	}
	return fragment.Selector{}, errs.Newf(errs.InvalidValue, "unsupported graph selector %q", s)
}
