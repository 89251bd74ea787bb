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
	"context"
	"fmt"

	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/store"
)

/*
ContextType is a type alias (not a distinct named type) so a Context's
ContextType() method return value satisfies fragment.ColumnContext's
ContextType() string requirement without an explicit conversion at
every call site.
*/
type ContextType = string

const (
	Tensor                ContextType = "tensor"
	VertexData            ContextType = "vertex_data"
	LabeledVertexData     ContextType = "labeled_vertex_data"
	VertexProperty        ContextType = "vertex_property"
	LabeledVertexProperty ContextType = "labeled_vertex_property"
)

/*
Context is the abstract Context Wrapper (spec.md §4.6): it reports its
context_type and a back-pointer to the fragment wrapper that produced
it, and exposes the serialization/materialization surface every
concrete variant shares.
*/
type Context interface {
	ContextType() ContextType
	FragmentWrapper() fragment.Wrapper

	ToNdArray(ctx context.Context, c comm.Communicator, sel string, rng fragment.VertexRange) ([]byte, error)
	ToDataframe(ctx context.Context, c comm.Communicator, sels []string, rng fragment.VertexRange) ([]byte, error)
	ToVineyardTensor(ctx context.Context, c comm.Communicator, sc store.Client, name string, sel string, rng fragment.VertexRange) (store.ObjectID, error)
	ToVineyardDataframe(ctx context.Context, c comm.Communicator, sc store.Client, name string, sels []string, rng fragment.VertexRange) (store.ObjectID, error)
	ToArrowArrays(sels []string) ([]fragment.Column, error)
}

/*
ResultCell holds one algorithm result row; SelResultField indexes into
Fields when the result is composite (e.g. a distance plus a
predecessor), matching the `r.<k>` selector form.
*/
type ResultCell struct {
	Fields []interface{}
}

/*
concreteContext backs every variant. OIDs/LabelIDs/Data/Properties/
Results are parallel to each other by row index; a variant only
populates the fields its context_type needs (spec.md §4.6 does not
require the others to be present, and callers only ever request
selectors valid for their own variant — enforced ahead of the fragment
wrapper's own AddColumn/ToNdArray reject paths).
*/
type concreteContext struct {
	kind    ContextType
	wrapper fragment.Wrapper
	label   string // target label for the *_property variants; "" otherwise

	oids       []fragment.VertexID
	labelIDs   []int32
	data       fragment.Column
	properties map[string]fragment.Column
	results    []ResultCell
}

/*
NewTensorContext wraps a single unlabeled result column with no vertex
identity attached (an aggregate scalar-per-worker or whole-graph value).
*/
func NewTensorContext(w fragment.Wrapper, data fragment.Column) Context {
	return &concreteContext{kind: Tensor, wrapper: w, data: data}
}

/*
NewVertexDataContext wraps one result value per vertex, unlabeled.
*/
func NewVertexDataContext(w fragment.Wrapper, oids []fragment.VertexID, data fragment.Column, results []ResultCell) Context {
	return &concreteContext{kind: VertexData, wrapper: w, oids: oids, data: data, results: results}
}

/*
NewLabeledVertexDataContext is NewVertexDataContext restricted to a
single vertex label, additionally exposing v.label_id.
*/
func NewLabeledVertexDataContext(w fragment.Wrapper, label string, oids []fragment.VertexID, labelIDs []int32, data fragment.Column, results []ResultCell) Context {
	return &concreteContext{kind: LabeledVertexData, wrapper: w, label: label, oids: oids, labelIDs: labelIDs, data: data, results: results}
}

/*
NewVertexPropertyContext wraps a set of named per-vertex result
columns, unlabeled — the shape AddColumn consumes to append new
columns to an ARROW_PROPERTY fragment.
*/
func NewVertexPropertyContext(w fragment.Wrapper, oids []fragment.VertexID, properties map[string]fragment.Column) Context {
	return &concreteContext{kind: VertexProperty, wrapper: w, oids: oids, properties: properties}
}

/*
NewLabeledVertexPropertyContext is NewVertexPropertyContext restricted
to a single vertex label — the variant AddColumn actually requires,
since a fragment's property tables are themselves per-label.
*/
func NewLabeledVertexPropertyContext(w fragment.Wrapper, label string, oids []fragment.VertexID, properties map[string]fragment.Column) Context {
	return &concreteContext{kind: LabeledVertexProperty, wrapper: w, label: label, oids: oids, properties: properties}
}

func (c *concreteContext) ContextType() ContextType        { return c.kind }
func (c *concreteContext) FragmentWrapper() fragment.Wrapper { return c.wrapper }

// ---- fragment.ColumnContext structural satisfaction (for AddColumn) ----

func (c *concreteContext) VertexMapFnum() int {
	vm := vertexMapOf(c.wrapper)
	if vm == nil {
		return 0
	}
	return vm.Fnum()
}

func (c *concreteContext) VertexMapIdentity(fid uint64) (string, string) {
	vm := vertexMapOf(c.wrapper)
	if vm == nil {
		return "", ""
	}
	return vm.ID, vm.OIDArrayID[fid]
}

func (c *concreteContext) TargetLabel() string { return c.label }

func (c *concreteContext) Columns(fid uint64) ([]fragment.Column, error) {
	if c.kind != VertexProperty && c.kind != LabeledVertexProperty {
		return nil, errs.Newf(errs.UnsupportedOperation, "Columns is only defined for property contexts, got %q", c.kind)
	}
	cols := make([]fragment.Column, 0, len(c.properties))
	for _, col := range c.properties {
		cols = append(cols, col)
	}
	return cols, nil
}

func vertexMapOf(w fragment.Wrapper) *fragment.VertexMap {
	switch f := w.Fragment().(type) {
	case *fragment.ColumnFragment:
		return f.VertexMap
	case *fragment.DynamicFragment:
		return f.VertexMap
	}
	return nil
}

// ---- selection ----

func (c *concreteContext) selectColumn(sel Selector) (fragment.Column, error) {
	switch sel.Kind {
	case SelVertexID:
		ids := make([]string, len(c.oids))
		for i, oid := range c.oids {
			ids[i] = string(oid)
		}
		return fragment.Column{Name: "v.id", Type: fragment.PropString, Data: ids}, nil

	case SelVertexData:
		if c.data.Data == nil {
			return fragment.Column{}, errs.Newf(errs.UnsupportedOperation, "context %q has no v.data column", c.kind)
		}
		return c.data, nil

	case SelVertexLabelID:
		if c.kind != LabeledVertexData && c.kind != LabeledVertexProperty {
			return fragment.Column{}, errs.Newf(errs.UnsupportedOperation, "v.label_id is only supported on labeled contexts, got %q", c.kind)
		}
		return fragment.Column{Name: "v.label_id", Type: fragment.PropInt32, Data: c.labelIDs}, nil

	case SelVertexProperty:
		col, ok := c.properties[sel.PropertyName]
		if !ok {
			return fragment.Column{}, errs.Newf(errs.NotFound, "property %q not found on context", sel.PropertyName)
		}
		return col, nil

	case SelResult, SelResultField:
		if c.results == nil {
			return fragment.Column{}, errs.Newf(errs.UnsupportedOperation, "context %q has no result rows", c.kind)
		}
		return resultColumn(c.results, sel)
	}

	return fragment.Column{}, errs.Newf(errs.InvalidValue, "unsupported selector kind %v", sel.Kind)
}

func resultColumn(results []ResultCell, sel Selector) (fragment.Column, error) {
	if sel.Kind == SelResult {
		data := make([]string, len(results))
		for i, r := range results {
			data[i] = fmt.Sprint(r.Fields)
		}
		return fragment.Column{Name: "r", Type: fragment.PropString, Data: data}, nil
	}

	data := make([]string, len(results))
	for i, r := range results {
		if sel.ResultField >= len(r.Fields) {
			return fragment.Column{}, errs.Newf(errs.InvalidValue, "result field index %d out of range", sel.ResultField)
		}
		data[i] = fmt.Sprint(r.Fields[sel.ResultField])
	}
	return fragment.Column{Name: fmt.Sprintf("r.%d", sel.ResultField), Type: fragment.PropString, Data: data}, nil
}

// ---- serialization ----

func (c *concreteContext) ToNdArray(ctx context.Context, comm_ comm.Communicator, selStr string, rng fragment.VertexRange) ([]byte, error) {
	sel, err := ParseSelector(selStr)
	if err != nil {
		return nil, err
	}
	col, err := c.selectColumn(sel)
	if err != nil {
		return nil, err
	}
	local := windowColumn(col, c.oids, rng)

	typeCode, err := fragment.TypeCode(local.Type)
	if err != nil {
		return nil, err
	}

	total, err := gatherRowCount(ctx, comm_, int64(local.Len()))
	if err != nil {
		return nil, err
	}

	buf := newBuf()
	if comm_.Rank() == 0 {
		fragment.WriteNdArrayHeader(buf.b, typeCode, total)
	}
	if err := fragment.WritePayload(buf.b, local); err != nil {
		return nil, err
	}

	return gatherAndConcat(ctx, comm_, buf.bytes())
}

func (c *concreteContext) ToDataframe(ctx context.Context, comm_ comm.Communicator, selStrs []string, rng fragment.VertexRange) ([]byte, error) {
	cols := make([]fragment.Column, 0, len(selStrs))
	for _, s := range selStrs {
		sel, err := ParseSelector(s)
		if err != nil {
			return nil, err
		}
		col, err := c.selectColumn(sel)
		if err != nil {
			return nil, err
		}
		cols = append(cols, windowColumn(col, c.oids, rng))
	}

	total, err := gatherRowCount(ctx, comm_, int64(rowCountOf(cols)))
	if err != nil {
		return nil, err
	}

	out := newBuf()
	if comm_.Rank() == 0 {
		fragment.WriteDataframeHeader(out.b, int64(len(cols)), total)
	}

	for i, col := range cols {
		buf := newBuf()
		if err := fragment.WriteColumnBlock(buf.b, selStrs[i], col); err != nil {
			return nil, err
		}
		gathered, err := gatherAndConcat(ctx, comm_, buf.bytes())
		if err != nil {
			return nil, err
		}
		if comm_.Rank() == 0 {
			out.b.Write(gathered)
		}
	}

	return out.bytes(), nil
}

func (c *concreteContext) ToVineyardTensor(ctx context.Context, comm_ comm.Communicator, sc store.Client, name, sel string, rng fragment.VertexRange) (store.ObjectID, error) {
	blob, err := c.ToNdArray(ctx, comm_, sel, rng)
	if err != nil {
		return store.NoObject, err
	}
	if comm_.Rank() != 0 {
		return store.NoObject, nil
	}
	return sc.Put(ctx, name, blob)
}

func (c *concreteContext) ToVineyardDataframe(ctx context.Context, comm_ comm.Communicator, sc store.Client, name string, sels []string, rng fragment.VertexRange) (store.ObjectID, error) {
	blob, err := c.ToDataframe(ctx, comm_, sels, rng)
	if err != nil {
		return store.NoObject, err
	}
	if comm_.Rank() != 0 {
		return store.NoObject, nil
	}
	return sc.Put(ctx, name, blob)
}

func (c *concreteContext) ToArrowArrays(sels []string) ([]fragment.Column, error) {
	cols := make([]fragment.Column, 0, len(sels))
	for _, s := range sels {
		sel, err := ParseSelector(s)
		if err != nil {
			return nil, err
		}
		col, err := c.selectColumn(sel)
		if err != nil {
			return nil, err
		}
		cols = append(cols, windowColumn(col, c.oids, fragment.VertexRange{Unbounded: true}))
	}
	return cols, nil
}
