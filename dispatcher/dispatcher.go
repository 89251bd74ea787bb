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
	"time"

	"github.com/krotik/common/logutil"

	"github.com/krotik/grape/algorithm"
	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/ids"
	"github.com/krotik/grape/metrics"
	"github.com/krotik/grape/params"
	"github.com/krotik/grape/registry"
	"github.com/krotik/grape/store"
)

/*
handlerFunc is one command's implementation, closed over the Instance
that owns it (the direct generalization of teacher's Command interface,
minus the help/description methods the interactive console needs and
this dispatcher does not, per SPEC_FULL.md §4.7).
*/
type handlerFunc func(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error)

/*
typeRegistration is what REGISTER_GRAPH_TYPE records for a graph_type
name (spec.md §9's type-signature registry design note).
*/
type typeRegistration struct {
	signature   string
	libraryPath string
}

/*
Instance is the Grape Instance (spec.md §4.7): one worker's command
processor. It holds this worker's communicator, its shared-store client,
its private Object Registry, and dispatches every Command to a handler
built once at construction time.
*/
type Instance struct {
	Comm    comm.Communicator
	Store   store.Client
	Reg     *registry.Registry
	Metrics *metrics.Metrics

	ids  *ids.Generator
	log  logutil.Logger
	rank int

	graphTypes map[string]typeRegistration
	handlers   map[CommandKind]handlerFunc
}

/*
New builds a Grape Instance bound to the given communicator, shared
store, and object registry. Metrics are left nil; use WithMetrics to
attach a collector set (SPEC_FULL.md's EnableMetrics toggle governs
whether cmd/worker calls it).
*/
func New(c comm.Communicator, sc store.Client, reg *registry.Registry) *Instance {
	in := &Instance{
		Comm:       c,
		Store:      sc,
		Reg:        reg,
		ids:        ids.NewGenerator(c.Rank()),
		log:        logutil.GetLogger("grape.dispatcher"),
		rank:       c.Rank(),
		graphTypes: map[string]typeRegistration{},
	}
	in.handlers = in.buildHandlers()
	return in
}

/*
WithMetrics attaches m to in, so every subsequent OnReceive call records
its outcome, latency, and the resulting registry size. Returns in for
chaining after New.
*/
func (in *Instance) WithMetrics(m *metrics.Metrics) *Instance {
	in.Metrics = m
	return in
}

/*
buildHandlers assembles the command table, mirroring teacher's
console.NewConsole cmdMap construction.
*/
func (in *Instance) buildHandlers() map[CommandKind]handlerFunc {
	return map[CommandKind]handlerFunc{
		CreateGraph:         handleCreateGraph,
		CreateApp:           handleCreateApp,
		RunApp:              handleRunApp,
		UnloadApp:           handleUnloadApp,
		UnloadGraph:         handleUnloadGraph,
		ReportGraph:         handleReportGraph,
		ProjectGraph:        handleProjectGraph,
		ProjectToSimple:     handleProjectToSimple,
		ModifyVertices:      handleModifyVertices,
		ModifyEdges:         handleModifyEdges,
		TransformGraph:      handleTransformGraph,
		CopyGraph:           handleCopyGraph,
		ToDirected:          handleToDirected,
		ToUndirected:        handleToUndirected,
		InduceSubgraph:      handleInduceSubgraph,
		ClearGraph:          handleClearGraph,
		ClearEdges:          handleClearEdges,
		ViewGraph:           handleViewGraph,
		AddLabels:           handleAddLabels,
		ContextToNumpy:      handleContextToNumpy,
		ContextToDataframe:  handleContextToDataframe,
		ToVineyardTensor:    handleToVineyardTensor,
		ToVineyardDataframe: handleToVineyardDataframe,
		AddColumn:           handleAddColumn,
		GraphToNumpy:        handleGraphToNumpy,
		GraphToDataframe:    handleGraphToDataframe,
		RegisterGraphType:   handleRegisterGraphType,
		GetEngineConfig:     handleGetEngineConfig,
	}
}

/*
OnReceive dispatches cmd to its handler (spec.md §4.7). An unrecognized
Kind is Unimplemented; everything else is whatever the handler reports.

Every handler that touches shared state runs the same code path on
every worker (spec.md §4.7's collective discipline) — OnReceive itself
adds no synchronization beyond what a handler explicitly performs, since
the discipline is "same command, same code path everywhere", not a
barrier this dispatch layer imposes from outside.
*/
func (in *Instance) OnReceive(ctx context.Context, cmd Command) (*Result, error) {
	h, ok := in.handlers[cmd.Kind]
	if !ok {
		return nil, errs.Newf(errs.Unimplemented, "unknown command kind %q", cmd.Kind)
	}

	p := params.New(cmd.Attrs)

	in.log.Info("received ", string(cmd.Kind))

	start := time.Now()
	res, err := h(ctx, in, p)
	elapsed := time.Since(start).Seconds()

	if in.Metrics != nil {
		outcome := metrics.Success
		if err != nil {
			outcome = metrics.Failure
		}
		in.Metrics.Observe(string(cmd.Kind), outcome, elapsed)
		in.Metrics.SetRegistrySize(in.Reg.Len())
	}

	if err != nil {
		in.log.Error(string(cmd.Kind), ": ", err)
		return nil, err
	}

	return res, nil
}

/*
graphWrapper fetches a registered graph by name.
*/
func graphWrapper(in *Instance, name string) (fragment.Wrapper, error) {
	return registry.Get[fragment.Wrapper](in.Reg, name)
}

/*
algEntry fetches a registered algorithm library by app name.
*/
func algEntry(in *Instance, name string) (*algorithm.Entry, error) {
	return registry.Get[*algorithm.Entry](in.Reg, name)
}

/*
mintName generates a new dispatcher-local identifier and broadcasts it
from rank 0 to every worker, so a name minted for a shared artifact
(spec.md §4.7's identifier generation) is the same string in every
worker's registry even though ids.Generator itself is only guaranteed
unique within one process.
*/
func mintName(ctx context.Context, in *Instance, prefix string) (string, error) {
	var local string
	if in.Comm.Rank() == 0 {
		local = in.ids.Next(prefix)
	}
	agreed, err := in.Comm.Broadcast(ctx, 0, []byte(local))
	if err != nil {
		return "", err
	}
	return string(agreed), nil
}

/*
publishGraph registers a newly built wrapper under a dispatcher-minted
name and returns its GraphDef, the shape almost every graph-producing
command returns.
*/
func publishGraph(in *Instance, w fragment.Wrapper) (*Result, error) {
	def := w.GraphDef()
	if err := in.Reg.Put(def.Key, w); err != nil {
		return nil, err
	}
	return &Result{GraphDef: &def, Policy: PickFirst}, nil
}
