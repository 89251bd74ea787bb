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
Package algorithm implements the Algorithm Entry (spec.md §4.5): a
handle to a dynamically loaded ECAL algorithm library, loaded through
github.com/krotik/ecal exactly as the teacher's ecal.ScriptingInterpreter
loads its own entry script — construct a CLIInterpreter rooted at the
library directory, ensure an entry file exists, build a runtime
provider, and interpret it.

Where the teacher's interpreter exposes Go functions to scripts
(AddEliasDBStdlibFunctions registering "db.*" stdlib calls), an
algorithm library runs the opposite direction: Go raises "grape.*"
events that the library's own rules are expected to handle, carrying
their inputs and outputs in the event's mutable state map — the same
mechanism the teacher's own EventBridge uses to forward graph events
into ECAL and collect any errors a sink raised in response.
*/
package algorithm

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/krotik/ecal/cli/tool"
	"github.com/krotik/ecal/engine"

	"github.com/krotik/common/fileutil"
	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
	"github.com/krotik/grape/gcontext"
)

/*
entryFileName is the algorithm library's required ECAL entry point,
mirroring the teacher's own convention of one well-known entry script
per interpreter root.
*/
const entryFileName = "main.ecal"

/*
symbols an algorithm library must export as event-handling rules
(spec.md §4.5); Init fails with LibraryLoad if any is missing.
*/
var symbols = []string{"create_worker", "query", "meta"}

/*
Entry is a handle to one loaded algorithm library.
*/
type Entry struct {
	Name        string
	LibraryPath string

	interp *tool.CLIInterpreter
}

/*
DefaultEngineSpec returns the parallel engine spec matching the
process's own core count, spec.md §4.5's default for CreateWorker when
no explicit engine_spec is supplied.
*/
func DefaultEngineSpec() map[string]interface{} {
	return map[string]interface{}{"kind": "parallel", "num_workers": runtime.NumCPU()}
}

/*
Init loads the ECAL script directory at libraryPath and resolves the
three symbols an algorithm library must export. Any failure — a missing
entry file, an interpretation error, or a missing symbol — is
LibraryLoad.
*/
func Init(ctx context.Context, name, libraryPath string) (*Entry, error) {
	entryFile := filepath.Join(libraryPath, entryFileName)

	if ok, err := fileutil.PathExists(entryFile); err != nil || !ok {
		return nil, errs.Newf(errs.LibraryLoad, "algorithm library %q: entry file %q not found", name, entryFile)
	}

	i := tool.NewCLIInterpreter()
	dir := libraryPath
	i.Dir = &dir
	i.EntryFile = entryFile
	i.LoadPlugins = true

	i.CreateRuntimeProvider(fmt.Sprintf("grape-algorithm-%s", name))

	if err := i.Interpret(false); err != nil {
		return nil, errs.Newf(errs.LibraryLoad, "algorithm library %q failed to load: %v", name, err)
	}

	e := &Entry{Name: name, LibraryPath: libraryPath, interp: i}

	for _, kind := range symbols {
		check := engine.NewEvent("grape: symbol check", []string{"grape", kind}, nil)
		if !i.RuntimeProvider.Processor.IsTriggering(check) {
			return nil, errs.Newf(errs.LibraryLoad, "algorithm library %q does not export %q", name, kind)
		}
	}

	return e, nil
}

/*
CreateWorker raises the "grape.create_worker" event carrying the
fragment, communicator, and engine spec, and returns whatever opaque
value the library's rule wrote back into state["result"].
*/
func (e *Entry) CreateWorker(frag fragment.Wrapper, c comm.Communicator, engineSpec map[string]interface{}) (interface{}, error) {
	if engineSpec == nil {
		engineSpec = DefaultEngineSpec()
	}

	state := map[interface{}]interface{}{
		"fragment":    frag,
		"comm":        c,
		"engine_spec": engineSpec,
		"result":      nil,
	}

	if err := e.raise("create_worker", state); err != nil {
		return nil, err
	}

	return state["result"], nil
}

/*
Query raises the "grape.query" event and runs the algorithm
collectively across workers (every rank's Entry must call Query so each
worker's rule sees the event — spec.md §4.5's collective execution
requirement). The result may be nil if the algorithm produces no
context.
*/
func (e *Entry) Query(worker interface{}, queryArgs map[string]interface{}, contextKey string, wrapper fragment.Wrapper) (gcontext.Context, error) {
	state := map[interface{}]interface{}{
		"worker":      worker,
		"query_args":  queryArgs,
		"context_key": contextKey,
		"fragment":    wrapper,
		"result":      nil,
	}

	if err := e.raise("query", state); err != nil {
		return nil, err
	}

	if state["result"] == nil {
		return nil, nil
	}

	ctxResult, ok := state["result"].(gcontext.Context)
	if !ok {
		return nil, errs.Newf(errs.TypeMismatch, "algorithm %q query did not return a context wrapper", e.Name)
	}

	return ctxResult, nil
}

/*
Meta raises the "grape.meta" event and returns the library's
self-reported metadata (name, version, parameter schema — the library
decides its own shape).
*/
func (e *Entry) Meta() (map[string]interface{}, error) {
	state := map[interface{}]interface{}{"result": nil}

	if err := e.raise("meta", state); err != nil {
		return nil, err
	}

	meta, _ := state["result"].(map[string]interface{})
	return meta, nil
}

/*
raise injects a "grape.<kind>" event and waits for every triggered rule
to finish, surfacing any sink error as IllegalState — mirrors
EventBridge.Handle's AddEventAndWait + AllErrors pattern.
*/
func (e *Entry) raise(kind string, state map[interface{}]interface{}) error {
	event := engine.NewEvent(fmt.Sprintf("grape: %s", kind), []string{"grape", kind}, state)

	m, err := e.interp.RuntimeProvider.Processor.AddEventAndWait(event, nil)
	if err != nil {
		return errs.Newf(errs.IllegalState, "algorithm %q %s failed: %v", e.Name, kind, err)
	}

	if rm, ok := m.(*engine.RootMonitor); ok {
		if sinkErrs := rm.AllErrors(); len(sinkErrs) > 0 {
			return errs.Newf(errs.IllegalState, "algorithm %q %s raised errors: %v", e.Name, kind, sinkErrs)
		}
	}

	return nil
}
