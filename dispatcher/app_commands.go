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

	"github.com/krotik/grape/algorithm"
	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/params"
)

func handleCreateApp(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	libPath, err := p.String("app_library_path")
	if err != nil {
		return nil, err
	}

	appName, err := mintName(ctx, in, "app")
	if err != nil {
		return nil, err
	}

	entry, err := algorithm.Init(ctx, appName, libPath)
	if err != nil {
		return nil, err
	}

	if err := in.Reg.Put(appName, entry); err != nil {
		return nil, err
	}

	return &Result{Data: appName, Policy: PickFirst}, nil
}

func handleUnloadApp(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	appName, err := p.String("app_name")
	if err != nil {
		return nil, err
	}
	if err := in.Reg.Remove(appName); err != nil {
		return nil, err
	}
	return &Result{Policy: PickFirst}, nil
}

func handleRunApp(ctx context.Context, in *Instance, p *params.Accessor) (*Result, error) {
	appName, err := p.String("app_name")
	if err != nil {
		return nil, err
	}
	graphName, err := p.String("graph_name")
	if err != nil {
		return nil, err
	}
	queryArgs, err := p.StructOr("query_args", map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	entry, err := algEntry(in, appName)
	if err != nil {
		return nil, err
	}
	w, err := graphWrapper(in, graphName)
	if err != nil {
		return nil, err
	}

	worker, err := entry.CreateWorker(w, in.Comm, nil)
	if err != nil {
		return nil, err
	}

	ctxKey, err := mintName(ctx, in, "ctx")
	if err != nil {
		return nil, err
	}

	produced, err := entry.Query(worker, queryArgs, ctxKey, w)
	if err != nil {
		return nil, err
	}

	response := map[string]interface{}{"context_key": "", "context_type": ""}
	if produced != nil {
		if err := in.Reg.Put(ctxKey, produced); err != nil {
			return nil, err
		}
		response["context_key"] = ctxKey
		response["context_type"] = produced.ContextType()
	}

	blob, err := json.Marshal(response)
	if err != nil {
		return nil, errs.Newf(errs.InvalidValue, "run_app: %v", err)
	}

	return &Result{Data: string(blob), Policy: PickFirst}, nil
}
