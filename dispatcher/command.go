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
Package dispatcher implements the Grape Instance (spec.md §4.7): the
per-worker command processor that dispatches an incoming Command on its
Kind to a handler closed over the Instance, in the same shape as the
teacher's console.NewConsole builds its cmdMap[CommandXxx] table, minus
the Command interface teacher uses for its interactive help/description
surface (no such surface exists here, see DESIGN.md).
*/
package dispatcher

import (
	"encoding/json"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/krotik/grape/errs"
	"github.com/krotik/grape/fragment"
)

/*
CommandKind identifies one entry of the command table (spec.md §6).
*/
type CommandKind string

/*
Known command kinds.
*/
const (
	CreateGraph          CommandKind = "CREATE_GRAPH"
	CreateApp            CommandKind = "CREATE_APP"
	RunApp               CommandKind = "RUN_APP"
	UnloadApp            CommandKind = "UNLOAD_APP"
	UnloadGraph          CommandKind = "UNLOAD_GRAPH"
	ReportGraph          CommandKind = "REPORT_GRAPH"
	ProjectGraph         CommandKind = "PROJECT_GRAPH"
	ProjectToSimple      CommandKind = "PROJECT_TO_SIMPLE"
	ModifyVertices       CommandKind = "MODIFY_VERTICES"
	ModifyEdges          CommandKind = "MODIFY_EDGES"
	TransformGraph       CommandKind = "TRANSFORM_GRAPH"
	CopyGraph            CommandKind = "COPY_GRAPH"
	ToDirected           CommandKind = "TO_DIRECTED"
	ToUndirected         CommandKind = "TO_UNDIRECTED"
	InduceSubgraph       CommandKind = "INDUCE_SUBGRAPH"
	ClearGraph           CommandKind = "CLEAR_GRAPH"
	ClearEdges           CommandKind = "CLEAR_EDGES"
	ViewGraph            CommandKind = "VIEW_GRAPH"
	AddLabels            CommandKind = "ADD_LABELS"
	ContextToNumpy       CommandKind = "CONTEXT_TO_NUMPY"
	ContextToDataframe   CommandKind = "CONTEXT_TO_DATAFRAME"
	ToVineyardTensor     CommandKind = "TO_VINEYARD_TENSOR"
	ToVineyardDataframe  CommandKind = "TO_VINEYARD_DATAFRAME"
	AddColumn            CommandKind = "ADD_COLUMN"
	GraphToNumpy         CommandKind = "GRAPH_TO_NUMPY"
	GraphToDataframe     CommandKind = "GRAPH_TO_DATAFRAME"
	RegisterGraphType    CommandKind = "REGISTER_GRAPH_TYPE"
	GetEngineConfig      CommandKind = "GET_ENGINE_CONFIG"
)

/*
Command is one unit of work submitted to Instance.OnReceive. Attrs
travels the wire as a structpb.Struct (see params.Accessor) so that it
can carry the heterogeneous attribute union spec.md §6 describes without
a bespoke encoding.
*/
type Command struct {
	Kind  CommandKind
	Attrs *structpb.Struct
}

/*
wireCommand is Command's JSON-transport shape, used by cmd/worker's
stand-in transport (SPEC_FULL.md §6's AMBIENT UnmarshalCommandJSON note).
*/
type wireCommand struct {
	Kind  CommandKind            `json:"kind"`
	Attrs map[string]interface{} `json:"attrs"`
}

/*
UnmarshalCommandJSON decodes a Command from the JSON-lines wire shape
cmd/worker's transport stand-in reads.
*/
func (c *Command) UnmarshalCommandJSON(data []byte) error {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return errs.Newf(errs.InvalidValue, "malformed command: %v", err)
	}
	attrs, err := structpb.NewStruct(w.Attrs)
	if err != nil {
		return errs.Newf(errs.InvalidValue, "malformed command attrs: %v", err)
	}
	c.Kind = w.Kind
	c.Attrs = attrs
	return nil
}

/*
MarshalJSON encodes a Command back to the JSON-lines wire shape.
*/
func (c *Command) MarshalJSON() ([]byte, error) {
	w := wireCommand{Kind: c.Kind, Attrs: c.Attrs.AsMap()}
	return json.Marshal(w)
}

/*
AggPolicy tells the coordinator how to combine per-worker Results into
one answer (spec.md §4.7).
*/
type AggPolicy string

/*
Known aggregation policies.
*/
const (
	PickFirst         AggPolicy = "pick_first"
	PickFirstNonEmpty AggPolicy = "pick_first_non_empty"
	Concatenate       AggPolicy = "concatenate"
)

/*
Result is what OnReceive returns for one worker's participation in a
command: a GraphDef and/or a data string and/or a serialized archive,
tagged with the policy the coordinator should use to reduce every
worker's Result into one.
*/
type Result struct {
	GraphDef *fragment.GraphDef
	Data     string
	Archive  []byte
	Policy   AggPolicy
}

/*
Aggregate reduces per-worker results (in ascending rank order, the same
order Communicator.Gather delivers shards in) into the single answer the
coordinator reports upward. All non-nil results must carry the same
policy; Aggregate does not itself run a collective — callers already
hold every worker's Result (e.g. via Gather, or because they drive every
rank's Instance directly in-process).
*/
func Aggregate(results []*Result) (*Result, error) {
	var first *Result
	for _, r := range results {
		if r != nil {
			first = r
			break
		}
	}
	if first == nil {
		return nil, errs.Newf(errs.IllegalState, "no worker produced a result")
	}

	switch first.Policy {
	case PickFirst:
		return results[0], nil

	case PickFirstNonEmpty:
		for _, r := range results {
			if r != nil && (r.Data != "" || len(r.Archive) > 0 || r.GraphDef != nil) {
				return r, nil
			}
		}
		return first, nil

	case Concatenate:
		out := &Result{Policy: Concatenate, GraphDef: first.GraphDef}
		for _, r := range results {
			if r == nil {
				continue
			}
			out.Data += r.Data
			out.Archive = append(out.Archive, r.Archive...)
		}
		return out, nil

	default:
		return first, nil
	}
}
