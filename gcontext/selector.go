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
Package gcontext implements the Context Wrapper Hierarchy (spec.md
§4.6): result containers over a producing fragment's vertices that can
be serialized as an NdArray/Dataframe, materialized into the object
store, or exposed as plain arrow-style columns for AddColumn.
*/
package gcontext

import (
	"strconv"
	"strings"

	"github.com/krotik/grape/errs"
)

/*
SelectorKind identifies which field a parsed selector string names.
*/
type SelectorKind int

const (
	SelVertexID SelectorKind = iota
	SelVertexData
	SelVertexLabelID
	SelVertexProperty
	SelResult
	SelResultField
)

/*
Selector is a parsed context selector string (`v.id`, `v.data`,
`v.label_id`, `v.property.<name>`, `r`, `r.<k>`), optionally scoped to a
label id via a `#<label_id>:` prefix.
*/
type Selector struct {
	Kind         SelectorKind
	PropertyName string
	ResultField  int
	LabelID      int
	HasLabelID   bool
}

/*
ParseSelector parses one of the context selector strings described in
spec.md §4.6. Malformed input is InvalidValue.
*/
func ParseSelector(s string) (Selector, error) {
	var sel Selector

	if strings.HasPrefix(s, "#") {
		rest := s[1:]
		idx := strings.Index(rest, ":")
		if idx < 0 {
			return sel, errs.Newf(errs.InvalidValue, "malformed labeled selector %q: missing ':'", s)
		}
		id, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return sel, errs.Newf(errs.InvalidValue, "malformed label id in selector %q: %v", s, err)
		}
		sel.LabelID = id
		sel.HasLabelID = true
		s = rest[idx+1:]
	}

	switch {
	case s == "v.id":
		sel.Kind = SelVertexID
	case s == "v.data":
		sel.Kind = SelVertexData
	case s == "v.label_id":
		sel.Kind = SelVertexLabelID
	case strings.HasPrefix(s, "v.property."):
		name := strings.TrimPrefix(s, "v.property.")
		if name == "" {
			return sel, errs.Newf(errs.InvalidValue, "empty property name in selector %q", s)
		}
		sel.Kind = SelVertexProperty
		sel.PropertyName = name
	case s == "r":
		sel.Kind = SelResult
	case strings.HasPrefix(s, "r."):
		field := strings.TrimPrefix(s, "r.")
		k, err := strconv.Atoi(field)
		if err != nil || k < 0 {
			return sel, errs.Newf(errs.InvalidValue, "malformed result field selector %q", s)
		}
		sel.Kind = SelResultField
		sel.ResultField = k
	default:
		return sel, errs.Newf(errs.InvalidValue, "unrecognized selector %q", s)
	}

	return sel, nil
}
