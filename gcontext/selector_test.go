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
	"testing"

	"github.com/krotik/grape/errs"
)

func TestParseSelectorBasicKinds(t *testing.T) {
	cases := map[string]SelectorKind{
		"v.id":       SelVertexID,
		"v.data":     SelVertexData,
		"v.label_id": SelVertexLabelID,
		"r":          SelResult,
	}
	for s, want := range cases {
		sel, err := ParseSelector(s)
		if err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if sel.Kind != want {
			t.Fatalf("%s: expected kind %v, got %v", s, want, sel.Kind)
		}
	}
}

func TestParseSelectorProperty(t *testing.T) {
	sel, err := ParseSelector("v.property.age")
	if err != nil {
		t.Fatal(err)
	}
	if sel.Kind != SelVertexProperty || sel.PropertyName != "age" {
		t.Fatalf("unexpected parse result: %+v", sel)
	}
}

func TestParseSelectorResultField(t *testing.T) {
	sel, err := ParseSelector("r.2")
	if err != nil {
		t.Fatal(err)
	}
	if sel.Kind != SelResultField || sel.ResultField != 2 {
		t.Fatalf("unexpected parse result: %+v", sel)
	}
}

func TestParseSelectorLabelPrefix(t *testing.T) {
	sel, err := ParseSelector("#3:v.data")
	if err != nil {
		t.Fatal(err)
	}
	if !sel.HasLabelID || sel.LabelID != 3 || sel.Kind != SelVertexData {
		t.Fatalf("unexpected parse result: %+v", sel)
	}
}

func TestParseSelectorInvalid(t *testing.T) {
	cases := []string{"", "v.bogus", "v.property.", "r.abc", "#x:v.data", "#3-v.data"}
	for _, s := range cases {
		if _, err := ParseSelector(s); errs.KindOf(err) != errs.InvalidValue {
			t.Fatalf("%q: expected InvalidValue, got %v", s, err)
		}
	}
}
