/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package params

import (
	"testing"

	"github.com/krotik/grape/errs"
)

func TestTypedGetters(t *testing.T) {
	a, err := NewFromMap(map[string]interface{}{
		"graph_name": "g1",
		"directed":   true,
		"axis":       float64(1),
		"nodes-list": []interface{}{"1", "2", "3"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if v, err := a.String("graph_name"); err != nil || v != "g1" {
		t.Fatalf("String: %v %v", v, err)
	}

	if v, err := a.Bool("directed"); err != nil || !v {
		t.Fatalf("Bool: %v %v", v, err)
	}

	if v, err := a.Int64("axis"); err != nil || v != 1 {
		t.Fatalf("Int64: %v %v", v, err)
	}

	if v, err := a.StringList("nodes-list"); err != nil || len(v) != 3 || v[1] != "2" {
		t.Fatalf("StringList: %v %v", v, err)
	}
}

func TestMissingKey(t *testing.T) {
	a, _ := NewFromMap(map[string]interface{}{})

	if _, err := a.String("graph_name"); errs.KindOf(err) != errs.MissingKey {
		t.Fatalf("expected MissingKey, got %v", err)
	}
}

func TestInvalidValue(t *testing.T) {
	a, _ := NewFromMap(map[string]interface{}{
		"graph_name": "g1",
		"axis":       float64(1.5),
	})

	if _, err := a.Bool("graph_name"); errs.KindOf(err) != errs.InvalidValue {
		t.Fatalf("expected InvalidValue, got %v", err)
	}

	if _, err := a.Int64("axis"); errs.KindOf(err) != errs.InvalidValue {
		t.Fatalf("expected InvalidValue for non-integer axis, got %v", err)
	}
}

func TestEnum(t *testing.T) {
	a, _ := NewFromMap(map[string]interface{}{"copy_type": "identical"})

	if v, err := a.Enum("copy_type", "identical", "reset"); err != nil || v != "identical" {
		t.Fatalf("Enum: %v %v", v, err)
	}

	if _, err := a.Enum("copy_type", "reset"); errs.KindOf(err) != errs.InvalidValue {
		t.Fatalf("expected InvalidValue, got %v", err)
	}
}

func TestDefaults(t *testing.T) {
	a, _ := NewFromMap(map[string]interface{}{})

	if v, err := a.StringOr("selector", "v.id"); err != nil || v != "v.id" {
		t.Fatalf("StringOr: %v %v", v, err)
	}
	if v, err := a.BoolOr("directed", true); err != nil || !v {
		t.Fatalf("BoolOr: %v %v", v, err)
	}
	if v, err := a.Int64Or("axis", 0); err != nil || v != 0 {
		t.Fatalf("Int64Or: %v %v", v, err)
	}
}
