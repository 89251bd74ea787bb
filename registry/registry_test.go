/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package registry

import (
	"testing"

	"github.com/krotik/grape/errs"
)

type fakeFragment struct {
	name string
}

func TestPutGetRemove(t *testing.T) {
	r := New()

	if err := r.Put("g1", &fakeFragment{"a"}); err != nil {
		t.Fatal(err)
	}

	if !r.Has("g1") {
		t.Fatal("expected g1 to be registered")
	}

	f, err := Get[*fakeFragment](r, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if f.name != "a" {
		t.Fatalf("unexpected fragment: %v", f)
	}

	if err := r.Remove("g1"); err != nil {
		t.Fatal(err)
	}

	if r.Has("g1") {
		t.Fatal("expected g1 to be removed")
	}
}

func TestDuplicateID(t *testing.T) {
	r := New()

	if err := r.Put("g1", &fakeFragment{"a"}); err != nil {
		t.Fatal(err)
	}

	err := r.Put("g1", &fakeFragment{"b"})
	if errs.KindOf(err) != errs.DuplicateID {
		t.Fatalf("expected DuplicateId, got %v", err)
	}
}

func TestNotFound(t *testing.T) {
	r := New()

	_, err := Get[*fakeFragment](r, "missing")
	if errs.KindOf(err) != errs.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	if err := r.Remove("missing"); errs.KindOf(err) != errs.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestTypeMismatch(t *testing.T) {
	r := New()

	if err := r.Put("x", "a string, not a fragment"); err != nil {
		t.Fatal(err)
	}

	_, err := Get[*fakeFragment](r, "x")
	if errs.KindOf(err) != errs.TypeMismatch {
		t.Fatalf("expected TypeMismatch, got %v", err)
	}
}
