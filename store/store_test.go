/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package store

import (
	"context"
	"testing"

	"github.com/krotik/grape/errs"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemClient("/tmp/sock")

	id, err := c.Put(ctx, "blob", []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	b, err := c.Get(ctx, id)
	if err != nil || string(b) != "hello" {
		t.Fatalf("Get: %v %v", b, err)
	}

	if err := c.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}

	if c.Has(ctx, id) {
		t.Fatal("expected object to be gone")
	}

	if err := c.Delete(ctx, id); errs.KindOf(err) != errs.StoreError {
		t.Fatalf("expected StoreError on double delete, got %v", err)
	}
}

func TestConstructFragmentGroup(t *testing.T) {
	ctx := context.Background()
	c := NewMemClient("/tmp/sock")

	id0, _ := c.PersistFragment(ctx, "g1", 0, []byte("shard0"))
	id1, _ := c.PersistFragment(ctx, "g1", 1, []byte("shard1"))

	groupID, err := c.ConstructFragmentGroup(ctx, "g1", []ObjectID{id0, id1})
	if err != nil {
		t.Fatal(err)
	}
	if !c.Has(ctx, groupID) {
		t.Fatal("expected group object to exist")
	}

	if _, err := c.ConstructFragmentGroup(ctx, "g1", []ObjectID{id0, ObjectID(999999)}); errs.KindOf(err) != errs.StoreError {
		t.Fatalf("expected StoreError for missing shard, got %v", err)
	}
}
