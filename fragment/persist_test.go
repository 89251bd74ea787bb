/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package fragment

import (
	"context"
	"testing"

	"github.com/krotik/grape/store"
)

func TestPersistShardConstructsFragmentGroup(t *testing.T) {
	c := singleRankComm()
	sc := store.NewMemClient("test-socket")
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, nil)

	shardID, groupID, err := PersistShard(context.Background(), c, sc, "g1", f)
	if err != nil {
		t.Fatal(err)
	}
	if shardID == store.NoObject {
		t.Fatal("expected a non-zero shard id")
	}
	if groupID == store.NoObject {
		t.Fatal("expected a non-zero fragment-group id")
	}
	if !sc.Has(context.Background(), shardID) {
		t.Fatal("expected the shard to exist in the store")
	}
	if !sc.Has(context.Background(), groupID) {
		t.Fatal("expected the fragment-group to exist in the store")
	}
}

func TestPersistShardEachCallGetsItsOwnGroup(t *testing.T) {
	c := singleRankComm()
	sc := store.NewMemClient("test-socket")
	f := NewColumnFragment(0, 1, true, NewVertexMap(1, "g1"), []*PropertyTable{personTable()}, nil)

	_, group1, err := PersistShard(context.Background(), c, sc, "g1", f)
	if err != nil {
		t.Fatal(err)
	}
	_, group2, err := PersistShard(context.Background(), c, sc, "g2", f)
	if err != nil {
		t.Fatal(err)
	}
	if group1 == group2 {
		t.Fatal("expected each PersistShard call to mint its own fragment-group id")
	}
}

func TestEncodeShardSummaryIsDeterministic(t *testing.T) {
	labelCounts := map[string]int{"person": 2, "company": 1}

	a := EncodeShardSummary(0, 1, true, labelCounts)
	b := EncodeShardSummary(0, 1, true, labelCounts)
	if string(a) != string(b) {
		t.Fatal("expected identical inputs to encode identically regardless of map iteration order")
	}
}
