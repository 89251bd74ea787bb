/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package comm

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestBarrier(t *testing.T) {
	members := NewGroup(4)

	var wg sync.WaitGroup
	order := make([]int, 4)

	for i, m := range members {
		wg.Add(1)
		go func(i int, m *InProc) {
			defer wg.Done()
			order[i] = 1
			m.Barrier(context.Background())
		}(i, m)
	}

	wg.Wait()

	for i, v := range order {
		if v != 1 {
			t.Fatalf("rank %d did not reach barrier", i)
		}
	}
}

func TestGatherOrder(t *testing.T) {
	members := NewGroup(3)

	results := make([][][]byte, 3)
	var wg sync.WaitGroup

	for i, m := range members {
		wg.Add(1)
		go func(i int, m *InProc) {
			defer wg.Done()
			r, err := m.Gather(context.Background(), 0, []byte(fmt.Sprintf("rank%d", i)))
			if err != nil {
				t.Error(err)
			}
			results[i] = r
		}(i, m)
	}

	wg.Wait()

	root := results[0]
	if len(root) != 3 {
		t.Fatalf("expected 3 payloads at root, got %d", len(root))
	}
	for i, p := range root {
		if string(p) != fmt.Sprintf("rank%d", i) {
			t.Fatalf("gather out of order: %v", root)
		}
	}

	for i := 1; i < 3; i++ {
		if results[i] != nil {
			t.Fatalf("non-root rank %d should not receive gathered payloads", i)
		}
	}
}

func TestBroadcast(t *testing.T) {
	members := NewGroup(3)

	got := make([][]byte, 3)
	var wg sync.WaitGroup

	for i, m := range members {
		wg.Add(1)
		go func(i int, m *InProc) {
			defer wg.Done()
			var payload []byte
			if i == 1 {
				payload = []byte("hello")
			}
			b, err := m.Broadcast(context.Background(), 1, payload)
			if err != nil {
				t.Error(err)
			}
			got[i] = b
		}(i, m)
	}

	wg.Wait()

	for i, b := range got {
		if string(b) != "hello" {
			t.Fatalf("rank %d got %q, want hello", i, b)
		}
	}
}

func TestSequentialRounds(t *testing.T) {
	members := NewGroup(2)

	var wg sync.WaitGroup
	for _, m := range members {
		wg.Add(1)
		go func(m *InProc) {
			defer wg.Done()
			m.Barrier(context.Background())
			m.Gather(context.Background(), 0, []byte("x"))
			m.Barrier(context.Background())
		}(m)
	}
	wg.Wait()
}
