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
Package comm models the MPI-style communicator every collective
dispatcher operation runs against.

The wire transport that actually moves bytes between worker processes is
out of scope (spec.md §1): Communicator only specifies the contract the
dispatcher consumes (rank/size, barrier, gather, broadcast). InProc is an
in-memory implementation of that contract used for tests and for
single-process multi-"worker" simulation, built the way the teacher's
cluster/manager.Server routes calls between in-process MemberManagers
rather than the real net/rpc transport it also happens to use (which
would duplicate the excluded wire transport).
*/
package comm

import (
	"context"
	"sync"

	"github.com/krotik/grape/errs"
)

/*
Communicator is the collective-operation contract a dispatcher command
runs against. Every rank must make the same sequence of collective
calls with the same root. Agreement is not checked: a root outside
[0, Size()) or a cancelled context is CommError, while ranks that
disagree on a round's root or kind are not detected.
*/
type Communicator interface {

	/*
		Rank returns this process's rank (fragment id) in [0, Size()).
	*/
	Rank() int

	/*
		Size returns the total number of cooperating processes (fnum).
	*/
	Size() int

	/*
		Barrier blocks until every rank has called Barrier for this round.
	*/
	Barrier(ctx context.Context) error

	/*
		Gather sends payload to the root rank and, on the root, returns all
		ranks' payloads as one slice entry per rank in ascending rank order. Non-root
		callers get a nil slice back on success.
	*/
	Gather(ctx context.Context, root int, payload []byte) ([][]byte, error)

	/*
		Broadcast sends root's payload to every rank, root included.
	*/
	Broadcast(ctx context.Context, root int, payload []byte) ([]byte, error)
}

/*
round accumulates one collective operation's per-rank state.
*/
type round struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	payloads [][]byte
	arrived  int
}

/*
InProc is an in-memory Communicator simulating fnum cooperating
processes inside one Go process. Every rank must be obtained via the
same Group so that barriers, gathers and broadcasts synchronize across
ranks.
*/
type InProc struct {
	group *group
	rank  int
	seq   int // collective rounds this rank has completed; keys the next round
}

type group struct {
	size int

	mu       sync.Mutex
	barriers map[int]*sync.WaitGroup
	gathers  map[int]*round
	bcasts   map[int]*round
}

/*
NewGroup creates a communicator group of size fnum and returns one
InProc communicator per rank, ranks 0..fnum-1.
*/
func NewGroup(fnum int) []*InProc {
	g := &group{
		size:     fnum,
		barriers: make(map[int]*sync.WaitGroup),
		gathers:  make(map[int]*round),
		bcasts:   make(map[int]*round),
	}

	members := make([]*InProc, fnum)
	for i := 0; i < fnum; i++ {
		members[i] = &InProc{group: g, rank: i}
	}
	return members
}

func (c *InProc) Rank() int { return c.rank }
func (c *InProc) Size() int { return c.group.size }

func (c *InProc) Barrier(ctx context.Context) error {
	g := c.group

	g.mu.Lock()
	seq := c.seq
	wg, ok := g.barriers[seq]
	if !ok {
		wg = &sync.WaitGroup{}
		wg.Add(g.size)
		g.barriers[seq] = wg
	}
	g.mu.Unlock()

	wg.Done()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return errs.Newf(errs.CommError, "barrier cancelled: %v", ctx.Err())
	}

	c.seq++
	g.mu.Lock()
	delete(g.barriers, seq)
	g.mu.Unlock()

	return nil
}

func (c *InProc) Gather(ctx context.Context, root int, payload []byte) ([][]byte, error) {
	if root < 0 || root >= c.group.size {
		return nil, errs.Newf(errs.CommError, "invalid gather root %d", root)
	}

	g := c.group

	g.mu.Lock()
	seq := c.seq
	r, ok := g.gathers[seq]
	if !ok {
		r = &round{payloads: make([][]byte, g.size)}
		r.wg.Add(g.size)
		g.gathers[seq] = r
	}
	g.mu.Unlock()

	r.mu.Lock()
	r.payloads[c.rank] = payload
	r.arrived++
	r.mu.Unlock()
	r.wg.Done()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, errs.Newf(errs.CommError, "gather cancelled: %v", ctx.Err())
	}

	c.seq++
	g.mu.Lock()
	delete(g.gathers, seq)
	g.mu.Unlock()

	if c.rank != root {
		return nil, nil
	}

	return r.payloads, nil
}

func (c *InProc) Broadcast(ctx context.Context, root int, payload []byte) ([]byte, error) {
	if root < 0 || root >= c.group.size {
		return nil, errs.Newf(errs.CommError, "invalid broadcast root %d", root)
	}

	g := c.group

	g.mu.Lock()
	seq := c.seq
	r, ok := g.bcasts[seq]
	if !ok {
		r = &round{payloads: make([][]byte, 1)}
		r.wg.Add(g.size)
		g.bcasts[seq] = r
	}
	g.mu.Unlock()

	if c.rank == root {
		r.mu.Lock()
		r.payloads[0] = payload
		r.mu.Unlock()
	}
	r.wg.Done()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, errs.Newf(errs.CommError, "broadcast cancelled: %v", ctx.Err())
	}

	c.seq++
	g.mu.Lock()
	delete(g.bcasts, seq)
	g.mu.Unlock()

	return r.payloads[0], nil
}
