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
Package store models the shared-memory object store (a Vineyard-like
system) as a client interface, per spec.md §1: the store itself is an
external collaborator, specified only by the contract the dispatcher
consumes.

The interface's shape is lifted from the teacher's
graph/graphstorage.Storage (Name/MainDB/FlushAll/StorageManager/Close)
but re-pointed at the verbs the dispatcher actually needs against an
external, cluster-wide store: put/get a blob, persist a fragment's
payload, construct/tear down a fragment-group aggregate, and report the
socket the client is talking over (for GET_ENGINE_CONFIG).
*/
package store

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
	"github.com/krotik/grape/errs"
)

/*
ObjectID is an opaque handle returned by the object store. It is backed
by uint64, matching the wire's int64 vineyard_id field (spec.md §6) and
real Vineyard's own object id representation, but callers should still
treat it as opaque: it is minted from a random UUID, not a counter.
*/
type ObjectID uint64

/*
NoObject is the sentinel ObjectID meaning "not backed by the object
store" (GraphDef.VineyardID == -1 on the wire).
*/
const NoObject ObjectID = 0

/*
newObjectID mints an opaque, non-sequential object id.
*/
func newObjectID() ObjectID {
	u := uuid.New()
	// Fold the 16 random bytes into 8 so the id still fits an int64 on
	// the wire.
	hi := binary.BigEndian.Uint64(u[:8])
	lo := binary.BigEndian.Uint64(u[8:])
	// Clear the top bit so the id always fits a positive int64, and set
	// the low bit so it is never confused with NoObject.
	id := ObjectID(((hi ^ lo) &^ (uint64(1) << 63)) | 1)
	return id
}

/*
Client is the object store client contract.
*/
type Client interface {

	/*
		IPCSocket returns the path to the store's IPC socket, as configured
		at engine init.
	*/
	IPCSocket() string

	/*
		Put stores an opaque named blob and returns its object id.
	*/
	Put(ctx context.Context, name string, blob []byte) (ObjectID, error)

	/*
		Get retrieves a previously stored blob by object id.
	*/
	Get(ctx context.Context, id ObjectID) ([]byte, error)

	/*
		PersistFragment stores one worker's fragment shard and returns its
		local object id. Every worker calls this for its own shard; the
		resulting ids are then aggregated with ConstructFragmentGroup.
	*/
	PersistFragment(ctx context.Context, graphName string, rank int, blob []byte) (ObjectID, error)

	/*
		ConstructFragmentGroup aggregates one object id per worker into a
		single cluster-wide fragment-group object and returns its id. Acts
		as the fence every fragment-group-producing command relies on: no
		caller should observe the new graph as ready before this returns.
	*/
	ConstructFragmentGroup(ctx context.Context, graphName string, shardIDs []ObjectID) (ObjectID, error)

	/*
		Delete removes an object. Deleting a fragment-group id also
		invalidates (but does not necessarily remove) its member shard ids.
	*/
	Delete(ctx context.Context, id ObjectID) error

	/*
		Has reports whether id currently exists in the store.
	*/
	Has(ctx context.Context, id ObjectID) bool
}

/*
MemClient is an in-memory Client implementation used for tests and for
single-process simulation. Object ids are minted with google/uuid so
that tests cannot accidentally depend on ids being small sequential
integers, a guarantee the real store does not make.
*/
type MemClient struct {
	socket  string
	mu      sync.Mutex
	objects map[ObjectID][]byte
}

/*
NewMemClient creates an empty in-memory store client bound to socket
(purely informational — no actual IPC happens).
*/
func NewMemClient(socket string) *MemClient {
	return &MemClient{
		socket:  socket,
		objects: make(map[ObjectID][]byte),
	}
}

func (m *MemClient) IPCSocket() string { return m.socket }

func (m *MemClient) Put(ctx context.Context, name string, blob []byte) (ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := newObjectID()
	m.objects[id] = append([]byte(nil), blob...)
	return id, nil
}

func (m *MemClient) Get(ctx context.Context, id ObjectID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.objects[id]
	if !ok {
		return nil, errs.Newf(errs.StoreError, "object %v not found", id)
	}
	return b, nil
}

func (m *MemClient) PersistFragment(ctx context.Context, graphName string, rank int, blob []byte) (ObjectID, error) {
	return m.Put(ctx, graphName, blob)
}

func (m *MemClient) ConstructFragmentGroup(ctx context.Context, graphName string, shardIDs []ObjectID) (ObjectID, error) {
	for _, id := range shardIDs {
		if !m.Has(ctx, id) {
			return NoObject, errs.Newf(errs.StoreError, "shard %v missing while constructing group for %q", id, graphName)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := newObjectID()
	m.objects[id] = []byte(graphName)
	return id, nil
}

func (m *MemClient) Delete(ctx context.Context, id ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[id]; !ok {
		return errs.Newf(errs.StoreError, "object %v not found", id)
	}
	delete(m.objects, id)
	return nil
}

func (m *MemClient) Has(ctx context.Context, id ObjectID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.objects[id]
	return ok
}
