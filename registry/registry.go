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
Package registry contains the process-wide object registry: a map from
string id to a registered artifact (fragment wrapper, algorithm entry,
context, or graph utility).

The registry is the only root of ownership for artifacts after they are
published by the dispatcher; no other code should retain a strong handle
across command boundaries. All operations are safe for concurrent use,
mirroring the RWMutex-guarded access pattern the teacher's graph.Manager
uses around its own internal maps.
*/
package registry

import (
	"fmt"
	"sync"

	"github.com/krotik/grape/errs"
)

/*
Registry is a process-local map from string id to artifact.
*/
type Registry struct {
	lock  sync.RWMutex
	items map[string]interface{}
}

/*
New creates a new, empty Registry.
*/
func New() *Registry {
	return &Registry{items: make(map[string]interface{})}
}

/*
Put registers a new artifact under id. Fails with DuplicateId if id is
already present.
*/
func (r *Registry) Put(id string, artifact interface{}) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.items[id]; ok {
		return errs.Newf(errs.DuplicateID, "id %q is already registered", id)
	}

	r.items[id] = artifact

	return nil
}

/*
Has reports whether id is currently registered.
*/
func (r *Registry) Has(id string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	_, ok := r.items[id]
	return ok
}

/*
Remove unregisters id. Fails with NotFound if id is not present.
*/
func (r *Registry) Remove(id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.items[id]; !ok {
		return errs.Newf(errs.NotFound, "id %q is not registered", id)
	}

	delete(r.items, id)

	return nil
}

/*
Len returns the number of registered artifacts, for metrics reporting.
*/
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return len(r.items)
}

/*
Get looks up id and type-asserts it to T. Fails with NotFound if id is
missing, or TypeMismatch if the registered artifact is not a T.
*/
func Get[T any](r *Registry, id string) (T, error) {
	var zero T

	r.lock.RLock()
	artifact, ok := r.items[id]
	r.lock.RUnlock()

	if !ok {
		return zero, errs.Newf(errs.NotFound, "id %q is not registered", id)
	}

	typed, ok := artifact.(T)
	if !ok {
		return zero, errs.Newf(errs.TypeMismatch, "id %q is a %v, not %v",
			id, fmt.Sprintf("%T", artifact), fmt.Sprintf("%T", zero))
	}

	return typed, nil
}
