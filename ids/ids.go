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
Package ids provides the process-local identifier generator used by the
dispatcher to name newly created graphs, apps and contexts.

Names only ever need to be unique within one worker's registry (they are
looked up locally, never across the cluster) so a monotonic counter is
enough. When an identifier must be unguessable across the whole cluster
(a cluster-wide lock or token, not currently exercised by the command
table but kept for callers that need it) Token derives one from the name
and a shared secret the same way the cluster manager derives a member
token; the rank plays no part in it.
*/
package ids

import (
	"crypto/sha512"
	"fmt"
	"sync/atomic"
)

/*
Generator is a process-local monotonic id generator.
*/
type Generator struct {
	rank    int
	counter uint64
}

/*
NewGenerator creates a new Generator for the given worker rank.
*/
func NewGenerator(rank int) *Generator {
	return &Generator{rank: rank}
}

/*
Next returns the next name for the given prefix (e.g. "graph", "app",
"ctx"). Names are only unique within this process.
*/
func (g *Generator) Next(prefix string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, g.rank, n)
}

/*
Token derives a cluster-wide unguessable identifier for name from a
shared secret, the same way cluster/manager derives a member token: a
truncated SHA-512 of the name concatenated with the secret. The secret
is never transmitted; only the token is.
*/
func Token(name, secret string) string {
	return fmt.Sprintf("%X", sha512.Sum512_224([]byte(name+secret)))
}
