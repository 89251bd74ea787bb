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
The transport stand-in described in main.go's package doc: an
in-process stdin-JSON-lines command loop, isolated in its own file so a
real RPC frontend can replace it without touching worker setup.
*/
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/krotik/grape/dispatcher"
)

/*
serveCommands reads one JSON-encoded dispatcher.Command per stdin line,
dispatches it to every simulated rank concurrently, and writes the
aggregated dispatcher.Result to stdout as one JSON line.
*/
func serveCommands(ctx context.Context, instances []*dispatcher.Instance) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	out := json.NewEncoder(os.Stdout)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var c dispatcher.Command
		if err := c.UnmarshalCommandJSON(line); err != nil {
			out.Encode(map[string]string{"error": err.Error()})
			continue
		}

		res, err := dispatchToAll(ctx, instances, c)
		if err != nil {
			out.Encode(map[string]string{"error": err.Error()})
			continue
		}
		out.Encode(res)
	}

	return scanner.Err()
}

/*
dispatchToAll runs cmd on every rank's Instance concurrently (the
collective discipline spec.md §4.7 requires: same command, same code
path, every worker) and reduces the per-rank Results via the policy the
handler itself reports.
*/
func dispatchToAll(ctx context.Context, instances []*dispatcher.Instance, cmd dispatcher.Command) (*dispatcher.Result, error) {
	results := make([]*dispatcher.Result, len(instances))
	errsPerRank := make([]error, len(instances))

	var wg sync.WaitGroup
	for i, in := range instances {
		wg.Add(1)
		go func(i int, in *dispatcher.Instance) {
			defer wg.Done()
			res, err := in.OnReceive(ctx, cmd)
			results[i] = res
			errsPerRank[i] = err
		}(i, in)
	}
	wg.Wait()

	for _, err := range errsPerRank {
		if err != nil {
			return nil, err
		}
	}

	return dispatcher.Aggregate(results)
}
