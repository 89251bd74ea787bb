/*
 * Grape
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package algorithm

import (
	"context"
	"testing"

	"github.com/krotik/grape/errs"
)

func TestInitMissingEntryFileIsLibraryLoad(t *testing.T) {
	if _, err := Init(context.Background(), "nowhere", t.TempDir()); errs.KindOf(err) != errs.LibraryLoad {
		t.Fatalf("expected LibraryLoad, got %v", err)
	}
}

func TestDefaultEngineSpecReportsCores(t *testing.T) {
	spec := DefaultEngineSpec()
	if spec["kind"] != "parallel" {
		t.Fatalf("expected parallel engine spec, got %v", spec["kind"])
	}
	if n, ok := spec["num_workers"].(int); !ok || n <= 0 {
		t.Fatalf("expected a positive num_workers, got %v", spec["num_workers"])
	}
}
