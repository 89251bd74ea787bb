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
Grape worker main entry point.

The real wire transport between a coordinator and its workers is out of
scope (spec.md §1); serveCommands (transport.go) is the "transport
assumed" stand-in this binary wires in its place — an in-process
stdin-JSON-lines command loop run collectively across an fnum-sized
comm.NewGroup simulated in one process, the way comm.InProc already
does for tests. A real deployment would replace transport.go with
whatever RPC frontend fronts the coordinator; nothing in dispatcher or
comm depends on that choice.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/krotik/grape/comm"
	"github.com/krotik/grape/config"
	"github.com/krotik/grape/dispatcher"
	"github.com/krotik/grape/metrics"
	"github.com/krotik/grape/registry"
	"github.com/krotik/grape/store"
)

var (
	configFile        string
	rankFlag          int
	fnumFlag          int
	objectStoreSocket string
	rpcListenAddress  string
	metricsListenFlag string
	enableMetricsFlag bool

	rootCmd = &cobra.Command{
		Use:   "grape-worker",
		Short: "Runs a Grape worker group and processes commands from stdin",
		RunE:  run,
	}
)

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", config.DefaultConfigFile, "path to the worker config file")
	rootCmd.Flags().IntVar(&rankFlag, "rank", -1, "this worker's rank (only meaningful for logging without a real multi-process transport)")
	rootCmd.Flags().IntVar(&fnumFlag, "fnum", 0, "number of simulated worker ranks (0 uses the config file's WorkerCount)")
	rootCmd.Flags().StringVar(&objectStoreSocket, "object-store-socket", "", "override the configured object store socket")
	rootCmd.Flags().StringVar(&rpcListenAddress, "rpc-listen", "", "override the configured RPC listen address")
	rootCmd.Flags().StringVar(&metricsListenFlag, "metrics-listen", "", "override the configured metrics listen address")
	rootCmd.Flags().BoolVar(&enableMetricsFlag, "enable-metrics", false, "force-enable the /metrics endpoint")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := config.LoadConfigFile(configFile); err != nil {
		return err
	}

	if objectStoreSocket != "" {
		config.Config[config.ObjectStoreSocket] = objectStoreSocket
	}
	if rpcListenAddress != "" {
		config.Config[config.RPCListenAddress] = rpcListenAddress
	}
	if metricsListenFlag != "" {
		config.Config[config.MetricsListenAddress] = metricsListenFlag
	}
	if enableMetricsFlag {
		config.Config[config.EnableMetrics] = true
	}
	if rankFlag >= 0 {
		config.Config[config.WorkerRank] = float64(rankFlag)
	}

	fnum := fnumFlag
	if fnum <= 0 {
		fnum = int(config.Int(config.WorkerCount))
	}
	if fnum <= 0 {
		fnum = 1
	}

	sc := store.NewMemClient(config.Str(config.ObjectStoreSocket))
	members := comm.NewGroup(fnum)

	instances := make([]*dispatcher.Instance, fnum)
	for i, m := range members {
		instances[i] = dispatcher.New(m, sc, registry.New())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.Bool(config.EnableMetrics) {
		promReg := prometheus.NewRegistry()
		mtr := metrics.New(promReg)
		for _, in := range instances {
			in.WithMetrics(mtr)
		}
		go func() {
			if err := metrics.Serve(ctx, config.Str(config.MetricsListenAddress), promReg); err != nil {
				fmt.Fprintln(os.Stderr, "metrics server: ", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return serveCommands(ctx, instances)
}
