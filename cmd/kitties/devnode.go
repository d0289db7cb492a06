// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/blinklabs-io/gokitties/devnode"
)

type devnodeFlags struct {
	flagset *flag.FlagSet
	seed    string
}

func newDevnodeFlags() *devnodeFlags {
	f := &devnodeFlags{
		flagset: flag.NewFlagSet("devnode", flag.ExitOnError),
	}
	f.flagset.StringVar(&f.seed, "seed", "gokitties", "seed mixed into generated DNA")
	return f
}

func createListenerSocket(f *globalFlags) (net.Listener, error) {
	listenProto, listenAddress := dialTarget(f)
	if listenAddress == "" {
		return nil, fmt.Errorf("no listening address or socket specified")
	}
	if listenProto == "unix" {
		if err := os.Remove(listenAddress); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove existing socket: %w", err)
		}
	}
	listen, err := net.Listen(listenProto, listenAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to open listening socket: %w", err)
	}
	return listen, nil
}

func runDevnode(f *globalFlags) {
	devnodeFlags := newDevnodeFlags()
	if err := devnodeFlags.flagset.Parse(f.flagset.Args()[1:]); err != nil {
		fmt.Printf("failed to parse subcommand args: %s\n", err)
		os.Exit(1)
	}
	listen, err := createListenerSocket(f)
	if err != nil {
		fmt.Printf("ERROR: failed to create listener: %s\n", err)
		os.Exit(1)
	}
	state := devnode.NewState(
		devnode.WithDevEndowments(),
		devnode.WithSeed([]byte(devnodeFlags.seed)),
	)
	server := devnode.NewServer(
		state,
		devnode.WithLogger(newLogger(f)),
		//nolint:gosec
		devnode.WithNetworkMagic(uint32(f.networkMagic)),
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		server.Stop()
	}()
	if err := server.Serve(listen); err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
}
