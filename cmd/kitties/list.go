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
	"os"
	"os/signal"
	"syscall"
	"time"

	kitties "github.com/blinklabs-io/gokitties"
	"github.com/blinklabs-io/gokitties/display"
	"github.com/blinklabs-io/gokitties/gallery"
	"github.com/blinklabs-io/gokitties/ledger"
)

type listFlags struct {
	flagset *flag.FlagSet
	prices  bool
}

func newListFlags() *listFlags {
	f := &listFlags{
		flagset: flag.NewFlagSet("list", flag.ExitOnError),
	}
	f.flagset.BoolVar(&f.prices, "prices", false, "also show asking prices")
	return f
}

type watchFlags struct {
	flagset      *flag.FlagSet
	pollInterval time.Duration
	keepStale    bool
}

func newWatchFlags() *watchFlags {
	f := &watchFlags{
		flagset: flag.NewFlagSet("watch", flag.ExitOnError),
	}
	f.flagset.DurationVar(
		&f.pollInterval,
		"poll-interval",
		2*time.Second,
		"how often to re-read the node",
	)
	f.flagset.BoolVar(
		&f.keepStale,
		"keep-stale",
		false,
		"apply responses to superseded reads instead of discarding them",
	)
	return f
}

func runList(f *globalFlags) {
	listFlags := newListFlags()
	if err := listFlags.flagset.Parse(f.flagset.Args()[1:]); err != nil {
		fmt.Printf("failed to parse subcommand args: %s\n", err)
		os.Exit(1)
	}
	logger := newLogger(f)
	conn := connect(f, logger)
	defer conn.Close()
	src := kitties.NewNodeSource(conn)
	ctx := context.Background()
	count, err := src.Count(ctx)
	if err != nil {
		fmt.Printf("ERROR: failure querying kitty count: %s\n", err)
		os.Exit(1)
	}
	ids := make([]ledger.KittyIndex, count)
	for i := range ids {
		ids[i] = ledger.KittyIndex(i) // #nosec G115
	}
	payloads, err := src.BatchGet(ctx, ids)
	if err != nil {
		fmt.Printf("ERROR: failure querying kitties: %s\n", err)
		os.Exit(1)
	}
	owners, err := src.BatchGetOwner(ctx, ids)
	if err != nil {
		fmt.Printf("ERROR: failure querying owners: %s\n", err)
		os.Exit(1)
	}
	ss58Prefix := kitties.NetworkByNetworkMagic(uint32(f.networkMagic)).SS58Prefix // #nosec G115
	ownerStrs := make([]ledger.Option[string], len(owners))
	for i, owner := range owners {
		ownerStrs[i] = ledger.MapOption(owner, func(a ledger.AccountId) string {
			return a.SS58(ss58Prefix)
		})
	}
	var prices []ledger.Option[ledger.Balance]
	if listFlags.prices {
		prices, err = src.BatchGetPrice(ctx, ids)
		if err != nil {
			fmt.Printf("ERROR: failure querying prices: %s\n", err)
			os.Exit(1)
		}
	}
	printer := display.NewPrinter(display.ParseTag(f.lang))
	records := gallery.Reconcile(count, payloads, ownerStrs)
	if err := printer.Table(os.Stdout, records, prices); err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
}

func runWatch(f *globalFlags) {
	watchFlags := newWatchFlags()
	if err := watchFlags.flagset.Parse(f.flagset.Args()[1:]); err != nil {
		fmt.Printf("failed to parse subcommand args: %s\n", err)
		os.Exit(1)
	}
	logger := newLogger(f)
	conn := connect(f, logger, kitties.WithKeepAlive(true))
	defer conn.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	orchestrator := gallery.New(
		kitties.NewNodeSource(conn),
		gallery.WithLogger(logger),
		gallery.WithPollInterval(watchFlags.pollInterval),
		gallery.WithDiscardStale(!watchFlags.keepStale),
		// #nosec G115
		gallery.WithSS58Prefix(kitties.NetworkByNetworkMagic(uint32(f.networkMagic)).SS58Prefix),
	)
	if err := orchestrator.Start(ctx); err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	defer orchestrator.Stop()
	printer := display.NewPrinter(display.ParseTag(f.lang))
	for {
		select {
		case <-ctx.Done():
			return
		case records, ok := <-orchestrator.Updates():
			if !ok {
				return
			}
			if err := printer.Table(os.Stdout, records, nil); err != nil {
				fmt.Printf("ERROR: %s\n", err)
				return
			}
			fmt.Println()
		}
	}
}
