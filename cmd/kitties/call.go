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
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	kitties "github.com/blinklabs-io/gokitties"
	"github.com/blinklabs-io/gokitties/display"
	"github.com/blinklabs-io/gokitties/gallery"
	"github.com/blinklabs-io/gokitties/keyring"
	"github.com/blinklabs-io/gokitties/ledger"
)

type callFlags struct {
	flagset *flag.FlagSet
	timeout time.Duration
}

func newCallFlags(name string) *callFlags {
	f := &callFlags{
		flagset: flag.NewFlagSet(name, flag.ExitOnError),
	}
	f.flagset.DurationVar(&f.timeout, "timeout", 30*time.Second, "how long to wait for the node")
	return f
}

var errUsage = errors.New("usage")

// buildRequest turns subcommand arguments into a call request
func buildRequest(
	name string,
	args []string,
	devKeyring *keyring.Keyring,
) (gallery.CallRequest, error) {
	switch name {
	case "create":
		return gallery.CreateRequest(), nil
	case "breed":
		if len(args) != 2 {
			return gallery.CallRequest{}, fmt.Errorf("%w: breed <kitty-id> <kitty-id>", errUsage)
		}
		kittyId1, err := parseKittyId(args[0])
		if err != nil {
			return gallery.CallRequest{}, err
		}
		kittyId2, err := parseKittyId(args[1])
		if err != nil {
			return gallery.CallRequest{}, err
		}
		return gallery.BreedRequest(kittyId1, kittyId2), nil
	case "transfer":
		if len(args) != 2 {
			return gallery.CallRequest{}, fmt.Errorf("%w: transfer <account> <kitty-id>", errUsage)
		}
		to, err := parseAccount(args[0], devKeyring)
		if err != nil {
			return gallery.CallRequest{}, err
		}
		kittyId, err := parseKittyId(args[1])
		if err != nil {
			return gallery.CallRequest{}, err
		}
		return gallery.TransferRequest(to, kittyId), nil
	case "ask":
		if len(args) < 1 || len(args) > 2 {
			return gallery.CallRequest{}, fmt.Errorf("%w: ask <kitty-id> [price]", errUsage)
		}
		kittyId, err := parseKittyId(args[0])
		if err != nil {
			return gallery.CallRequest{}, err
		}
		price := ledger.None[ledger.Balance]()
		if len(args) == 2 {
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return gallery.CallRequest{}, fmt.Errorf("invalid price %q: %w", args[1], err)
			}
			price = ledger.Some(amount)
		}
		return gallery.AskRequest(kittyId, price), nil
	case "buy":
		if len(args) != 2 {
			return gallery.CallRequest{}, fmt.Errorf("%w: buy <kitty-id> <price>", errUsage)
		}
		kittyId, err := parseKittyId(args[0])
		if err != nil {
			return gallery.CallRequest{}, err
		}
		price, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return gallery.CallRequest{}, fmt.Errorf("invalid price %q: %w", args[1], err)
		}
		return gallery.BuyRequest(kittyId, price), nil
	default:
		return gallery.CallRequest{}, fmt.Errorf("unknown call: %s", name)
	}
}

func parseKittyId(value string) (ledger.KittyIndex, error) {
	kittyId, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid kitty ID %q: %w", value, err)
	}
	return ledger.KittyIndex(kittyId), nil
}

// parseAccount accepts a dev account name or an SS58 address
func parseAccount(value string, devKeyring *keyring.Keyring) (ledger.AccountId, error) {
	if pair, err := devKeyring.Get(value); err == nil {
		return pair.AccountId(), nil
	}
	return ledger.NewAccountIdFromSS58(value)
}

func runCall(f *globalFlags, name string) {
	callFlags := newCallFlags(name)
	if err := callFlags.flagset.Parse(f.flagset.Args()[1:]); err != nil {
		fmt.Printf("failed to parse subcommand args: %s\n", err)
		os.Exit(1)
	}
	devKeyring := keyring.NewDevKeyring()
	signer, err := devKeyring.Get(f.account)
	if err != nil {
		fmt.Printf("ERROR: unknown account %q: %s\n", f.account, err)
		os.Exit(1)
	}
	req, err := buildRequest(name, callFlags.flagset.Args(), devKeyring)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	logger := newLogger(f)
	conn := connect(f, logger)
	defer conn.Close()
	orchestrator := gallery.New(
		kitties.NewNodeSource(conn),
		gallery.WithLogger(logger),
	)
	printer := display.NewPrinter(display.ParseTag(f.lang))
	ctx, cancel := context.WithTimeout(context.Background(), callFlags.timeout)
	defer cancel()
	_, err = orchestrator.Submit(ctx, signer, req)
	fmt.Println(printer.Status(orchestrator.Status()))
	if err != nil {
		conn.Close()
		os.Exit(1)
	}
}
