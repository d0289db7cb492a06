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
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"

	kitties "github.com/blinklabs-io/gokitties"
	"github.com/caarlos0/env/v11"
)

// envConfig holds the defaults for the global flags
type envConfig struct {
	Socket       string `env:"KITTIES_SOCKET"`
	Address      string `env:"KITTIES_ADDRESS"`
	UseTls       bool   `env:"KITTIES_TLS"`
	Network      string `env:"KITTIES_NETWORK"       envDefault:"dev"`
	NetworkMagic int    `env:"KITTIES_NETWORK_MAGIC"`
	Account      string `env:"KITTIES_ACCOUNT"       envDefault:"Alice"`
	Lang         string `env:"KITTIES_LANG"          envDefault:"en"`
	Debug        bool   `env:"KITTIES_DEBUG"`
}

type globalFlags struct {
	flagset      *flag.FlagSet
	socket       string
	address      string
	useTls       bool
	network      string
	networkMagic int
	account      string
	lang         string
	debug        bool
}

func newGlobalFlags(cfg envConfig) *globalFlags {
	f := &globalFlags{
		flagset: flag.NewFlagSet(os.Args[0], flag.ExitOnError),
	}
	f.flagset.StringVar(
		&f.socket,
		"socket",
		cfg.Socket,
		"UNIX socket path to connect to",
	)
	f.flagset.StringVar(
		&f.address,
		"address",
		cfg.Address,
		"TCP address to connect to in address:port format (defaults to the network's node)",
	)
	f.flagset.BoolVar(&f.useTls, "tls", cfg.UseTls, "enable TLS")
	f.flagset.StringVar(
		&f.network,
		"network",
		cfg.Network,
		"specifies network that node is participating in",
	)
	f.flagset.IntVar(
		&f.networkMagic,
		"network-magic",
		cfg.NetworkMagic,
		"specifies network magic value. this overrides the -network option",
	)
	f.flagset.StringVar(
		&f.account,
		"account",
		cfg.Account,
		"dev account name or SS58 address used to sign calls",
	)
	f.flagset.StringVar(&f.lang, "lang", cfg.Lang, "display language (en, zh)")
	f.flagset.BoolVar(&f.debug, "debug", cfg.Debug, "enable debug logging")
	return f
}

func main() {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Printf("failed to parse environment: %s\n", err)
		os.Exit(1)
	}
	f := newGlobalFlags(cfg)
	if err := f.flagset.Parse(os.Args[1:]); err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}

	if f.networkMagic == 0 {
		network := kitties.NetworkByName(f.network)
		if network == kitties.NetworkInvalid {
			fmt.Printf("Invalid network specified: %s\n", f.network)
			os.Exit(1)
		}
		f.networkMagic = int(network.NetworkMagic)
	}

	if len(f.flagset.Args()) == 0 {
		fmt.Printf(
			"You must specify a subcommand (list, watch, create, breed, transfer, ask, buy or devnode)\n",
		)
		os.Exit(1)
	}
	switch f.flagset.Arg(0) {
	case "list":
		runList(f)
	case "watch":
		runWatch(f)
	case "create", "breed", "transfer", "ask", "buy":
		runCall(f, f.flagset.Arg(0))
	case "devnode":
		runDevnode(f)
	default:
		fmt.Printf("Unknown subcommand: %s\n", f.flagset.Arg(0))
		os.Exit(1)
	}
}

func newLogger(f *globalFlags) *slog.Logger {
	level := slog.LevelInfo
	if f.debug {
		level = slog.LevelDebug
	}
	return slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	)
}

// dialTarget returns the protocol and address to dial or listen on
func dialTarget(f *globalFlags) (string, string) {
	if f.socket != "" {
		return "unix", f.socket
	}
	if f.address != "" {
		return "tcp", f.address
	}
	//nolint:gosec
	return "tcp", kitties.NetworkByNetworkMagic(uint32(f.networkMagic)).Address()
}

func createClientConnection(f *globalFlags) net.Conn {
	dialProto, dialAddress := dialTarget(f)
	if dialAddress == "" {
		fmt.Printf("You must specify one of -socket or -address\n\n")
		f.flagset.PrintDefaults()
		os.Exit(1)
	}
	var err error
	var conn net.Conn
	if f.useTls {
		conn, err = tls.Dial(dialProto, dialAddress, nil)
	} else {
		conn, err = net.Dial(dialProto, dialAddress)
	}
	if err != nil {
		fmt.Printf("Connection failed: %s\n", err)
		os.Exit(1)
	}
	return conn
}

// connect dials the node and performs the handshake. Asynchronous connection errors are
// fatal
func connect(
	f *globalFlags,
	logger *slog.Logger,
	opts ...kitties.ConnectionOptionFunc,
) *kitties.Connection {
	conn := createClientConnection(f)
	errorChan := make(chan error)
	go func() {
		err, ok := <-errorChan
		if !ok {
			return
		}
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}()
	opts = append(
		[]kitties.ConnectionOptionFunc{
			kitties.WithConnection(conn),
			//nolint:gosec
			kitties.WithNetworkMagic(uint32(f.networkMagic)),
			kitties.WithErrorChan(errorChan),
			kitties.WithLogger(logger),
		},
		opts...,
	)
	k, err := kitties.New(opts...)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	return k
}
