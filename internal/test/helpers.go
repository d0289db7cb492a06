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

package test

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/blinklabs-io/gokitties/muxer"
)

// DecodeHexString is a helper function for tests that decodes hex strings. It doesn't return
// an error value, which makes it usable inline.
func DecodeHexString(hexData string) []byte {
	// Strip off any leading/trailing whitespace in hex string
	hexData = strings.TrimSpace(hexData)
	decoded, err := hex.DecodeString(hexData)
	if err != nil {
		panic(fmt.Sprintf("error decoding hex: %s", err))
	}
	return decoded
}

// MuxerPair is two muxers joined by an in-memory pipe, for exercising a client and
// server of the same mini-protocol against each other
type MuxerPair struct {
	ClientConn  net.Conn
	ServerConn  net.Conn
	ClientMuxer *muxer.Muxer
	ServerMuxer *muxer.Muxer
}

// NewMuxerPair returns a new MuxerPair. The muxers are not started
func NewMuxerPair() *MuxerPair {
	p := &MuxerPair{}
	p.ClientConn, p.ServerConn = net.Pipe()
	p.ClientMuxer = muxer.New(p.ClientConn)
	p.ServerMuxer = muxer.New(p.ServerConn)
	return p
}

// Start starts both muxers
func (p *MuxerPair) Start() {
	p.ClientMuxer.Start()
	p.ServerMuxer.Start()
}

// Close stops both muxers, closes the pipe and waits for the muxer goroutines to exit
func (p *MuxerPair) Close() {
	p.ClientMuxer.Stop()
	p.ServerMuxer.Stop()
	_ = p.ClientConn.Close()
	_ = p.ServerConn.Close()
	p.ClientMuxer.Wait()
	p.ServerMuxer.Wait()
}
