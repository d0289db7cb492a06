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

package kittyquery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/protocol"
)

// ErrUnsupported is returned when the negotiated protocol version doesn't support a query
var ErrUnsupported = errors.New("query not supported by negotiated protocol version")

// Client implements the KittyQuery client
type Client struct {
	*protocol.Protocol
	config          *Config
	callbackContext CallbackContext
	version         uint16
	busyMutex       sync.Mutex
	resultChan      chan []byte
	onceStart       sync.Once
	onceStop        sync.Once
}

// NewClient returns a new KittyQuery client object
func NewClient(protoOptions protocol.ProtocolOptions, cfg *Config) *Client {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	c := &Client{
		config:     cfg,
		version:    protoOptions.Version,
		resultChan: make(chan []byte),
	}
	c.callbackContext = CallbackContext{
		Client:       c,
		ConnectionId: protoOptions.ConnectionId,
	}
	// Update state map with timeout
	stateMap := StateMap.Copy()
	if entry, ok := stateMap[stateQuerying]; ok {
		entry.Timeout = c.config.QueryTimeout
		stateMap[stateQuerying] = entry
	}
	// Configure underlying Protocol
	protoConfig := protocol.ProtocolConfig{
		Name:                ProtocolName,
		ProtocolId:          ProtocolId,
		ConnectionId:        protoOptions.ConnectionId,
		Muxer:               protoOptions.Muxer,
		Logger:              protoOptions.Logger,
		ErrorChan:           protoOptions.ErrorChan,
		Role:                protocol.ProtocolRoleClient,
		MessageHandlerFunc:  c.messageHandler,
		MessageFromCborFunc: NewMsgFromCbor,
		StateMap:            stateMap,
		InitialState:        stateIdle,
	}
	c.Protocol = protocol.New(protoConfig)
	return c
}

func (c *Client) Start() {
	c.onceStart.Do(func() {
		c.Protocol.Logger().
			Debug("starting client protocol",
				"component", "network",
				"protocol", ProtocolName,
				"connection_id", c.callbackContext.ConnectionId,
			)
		c.Protocol.Start()
	})
}

// Stop transitions the protocol to the Done state. The Done message is only sent when no
// query is outstanding
func (c *Client) Stop() error {
	var err error
	c.onceStop.Do(func() {
		c.Protocol.Logger().
			Debug("stopping client protocol",
				"component", "network",
				"protocol", ProtocolName,
				"connection_id", c.callbackContext.ConnectionId,
			)
		if c.busyMutex.TryLock() {
			msg := NewMsgDone()
			err = c.SendMessage(msg)
			c.busyMutex.Unlock()
		}
		c.Protocol.Stop()
	})
	return err
}

// Count returns the number of kitties known to the node
func (c *Client) Count(ctx context.Context) (uint32, error) {
	c.Protocol.Logger().
		Debug("calling Count()",
			"component", "network",
			"protocol", ProtocolName,
			"role", "client",
			"connection_id", c.callbackContext.ConnectionId,
		)
	result, err := c.runQuery(ctx, NewMsgCount())
	if err != nil {
		return 0, err
	}
	var count uint32
	if _, err := cbor.Decode(result, &count); err != nil {
		return 0, fmt.Errorf("%s: decode count result: %w", ProtocolName, err)
	}
	return count, nil
}

// GetKitties returns the DNA of each requested kitty, in the order of the provided IDs
func (c *Client) GetKitties(
	ctx context.Context,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.Dna], error) {
	c.Protocol.Logger().
		Debug(fmt.Sprintf("calling GetKitties(ids: %d)", len(ids)),
			"component", "network",
			"protocol", ProtocolName,
			"role", "client",
			"connection_id", c.callbackContext.ConnectionId,
		)
	result, err := c.runQuery(ctx, NewMsgGetKitties(ids))
	if err != nil {
		return nil, err
	}
	return decodeBatch[ledger.Dna](result, len(ids))
}

// GetOwners returns the owner of each requested kitty, in the order of the provided IDs
func (c *Client) GetOwners(
	ctx context.Context,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.AccountId], error) {
	c.Protocol.Logger().
		Debug(fmt.Sprintf("calling GetOwners(ids: %d)", len(ids)),
			"component", "network",
			"protocol", ProtocolName,
			"role", "client",
			"connection_id", c.callbackContext.ConnectionId,
		)
	result, err := c.runQuery(ctx, NewMsgGetOwners(ids))
	if err != nil {
		return nil, err
	}
	return decodeBatch[ledger.AccountId](result, len(ids))
}

// GetPrices returns the asking price of each requested kitty, in the order of the provided
// IDs. Kitties that are not for sale have no price
func (c *Client) GetPrices(
	ctx context.Context,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.Balance], error) {
	c.Protocol.Logger().
		Debug(fmt.Sprintf("calling GetPrices(ids: %d)", len(ids)),
			"component", "network",
			"protocol", ProtocolName,
			"role", "client",
			"connection_id", c.callbackContext.ConnectionId,
		)
	if c.version < ProtocolVersionPrices {
		return nil, fmt.Errorf(
			"%w: GetPrices requires version %d, negotiated %d",
			ErrUnsupported,
			ProtocolVersionPrices,
			c.version,
		)
	}
	result, err := c.runQuery(ctx, NewMsgGetPrices(ids))
	if err != nil {
		return nil, err
	}
	return decodeBatch[ledger.Balance](result, len(ids))
}

func decodeBatch[T any](result []byte, expected int) ([]ledger.Option[T], error) {
	var ret []ledger.Option[T]
	if _, err := cbor.Decode(result, &ret); err != nil {
		return nil, fmt.Errorf("%s: decode batch result: %w", ProtocolName, err)
	}
	if len(ret) != expected {
		return nil, fmt.Errorf(
			"%s: batch result has %d entries, expected %d",
			ProtocolName,
			len(ret),
			expected,
		)
	}
	return ret, nil
}

func (c *Client) runQuery(ctx context.Context, msg protocol.Message) ([]byte, error) {
	c.busyMutex.Lock()
	if err := c.SendMessage(msg); err != nil {
		c.busyMutex.Unlock()
		return nil, err
	}
	select {
	case <-ctx.Done():
		// The server still owes us a result, so keep the client busy until it arrives
		go c.discardResult()
		return nil, ctx.Err()
	case <-c.DoneChan():
		c.busyMutex.Unlock()
		return nil, protocol.ErrProtocolShuttingDown
	case result := <-c.resultChan:
		c.busyMutex.Unlock()
		return result, nil
	}
}

func (c *Client) discardResult() {
	defer c.busyMutex.Unlock()
	select {
	case <-c.DoneChan():
	case <-c.resultChan:
	}
}

func (c *Client) messageHandler(msg protocol.Message) error {
	var err error
	switch msg.Type() {
	case MessageTypeResult:
		err = c.handleResult(msg)
	default:
		err = fmt.Errorf(
			"%s: received unexpected message type %d",
			ProtocolName,
			msg.Type(),
		)
	}
	return err
}

func (c *Client) handleResult(msgGeneric protocol.Message) error {
	c.Protocol.Logger().
		Debug("result",
			"component", "network",
			"protocol", ProtocolName,
			"role", "client",
			"connection_id", c.callbackContext.ConnectionId,
		)
	msg := msgGeneric.(*MsgResult)
	select {
	case <-c.DoneChan():
		return protocol.ErrProtocolShuttingDown
	case c.resultChan <- msg.Result:
	}
	return nil
}
