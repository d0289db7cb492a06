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
	"errors"
	"fmt"

	"github.com/blinklabs-io/gokitties/cbor"
	"github.com/blinklabs-io/gokitties/protocol"
)

// Server implements the KittyQuery server
type Server struct {
	*protocol.Protocol
	config          *Config
	callbackContext CallbackContext
}

// NewServer returns a new KittyQuery server object
func NewServer(protoOptions protocol.ProtocolOptions, cfg *Config) *Server {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	s := &Server{
		config: cfg,
	}
	s.callbackContext = CallbackContext{
		Server:       s,
		ConnectionId: protoOptions.ConnectionId,
	}
	protoConfig := protocol.ProtocolConfig{
		Name:                ProtocolName,
		ProtocolId:          ProtocolId,
		ConnectionId:        protoOptions.ConnectionId,
		Muxer:               protoOptions.Muxer,
		Logger:              protoOptions.Logger,
		ErrorChan:           protoOptions.ErrorChan,
		Role:                protocol.ProtocolRoleServer,
		MessageHandlerFunc:  s.messageHandler,
		MessageFromCborFunc: NewMsgFromCbor,
		StateMap:            StateMap,
		InitialState:        stateIdle,
	}
	s.Protocol = protocol.New(protoConfig)
	return s
}

func (s *Server) messageHandler(msg protocol.Message) error {
	var err error
	switch msg.Type() {
	case MessageTypeCount:
		err = s.handleCount()
	case MessageTypeGetKitties:
		err = s.handleGetKitties(msg)
	case MessageTypeGetOwners:
		err = s.handleGetOwners(msg)
	case MessageTypeGetPrices:
		err = s.handleGetPrices(msg)
	case MessageTypeDone:
		err = s.handleDone()
	default:
		err = fmt.Errorf(
			"%s: received unexpected message type %d",
			ProtocolName,
			msg.Type(),
		)
	}
	return err
}

func (s *Server) sendResult(result any) error {
	resultCbor, err := cbor.Encode(result)
	if err != nil {
		return err
	}
	return s.SendMessage(NewMsgResult(resultCbor))
}

func (s *Server) handleCount() error {
	s.Protocol.Logger().
		Debug("count",
			"component", "network",
			"protocol", ProtocolName,
			"role", "server",
			"connection_id", s.callbackContext.ConnectionId,
		)
	if s.config.CountFunc == nil {
		return errors.New(
			"received kitty-query Count message but no callback function is defined",
		)
	}
	count, err := s.config.CountFunc(s.callbackContext)
	if err != nil {
		return err
	}
	return s.sendResult(count)
}

func (s *Server) handleGetKitties(msgGeneric protocol.Message) error {
	msg := msgGeneric.(*MsgGetKitties)
	s.Protocol.Logger().
		Debug(fmt.Sprintf("get kitties (ids: %d)", len(msg.Ids)),
			"component", "network",
			"protocol", ProtocolName,
			"role", "server",
			"connection_id", s.callbackContext.ConnectionId,
		)
	if s.config.GetKittiesFunc == nil {
		return errors.New(
			"received kitty-query GetKitties message but no callback function is defined",
		)
	}
	kitties, err := s.config.GetKittiesFunc(s.callbackContext, msg.Ids)
	if err != nil {
		return err
	}
	return s.sendResult(kitties)
}

func (s *Server) handleGetOwners(msgGeneric protocol.Message) error {
	msg := msgGeneric.(*MsgGetOwners)
	s.Protocol.Logger().
		Debug(fmt.Sprintf("get owners (ids: %d)", len(msg.Ids)),
			"component", "network",
			"protocol", ProtocolName,
			"role", "server",
			"connection_id", s.callbackContext.ConnectionId,
		)
	if s.config.GetOwnersFunc == nil {
		return errors.New(
			"received kitty-query GetOwners message but no callback function is defined",
		)
	}
	owners, err := s.config.GetOwnersFunc(s.callbackContext, msg.Ids)
	if err != nil {
		return err
	}
	return s.sendResult(owners)
}

func (s *Server) handleGetPrices(msgGeneric protocol.Message) error {
	msg := msgGeneric.(*MsgGetPrices)
	s.Protocol.Logger().
		Debug(fmt.Sprintf("get prices (ids: %d)", len(msg.Ids)),
			"component", "network",
			"protocol", ProtocolName,
			"role", "server",
			"connection_id", s.callbackContext.ConnectionId,
		)
	if s.config.GetPricesFunc == nil {
		return errors.New(
			"received kitty-query GetPrices message but no callback function is defined",
		)
	}
	prices, err := s.config.GetPricesFunc(s.callbackContext, msg.Ids)
	if err != nil {
		return err
	}
	return s.sendResult(prices)
}

func (s *Server) handleDone() error {
	s.Protocol.Logger().
		Debug("done",
			"component", "network",
			"protocol", ProtocolName,
			"role", "server",
			"connection_id", s.callbackContext.ConnectionId,
		)
	if s.config.DoneFunc != nil {
		return s.config.DoneFunc(s.callbackContext)
	}
	return nil
}
