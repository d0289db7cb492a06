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

package handshake

import (
	"errors"
	"fmt"
	"slices"

	"github.com/blinklabs-io/gokitties/protocol"
)

// Server implements the Handshake server
type Server struct {
	*protocol.Protocol
	config          *Config
	callbackContext CallbackContext
}

// NewServer returns a new Handshake server object
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
		MessageHandlerFunc:  s.handleMessage,
		MessageFromCborFunc: NewMsgFromCbor,
		StateMap:            StateMap,
		InitialState:        statePropose,
	}
	s.Protocol = protocol.New(protoConfig)
	return s
}

func (s *Server) handleMessage(msg protocol.Message) error {
	var err error
	switch msg.Type() {
	case MessageTypeProposeVersions:
		err = s.handleProposeVersions(msg)
	default:
		err = fmt.Errorf(
			"%s: received unexpected message type %d",
			ProtocolName,
			msg.Type(),
		)
	}
	return err
}

func (s *Server) handleProposeVersions(msgGeneric protocol.Message) error {
	s.Protocol.Logger().
		Debug("propose versions",
			"component", "network",
			"protocol", ProtocolName,
			"role", "server",
			"connection_id", s.callbackContext.ConnectionId,
		)
	if s.config.FinishedFunc == nil {
		return errors.New(
			"received handshake ProposeVersions message but no callback function is defined",
		)
	}
	msg := msgGeneric.(*MsgProposeVersions)
	// Pick the highest version supported by both sides
	var proposedVersion uint16
	var proposedMagic uint32
	found := false
	for version, magic := range msg.VersionMap {
		if !slices.Contains(s.config.ProtocolVersions, version) {
			continue
		}
		if !found || version > proposedVersion {
			proposedVersion = version
			proposedMagic = magic
			found = true
		}
	}
	if !found {
		versions := slices.Clone(s.config.ProtocolVersions)
		slices.Sort(versions)
		msgRefuse := NewMsgRefuse(
			RefuseReasonVersionMismatch,
			versions,
			"",
		)
		if err := s.SendMessage(msgRefuse); err != nil {
			return err
		}
		return ErrVersionMismatch
	}
	if proposedMagic != s.config.NetworkMagic {
		errMsg := fmt.Sprintf(
			"network magic mismatch: expected %d, got %d",
			s.config.NetworkMagic,
			proposedMagic,
		)
		msgRefuse := NewMsgRefuse(
			RefuseReasonRefused,
			[]uint16{proposedVersion},
			errMsg,
		)
		if err := s.SendMessage(msgRefuse); err != nil {
			return err
		}
		return errors.New(errMsg)
	}
	msgAccept := NewMsgAcceptVersion(proposedVersion, s.config.NetworkMagic)
	if err := s.SendMessage(msgAccept); err != nil {
		return err
	}
	return s.config.FinishedFunc(s.callbackContext, proposedVersion)
}
