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

package callsubmission

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gokitties/protocol"
)

// Server implements the CallSubmission server
type Server struct {
	*protocol.Protocol
	config          *Config
	callbackContext CallbackContext
}

// NewServer returns a new CallSubmission server object
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
	case MessageTypeSubmitCall:
		err = s.handleSubmitCall(msg)
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

func (s *Server) handleSubmitCall(msgGeneric protocol.Message) error {
	s.Protocol.Logger().
		Debug("submit call",
			"component", "network",
			"protocol", ProtocolName,
			"role", "server",
			"connection_id", s.callbackContext.ConnectionId,
		)
	if s.config.SubmitCallFunc == nil {
		return errors.New(
			"received call-submission SubmitCall message but no callback function is defined",
		)
	}
	msg := msgGeneric.(*MsgSubmitCall)
	// Call the user callback function
	if err := s.config.SubmitCallFunc(s.callbackContext, msg.SignedCall); err != nil {
		reason := err.Error()
		var rejectErr *CallRejectedError
		if errors.As(err, &rejectErr) {
			reason = rejectErr.Reason
		}
		return s.SendMessage(NewMsgRejectCall(reason))
	}
	hash, err := msg.SignedCall.Hash()
	if err != nil {
		return err
	}
	return s.SendMessage(NewMsgAcceptCall(hash))
}

func (s *Server) handleDone() error {
	s.Protocol.Logger().
		Debug("done",
			"component", "network",
			"protocol", ProtocolName,
			"role", "server",
			"connection_id", s.callbackContext.ConnectionId,
		)
	return nil
}
