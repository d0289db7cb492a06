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

package devnode

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	kitties "github.com/blinklabs-io/gokitties"
	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/protocol/callsubmission"
	"github.com/blinklabs-io/gokitties/protocol/kittyquery"
)

var ErrServerStopped = errors.New("server stopped")

// Server serves a State to kitties clients
type Server struct {
	state            *State
	logger           *slog.Logger
	networkMagic     uint32
	protocolVersions []uint16
	connManager      *kitties.ConnectionManager
	listener         net.Listener
	listenerMutex    sync.Mutex
	doneChan         chan struct{}
	waitGroup        sync.WaitGroup
	onceStop         sync.Once
}

// ServerOptionFunc is a type that represents functions that modify the Server config
type ServerOptionFunc func(*Server)

// WithLogger specifies the logger for the server and its connections
func WithLogger(logger *slog.Logger) ServerOptionFunc {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithNetworkMagic specifies the network magic clients must use
func WithNetworkMagic(networkMagic uint32) ServerOptionFunc {
	return func(s *Server) {
		s.networkMagic = networkMagic
	}
}

// WithProtocolVersions limits the protocol versions offered to clients
func WithProtocolVersions(versions ...uint16) ServerOptionFunc {
	return func(s *Server) {
		s.protocolVersions = versions
	}
}

// NewServer returns a Server for the provided state
func NewServer(state *State, opts ...ServerOptionFunc) *Server {
	s := &Server{
		state:        state,
		networkMagic: kitties.NetworkDev.NetworkMagic,
		doneChan:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.connManager = kitties.NewConnectionManager(
		kitties.ConnectionManagerConfig{
			ConnClosedFunc: s.connClosed,
		},
	)
	return s
}

// State returns the served state
func (s *Server) State() *State {
	return s.state
}

// ListenAndServe listens on the TCP address and serves connections until Stop is called
func (s *Server) ListenAndServe(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on the listener until Stop is called
func (s *Server) Serve(listener net.Listener) error {
	s.listenerMutex.Lock()
	select {
	case <-s.doneChan:
		s.listenerMutex.Unlock()
		_ = listener.Close()
		return ErrServerStopped
	default:
	}
	s.listener = listener
	s.listenerMutex.Unlock()
	s.logger.Info(
		"listening",
		"component", "devnode",
		"address", listener.Addr().String(),
	)
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.doneChan:
				return nil
			default:
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.waitGroup.Add(1)
		go func() {
			defer s.waitGroup.Done()
			if err := s.HandleConn(conn); err != nil {
				s.logger.Warn(
					"connection setup failed",
					"component", "devnode",
					"remote_addr", conn.RemoteAddr().String(),
					"error", err,
				)
			}
		}()
	}
}

// Addr returns the listener address, or nil when not serving
func (s *Server) Addr() net.Addr {
	s.listenerMutex.Lock()
	defer s.listenerMutex.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// HandleConn performs the handshake on an established connection and starts serving it
func (s *Server) HandleConn(conn net.Conn) error {
	select {
	case <-s.doneChan:
		_ = conn.Close()
		return ErrServerStopped
	default:
	}
	opts := []kitties.ConnectionOptionFunc{
		kitties.WithConnection(conn),
		kitties.WithServer(true),
		kitties.WithNetworkMagic(s.networkMagic),
		kitties.WithLogger(s.logger),
		kitties.WithKittyQueryConfig(
			kittyquery.NewConfig(
				kittyquery.WithCountFunc(s.handleCount),
				kittyquery.WithGetKittiesFunc(s.handleGetKitties),
				kittyquery.WithGetOwnersFunc(s.handleGetOwners),
				kittyquery.WithGetPricesFunc(s.handleGetPrices),
			),
		),
		kitties.WithCallSubmissionConfig(
			callsubmission.NewConfig(
				callsubmission.WithSubmitCallFunc(s.handleSubmitCall),
			),
		),
	}
	if len(s.protocolVersions) > 0 {
		opts = append(opts, kitties.WithProtocolVersions(s.protocolVersions...))
	}
	kConn, err := kitties.NewConnection(opts...)
	if err != nil {
		return err
	}
	s.connManager.AddConnection(kConn, kitties.ConnectionManagerTagRoleResponder)
	s.logger.Debug(
		"connection established",
		"component", "devnode",
		"connection_id", kConn.Id().String(),
		"protocol_version", kConn.ProtocolVersion(),
	)
	// Stop may have run between the check above and AddConnection
	select {
	case <-s.doneChan:
		_ = kConn.Close()
	default:
	}
	return nil
}

// Connections returns the number of open client connections
func (s *Server) Connections() int {
	return len(s.connManager.GetConnectionsByTags(kitties.ConnectionManagerTagRoleResponder))
}

// Stop closes the listener and all client connections
func (s *Server) Stop() {
	s.onceStop.Do(func() {
		s.listenerMutex.Lock()
		close(s.doneChan)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.listenerMutex.Unlock()
		s.waitGroup.Wait()
		s.connManager.CloseAll()
	})
}

func (s *Server) connClosed(connId kitties.ConnectionId, err error) {
	if err != nil && !errors.Is(err, io.EOF) {
		s.logger.Warn(
			"connection closed with error",
			"component", "devnode",
			"connection_id", connId.String(),
			"error", err,
		)
		return
	}
	s.logger.Debug(
		"connection closed",
		"component", "devnode",
		"connection_id", connId.String(),
	)
}

func (s *Server) handleCount(kittyquery.CallbackContext) (uint32, error) {
	return s.state.Count(), nil
}

func (s *Server) handleGetKitties(
	_ kittyquery.CallbackContext,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.Dna], error) {
	return s.state.Kitties(ids), nil
}

func (s *Server) handleGetOwners(
	_ kittyquery.CallbackContext,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.AccountId], error) {
	return s.state.Owners(ids), nil
}

func (s *Server) handleGetPrices(
	_ kittyquery.CallbackContext,
	ids []ledger.KittyIndex,
) ([]ledger.Option[ledger.Balance], error) {
	return s.state.Prices(ids), nil
}

func (s *Server) handleSubmitCall(
	ctx callsubmission.CallbackContext,
	signedCall ledger.SignedCall,
) error {
	event, err := s.state.Apply(signedCall)
	if err != nil {
		s.logger.Info(
			"call rejected",
			"component", "devnode",
			"connection_id", ctx.ConnectionId,
			"call", signedCall.Call.String(),
			"error", err,
		)
		return &callsubmission.CallRejectedError{Reason: err.Error()}
	}
	s.logger.Info(
		"call applied",
		"component", "devnode",
		"connection_id", ctx.ConnectionId,
		"call", signedCall.Call.String(),
		"event", event.String(),
	)
	return nil
}
