// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package directrpc

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// Server serves the trusted JSON-RPC interface over websocket and plain
// HTTP POST. Only websocket clients can watch operations.
type Server struct {
	config   Config
	registry *ConnectionRegistry
	upgrader websocket.Upgrader
	logger   log.Logger

	mu       sync.Mutex
	handler  *IoHandler
	conns    map[ConnectionToken]*wsConn
	http     *http.Server
	listener net.Listener
	stopped  bool

	httpLimiter *rate.Limiter
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

type wsConn struct {
	token   ConnectionToken
	conn    *websocket.Conn
	limiter *rate.Limiter
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func NewServer(config Config, registry *ConnectionRegistry) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:      config,
		registry:    registry,
		logger:      log.New("module", "rpc-server"),
		conns:       make(map[ConnectionToken]*wsConn),
		httpLimiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
		ctx:         ctx,
		cancel:      cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.CorsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Start listens on the configured address and serves handler.
func (s *Server) Start(handler *IoHandler) error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return err
	}
	c := cors.New(cors.Options{
		AllowedOrigins: s.config.CorsOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})

	s.mu.Lock()
	s.handler = handler
	s.listener = listener
	s.http = &http.Server{
		Handler:      c.Handler(s),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	srv := s.http
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("RPC server failed", "err", err)
		}
	}()
	s.logger.Info("RPC server started", "addr", listener.Addr(), "methods", len(handler.Methods()), "dev", s.config.DevMode)
	return nil
}

// Addr returns the listening address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every open connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.http == nil {
		s.mu.Unlock()
		return ErrServerNotStarted
	}
	s.stopped = true
	srv := s.http
	conns := make([]*wsConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), s.config.WriteTimeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	for _, c := range conns {
		s.closeConn(c)
	}
	s.wg.Wait()
	s.logger.Info("RPC server stopped")
	return err
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWebsocket(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.httpLimiter.Allow() {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxMessageSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	resp, _ := s.handler.Handle(r.Context(), body)
	enc, err := encodeResponse(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(enc)
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := &wsConn{
		token:   NewConnectionToken(),
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(s.config.RateLimit), s.config.RateBurst),
		done:    make(chan struct{}),
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conns[c.token] = c
	s.wg.Add(2)
	s.mu.Unlock()

	s.logger.Debug("Websocket connection opened", "token", c.token, "remote", r.RemoteAddr)
	go func() {
		defer s.wg.Done()
		s.pingLoop(c)
	}()
	go func() {
		defer s.wg.Done()
		s.readLoop(c)
	}()
}

func (s *Server) readLoop(c *wsConn) {
	defer s.closeConn(c)

	c.conn.SetReadLimit(s.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("Websocket read failed", "token", c.token, "err", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		// Waiting here applies backpressure to a flooding client.
		if err := c.limiter.Wait(s.ctx); err != nil {
			return
		}
		keepOpen, err := s.handleMessage(c, msg)
		if err != nil {
			s.logger.Debug("Websocket write failed", "token", c.token, "err", err)
			return
		}
		if !keepOpen {
			return
		}
	}
}

// handleMessage answers one request and reports whether the connection
// stays open for status updates. The watch is registered once the request
// was handled, so statuses emitted while submitting are not delivered; the
// first response reports Submitted and later updates follow it in order.
func (s *Server) handleMessage(c *wsConn, msg []byte) (bool, error) {
	resp, value := s.handler.Handle(s.ctx, msg)
	enc, err := encodeResponse(resp)
	if err != nil {
		return false, err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if hash, ok := WatchedHash(value); ok {
		s.registry.Store(hash, c.token, resp, false)
	}
	if err := s.writeLocked(c, enc); err != nil {
		return false, err
	}
	return value.DoWatch, nil
}

func (s *Server) writeLocked(c *wsConn, msg []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (s *Server) pingLoop(c *wsConn) {
	ticker := time.NewTicker(s.config.ReadTimeout * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.closeConn(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *Server) closeConn(c *wsConn) {
	c.once.Do(func() {
		s.registry.RemoveToken(c.token)
		s.mu.Lock()
		delete(s.conns, c.token)
		s.mu.Unlock()
		close(c.done)
		deadline := time.Now().Add(s.config.WriteTimeout)
		c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.conn.Close()
		s.logger.Debug("Websocket connection closed", "token", c.token)
	})
}

// Respond implements ResponseChannel. The connection is closed after the
// last message of a watch.
func (s *Server) Respond(token ConnectionToken, message []byte, keepOpen bool) error {
	s.mu.Lock()
	c, ok := s.conns[token]
	s.mu.Unlock()
	if !ok {
		return ErrConnectionNotFound
	}
	c.writeMu.Lock()
	err := s.writeLocked(c, message)
	c.writeMu.Unlock()
	if err != nil || !keepOpen {
		s.closeConn(c)
	}
	return err
}

// Connections returns the number of open websocket connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
