// Package transport serves WebSocket connections, each becoming one
// splitter consumer: on upgrade it registers a client, spawns a write loop
// that repeatedly calls Splitter.Get and forwards whatever frame comes
// back, and deregisters the client on disconnect.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/d13mon/ISplitter/internal/auth"
	"github.com/d13mon/ISplitter/internal/config"
	"github.com/d13mon/ISplitter/internal/metrics"
	"github.com/d13mon/ISplitter/splitter"
)

// Server upgrades HTTP connections to WebSocket and bridges each one to a
// splitter client.
type Server struct {
	cfg      config.ServerConfig
	logger   *zap.Logger
	splitr   *splitter.Splitter
	authMgr  *auth.Manager
	metrics  *metrics.Registry
	listener net.Listener
	wg       sync.WaitGroup

	getTimeoutMs int
}

// New creates a Server bound to splitr.
func New(cfg config.ServerConfig, getTimeoutMs int, splitr *splitter.Splitter, authMgr *auth.Manager, metricsRegistry *metrics.Registry, logger *zap.Logger) *Server {
	return &Server{
		cfg:          cfg,
		logger:       logger,
		splitr:       splitr,
		authMgr:      authMgr,
		metrics:      metricsRegistry,
		getTimeoutMs: getTimeoutMs,
	}
}

// Start begins accepting connections in the background.
func (s *Server) Start(ctx context.Context) error {
	if s.listener != nil {
		return errors.New("transport already started")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.logger.Info("transport listening", zap.String("addr", addr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx)
	}()
	return nil
}

// Stop closes the listener and waits for in-flight connections to unwind.
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("accept error", zap.Error(err))
			return
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConnection(ctx, c)
		}(conn)
	}
}

func (s *Server) handleConnection(parent context.Context, conn net.Conn) {
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))

	req, err := http.ReadRequest(newBufReader(conn))
	if err != nil {
		s.logger.Debug("read upgrade request", zap.Error(err))
		return
	}

	if s.authMgr != nil {
		if _, err := s.authMgr.Authenticate(req); err != nil {
			if s.metrics != nil {
				s.metrics.AuthRejected.Inc()
			}
			_ = writeUnauthorized(conn)
			return
		}
	}

	if _, err := ws.Upgrade(conn); err != nil {
		if s.metrics != nil {
			s.metrics.AcceptErrors.Inc()
		}
		s.logger.Debug("upgrade failed", zap.Error(err))
		return
	}
	_ = conn.SetDeadline(time.Time{})

	id, ok := s.splitr.AddClient()
	if !ok {
		_ = wsutil.WriteServerMessage(conn, ws.OpClose, nil)
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveClients.Inc()
	}
	defer func() {
		s.splitr.RemoveClient(id)
		if s.metrics != nil {
			s.metrics.ActiveClients.Dec()
		}
	}()

	connCtx, cancel := context.WithCancel(parent)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop(connCtx, id, conn)
	}()

	s.readLoop(connCtx, conn)
	cancel()
	<-done
}

func (s *Server) readLoop(ctx context.Context, conn net.Conn) {
	reader := wsutil.NewReader(conn, ws.StateServerSide)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		head, err := reader.NextFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("read frame error", zap.Error(err))
			}
			return
		}

		switch head.OpCode {
		case ws.OpClose:
			_ = wsutil.WriteServerMessage(conn, ws.OpClose, nil)
			return
		case ws.OpPing:
			if err := wsutil.WriteServerMessage(conn, ws.OpPong, nil); err != nil {
				return
			}
		default:
			if _, err := io.CopyN(io.Discard, reader, int64(head.Length)); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, id uint32, conn net.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		f, code := s.splitr.Get(id, s.getTimeoutMs)
		switch code {
		case splitter.NoError:
			if err := wsutil.WriteServerMessage(conn, ws.OpBinary, f.Bytes()); err != nil {
				return
			}
		case splitter.NoClientFound:
			return
		case splitter.NoNewData:
			// nothing ready within the timeout; loop and poll again
		}
	}
}
