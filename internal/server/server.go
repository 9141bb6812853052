// Package server runs the accept loop, the fixed-size worker pool, and
// per-connection dispatch for the FSS wire protocol over a single
// AF_UNIX listener, the way the teacher's portmapper
// (internal/adapter/nfs/portmap/server.go) runs its TCP/UDP accept loops
// — adapted here to a semaphore-free, queue-bounded worker pool, since
// the spec calls for a fixed-size pool rather than one goroutine per
// accepted connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/fss/internal/dispatch"
	"github.com/marmos91/fss/internal/fss"
	"github.com/marmos91/fss/internal/logger"
	"github.com/marmos91/fss/internal/metrics"
	"github.com/marmos91/fss/internal/queue"
	"github.com/marmos91/fss/internal/wire"
)

// Config holds the knobs server.New needs beyond the FSS store itself.
type Config struct {
	// SocketPath is the AF_UNIX path to listen on. Any existing socket
	// file at this path is removed before binding.
	SocketPath string
	// SocketBacklog is the requested accept backlog depth. Serve does not
	// apply it: the listener uses the kernel's default backlog.
	SocketBacklog int
	// NWorkers is the fixed number of goroutines dispatching accepted
	// connections; excess connections queue until a worker is free.
	NWorkers int
	// MaxClientsAtStart is carried from the configuration; the server does
	// not read it and it is not an enforced ceiling.
	MaxClientsAtStart int
}

// Server owns the listener, the worker pool, and the connection queue
// that bridges them.
type Server struct {
	cfg     Config
	store   *fss.FSS
	metrics *metrics.Metrics
	disp    *dispatch.Dispatcher

	listener net.Listener
	conns    *queue.Queue[net.Conn]

	nextClient atomic.Int64

	wg           sync.WaitGroup
	shutdown     chan struct{}
	shutdownOnce sync.Once

	listenerReady chan struct{}
}

// New returns a Server backed by store. collector may be nil.
func New(cfg Config, store *fss.FSS, collector *metrics.Metrics) *Server {
	return &Server{
		cfg:           cfg,
		store:         store,
		metrics:       collector,
		disp:          dispatch.New(store),
		conns:         queue.New[net.Conn](),
		shutdown:      make(chan struct{}),
		listenerReady: make(chan struct{}),
	}
}

// Serve binds the AF_UNIX listener, launches the worker pool and accept
// loop, and blocks until Stop is called or the accept loop fails. It
// removes any stale socket file at SocketPath before binding, the usual
// AF_UNIX idiom since bind fails on an existing path.
func (s *Server) Serve() error {
	if err := os.RemoveAll(s.cfg.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", s.cfg.SocketPath, err)
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", s.cfg.SocketPath, err)
	}
	if unixLn, ok := ln.(*net.UnixListener); ok {
		unixLn.SetUnlinkOnClose(true)
	}
	s.listener = ln
	close(s.listenerReady)

	logger.Info("fss server listening", logger.Path(s.cfg.SocketPath))

	for i := 0; i < s.cfg.NWorkers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	s.wg.Add(1)
	go s.acceptLoop()

	s.wg.Wait()
	return nil
}

// WaitReady returns a channel closed once the listener is bound.
func (s *Server) WaitReady() <-chan struct{} {
	return s.listenerReady
}

// acceptLoop accepts connections and pushes them onto the shared queue
// for the worker pool to drain; it never handles a connection itself.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				logger.Warn("accept error", logger.Err(err))
				return
			}
		}
		if s.metrics != nil {
			s.metrics.ConnectionAccepted()
		}
		if err := s.conns.Push(conn); err != nil {
			_ = conn.Close()
			return
		}
	}
}

// worker pops one connection at a time off the shared queue and handles
// its entire lifetime before popping the next, bounding concurrent
// dispatch to NWorkers regardless of how many connections are queued.
func (s *Server) worker() {
	defer s.wg.Done()

	for {
		conn, res := s.conns.Pop(true)
		if res != queue.PopOK {
			return
		}
		if s.metrics != nil {
			s.metrics.WorkerStarted()
		}
		s.handleConn(conn)
		if s.metrics != nil {
			s.metrics.WorkerFinished()
			s.metrics.ConnectionClosed()
		}
	}
}

// idlePollInterval bounds how long handleConn can sit blocked in
// wire.ReadMessage on an otherwise-idle connection, the same idiom the
// teacher's portmapper UDP loop uses a short read deadline for: without
// it, a connection with no pending requests would never re-check
// s.shutdown and Stop would hang waiting on s.wg.
const idlePollInterval = 500 * time.Millisecond

// handleConn reads one request at a time off conn, dispatches it, and
// writes replies back, serialized by writeMu so GETF/OK sequences for
// one request are never interleaved with another. It runs client_cleanup
// on exit regardless of why the connection ended.
func (s *Server) handleConn(conn net.Conn) {
	client := fss.ClientID(s.nextClient.Add(1))
	defer func() {
		_ = conn.Close()
		promoted := s.disp.HandleDisconnect(client)
		logger.Debug("client disconnected", logger.ClientID(int(client)), logger.Waiters(len(promoted)))
	}()

	var writeMu sync.Mutex
	send := func(m *wire.Message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return wire.WriteMessage(conn, m)
	}

	for {
		select {
		case <-s.shutdown:
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(idlePollInterval)); err != nil {
			logger.Debug("set read deadline error", logger.ClientID(int(client)), logger.Err(err))
			return
		}

		req, err := wire.ReadMessage(conn)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				logger.Debug("read error", logger.ClientID(int(client)), logger.Err(err))
			}
			return
		}

		if err := s.disp.Handle(client, req, send); err != nil {
			logger.Debug("write error, closing connection", logger.ClientID(int(client)), logger.Err(err))
			return
		}
	}
}

// Stop closes the listener and the connection queue, then waits for the
// accept loop and every worker to finish before tearing down the store.
// A worker blocked in handleConn on an idle connection notices shutdown
// within idlePollInterval, so this wait is bounded rather than hanging on
// a connection that never sends another request.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.conns.Destroy(func(c net.Conn) { _ = c.Close() })
	})
	s.wg.Wait()
	s.store.Teardown(fss.WaitHandlerFunc(func(id fss.ClientID, err error) {
		logger.Debug("waiter drained at shutdown", logger.ClientID(int(id)), logger.Err(err))
	}))
}

// Addr returns the listener's address, or "" if not yet bound.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
