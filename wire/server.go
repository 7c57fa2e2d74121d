// Package wire implements the line-oriented TCP protocol: a listener
// that dispatches each accepted connection to the worker pool (a
// shutdown channel, sync.Once, and WaitGroup guard graceful
// shutdown), routing every connection through a single
// vennbase.Vennbase behind pool.Pool rather than dispatching
// per-procedure handlers.
package wire

import (
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/paoloose/vennbase"
	"github.com/paoloose/vennbase/pool"
)

// DefaultAddr is the default listen endpoint.
const DefaultAddr = "127.0.0.1:1834"

// Server accepts TCP connections and dispatches each one to the
// worker pool for request handling.
type Server struct {
	db       *vennbase.Vennbase
	pool     *pool.Pool
	listener net.Listener

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
	ready        chan struct{}
	readyOnce    sync.Once

	log *logrus.Entry
}

// NewServer constructs a Server bound to db, dispatching connections
// across a pool of workers workers wide, each with a bounded queue.
func NewServer(db *vennbase.Vennbase, workers, queueCapacity int) *Server {
	return &Server{
		db:       db,
		pool:     pool.New(workers, queueCapacity),
		shutdown: make(chan struct{}),
		ready:    make(chan struct{}),
		log:      logrus.WithField("component", "wire"),
	}
}

// ListenAndServe listens on addr and blocks accepting connections
// until Stop is called.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.log.WithField("addr", addr).Info("listening")
	s.readyOnce.Do(func() { close(s.ready) })

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
				s.log.WithError(err).Warn("accept error")
				return err
			}
		}

		s.wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		})
		if submitErr != nil {
			s.wg.Done()
			conn.Close()
		}
	}
}

// Addr blocks until the server is listening, then returns its bound
// address. Intended for tests that listen on ":0".
func (s *Server) Addr() string {
	<-s.ready
	return s.listener.Addr().String()
}

// Stop closes the listener and waits for every in-flight connection's
// handler to finish, then shuts down the worker pool.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			s.listener.Close()
		}
	})
	s.wg.Wait()
	s.pool.Shutdown()
}
