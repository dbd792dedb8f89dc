package localserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/kshms10904/platform-system-vold/internal/server/httpserver"
)

// SocketMode is the permission of the created socket.
const SocketMode fs.FileMode = 0o660

// Server serves an http.Handler on a unix socket.
type Server struct {
	path    string
	server  *httpserver.Server
	logger  *slog.Logger
	running atomic.Bool
}

// New creates a local server for handler at socketPath.
func New(socketPath string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		path:   socketPath,
		server: httpserver.New("", handler),
		logger: logger,
	}
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Listen creates the socket. A stale socket left by a previous run is
// removed; any other file at the path is an error.
func (s *Server) Listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create socket directory: %w", err)
	}
	if err := removeStale(s.path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.path, err)
	}
	if err := os.Chmod(s.path, SocketMode); err != nil {
		ln.Close()
		return nil, fmt.Errorf("chmod %s: %w", s.path, err)
	}
	s.running.Store(true)
	return ln, nil
}

// ListenAndServe creates the socket and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.running.Store(true)
	s.logger.Info("management socket listening", "path", s.path)
	return s.server.Serve(ln)
}

// Shutdown stops accepting requests, waits for active ones to finish
// within ctx and removes the socket.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	return err
}

func removeStale(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	return os.Remove(path)
}
