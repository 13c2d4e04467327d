// Package server assembles the hub: the worker pool behind the public
// port, the administrative port, the linked-hub UDP channel, the metrics
// endpoint and the periodic list archiver.
package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/NareshPS/FBOpenDCHub/internal/hub"
	"github.com/NareshPS/FBOpenDCHub/internal/hub/directory"
	"github.com/NareshPS/FBOpenDCHub/internal/hub/worker"
	"github.com/NareshPS/FBOpenDCHub/internal/liststore"
	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/pkg/config"
	"github.com/NareshPS/FBOpenDCHub/pkg/metrics"
)

// HubServer owns the full lifecycle: listeners, the coordinator loop,
// the worker pool and the periodic jobs.
//
// Lifecycle:
//  1. Creation: New() with a loaded configuration
//  2. Startup: Serve() blocks until the context is cancelled
//  3. Shutdown: context cancellation closes the listeners, stops the
//     loops and flushes the list store
type HubServer struct {
	cfg      *config.Config
	state    *hub.State
	coord    *hub.Loop
	pool     *worker.Pool
	lists    *liststore.Store
	archiver *liststore.Archiver

	mu        sync.Mutex
	listeners []net.Listener
}

// New wires the shared state together. The list store is opened here so
// configuration problems surface before any socket is bound.
func New(cfg *config.Config) (*HubServer, error) {
	lists, err := config.CreateListStore(&cfg.Lists)
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	state := hub.NewState(cfg.HubSettings(), directory.NewShared(), lists, metrics.NewHubMetrics())
	coord := hub.NewLoop(0, state)
	pool := worker.NewPool(state, coord, cfg.Hub.UsersPerFork)

	return &HubServer{
		cfg:   cfg,
		state: state,
		coord: coord,
		pool:  pool,
		lists: lists,
	}, nil
}

// State exposes the shared state, mainly for tests and embedders.
func (s *HubServer) State() *hub.State {
	return s.state
}

// AttachScript links a script process into the coordinator loop. The
// returned inbox receives every mirrored record; the connection sends
// the script's control records back.
func (s *HubServer) AttachScript(name string, inbox chan hub.Event) *hub.Conn {
	coordSide, scriptSide := hub.NewLinkPair(hub.RoleScriptLink, name, s.coord.Inbox, inbox)
	scriptSide.Nick = name
	coordSide.Nick = name
	s.coord.Inbox <- hub.Event{Conn: coordSide, Join: true}
	s.coord.AnnounceScript(name)
	return scriptSide
}

// Serve starts everything and blocks until ctx is cancelled or a
// listener fails.
func (s *HubServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.coord.OnQuit = cancel

	var wg sync.WaitGroup

	// Coordinator loop first: everything else posts into it.
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.coord.Run(ctx)
	}()

	s.pool.Start(ctx)

	errChan := make(chan error, 3)

	public, err := s.listen(s.cfg.Server.Port)
	if err != nil {
		return err
	}
	logger.Info("Hub listening on port %d", s.cfg.Server.Port)
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.acceptLoop(ctx, public, s.pool.Assign, errChan)
	}()

	if s.cfg.Server.AdminPort != 0 {
		admin, err := s.listen(s.cfg.Server.AdminPort)
		if err != nil {
			return err
		}
		logger.Info("Admin port %d open", s.cfg.Server.AdminPort)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.acceptLoop(ctx, admin, s.pool.AssignAdmin, errChan)
		}()
	}

	if s.cfg.Server.UDPPort != 0 {
		pc, err := net.ListenPacket("udp", net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.UDPPort)))
		if err != nil {
			return fmt.Errorf("failed to bind udp port %d: %w", s.cfg.Server.UDPPort, err)
		}
		logger.Info("Linked-hub channel on udp port %d", s.cfg.Server.UDPPort)
		link := hub.NewUDPLink(pc, s.coord)
		wg.Add(1)
		go func() {
			defer wg.Done()
			link.Run(ctx)
		}()
	}

	if s.cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(metrics.ServerConfig{Port: s.cfg.Metrics.Port})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server: %v", err)
			}
		}()
	}

	if err := s.startArchiver(ctx, &wg); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
	case serveErr = <-errChan:
		logger.Error("Listener failed: %v - shutting down", serveErr)
		cancel()
	}

	s.closeListeners()
	waitWithTimeout(&wg, s.cfg.Server.ShutdownTimeout)

	if err := s.lists.Close(); err != nil {
		logger.Warn("List store close: %v", err)
	}
	logger.Info("Hub stopped")
	return serveErr
}

func (s *HubServer) listen(port int) (net.Listener, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("failed to bind port %d: %w", port, err)
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()
	return ln, nil
}

func (s *HubServer) acceptLoop(ctx context.Context, ln net.Listener, assign func(net.Conn), errChan chan<- error) {
	for {
		sock, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			select {
			case errChan <- err:
			default:
			}
			return
		}
		assign(sock)
	}
}

func (s *HubServer) closeListeners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	s.listeners = nil
}

// startArchiver launches the periodic list-snapshot upload when
// configured.
func (s *HubServer) startArchiver(ctx context.Context, wg *sync.WaitGroup) error {
	archiver, err := config.CreateArchiver(ctx, &s.cfg.Lists.Archive)
	if err != nil {
		return err
	}
	if archiver == nil {
		return nil
	}
	s.archiver = archiver

	interval := s.cfg.Lists.Archive.Interval
	logger.Info("List archiving to bucket %s every %v", s.cfg.Lists.Archive.Bucket, interval)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				uploadCtx, cancel := context.WithTimeout(ctx, time.Minute)
				if err := archiver.Upload(uploadCtx, s.lists.Snapshot()); err != nil {
					logger.Warn("List snapshot upload: %v", err)
				}
				cancel()
			}
		}
	}()
	return nil
}

// waitWithTimeout waits for the goroutines, giving up after the grace
// period so a stuck read never blocks shutdown.
func waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("Shutdown grace period expired")
	}
}
