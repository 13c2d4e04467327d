// Package worker runs the serving loops behind the hub's public port and
// moves the listening role between them. Each worker owns a disjoint set
// of connections; the coordinator owns the admin port, the linked hubs
// and the decisions about who listens next.
package worker

import (
	"context"
	"fmt"

	"github.com/NareshPS/FBOpenDCHub/internal/hub"
	"github.com/NareshPS/FBOpenDCHub/internal/logger"
	"github.com/NareshPS/FBOpenDCHub/internal/protocol/nmdc"
)

// Worker is one serving loop plus its link to the coordinator. A worker
// accepts new users only while it holds the listening role; once it fills
// up it hands the role back and keeps serving the users it has.
type Worker struct {
	ID   uint64
	Loop *hub.Loop

	pool      *Pool
	coordLink *hub.Conn // this worker's connection to the coordinator
	cancel    context.CancelFunc
}

func newWorker(id uint64, pool *Pool) *Worker {
	w := &Worker{
		ID:   id,
		Loop: hub.NewLoop(id, pool.state),
		pool: pool,
	}
	w.Loop.MaxLocalUsers = pool.usersPerFork
	w.Loop.Listen = w
	w.Loop.Control = w
	w.Loop.AfterEvent = w.maybeRetire
	return w
}

// Run serves the loop until the pool shuts down or the worker retires.
func (w *Worker) Run(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.pool.state.Metrics.WorkerStarted()
	logger.Info("worker %d started", w.ID)

	w.Loop.Run(ctx)

	w.pool.state.Metrics.WorkerStopped()
	w.pool.forget(w)
	logger.Info("worker %d stopped", w.ID)
}

// OpenListening claims the listening role for this worker. Refused when
// the worker is already at its serving cap.
func (w *Worker) OpenListening() bool {
	if w.pool.usersPerFork > 0 && w.Loop.UserCount() >= w.pool.usersPerFork {
		return false
	}
	return w.pool.state.Dir.TryClaimOwner(w.ID)
}

// CloseListening gives the listening role back and tells the coordinator
// to place it elsewhere.
func (w *Worker) CloseListening() {
	if w.pool.state.Dir.Owner() != w.ID {
		return
	}
	w.pool.state.Dir.ReleaseOwner(w.ID)
	logger.Info("worker %d released the listening role", w.ID)
	w.coordLink.Send(nmdc.CmdClosedListen + "|")
}

// HandleControl processes management records from the coordinator.
func (w *Worker) HandleControl(l *hub.Loop, from *hub.Conn, record string) bool {
	switch {
	case nmdc.HasCommand(record, nmdc.CmdOpenListen):
		if w.OpenListening() {
			logger.Info("worker %d took the listening role", w.ID)
			w.pool.state.Metrics.HandoffResult("accepted")
		} else {
			from.Send(nmdc.CmdRejListen + "|")
		}
		return true
	case nmdc.HasCommand(record, nmdc.CmdClosedListen), nmdc.HasCommand(record, nmdc.CmdRejListen):
		// Coordinator-side records; nothing for a worker to do.
		return true
	}
	return false
}

// maybeRetire shuts the worker down when it serves nobody, does not hold
// the listening role and is not the last worker standing.
func (w *Worker) maybeRetire() {
	if w.Loop.UserCount() > 0 || w.pool.state.Dir.Owner() == w.ID {
		return
	}
	if w.pool.count() <= 1 {
		return
	}
	logger.Info("worker %d idle, retiring", w.ID)
	w.coordLink.Close()
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Worker) name() string {
	return fmt.Sprintf("worker-%d", w.ID)
}
