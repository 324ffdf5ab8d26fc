// Package worker is the client an agent runs inside its worktree to report status,
// progress and heartbeats to the shared swarm state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/docstore"
	"github.com/huangsam/hotswarm/schema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrWorkerNotFound is returned when state.json has no entry for this worker.
var ErrWorkerNotFound = errors.New("worker not found in swarm state")

// Client updates one worker entry of the shared swarm state. A Client created
// outside a swarm worktree is inactive and every update is a no-op.
type Client struct {
	cfg      *schema.WorkerConfig
	log      *zap.Logger
	now      func() time.Time
	interval time.Duration

	mu     sync.Mutex // serializes read-modify-write within this process
	cancel context.CancelFunc
	done   chan struct{}
}

// Option customizes a Client.
type Option func(*Client)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger replaces the per-worker file logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHeartbeatInterval overrides the interval from worker.json.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

// Load reads worker.json from the worktree. A missing file yields an inactive client.
func Load(worktree string, opts ...Option) (*Client, error) {
	c := &Client{now: time.Now, log: zap.NewNop()}
	var cfg schema.WorkerConfig
	found, err := docstore.ReadJSON(contract.WorkerConfigPath(worktree), &cfg)
	if err != nil {
		return nil, fmt.Errorf("load worker config: %w", err)
	}
	if found {
		c.cfg = &cfg
		c.interval = contract.DefaultHeartbeatInterval
		if d, err := time.ParseDuration(cfg.HeartbeatInterval); err == nil && d > 0 {
			c.interval = d
		}
		log, err := newFileLogger(contract.WorkerLogPath(cfg.SwarmDir, cfg.WorkerID))
		if err != nil {
			contract.LogWarn("Failed to open worker log", err)
		} else {
			c.log = log.With(zap.Int("worker", cfg.WorkerID), zap.String("item", cfg.ItemID))
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newFileLogger builds a console-encoded zap logger appending to path.
func newFileLogger(path string) (*zap.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		Encoding:         "console",
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{"stderr"},
	}
	return config.Build()
}

// Active reports whether the client runs inside a swarm worktree.
func (c *Client) Active() bool { return c.cfg != nil }

// Config returns the worker configuration, or nil when inactive.
func (c *Client) Config() *schema.WorkerConfig { return c.cfg }

// StartPlanning marks the worker as planning and stamps its start time.
func (c *Client) StartPlanning() error {
	c.log.Info("Planning started")
	return c.update(func(w *schema.WorkerState, now time.Time) {
		w.Status = schema.WorkerPlanning
		if w.StartedAt == nil {
			w.StartedAt = &now
		}
		w.Progress = schema.WorkerProgress{Step: "planning"}
	})
}

// StartExecuting marks the worker as executing and starts the heartbeat loop.
// The loop stops on Complete, Fail, Close or when ctx is done.
func (c *Client) StartExecuting(ctx context.Context, totalSteps int) error {
	c.log.Info("Execution started", zap.Int("steps", totalSteps))
	err := c.update(func(w *schema.WorkerState, now time.Time) {
		w.Status = schema.WorkerExecuting
		if w.StartedAt == nil {
			w.StartedAt = &now
		}
		w.Progress = schema.WorkerProgress{Step: "executing", Total: totalSteps}
	})
	if err != nil {
		return err
	}
	if c.Active() {
		c.startHeartbeat(ctx)
	}
	return nil
}

// ReportProgress records the current step and step counts.
func (c *Client) ReportProgress(step string, completed, total int) error {
	c.log.Info("Progress", zap.String("step", step), zap.Int("completed", completed), zap.Int("total", total))
	return c.update(func(w *schema.WorkerState, _ time.Time) {
		w.Progress = schema.WorkerProgress{Step: step, Completed: completed, Total: total}
	})
}

// Heartbeat refreshes only the heartbeat timestamp.
func (c *Client) Heartbeat() error {
	return c.update(func(*schema.WorkerState, time.Time) {})
}

// Complete stops the heartbeat and records the result.
func (c *Client) Complete(result schema.WorkerResult) error {
	c.stopHeartbeat()
	c.log.Info("Completed", zap.String("summary", result.Summary), zap.Strings("files", result.FilesChanged))
	return c.update(func(w *schema.WorkerState, now time.Time) {
		w.Status = schema.WorkerCompleted
		w.CompletedAt = &now
		w.Result = &result
		w.Error = ""
		if w.Progress.Total > 0 {
			w.Progress.Completed = w.Progress.Total
		}
		w.Progress.Step = "done"
	})
}

// Fail stops the heartbeat and records the failure.
func (c *Client) Fail(cause error) error {
	c.stopHeartbeat()
	c.log.Error("Failed", zap.Error(cause))
	return c.update(func(w *schema.WorkerState, now time.Time) {
		w.Status = schema.WorkerFailed
		w.CompletedAt = &now
		w.Error = cause.Error()
	})
}

// Close stops the heartbeat loop and flushes the log.
func (c *Client) Close() error {
	c.stopHeartbeat()
	_ = c.log.Sync()
	return nil
}

// update applies fn to this worker's entry and writes the whole state back.
// Every update also refreshes the heartbeat. There is no cross-process locking:
// concurrent writers race and the last write wins.
func (c *Client) update(fn func(w *schema.WorkerState, now time.Time)) error {
	if !c.Active() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	statePath := filepath.Join(c.cfg.SwarmDir, contract.StateFileName)
	var state schema.SwarmState
	found, err := docstore.ReadJSON(statePath, &state)
	if err != nil {
		return fmt.Errorf("read swarm state: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s is missing", ErrWorkerNotFound, statePath)
	}
	w := state.Worker(c.cfg.WorkerID)
	if w == nil {
		return fmt.Errorf("%w: worker %d", ErrWorkerNotFound, c.cfg.WorkerID)
	}
	now := c.now().UTC()
	fn(w, now)
	w.Heartbeat = &now
	state.UpdatedAt = now
	if err := docstore.WriteJSONAtomic(statePath, &state); err != nil {
		return fmt.Errorf("write swarm state: %w", err)
	}
	return nil
}

// --- Heartbeat loop ---

func (c *Client) startHeartbeat(ctx context.Context) {
	c.stopHeartbeat()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel, c.done = cancel, done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Heartbeat(); err != nil {
					c.log.Warn("Heartbeat failed", zap.Error(err))
				}
			}
		}
	}()
}

func (c *Client) stopHeartbeat() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}
