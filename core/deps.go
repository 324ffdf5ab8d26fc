package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/huangsam/hotswarm/core/swarm"
	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/history"
	"github.com/huangsam/hotswarm/internal/knowledge"
	"github.com/huangsam/hotswarm/internal/tracker"
)

// Deps bundles the collaborators shared by the commands of one process.
type Deps struct {
	Git     contract.GitClient
	KB      *knowledge.KnowledgeBase
	Tracker contract.Tracker
	History *history.Store
}

// OpenDeps opens the knowledge base, tracker and history store for cfg.
func OpenDeps(ctx context.Context, cfg *contract.Config, client contract.GitClient) (*Deps, error) {
	kb, err := knowledge.Open(cfg.KnowledgeDir())
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	tr, err := tracker.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg.HistoryBackend, cfg.HistoryDBConnect, HistoryDBPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return &Deps{Git: client, KB: kb, Tracker: tr, History: store}, nil
}

// Close releases the history connection.
func (d *Deps) Close() error {
	if d == nil || d.History == nil {
		return nil
	}
	return d.History.Close()
}

// Orchestrator wires a swarm orchestrator from the dependencies.
func (d *Deps) Orchestrator(cfg *contract.Config, opts ...swarm.Option) *swarm.Orchestrator {
	return swarm.New(cfg, d.Git, d.KB, d.Tracker, d.History, opts...)
}

// HistoryDBPath is the default SQLite file of the run history.
func HistoryDBPath(cfg *contract.Config) string {
	return filepath.Join(cfg.SwarmDir, contract.HistoryDBFileName)
}

// progressWriter returns where progress lines go for ctx.
func progressWriter(ctx context.Context) io.Writer {
	if shouldSuppressHeader(ctx) {
		return io.Discard
	}
	return os.Stderr
}

// isNoSwarm reports whether err means no swarm has been started yet.
func isNoSwarm(err error) bool {
	return errors.Is(err, swarm.ErrNoSwarm)
}
