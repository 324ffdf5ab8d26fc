package core

import (
	"errors"
	"fmt"

	"github.com/huangsam/hotswarm/internal/worker"
)

// ErrNotInWorktree is returned by worker commands run outside a swarm worktree.
var ErrNotInWorktree = errors.New("no worker config found; run inside a swarm worktree or pass --worktree")

// ExecuteWorkerUpdate loads the worker client of worktree, applies fn and closes the client.
func ExecuteWorkerUpdate(worktree string, fn func(c *worker.Client) error) error {
	c, err := worker.Load(worktree)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	if !c.Active() {
		return fmt.Errorf("%w (%s)", ErrNotInWorktree, worktree)
	}
	return fn(c)
}
