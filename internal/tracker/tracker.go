// Package tracker provides the issue tracker collaborators: GitHub Issues, a local
// YAML file and a no-op tracker.
package tracker

import (
	"context"
	"fmt"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/schema"
)

// New builds the tracker selected by the configuration.
func New(ctx context.Context, cfg *contract.Config) (contract.Tracker, error) {
	switch cfg.TrackerBackend {
	case schema.GitHubTracker:
		return NewGitHub(ctx, cfg.TrackerRepo, cfg.TrackerToken)
	case schema.FileTracker:
		return NewFile(cfg.TrackerFile), nil
	case schema.NoneTracker, "":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unsupported tracker backend: %s", cfg.TrackerBackend)
	}
}

// None is a tracker that knows no items and accepts no updates.
type None struct{}

var _ contract.Tracker = None{} // Compile-time check

// FetchItems implements the Tracker interface.
func (None) FetchItems(context.Context, []string) []schema.Item { return nil }

// ListOpenItems implements the Tracker interface.
func (None) ListOpenItems(context.Context, int) []schema.Item { return nil }

// UpdateItemStatus implements the Tracker interface.
func (None) UpdateItemStatus(context.Context, string, string) bool { return false }
