package core

import (
	"context"
	"fmt"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/internal/history"
)

// ExecuteHistoryStatus prints the run history status.
func ExecuteHistoryStatus(_ context.Context, cfg *contract.Config, deps *Deps) error {
	status, err := deps.History.GetStatus()
	if err != nil {
		return err
	}
	return ow.WriteHistoryStatus(status, cfg)
}

// ExecuteHistoryClear deletes every recorded run and outcome.
func ExecuteHistoryClear(ctx context.Context, _ *contract.Config, deps *Deps) error {
	if err := deps.History.Clear(); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(progressWriter(ctx), "🗑️  Run history cleared")
	return nil
}

// ExecuteHistoryExport writes the run history to Parquet files.
func ExecuteHistoryExport(ctx context.Context, _ *contract.Config, deps *Deps, prefix string) error {
	return history.Export(deps.History, prefix, progressWriter(ctx))
}

// ExecuteHistoryMigrate migrates the history schema to targetVersion (<0 latest, 0 none).
func ExecuteHistoryMigrate(ctx context.Context, cfg *contract.Config, targetVersion int) error {
	return history.Migrate(cfg.HistoryBackend, cfg.HistoryDBConnect, HistoryDBPath(cfg), targetVersion, progressWriter(ctx))
}
