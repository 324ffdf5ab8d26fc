package history

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/hotswarm/internal/parquet"
)

// Export writes every run and worker outcome to <prefix>.swarm_runs.parquet
// and <prefix>.worker_outcomes.parquet, reporting progress to w.
func Export(store *Store, prefix string, w io.Writer) error {
	if prefix == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total swarm runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total worker outcomes: %d\n", status.TotalOutcomes)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve swarm runs: %w", err)
	}
	outcomes, err := store.GetAllOutcomes()
	if err != nil {
		return fmt.Errorf("failed to retrieve worker outcomes: %w", err)
	}

	runsFile := prefix + ".swarm_runs.parquet"
	if err := parquet.WriteSwarmRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write swarm runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d swarm runs to: %s\n", len(runs), runsFile)

	outcomesFile := prefix + ".worker_outcomes.parquet"
	if err := parquet.WriteWorkerOutcomesParquet(parquet.ConvertWorkerOutcomeRecords(outcomes), outcomesFile); err != nil {
		return fmt.Errorf("failed to write worker outcomes: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d worker outcomes to: %s\n", len(outcomes), outcomesFile)
	return nil
}
