package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/schema"
)

// statusView is the JSON shape of a swarm status.
type statusView struct {
	*schema.SwarmState
	Stale []int `json:"stale_workers,omitempty"`
}

// WriteSwarmStatus outputs the swarm state with stale workers flagged.
func WriteSwarmStatus(state *schema.SwarmState, stale []int, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, statusView{SwarmState: state, Stale: stale}) },
		func(w io.Writer) error { return writeStatusCSV(w, state, stale) },
		func(w io.Writer) error { return writeStatusTable(w, state, stale, cfg) },
	)
}

func writeStatusTable(w io.Writer, state *schema.SwarmState, stale []int, cfg *contract.Config) error {
	if err := headline(w, "Swarm %s  phase %s  base %s", state.ID, state.Phase, state.BaseBranch); err != nil {
		return err
	}
	pathWidth := getMaxTablePathWidth(cfg, 70)
	rows := make([][]string, 0, len(state.Workers))
	for _, wk := range state.Workers {
		status := contract.GetStatusLabel(wk.Status)
		if slices.Contains(stale, wk.WorkerID) {
			status += contract.ProblemColor.Sprint(" (stale)")
		}
		progress := "-"
		if wk.Progress.Total > 0 {
			progress = fmt.Sprintf("%d/%d", wk.Progress.Completed, wk.Progress.Total)
		}
		step := wk.Progress.Step
		if step == "" {
			step = "-"
		}
		heartbeat := "-"
		if wk.Heartbeat != nil {
			heartbeat = wk.Heartbeat.Format(time.TimeOnly)
		}
		rows = append(rows, []string{
			strconv.Itoa(wk.WorkerID),
			wk.ItemID,
			status,
			contract.TruncatePath(wk.Branch, pathWidth),
			progress,
			step,
			heartbeat,
		})
	}
	if err := renderTable(w, []string{"Worker", "Item", "Status", "Branch", "Progress", "Step", "Heartbeat"}, rows); err != nil {
		return err
	}
	if state.Overlap != nil {
		if _, err := fmt.Fprintf(w, "Overlap: %d high-risk pairs, recommendation %s\n", state.Overlap.HighRiskPairs, state.Overlap.Recommendation); err != nil {
			return err
		}
	}
	if state.Error != "" {
		if _, err := fmt.Fprintln(w, contract.ProblemColor.Sprintf("Error: %s", state.Error)); err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		if _, err := fmt.Fprintf(w, "⚠️  %d worker(s) missed their heartbeat\n", len(stale)); err != nil {
			return err
		}
	}
	return nil
}

func writeStatusCSV(w io.Writer, state *schema.SwarmState, stale []int) error {
	header := []string{"swarm_id", "phase", "worker_id", "item_id", "status", "stale", "branch", "step", "completed", "total", "elapsed_minutes"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, wk := range state.Workers {
			rec := []string{
				state.ID,
				string(state.Phase),
				strconv.Itoa(wk.WorkerID),
				wk.ItemID,
				string(wk.Status),
				strconv.FormatBool(slices.Contains(stale, wk.WorkerID)),
				wk.Branch,
				wk.Progress.Step,
				strconv.Itoa(wk.Progress.Completed),
				strconv.Itoa(wk.Progress.Total),
				strconv.Itoa(wk.ElapsedMinutes()),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteMergeReport outputs the result of a merge pass.
func WriteMergeReport(report *schema.MergeReport, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, report) },
		func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"swarm_id", "worker_id", "outcome"}, func(cw *csv.Writer) error {
				write := func(ids []int, outcome string) error {
					for _, id := range ids {
						if err := cw.Write([]string{report.SwarmID, strconv.Itoa(id), outcome}); err != nil {
							return err
						}
					}
					return nil
				}
				if err := write(report.Merged, "merged"); err != nil {
					return err
				}
				if err := write(report.Skipped, "skipped"); err != nil {
					return err
				}
				for _, p := range report.Pending {
					if err := cw.Write([]string{report.SwarmID, strconv.Itoa(p.WorkerID), "pending"}); err != nil {
						return err
					}
				}
				if report.Conflict != nil {
					return cw.Write([]string{report.SwarmID, strconv.Itoa(report.Conflict.WorkerID), "conflict"})
				}
				return nil
			})
		},
		func(w io.Writer) error { return writeMergeText(w, report, cfg) },
	)
}

func writeMergeText(w io.Writer, report *schema.MergeReport, cfg *contract.Config) error {
	if err := headline(w, "Merge of swarm %s", report.SwarmID); err != nil {
		return err
	}
	for _, id := range report.Merged {
		if _, err := fmt.Fprintf(w, "  ✅ worker %d merged\n", id); err != nil {
			return err
		}
	}
	for _, id := range report.Skipped {
		if _, err := fmt.Fprintf(w, "  ⏭️  worker %d skipped (not completed)\n", id); err != nil {
			return err
		}
	}
	for _, p := range report.Pending {
		if _, err := fmt.Fprintf(w, "  ⏳ worker %d (%s) is still %s\n", p.WorkerID, p.ItemID, p.Status); err != nil {
			return err
		}
	}
	if report.Conflict != nil {
		return writeConflictText(w, report.Conflict, cfg)
	}
	if report.Completed {
		_, err := fmt.Fprintln(w, contract.SuccessColor.Sprint("🎉 Swarm completed"))
		return err
	}
	return nil
}

// WriteConflicts outputs an outstanding conflict report.
func WriteConflicts(pending *schema.PendingConflicts, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, pending) },
		func(w io.Writer) error {
			header := []string{"worker_id", "item_id", "branch", "file", "start_line", "end_line"}
			return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
				for _, f := range pending.Files {
					for _, b := range f.Blocks {
						rec := []string{strconv.Itoa(pending.WorkerID), pending.ItemID, pending.Branch, f.Path,
							strconv.Itoa(b.StartLine), strconv.Itoa(b.EndLine)}
						if err := cw.Write(rec); err != nil {
							return err
						}
					}
				}
				return nil
			})
		},
		func(w io.Writer) error { return writeConflictText(w, pending, cfg) },
	)
}

func writeConflictText(w io.Writer, pending *schema.PendingConflicts, cfg *contract.Config) error {
	if _, err := fmt.Fprintln(w, contract.HighColor.Sprintf("💥 Conflict merging worker %d (%s) from %s into %s",
		pending.WorkerID, pending.ItemID, pending.Branch, pending.BaseBranch)); err != nil {
		return err
	}
	if pending.ItemTitle != "" {
		if _, err := fmt.Fprintf(w, "Item: %s\n", pending.ItemTitle); err != nil {
			return err
		}
	}
	pathWidth := getMaxTablePathWidth(cfg, 30)
	rows := make([][]string, 0, len(pending.Files))
	for _, f := range pending.Files {
		lines := make([]string, 0, len(f.Blocks))
		for _, b := range f.Blocks {
			lines = append(lines, fmt.Sprintf("%d-%d", b.StartLine, b.EndLine))
		}
		rows = append(rows, []string{contract.TruncatePath(f.Path, pathWidth), strconv.Itoa(len(f.Blocks)), joinOrDash(lines, " ")})
	}
	if err := renderTable(w, []string{"File", "Blocks", "Lines"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "Resolve the files, commit, then run `hotswarm merge` again.")
	return err
}
