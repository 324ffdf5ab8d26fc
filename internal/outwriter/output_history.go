package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/schema"
)

// WriteHistoryStatus outputs the run history store status.
func WriteHistoryStatus(status schema.HistoryStatus, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, status) },
		func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"metric", "value"}, func(cw *csv.Writer) error {
				for _, row := range historyRows(status) {
					if err := cw.Write(row); err != nil {
						return err
					}
				}
				return nil
			})
		},
		func(w io.Writer) error {
			if err := headline(w, "📚 Run history (%s)", status.Backend); err != nil {
				return err
			}
			if !status.Connected {
				_, err := fmt.Fprintln(w, "History is disabled. Set --history-backend to record runs.")
				return err
			}
			return renderTable(w, []string{"Metric", "Value"}, historyRows(status))
		},
	)
}

func historyRows(status schema.HistoryStatus) [][]string {
	rows := [][]string{
		{"backend", status.Backend},
		{"connected", strconv.FormatBool(status.Connected)},
		{"total_runs", strconv.Itoa(status.TotalRuns)},
		{"total_outcomes", strconv.Itoa(status.TotalOutcomes)},
	}
	if status.TotalRuns > 0 {
		rows = append(rows,
			[]string{"last_run_id", strconv.FormatInt(status.LastRunID, 10)},
			[]string{"last_run_time", status.LastRunTime.Format(contract.DateTimeFormat)},
			[]string{"oldest_run_time", status.OldestRunTime.Format(contract.DateTimeFormat)},
		)
	}
	tables := make([]string, 0, len(status.TableSizes))
	for t := range status.TableSizes {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		rows = append(rows, []string{"rows." + t, strconv.FormatInt(status.TableSizes[t], 10)})
	}
	return rows
}
