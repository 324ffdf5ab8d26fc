package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/hotswarm/internal/contract"
	"github.com/huangsam/hotswarm/schema"
)

// WriteBatchResults outputs suggested batches, dispatching based on the output format configured.
func WriteBatchResults(batches []schema.SwarmBatch, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatters(cfg.Precision)
	return dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, batches) },
		func(w io.Writer) error { return writeBatchCSV(w, batches, fmtFloat) },
		func(w io.Writer) error { return writeBatchTable(w, batches, cfg, fmtFloat, duration) },
	)
}

func writeBatchTable(w io.Writer, batches []schema.SwarmBatch, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	if len(batches) == 0 {
		_, err := fmt.Fprintln(w, "No compatible batches found. Try lowering --min-compatibility.")
		return err
	}
	pathWidth := getMaxTablePathWidth(cfg, 50)
	for _, b := range batches {
		if err := headline(w, "Batch #%d  avg %s  min %s  risk %s  ~%d min wall / %d min total",
			b.Rank, fmtFloat(b.AvgScore), fmtFloat(b.MinScore), contract.GetRiskLabel(b.Risk), b.MaxMinutes, b.TotalMinutes); err != nil {
			return err
		}
		rows := make([][]string, 0, len(b.Items))
		for _, p := range b.Items {
			rows = append(rows, []string{
				p.Item.ID,
				contract.TruncatePath(p.Item.Title, pathWidth),
				strconv.Itoa(p.Item.Priority),
				string(p.Complexity),
				strings.Join(p.Layers, ","),
				strconv.Itoa(len(p.Files)),
				string(p.Confidence),
			})
		}
		if err := renderTable(w, []string{"Item", "Title", "Pri", "Complexity", "Layers", "Files", "Confidence"}, rows); err != nil {
			return err
		}
		for _, r := range b.Reasons {
			if _, err := fmt.Fprintf(w, "  ✅ %s\n", r); err != nil {
				return err
			}
		}
		for _, warn := range b.Warnings {
			if _, err := fmt.Fprintf(w, "  %s\n", contract.MediumColor.Sprintf("⚠️  %s", warn)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "  ▶ hotswarm start %s\n\n", strings.Join(b.ItemIDs(), " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Suggested %d batches in %v\n", len(batches), duration.Round(time.Millisecond))
	return err
}

func writeBatchCSV(w io.Writer, batches []schema.SwarmBatch, fmtFloat func(float64) string) error {
	header := []string{"rank", "item_id", "title", "priority", "complexity", "minutes", "layers", "predicted_files", "confidence", "avg_score", "min_score", "risk"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, b := range batches {
			for _, p := range b.Items {
				rec := []string{
					strconv.Itoa(b.Rank),
					p.Item.ID,
					p.Item.Title,
					strconv.Itoa(p.Item.Priority),
					string(p.Complexity),
					strconv.Itoa(p.Minutes),
					strings.Join(p.Layers, "|"),
					strings.Join(p.Files, "|"),
					string(p.Confidence),
					fmtFloat(b.AvgScore),
					fmtFloat(b.MinScore),
					string(b.Risk),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// WritePredictions outputs per-item footprints.
func WritePredictions(preds []schema.ItemPrediction, cfg *contract.Config) error {
	return dispatch(cfg,
		func(w io.Writer) error { return writeJSON(w, preds) },
		func(w io.Writer) error {
			header := []string{"item_id", "title", "complexity", "minutes", "layers", "confidence", "files"}
			return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
				for _, p := range preds {
					rec := []string{p.Item.ID, p.Item.Title, string(p.Complexity), strconv.Itoa(p.Minutes),
						strings.Join(p.Layers, "|"), string(p.Confidence), strings.Join(p.Files, "|")}
					if err := cw.Write(rec); err != nil {
						return err
					}
				}
				return nil
			})
		},
		func(w io.Writer) error {
			pathWidth := getMaxTablePathWidth(cfg, 40)
			for _, p := range preds {
				if err := headline(w, "%s  %s", p.Item.ID, p.Item.Title); err != nil {
					return err
				}
				if _, err := fmt.Fprintf(w, "  complexity %s (~%d min), confidence %s, layers %s\n",
					p.Complexity, p.Minutes, p.Confidence, joinOrDash(p.Layers, ", ")); err != nil {
					return err
				}
				rows := make([][]string, 0, len(p.Files))
				for i, f := range p.Files {
					rows = append(rows, []string{strconv.Itoa(i + 1), contract.TruncatePath(f, pathWidth)})
				}
				if err := renderTable(w, []string{"#", "Predicted file"}, rows); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
