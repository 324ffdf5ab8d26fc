package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/hotswarm/schema"
)

// highOverlapFiles is the shared-file count at which a pair is called out as risky.
const highOverlapFiles = 3

// GenerateReasoning explains a batch for reporting. It looks at file overlap,
// layer diversity, complexity spread and priority spread.
func GenerateReasoning(batch schema.SwarmBatch) (reasons, warnings []string) {
	overlapping := 0
	for _, pair := range batch.PairScores {
		n := len(pair.SharedFiles)
		switch {
		case n >= highOverlapFiles:
			warnings = append(warnings, fmt.Sprintf("High file overlap: #%s and #%s share %d files", pair.ItemA, pair.ItemB, n))
		case n > 0:
			warnings = append(warnings, fmt.Sprintf("Low file overlap: #%s and #%s share %s", pair.ItemA, pair.ItemB, strings.Join(pair.SharedFiles, ", ")))
		}
		if n > 0 {
			overlapping++
		}
	}
	if overlapping == 0 {
		reasons = append(reasons, "No predicted file overlap between items")
	}

	layers := distinctLayers(batch.Items)
	switch {
	case len(layers) >= len(batch.Items) && len(layers) > 1:
		reasons = append(reasons, fmt.Sprintf("Items work in different layers (%s)", strings.Join(layers, ", ")))
	case len(layers) > 1:
		reasons = append(reasons, fmt.Sprintf("Spans %d layers (%s)", len(layers), strings.Join(layers, ", ")))
	case len(layers) == 1 && len(batch.Items) > 1:
		warnings = append(warnings, fmt.Sprintf("All items touch the %s layer", layers[0]))
	}

	tiers := make(map[schema.Complexity]bool)
	for _, p := range batch.Items {
		tiers[p.Complexity] = true
	}
	switch {
	case len(tiers) == 1:
		reasons = append(reasons, fmt.Sprintf("Similar complexity (%s)", batch.Items[0].Complexity))
	case tiers[schema.ComplexityHigh] && tiers[schema.ComplexityLow]:
		warnings = append(warnings, fmt.Sprintf("Mixed complexity: finish times range up to %d minutes", batch.MaxMinutes))
	}

	if lo, hi, ok := prioritySpread(batch.Items); ok {
		switch {
		case hi-lo <= 1:
			reasons = append(reasons, "Similar priorities")
		case hi-lo >= 3:
			warnings = append(warnings, fmt.Sprintf("Wide priority spread (P%d to P%d)", lo, hi))
		}
	}

	cold := 0
	for _, p := range batch.Items {
		if p.Confidence == schema.ColdStart {
			cold++
		}
	}
	if cold > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of %d items use cold-start predictions", cold, len(batch.Items)))
	}
	return reasons, warnings
}

func distinctLayers(items []schema.ItemPrediction) []string {
	var layers []string
	for _, p := range items {
		for _, l := range p.Layers {
			if !slices.Contains(layers, l) {
				layers = append(layers, l)
			}
		}
	}
	return layers
}

// prioritySpread returns the lowest and highest non-zero priority.
func prioritySpread(items []schema.ItemPrediction) (lo, hi int, ok bool) {
	for _, p := range items {
		pr := p.Item.Priority
		if pr <= 0 {
			continue
		}
		if !ok {
			lo, hi, ok = pr, pr, true
			continue
		}
		lo, hi = min(lo, pr), max(hi, pr)
	}
	return lo, hi, ok
}
