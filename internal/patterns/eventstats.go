package patterns

import (
	"sort"

	"betterclaw/internal/devicemodel"
)

// computeEventStats computes the 7-day rollup from spec.md §4.F: counts,
// push rate, drop rate, and the top 5 sources by count.
func computeEventStats(entries []devicemodel.EventLogEntry, nowEpoch float64) devicemodel.EventStats {
	since7 := nowEpoch - window7Days

	var total, pushes, drops int
	sourceCounts := make(map[string]int)

	for _, entry := range entries {
		if entry.Event.FiredAt < since7 {
			continue
		}
		total++
		sourceCounts[entry.Event.Source]++
		switch entry.Decision {
		case devicemodel.DecisionPush:
			pushes++
		case devicemodel.DecisionDrop:
			drops++
		}
	}

	dropRate := 0.0
	if total > 0 {
		dropRate = float64(drops) / float64(total)
	}

	top := topSources(sourceCounts, 5)

	return devicemodel.EventStats{
		EventsPerDay: float64(total) / 7,
		PushesPerDay: float64(pushes) / 7,
		DropRate:     dropRate,
		TopSources:   top,
	}
}

func topSources(counts map[string]int, limit int) []devicemodel.SourceCount {
	out := make([]devicemodel.SourceCount, 0, len(counts))
	for source, count := range counts {
		out = append(out, devicemodel.SourceCount{Source: source, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Source < out[j].Source
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
