package patterns

import "betterclaw/internal/devicemodel"

// computeBatteryPatterns implements the one battery metric spec.md actually
// asks F to compute: lowBatteryFrequency. avgDrainPerHour and
// typicalChargeTime are declared by spec.md but intentionally left absent
// here — see DESIGN.md's Open Question resolution; callers use the 0.04
// constant fallback directly (proactive.LowBatteryAway).
func computeBatteryPatterns(entries []devicemodel.EventLogEntry) devicemodel.BatteryPatterns {
	var batteryEntries []devicemodel.EventLogEntry
	lowCount := 0
	for _, entry := range entries {
		if entry.Event.Source != "device.battery" {
			continue
		}
		batteryEntries = append(batteryEntries, entry)
		if level, ok := entry.Event.DataFloat("level"); ok && level < lowBatteryLevelThreshold {
			lowCount++
		}
	}
	if len(batteryEntries) == 0 {
		return devicemodel.BatteryPatterns{}
	}

	first := batteryEntries[0].Event.FiredAt
	last := batteryEntries[0].Event.FiredAt
	for _, entry := range batteryEntries {
		if entry.Event.FiredAt < first {
			first = entry.Event.FiredAt
		}
		if entry.Event.FiredAt > last {
			last = entry.Event.FiredAt
		}
	}
	daySpan := (last - first) / 86400
	if daySpan < 1 {
		daySpan = 1
	}
	freq := float64(lowCount) / daySpan
	return devicemodel.BatteryPatterns{LowBatteryFrequency: &freq}
}
