package patterns

import (
	"betterclaw/internal/devicemodel"
)

// computeLocationRoutines partitions geofence events by weekday/weekend and
// reports the median enter/leave fractional hour per zone, per spec.md §4.F.
func computeLocationRoutines(entries []devicemodel.EventLogEntry) devicemodel.LocationRoutines {
	type zoneSamples struct {
		enters []float64
		exits  []float64
	}

	weekdayZones := make(map[string]*zoneSamples)
	weekendZones := make(map[string]*zoneSamples)

	for _, entry := range entries {
		if entry.Event.Source != "geofence.triggered" {
			continue
		}
		zone := entry.Event.Metadata["zoneName"]
		if zone == "" {
			zone = "Unknown"
		}
		transition := entry.Event.Metadata["transition"]

		bucket := weekdayZones
		if isWeekend(entry.Event.FiredAt) {
			bucket = weekendZones
		}
		samples, ok := bucket[zone]
		if !ok {
			samples = &zoneSamples{}
			bucket[zone] = samples
		}
		hour := fractionalHour(entry.Event.FiredAt)
		switch transition {
		case "exit":
			samples.exits = append(samples.exits, hour)
		default:
			samples.enters = append(samples.enters, hour)
		}
	}

	toRoutines := func(bucket map[string]*zoneSamples) []devicemodel.ZoneRoutine {
		var out []devicemodel.ZoneRoutine
		for zone, samples := range bucket {
			r := devicemodel.ZoneRoutine{Zone: zone}
			if len(samples.enters) > 0 {
				r.TypicalArrive = hhmm(median(samples.enters))
			}
			if len(samples.exits) > 0 {
				r.TypicalLeave = hhmm(median(samples.exits))
			}
			out = append(out, r)
		}
		return out
	}

	return devicemodel.LocationRoutines{
		Weekday: toRoutines(weekdayZones),
		Weekend: toRoutines(weekendZones),
	}
}
