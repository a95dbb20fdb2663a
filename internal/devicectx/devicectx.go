// Package devicectx implements component B: the in-memory device context
// snapshot, its day-rollover and geofence state machine, and its durable
// persistence to context.json/patterns.json. Grounded on the teacher's
// filestore.AtomicWrite + MarshalJSONIndent idiom.
package devicectx

import (
	"strings"
	"sync"
	"time"

	"betterclaw/internal/devicemodel"
	"betterclaw/internal/filestore"
	"betterclaw/internal/logging"
)

const healthSourcePrefix = "health"

// Store is component B. Exclusively mutated by the pipeline; get_context
// and the proactive/pattern engines read a point-in-time copy via Get.
type Store struct {
	contextPath  string
	patternsPath string
	logger       logging.Logger

	mu  sync.RWMutex
	ctx devicemodel.DeviceContext
}

// New constructs a Store over the given context.json path.
func New(contextPath, patternsPath string, logger logging.Logger) *Store {
	return &Store{
		contextPath:  contextPath,
		patternsPath: patternsPath,
		logger:       logging.OrNop(logger),
		ctx:          devicemodel.Empty(),
	}
}

// Load reads context.json from disk. A missing or corrupt file is not an
// error: the store falls back to the empty context, per spec.md §4.B.
func (s *Store) Load() error {
	data, err := filestore.ReadFileOrEmpty(s.contextPath)
	if err != nil {
		s.logger.Warn("devicectx: read failed, starting empty: %v", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	var loaded devicemodel.DeviceContext
	if err := unmarshalJSON(data, &loaded); err != nil {
		s.logger.Warn("devicectx: parse failed, starting empty: %v", err)
		return nil
	}

	s.mu.Lock()
	s.ctx = loaded
	s.mu.Unlock()
	return nil
}

// Get returns the current snapshot by value, safe for the caller to read
// freely without observing a partially-updated state.
func (s *Store) Get() devicemodel.DeviceContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// UpdateFromEvent mutates the context per spec.md §4.B's algorithm: day
// rollover, lastEventAt/eventsToday bookkeeping, then a source-dispatched
// merge.
func (s *Store) UpdateFromEvent(event devicemodel.DeviceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Meta.LastEventAt > 0 && utcDay(event.FiredAt) != utcDay(s.ctx.Meta.LastEventAt) {
		s.ctx.Meta.EventsToday = 0
		s.ctx.Meta.PushesToday = 0
	}
	s.ctx.Meta.LastEventAt = event.FiredAt
	s.ctx.Meta.EventsToday++

	switch {
	case event.Source == "device.battery":
		s.applyBattery(event)
	case event.Source == "geofence.triggered":
		s.applyGeofence(event)
	case strings.HasPrefix(event.Source, healthSourcePrefix):
		s.applyHealth(event)
	}
}

func (s *Store) applyBattery(event devicemodel.DeviceEvent) {
	prior := s.ctx.Device.Battery
	b := &devicemodel.Battery{UpdatedAt: event.FiredAt}
	if prior != nil {
		*b = *prior
		b.UpdatedAt = event.FiredAt
	}
	if level, ok := event.DataFloat("level"); ok {
		b.Level = level
	}
	if lowPower, ok := event.DataFloat("isLowPowerMode"); ok {
		b.IsLowPowerMode = lowPower != 0
	}
	if state, ok := event.MetaString("state"); ok {
		b.State = state
	}
	s.ctx.Device.Battery = b
}

func (s *Store) applyHealth(event devicemodel.DeviceEvent) {
	prior := s.ctx.Device.Health
	h := &devicemodel.Health{UpdatedAt: event.FiredAt}
	if prior != nil {
		*h = *prior
		h.UpdatedAt = event.FiredAt
	}
	setIfPresent := func(key string, dst **float64) {
		if v, ok := event.DataFloat(key); ok {
			val := v
			*dst = &val
		}
	}
	setIfPresent("stepsToday", &h.StepsToday)
	setIfPresent("distanceMeters", &h.DistanceMeters)
	setIfPresent("heartRateAvg", &h.HeartRateAvg)
	setIfPresent("restingHeartRate", &h.RestingHeartRate)
	setIfPresent("hrv", &h.HRV)
	setIfPresent("activeEnergyKcal", &h.ActiveEnergyKcal)
	setIfPresent("sleepDurationSeconds", &h.SleepDurationSeconds)
	s.ctx.Device.Health = h
}

func (s *Store) applyGeofence(event devicemodel.DeviceEvent) {
	transitionType, _ := event.MetaString("transition")
	zoneName, _ := event.MetaString("zoneName")
	if zoneName == "" {
		zoneName = "Unknown"
	}

	from := s.ctx.Activity.CurrentZone
	transition := &devicemodel.Transition{From: from, To: zoneName, At: event.FiredAt}

	switch transitionType {
	case "exit":
		transition.To = ""
		s.ctx.Activity.CurrentZone = ""
		s.ctx.Activity.ZoneEnteredAt = 0
		s.ctx.Activity.IsStationary = false
		s.ctx.Activity.StationarySince = 0
	default: // "enter" and any unspecified transition default to enter semantics
		s.ctx.Activity.CurrentZone = zoneName
		s.ctx.Activity.ZoneEnteredAt = event.FiredAt
		s.ctx.Activity.IsStationary = true
		s.ctx.Activity.StationarySince = event.FiredAt
	}
	s.ctx.Activity.LastTransition = transition

	s.applyLocationFromGeofence(event)
}

func (s *Store) applyLocationFromGeofence(event devicemodel.DeviceEvent) {
	prior := s.ctx.Device.Location
	loc := &devicemodel.Location{UpdatedAt: event.FiredAt}
	if prior != nil {
		*loc = *prior
		loc.UpdatedAt = event.FiredAt
	}
	if lat, ok := event.DataFloat("latitude"); ok {
		loc.Latitude = lat
	}
	if lon, ok := event.DataFloat("longitude"); ok {
		loc.Longitude = lon
	}
	if acc, ok := event.DataFloat("horizontalAccuracy"); ok {
		loc.HorizontalAccuracy = acc
	}
	if label, ok := event.MetaString("zoneName"); ok {
		loc.Label = label
	}
	s.ctx.Device.Location = loc
}

// RecordPush marks that the pipeline delivered a push to the agent.
func (s *Store) RecordPush(now float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx.Meta.LastAgentPushAt = now
	s.ctx.Meta.PushesToday++
}

// RecordError surfaces the latest judgment/delivery failure summary through
// meta.lastError, a supplemental field for get_context self-diagnosis.
func (s *Store) RecordError(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx.Meta.LastError = summary
}

// Save writes the current snapshot to context.json, pretty-printed with a
// trailing newline, via an atomic temp-file-plus-rename write.
func (s *Store) Save() error {
	s.mu.RLock()
	snapshot := s.ctx
	s.mu.RUnlock()

	data, err := filestore.MarshalJSONIndent(snapshot)
	if err != nil {
		return err
	}
	return filestore.AtomicWrite(s.contextPath, data, 0o644)
}

// ReadPatterns loads patterns.json, falling back to the empty document on
// any read or parse failure.
func (s *Store) ReadPatterns() devicemodel.Patterns {
	data, err := filestore.ReadFileOrEmpty(s.patternsPath)
	if err != nil || len(data) == 0 {
		return devicemodel.EmptyPatterns()
	}
	var p devicemodel.Patterns
	if err := unmarshalJSON(data, &p); err != nil {
		s.logger.Warn("devicectx: patterns parse failed, starting empty: %v", err)
		return devicemodel.EmptyPatterns()
	}
	if p.TriggerCooldowns == nil {
		p.TriggerCooldowns = make(map[string]float64)
	}
	return p
}

// WritePatterns persists patterns.json atomically.
func (s *Store) WritePatterns(p devicemodel.Patterns) error {
	data, err := filestore.MarshalJSONIndent(p)
	if err != nil {
		return err
	}
	return filestore.AtomicWrite(s.patternsPath, data, 0o644)
}

func utcDay(epochSeconds float64) int64 {
	return int64(epochSeconds) / 86400
}

// Now is a small seam so tests can fix "the current time" without a global.
var Now = func() float64 {
	return float64(time.Now().Unix())
}
