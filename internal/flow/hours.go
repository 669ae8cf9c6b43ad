package flow

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/SivetachiBot/internal/catalog"
	"github.com/BTreeMap/SivetachiBot/internal/models"
)

// ClosedNote is prepended to replies sent outside business hours.
const ClosedNote = "Nota: en este momento estamos cerrados. Te responderemos apenas abramos.\n\n"

// DefaultTimezone is the business timezone when none is configured.
const DefaultTimezone = "America/Caracas"

type window struct {
	open, close int // minutes since midnight, close exclusive
}

// HoursGate annotates replies with ClosedNote when the business is closed.
type HoursGate struct {
	loc     *time.Location
	windows map[time.Weekday][]window
}

// LoadLocation resolves a timezone name. Unknown names fall back to the fixed
// Venezuelan offset, which is the default business location.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("HoursGate.LoadLocation: unknown timezone, using UTC-4", "timezone", name, "error", err)
		return time.FixedZone("VET", -4*60*60)
	}
	return loc
}

// NewHoursGate builds a gate from the weekly schedule evaluated in loc.
// An empty schedule means always open.
func NewHoursGate(schedule []catalog.ScheduleGroup, loc *time.Location) (*HoursGate, error) {
	if loc == nil {
		loc = LoadLocation("")
	}
	g := &HoursGate{loc: loc, windows: make(map[time.Weekday][]window)}
	for _, group := range schedule {
		days, err := group.Weekdays()
		if err != nil {
			return nil, fmt.Errorf("failed to build hours gate: %w", err)
		}
		openMin, closeMin, err := group.Window()
		if err != nil {
			return nil, fmt.Errorf("failed to build hours gate: %w", err)
		}
		for _, d := range days {
			g.windows[d] = append(g.windows[d], window{open: openMin, close: closeMin})
		}
	}
	return g, nil
}

// Location returns the timezone the schedule is evaluated in.
func (g *HoursGate) Location() *time.Location {
	return g.loc
}

// IsOpen reports whether t falls inside an opening window.
func (g *HoursGate) IsOpen(t time.Time) bool {
	if len(g.windows) == 0 {
		return true
	}
	local := t.In(g.loc)
	minute := local.Hour()*60 + local.Minute()
	for _, w := range g.windows[local.Weekday()] {
		if minute >= w.open && minute < w.close {
			return true
		}
	}
	return false
}

// Annotate prepends ClosedNote to reply when the business is closed at now.
// The note is never added twice.
func (g *HoursGate) Annotate(reply models.Reply, now time.Time) models.Reply {
	if reply.IsEmpty() || g.IsOpen(now) || strings.HasPrefix(reply.Text, ClosedNote) {
		return reply
	}
	return reply.Prepend(ClosedNote)
}
