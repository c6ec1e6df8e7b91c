package gann

import (
	"fmt"
	"math"
	"time"

	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

type cycleDef struct {
	name        string
	days        float64
	description string
}

var gannCycles = []cycleDef{
	{"7 Days", 7, "Weekly cycle"},
	{"14 Days", 14, "Two weeks"},
	{"21 Days", 21, "Three weeks"},
	{"30 Days", 30, "Monthly cycle"},
	{"45 Days", 45, "1.5 months"},
	{"60 Days", 60, "Two months"},
	{"90 Days", 90, "Quarterly cycle"},
	{"120 Days", 120, "Four months"},
	{"144 Days", 144, "Gann's square of 12"},
	{"180 Days", 180, "Half year"},
	{"360 Days", 360, "Full year cycle"},
}

var naturalCycles = []cycleDef{
	{"Lunar Month", 29.53, "Moon's orbital period"},
	{"Mercury Cycle", 88, "Mercury's orbital period"},
	{"Venus Cycle", 225, "Venus's orbital period"},
	{"Mars Cycle", 687, "Mars's orbital period"},
}

// CycleFor computes the calendar date that lies a cycle length after start.
// Fractional cycle lengths are rounded to whole days; DaysUntil is measured
// from now and is negative once the target has passed.
func CycleFor(name string, days float64, description string, start, now time.Time) models.TimeCycle {
	target := start.AddDate(0, 0, int(math.Round(days)))
	return models.TimeCycle{
		Name:        name,
		Days:        days,
		Description: description,
		TargetDate:  target.Format(DateLayout),
		DaysUntil:   int(math.Ceil(daysBetween(now, target))),
	}
}

// TimeCycles projects the standard Gann and natural cycles from start.
// customDays adds caller-chosen cycle lengths.
func TimeCycles(start, now time.Time, customDays []float64) models.TimeCycles {
	project := func(defs []cycleDef) []models.TimeCycle {
		out := make([]models.TimeCycle, 0, len(defs))
		for _, c := range defs {
			out = append(out, CycleFor(c.name, c.days, c.description, start, now))
		}
		return out
	}

	out := models.TimeCycles{
		GannCycles:    project(gannCycles),
		NaturalCycles: project(naturalCycles),
	}
	for _, d := range customDays {
		name := fmt.Sprintf("%g Days", d)
		out.CustomCycles = append(out.CustomCycles, CycleFor(name, d, "Custom cycle", start, now))
	}
	return out
}
