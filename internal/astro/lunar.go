// Package astro estimates lunar phase and planetary zodiac positions with
// simple periodic models. The numbers are heuristics for market timing
// studies, not ephemeris data.
package astro

import (
	"math"
	"time"

	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

// SynodicMonth is the mean time between new moons, in days.
const SynodicMonth = 29.53059

// referenceNewMoon anchors the phase calculation.
var referenceNewMoon = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

type phaseBucket struct {
	until          float64 // exclusive upper bound of the phase age, in days
	name           string
	interpretation string
}

var phaseBuckets = []phaseBucket{
	{3.69, "New Moon", "New beginnings. Time to plant seeds for future growth."},
	{7.38, "Waxing Crescent", "Building energy. Markets may show initial momentum."},
	{11.07, "First Quarter", "Action and decision-making. Potential for breakouts."},
	{14.77, "Waxing Gibbous", "Refinement and adjustment. Markets near peak energy."},
	{18.46, "Full Moon", "Culmination and completion. Often marks major turning points."},
	{22.15, "Waning Gibbous", "Disseminating wisdom. Markets may consolidate."},
	{25.84, "Last Quarter", "Crisis and correction. Potential for trend changes."},
	{math.Inf(1), "Waning Crescent", "Release and rest. Prepare for the next cycle."},
}

// PhaseAge returns the days elapsed since the last new moon, in [0, SynodicMonth).
func PhaseAge(t time.Time) float64 {
	days := t.Sub(referenceNewMoon).Hours() / 24
	age := math.Mod(days, SynodicMonth)
	if age < 0 {
		age += SynodicMonth
	}
	return age
}

func LunarPhase(t time.Time) models.LunarPhase {
	age := PhaseAge(t)
	illumination := (1 - math.Cos(age/SynodicMonth*2*math.Pi)) * 50

	b := phaseBuckets[len(phaseBuckets)-1]
	for _, candidate := range phaseBuckets {
		if age < candidate.until {
			b = candidate
			break
		}
	}

	return models.LunarPhase{
		Phase:          b.name,
		PhaseAge:       round1(age),
		Illumination:   round1(illumination),
		Interpretation: b.interpretation,
	}
}

// Data bundles the lunar phase and planetary positions for one date.
func Data(t time.Time) models.AstrologicalData {
	return models.AstrologicalData{
		Date:               t.UTC().Format("2006-01-02"),
		LunarPhase:         LunarPhase(t),
		PlanetaryPositions: PlanetaryPositions(t),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
