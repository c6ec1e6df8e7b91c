package gann

import (
	"fmt"
	"math"
	"time"

	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

type angleRatio struct {
	name  string
	ratio float64
	angle float64
}

// Price/time ratios from the slowest (1x8) to the steepest (8x1) line.
var angleRatios = []angleRatio{
	{"1x8", 1.0 / 8, 7.5},
	{"1x4", 1.0 / 4, 15},
	{"1x3", 1.0 / 3, 18.75},
	{"1x2", 1.0 / 2, 26.25},
	{"1x1", 1, 45},
	{"2x1", 2, 63.75},
	{"3x1", 3, 71.25},
	{"4x1", 4, 75},
	{"8x1", 8, 82.5},
}

// CalculateAngles projects each Gann angle from the pivot to the target date.
// One full 1x1 move equals the pivot price over 360 days; the direction of
// time between the two dates is ignored.
func CalculateAngles(pivotPrice float64, pivotDate, targetDate time.Time) models.GannAngles {
	days := math.Abs(daysBetween(pivotDate, targetDate))

	out := models.GannAngles{
		UpwardAngles:   make([]models.GannAngle, 0, len(angleRatios)),
		DownwardAngles: make([]models.GannAngle, 0, len(angleRatios)),
	}
	for _, a := range angleRatios {
		move := pivotPrice * a.ratio * (days / 360)
		out.UpwardAngles = append(out.UpwardAngles, projectAngle(a, pivotPrice, pivotPrice+move, "Upward"))
		out.DownwardAngles = append(out.DownwardAngles, projectAngle(a, pivotPrice, pivotPrice-move, "Downward"))
	}
	return out
}

func projectAngle(a angleRatio, pivot, price float64, direction string) models.GannAngle {
	// A zero pivot projects every angle onto zero.
	var change float64
	if pivot != 0 {
		change = (price - pivot) / pivot * 100
	}
	return models.GannAngle{
		Name:          a.name,
		Angle:         a.angle,
		Price:         price,
		PercentChange: change,
		Description:   fmt.Sprintf("%s %s angle (%g°)", direction, a.name, a.angle),
	}
}
