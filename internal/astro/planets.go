package astro

import (
	"math"
	"time"

	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

var zodiacSigns = [12]string{
	"Aries ♈", "Taurus ♉", "Gemini ♊", "Cancer ♋",
	"Leo ♌", "Virgo ♍", "Libra ♎", "Scorpio ♏",
	"Sagittarius ♐", "Capricorn ♑", "Aquarius ♒", "Pisces ♓",
}

type planet struct {
	name   string
	period float64 // orbital period in days
	offset float64 // day-of-year phase shift
}

var planets = []planet{
	{"Sun ☉", 365, 80},
	{"Moon ☽", 27.3, 10},
	{"Mercury ☿", 88, 150},
	{"Venus ♀", 225, 200},
	{"Mars ♂", 687, 50},
	{"Jupiter ♃", 4333, 120},
	{"Saturn ♄", 10759, 300},
}

// dayOfYear counts whole days since Jan 0 (Dec 31 of the prior year), UTC.
func dayOfYear(t time.Time) float64 {
	t = t.UTC()
	jan0 := time.Date(t.Year(), time.January, 0, 0, 0, 0, 0, time.UTC)
	return math.Floor(t.Sub(jan0).Hours() / 24)
}

// PlanetaryPositions places each planet on the zodiac with a linear motion
// model: the fraction of its orbital period elapsed maps onto twelve signs of
// thirty degrees each.
func PlanetaryPositions(t time.Time) []models.PlanetaryPosition {
	doy := dayOfYear(t)

	out := make([]models.PlanetaryPosition, 0, len(planets))
	for _, p := range planets {
		position := (doy + p.offset) / p.period * 12
		_, frac := math.Modf(position)
		out = append(out, models.PlanetaryPosition{
			Name:   p.name,
			Sign:   zodiacSigns[int(math.Mod(position, 12))],
			Degree: round1(frac * 30),
		})
	}
	return out
}
