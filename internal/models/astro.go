package models

type LunarPhase struct {
	Phase          string  `json:"phase"`
	PhaseAge       float64 `json:"phaseAge"`
	Illumination   float64 `json:"illumination"`
	Interpretation string  `json:"interpretation"`
}

type PlanetaryPosition struct {
	Name   string  `json:"name"`
	Sign   string  `json:"sign"`
	Degree float64 `json:"degree"`
}

type AstrologicalData struct {
	Date               string              `json:"date"`
	LunarPhase         LunarPhase          `json:"lunarPhase"`
	PlanetaryPositions []PlanetaryPosition `json:"planetaryPositions"`
}
