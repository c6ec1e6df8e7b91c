package models

type GannAngle struct {
	Name          string  `json:"name"`
	Angle         float64 `json:"angle"`
	Price         float64 `json:"price"`
	PercentChange float64 `json:"percentChange"`
	Description   string  `json:"description"`
}

type GannAngles struct {
	UpwardAngles   []GannAngle `json:"upwardAngles"`
	DownwardAngles []GannAngle `json:"downwardAngles"`
}

// KeyLevel is a Square of Nine price level at a compass angle.
type KeyLevel struct {
	Angle float64 `json:"angle"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type SquareOfNine struct {
	CenterValue    float64     `json:"centerValue"`
	GridSize       int         `json:"gridSize"`
	Grid           [][]float64 `json:"grid"`
	CardinalLevels []KeyLevel  `json:"cardinalLevels"`
	DiagonalLevels []KeyLevel  `json:"diagonalLevels"`
}

type TimeCycle struct {
	Name        string  `json:"name"`
	Days        float64 `json:"days"`
	Description string  `json:"description"`
	TargetDate  string  `json:"targetDate"`
	DaysUntil   int     `json:"daysUntil"`
}

type TimeCycles struct {
	GannCycles    []TimeCycle `json:"gannCycles"`
	NaturalCycles []TimeCycle `json:"naturalCycles"`
	CustomCycles  []TimeCycle `json:"customCycles,omitempty"`
}
