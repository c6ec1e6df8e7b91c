package gann

import (
	"fmt"
	"math"

	"github.com/triggerstix/GANNTRADINGAPP/internal/models"
)

// Spiral lays consecutive numbers out from the middle cell of a size×size
// grid, stepping right, down, left, up with legs of 1,1,2,2,... and closing
// with a final rightward leg along the top row. size must be odd.
func Spiral(center float64, size int) [][]float64 {
	grid := make([][]float64, size)
	for i := range grid {
		grid[i] = make([]float64, size)
	}

	x, y := size/2, size/2
	num := center
	grid[y][x] = num

	walk := func(dx, dy, n int) {
		for range n {
			x += dx
			y += dy
			num++
			grid[y][x] = num
		}
	}

	for leg := 1; leg < size; leg += 2 {
		walk(1, 0, leg)
		walk(0, 1, leg)
		walk(-1, 0, leg+1)
		walk(0, -1, leg+1)
	}
	walk(1, 0, size-1)

	return grid
}

// KeyLevels returns the cardinal and diagonal Square of Nine levels, found
// by moving the square root of the center by a fraction of a full turn.
func KeyLevels(center float64) (cardinal, diagonal []models.KeyLevel) {
	root := math.Sqrt(center)
	level := func(angle float64, name string, offset float64) models.KeyLevel {
		return models.KeyLevel{Angle: angle, Name: name, Value: math.Pow(root+offset, 2)}
	}

	cardinal = []models.KeyLevel{
		level(0, "0° (East)", 1),
		level(90, "90° (North)", 0.5),
		level(180, "180° (West)", -1),
		level(270, "270° (South)", -0.5),
	}
	diagonal = []models.KeyLevel{
		level(45, "45° (NE)", 0.707),
		level(135, "135° (NW)", 0.293),
		level(225, "225° (SW)", -0.707),
		level(315, "315° (SE)", -0.293),
	}
	return cardinal, diagonal
}

func SquareOfNine(center float64, size int) (models.SquareOfNine, error) {
	if size < 1 || size%2 == 0 {
		return models.SquareOfNine{}, fmt.Errorf("grid size must be a positive odd number, got %d", size)
	}

	cardinal, diagonal := KeyLevels(center)
	return models.SquareOfNine{
		CenterValue:    center,
		GridSize:       size,
		Grid:           Spiral(center, size),
		CardinalLevels: cardinal,
		DiagonalLevels: diagonal,
	}, nil
}
