package analysis

import (
	"fmt"
	"strings"
)

type Point struct{ X, Y float64 }

// PhasePortrait is one recorded state component plotted against another.
type PhasePortrait struct {
	XIndex, YIndex int
	Points         []Point
}

func NewPhasePortrait(states [][]float64, xIdx, yIdx int) (*PhasePortrait, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("analysis: no states")
	}
	if xIdx < 0 || yIdx < 0 || xIdx >= len(states[0]) || yIdx >= len(states[0]) {
		return nil, fmt.Errorf("analysis: axes %d,%d out of range for %d components", xIdx, yIdx, len(states[0]))
	}

	p := &PhasePortrait{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, len(states)),
	}
	for i, s := range states {
		p.Points[i] = Point{X: s[xIdx], Y: s[yIdx]}
	}
	return p, nil
}

type bounds struct {
	minX, minY     float64
	rangeX, rangeY float64
}

// bounds pads the data extent by 10% on each side.
func (p *PhasePortrait) bounds() bounds {
	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX = min(minX, pt.X)
		maxX = max(maxX, pt.X)
		minY = min(minY, pt.Y)
		maxY = max(maxY, pt.Y)
	}

	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	return bounds{
		minX:   minX - rangeX*0.1,
		minY:   minY - rangeY*0.1,
		rangeX: rangeX * 1.2,
		rangeY: rangeY * 1.2,
	}
}

// ASCII draws the portrait on a width x height character grid, with axes
// where they cross the visible area.
func (p *PhasePortrait) ASCII(width, height int) string {
	if len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}
	b := p.bounds()

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	if b.minX <= 0 && b.minX+b.rangeX >= 0 {
		col := int(-b.minX / b.rangeX * float64(width-1))
		for row := range grid {
			grid[row][col] = '│'
		}
	}
	if b.minY <= 0 && b.minY+b.rangeY >= 0 {
		row := height - 1 - int(-b.minY/b.rangeY*float64(height-1))
		for col := range grid[row] {
			if grid[row][col] == '│' {
				grid[row][col] = '┼'
			} else {
				grid[row][col] = '─'
			}
		}
	}

	for _, pt := range p.Points {
		col := int((pt.X - b.minX) / b.rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-b.minY)/b.rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			grid[row][col] = '•'
		}
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// SVG draws the portrait as a single polyline.
func (p *PhasePortrait) SVG(width, height int, stroke string) string {
	if len(p.Points) < 2 {
		return ""
	}
	b := p.bounds()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, stroke)

	for i, pt := range p.Points {
		x := (pt.X - b.minX) / b.rangeX * float64(width)
		y := float64(height) - (pt.Y-b.minY)/b.rangeY*float64(height)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}

	sb.WriteString("\"/>\n</svg>\n")
	return sb.String()
}
