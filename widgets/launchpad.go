package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Pad is one lit pad of a grid controller; row 8 is the top button row and
// col 8 the side column.
type Pad struct {
	Row, Col int
	Color    [3]uint8
}

// RenderPad renders a single colored pad
func RenderPad(color [3]uint8) string {
	if color == ([3]uint8{}) {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#303030")).Render("□")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(rgbToHex(color))).Render("■")
}

// RenderLaunchpad draws a 9x9 mirror of the controller, top row first.
// Pads not listed are drawn unlit.
func RenderLaunchpad(pads []Pad) string {
	var grid [9][9][3]uint8
	for _, p := range pads {
		if p.Row >= 0 && p.Row < 9 && p.Col >= 0 && p.Col < 9 {
			grid[p.Row][p.Col] = p.Color
		}
	}

	var lines []string
	for row := 8; row >= 0; row-- {
		var line strings.Builder
		for col := 0; col < 9; col++ {
			if row == 8 && col == 8 {
				break
			}
			if col == 8 {
				line.WriteString(" ")
			}
			line.WriteString(RenderPad(grid[row][col]))
			line.WriteString(" ")
		}
		lines = append(lines, strings.TrimRight(line.String(), " "))
		if row == 8 {
			lines = append(lines, "")
		}
	}
	return strings.Join(lines, "\n")
}

// RenderLegendItem renders a single legend item: "■ Name - description"
func RenderLegendItem(color [3]uint8, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderPad(color), name, desc)
}

func rgbToHex(c [3]uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
