// ABOUTME: Text surface the visualizer draws into
// ABOUTME: A grid of coloured cells rendered to a string for the terminal UI
package visualizer

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Cell is one character position
type Cell struct {
	Rune  rune
	Color string
}

// Surface is a fixed-size grid of cells. It is safe for concurrent use.
type Surface struct {
	mu     sync.Mutex
	width  int
	height int
	cells  []Cell
}

// NewSurface creates a blank surface
func NewSurface(width, height int) *Surface {
	s := &Surface{}
	s.Resize(width, height)
	return s
}

// Resize changes the grid size and clears it
func (s *Surface) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = width
	s.height = height
	s.cells = make([]Cell, width*height)
	s.clearLocked()
}

// Size returns width and height in cells
func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Clear blanks every cell
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Surface) clearLocked() {
	for i := range s.cells {
		s.cells[i] = Cell{Rune: ' '}
	}
}

// Set writes one cell; out-of-range positions are ignored
func (s *Surface) Set(x, y int, r rune, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return
	}
	s.cells[y*s.width+x] = Cell{Rune: r, Color: color}
}

// At returns the cell at x, y
func (s *Surface) At(x, y int) Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return Cell{}
	}
	return s.cells[y*s.width+x]
}

// Plain returns the surface text without colour
func (s *Surface) Plain() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for y := 0; y < s.height; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < s.width; x++ {
			b.WriteRune(s.cells[y*s.width+x].Rune)
		}
	}
	return b.String()
}

// String renders the surface with lipgloss colours, one styled run per
// stretch of equally coloured cells
func (s *Surface) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for y := 0; y < s.height; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		row := s.cells[y*s.width : (y+1)*s.width]
		for start := 0; start < len(row); {
			end := start + 1
			for end < len(row) && row[end].Color == row[start].Color {
				end++
			}
			var run strings.Builder
			for _, c := range row[start:end] {
				run.WriteRune(c.Rune)
			}
			if row[start].Color == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(row[start].Color)).Render(run.String()))
			}
			start = end
		}
	}
	return b.String()
}
