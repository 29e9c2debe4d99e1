package terminal

import (
	"fmt"
	"os"

	"github.com/creack/pty"
)

// Fallback size used when neither the caller nor the configuration names one.
const (
	DefaultCols uint16 = 80
	DefaultRows uint16 = 24
)

// ValidateGeometry rejects sizes the kernel would accept but no program can
// render into.
func ValidateGeometry(cols, rows uint16) error {
	if cols == 0 || rows == 0 {
		return fmt.Errorf("cols and rows must be positive, got %dx%d", cols, rows)
	}
	return nil
}

// applyGeometry sets the window size on the PTY; the kernel delivers
// SIGWINCH to the foreground process group.
func applyGeometry(f *os.File, g Geometry) error {
	return pty.Setsize(f, &pty.Winsize{
		Cols: g.Cols,
		Rows: g.Rows,
	})
}

// WindowSize asks the OS for the PTY's current size.
func (s *Session) WindowSize() (Geometry, error) {
	rows, cols, err := pty.Getsize(s.ptmx)
	if err != nil {
		return Geometry{}, err
	}
	return Geometry{Cols: uint16(cols), Rows: uint16(rows)}, nil
}
