package diagram

import "github.com/WessleyAI/gridlink/engine/style"

// Reserved style markers for result overlays. Cells carrying
// PlaceholderMarker persist across runs.
const (
	ResultMarker      = "Result"
	PlaceholderMarker = "ResultPlaceholder"
)

// CommandKind selects what a Command does to its cell.
type CommandKind int

const (
	// CommandRecolor sets the stroke color.
	CommandRecolor CommandKind = iota
	// CommandFlag marks an element that failed extraction: stroke color plus
	// a dashed outline.
	CommandFlag
)

// Command is a deferred style mutation produced by a pass.
type Command struct {
	CellID string      `json:"cell_id"`
	Kind   CommandKind `json:"kind"`
	Color  string      `json:"color"`
}

// Recolor builds a CommandRecolor.
func Recolor(id, color string) Command {
	return Command{CellID: id, Kind: CommandRecolor, Color: color}
}

// Flag builds a CommandFlag.
func Flag(id, color string) Command {
	return Command{CellID: id, Kind: CommandFlag, Color: color}
}

// Apply performs cmds on g as one transaction. Commands naming unknown
// cells are skipped; the number applied is returned.
func Apply(g Graph, cmds []Command) int {
	if len(cmds) == 0 {
		return 0
	}
	g.BeginUpdate()
	defer g.EndUpdate()
	n := 0
	for _, cmd := range cmds {
		c, ok := g.Cell(cmd.CellID)
		if !ok {
			continue
		}
		s := style.WithValue(c.Style, "strokeColor", cmd.Color)
		if cmd.Kind == CommandFlag {
			s = style.WithValue(s, "dashed", "1")
		}
		if g.SetStyle(c.ID, s) {
			n++
		}
	}
	return n
}

// IsOverlay reports whether c is a removable result overlay.
func IsOverlay(c *Cell) bool {
	return style.Contains(c.Style, ResultMarker) && !style.Contains(c.Style, PlaceholderMarker)
}

// PurgeOverlays removes every result overlay from g in one transaction and
// returns how many were removed.
func PurgeOverlays(g Graph) int {
	var ids []string
	for _, c := range g.Cells() {
		if IsOverlay(c) {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return 0
	}
	g.BeginUpdate()
	g.Remove(ids...)
	g.EndUpdate()
	return len(ids)
}
