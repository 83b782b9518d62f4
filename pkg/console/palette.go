package console

import "github.com/charmbracelet/lipgloss"

// palette is the VIC-II colour set indexed by BASIC colour codes 0..15.
var palette = [16]lipgloss.Color{
	"#000000", // black
	"#FFFFFF", // white
	"#880000", // red
	"#AAFFEE", // cyan
	"#CC44CC", // purple
	"#00CC55", // green
	"#0000AA", // blue
	"#EEEE77", // yellow
	"#DD8855", // orange
	"#664400", // brown
	"#FF7777", // light red
	"#333333", // dark grey
	"#777777", // grey
	"#AAFF66", // light green
	"#0088FF", // light blue
	"#BBBBBB", // light grey
}

func colorAt(code int) lipgloss.Color {
	if code < 0 || code >= len(palette) {
		return palette[1]
	}
	return palette[code]
}

// textStyle renders program output in the current colours.
func textStyle(fg, bg int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorAt(fg)).Background(colorAt(bg))
}

var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
