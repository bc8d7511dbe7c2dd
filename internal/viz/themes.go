package viz

import "github.com/charmbracelet/lipgloss"

// Theme colors the player.
type Theme struct {
	Name   string
	Links  lipgloss.Color
	Header lipgloss.Color
	Label  lipgloss.Color
	Value  lipgloss.Color
	Graph  lipgloss.Color
	Muted  lipgloss.Color
	Alert  lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:   "cyberpunk",
		Links:  lipgloss.Color("#00ffff"),
		Header: lipgloss.Color("#ff00ff"),
		Label:  lipgloss.Color("#888899"),
		Value:  lipgloss.Color("#ffffff"),
		Graph:  lipgloss.Color("#ffff00"),
		Muted:  lipgloss.Color("#666666"),
		Alert:  lipgloss.Color("#ff0000"),
	}

	ThemeRetroGreen = Theme{
		Name:   "retro",
		Links:  lipgloss.Color("#00ff00"),
		Header: lipgloss.Color("#88ff88"),
		Label:  lipgloss.Color("#00cc00"),
		Value:  lipgloss.Color("#00ff00"),
		Graph:  lipgloss.Color("#88ff88"),
		Muted:  lipgloss.Color("#005500"),
		Alert:  lipgloss.Color("#ffff00"),
	}

	ThemeMinimal = Theme{
		Name:   "minimal",
		Links:  lipgloss.Color("#ffffff"),
		Header: lipgloss.Color("#0088ff"),
		Label:  lipgloss.Color("#888888"),
		Value:  lipgloss.Color("#ffffff"),
		Graph:  lipgloss.Color("#cccccc"),
		Muted:  lipgloss.Color("#888888"),
		Alert:  lipgloss.Color("#ff0000"),
	}

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
	}
)

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
