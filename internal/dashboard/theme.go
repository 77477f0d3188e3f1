package dashboard

import (
	"fmt"
	"regexp"
)

// Theme is the colour palette shared by every page.
type Theme struct {
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`
	Accent    string `yaml:"accent"`
	Dark      string `yaml:"dark"`
	Positive  string `yaml:"positive"`
	Negative  string `yaml:"negative"`
	Info      string `yaml:"info"`
	Warning   string `yaml:"warning"`
}

func (t *Theme) defaults() {
	set := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	set(&t.Primary, "#5898d4")
	set(&t.Secondary, "#26a69a")
	set(&t.Accent, "#9c27b0")
	set(&t.Dark, "#1d1d1d")
	set(&t.Positive, "#21ba45")
	set(&t.Negative, "#c10015")
	set(&t.Info, "#31ccec")
	set(&t.Warning, "#f2c037")
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Color is one named palette entry.
type Color struct {
	Name  string
	Value string
}

// Colors lists the palette in display order.
func (t Theme) Colors() []Color {
	return []Color{
		{"primary", t.Primary},
		{"secondary", t.Secondary},
		{"accent", t.Accent},
		{"positive", t.Positive},
		{"negative", t.Negative},
		{"warning", t.Warning},
		{"info", t.Info},
	}
}

func (t Theme) validate() error {
	for _, c := range append(t.Colors(), Color{"dark", t.Dark}) {
		if !hexColor.MatchString(c.Value) {
			return fmt.Errorf("dashboard: theme.%s: %q is not a hex colour", c.Name, c.Value)
		}
	}
	return nil
}
