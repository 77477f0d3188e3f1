package dashboard

import "net/http"

type menuItem struct {
	Label  string
	URL    string
	Active bool
}

var menu = []menuItem{
	{Label: "Home", URL: "/"},
	{Label: "About", URL: "/about"},
}

type pageData struct {
	SiteTitle   string
	Title       string
	GitHubURL   string
	Version     string
	Environment string
	Theme       Theme
	Menu        []menuItem

	// ThemeClass is "dark", "light" or empty for auto.
	ThemeClass   string
	DarkModeAttr string
}

func (d *Dashboard) handlePage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := browserID(w, r)
		mode := d.darkMode(r.Context(), id)

		items := make([]menuItem, len(menu))
		for i, m := range menu {
			m.Active = m.URL == r.URL.Path
			items[i] = m
		}

		data := pageData{
			SiteTitle:    d.config.SiteTitle,
			Title:        title,
			GitHubURL:    d.config.GitHubURL,
			Version:      d.version,
			Environment:  d.appCtx.Environment,
			Theme:        d.config.Theme,
			Menu:         items,
			ThemeClass:   themeClass(mode),
			DarkModeAttr: darkModeAttr(mode),
		}

		if err := d.renderer.render(w, name, data); err != nil {
			d.logger.Error("page render failed", "page", name, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

func themeClass(mode *bool) string {
	switch {
	case mode == nil:
		return ""
	case *mode:
		return "dark"
	default:
		return "light"
	}
}

func darkModeAttr(mode *bool) string {
	switch {
	case mode == nil:
		return "auto"
	case *mode:
		return "true"
	default:
		return "false"
	}
}
