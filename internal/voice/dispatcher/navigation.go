package dispatcher

import "strings"

// Route maps a spoken phrase to an application route.
type Route struct {
	Keyword string
	Path    string
}

// DefaultRoutes is checked in order; the first phrase found in the
// transcript wins.
var DefaultRoutes = []Route{
	{Keyword: "dashboard", Path: "/dashboard"},
	{Keyword: "work entry", Path: "/work-entry"},
	{Keyword: "my entries", Path: "/my-entries"},
	{Keyword: "documents", Path: "/documents"},
	{Keyword: "supervisor", Path: "/supervisor"},
	{Keyword: "admin", Path: "/admin"},
}

func resolveRoute(routes []Route, transcript string) (Route, bool) {
	text := strings.ToLower(transcript)
	for _, r := range routes {
		if strings.Contains(text, r.Keyword) {
			return r, true
		}
	}
	return Route{}, false
}
