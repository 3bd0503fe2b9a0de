package tui

import "strings"

// Route 是导航壳中的一个页面
type Route int

const (
	RouteHome Route = iota
	RouteAnalyze
	RouteAbout
)

var routes = []Route{RouteHome, RouteAnalyze, RouteAbout}

func (r Route) Path() string {
	switch r {
	case RouteAnalyze:
		return "/analyze"
	case RouteAbout:
		return "/about"
	default:
		return "/"
	}
}

func (r Route) Title() string {
	switch r {
	case RouteAnalyze:
		return "Analyze"
	case RouteAbout:
		return "About & Contact"
	default:
		return "Home"
	}
}

// ParseRoute 接受路径（"/analyze"）或名称（"analyze"），不区分大小写
func ParseRoute(s string) (Route, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "/")
	switch s {
	case "", "home":
		return RouteHome, true
	case "analyze", "analyse":
		return RouteAnalyze, true
	case "about", "contact":
		return RouteAbout, true
	default:
		return RouteHome, false
	}
}

func (r Route) next() Route {
	return routes[(int(r)+1)%len(routes)]
}

func (r Route) prev() Route {
	return routes[(int(r)+len(routes)-1)%len(routes)]
}
