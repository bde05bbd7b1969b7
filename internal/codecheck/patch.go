package codecheck

import "regexp"

var getGraphRE = regexp.MustCompile(`\.get_graph\s*\(`)

// Patch rewrites call shapes removed from manim 0.19: Axes.get_graph with the
// x_range keyword became Axes.plot.
func Patch(code string) string {
	return getGraphRE.ReplaceAllString(code, ".plot(")
}
