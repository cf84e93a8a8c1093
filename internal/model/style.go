package model

import (
	"fmt"
	"strings"
)

// Style selects a docstring grammar. It is fixed for a whole run.
type Style int

const (
	Google Style = iota
	NumPy
	ReST
)

// Styles lists every supported style in a stable order.
var Styles = []Style{Google, NumPy, ReST}

func (s Style) String() string {
	switch s {
	case Google:
		return "google"
	case NumPy:
		return "numpy"
	case ReST:
		return "rest"
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// Title returns the conventional display name of the style.
func (s Style) Title() string {
	switch s {
	case Google:
		return "Google"
	case NumPy:
		return "NumPy"
	case ReST:
		return "reST"
	}
	return s.String()
}

// ParseStyle resolves a style name case-insensitively.
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "google", "":
		return Google, nil
	case "numpy", "numpydoc", "scipy":
		return NumPy, nil
	case "rest", "rst", "restructuredtext", "sphinx":
		return ReST, nil
	}
	return Google, fmt.Errorf("unsupported docstring style %q", name)
}
