// Package faction holds the canonical faction records, their ports, and the
// relationship rules (thresholds, trade, port capture) that drive war and alliance.
package faction

import (
	"fmt"
	"strings"
)

// FactionType enumerates every faction the game knows about.
type FactionType uint8

const (
	None FactionType = iota // Neutral sentinel: unowned ports, unaffiliated entities
	Pirates
	RoyalNavy
	Merchants
	Smugglers
	Independent
)

var typeNames = [...]string{
	None:        "none",
	Pirates:     "pirates",
	RoyalNavy:   "royal_navy",
	Merchants:   "merchants",
	Smugglers:   "smugglers",
	Independent: "independent",
}

// AllTypes returns every registrable faction type (None excluded) in declaration order.
func AllTypes() []FactionType {
	return []FactionType{Pirates, RoyalNavy, Merchants, Smugglers, Independent}
}

// String returns the snake_case name.
func (t FactionType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("faction(%d)", uint8(t))
}

// DisplayName returns a title-cased name used when no display name is configured.
func (t FactionType) DisplayName() string {
	parts := strings.Split(t.String(), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// ParseFactionType accepts snake_case ("royal_navy") or CamelCase ("RoyalNavy").
func ParseFactionType(s string) (FactionType, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for i, name := range typeNames {
		if strings.ReplaceAll(name, "_", "") == norm {
			return FactionType(i), nil
		}
	}
	return None, fmt.Errorf("%w: unknown faction type %q", ErrInvalidArgument, s)
}

// MarshalText encodes the type by name.
func (t FactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name.
func (t *FactionType) UnmarshalText(b []byte) error {
	v, err := ParseFactionType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Standing is the discrete diplomatic status derived from a relation value.
type Standing uint8

const (
	Neutral Standing = iota
	Hostile
	Allied
)

func (s Standing) String() string {
	switch s {
	case Hostile:
		return "hostile"
	case Allied:
		return "allied"
	default:
		return "neutral"
	}
}

// MarshalText encodes the standing by name.
func (s Standing) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Color is an RGB display color.
type Color struct {
	R, G, B uint8
}

// Gray is the color of factions without configured colors.
var Gray = Color{R: 128, G: 128, B: 128}

// ParseColor parses "#rrggbb".
func ParseColor(s string) (Color, error) {
	var c Color
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return c, fmt.Errorf("%w: color %q must be #rrggbb", ErrInvalidArgument, s)
	}
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("%w: color %q: %v", ErrInvalidArgument, s, err)
	}
	return c, nil
}

// String renders the color as "#rrggbb".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// MarshalText encodes the color as "#rrggbb".
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
