package tile

import (
	"fmt"
	"strings"
)

type Color byte

const (
	ColorNone Color = iota
	Red
	Blue
	Yellow
	Black
)

// Colors lists the four tile colors in deck order.
var Colors = []Color{Red, Blue, Yellow, Black}

func (c Color) Valid() bool { return c >= Red && c <= Black }

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Blue:
		return "blue"
	case Yellow:
		return "yellow"
	case Black:
		return "black"
	}
	return ""
}

// Letter is the single-letter form used in tile faces. Black is "K".
func (c Color) Letter() string {
	switch c {
	case Red:
		return "R"
	case Blue:
		return "B"
	case Yellow:
		return "Y"
	case Black:
		return "K"
	}
	return "?"
}

func ColorFromLetter(s string) (Color, error) {
	switch strings.ToUpper(s) {
	case "R":
		return Red, nil
	case "B":
		return Blue, nil
	case "Y":
		return Yellow, nil
	case "K":
		return Black, nil
	}
	return ColorNone, fmt.Errorf("invalid color letter: %q", s)
}

// ParseColor accepts the names returned by String. The empty string maps to ColorNone.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ColorNone, nil
	case "red":
		return Red, nil
	case "blue":
		return Blue, nil
	case "yellow":
		return Yellow, nil
	case "black":
		return Black, nil
	}
	return ColorNone, fmt.Errorf("invalid color: %q", s)
}
