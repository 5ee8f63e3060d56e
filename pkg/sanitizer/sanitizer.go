package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeRoomName keeps the caller's casing; uniqueness is exact.
func NormalizeRoomName(name string) string {
	p := Pipeline{
		dropControl,
		TrimAndNormalize,
	}
	return p.Apply(name)
}

func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// NormalizeClock trims dates and times of day before parsing.
func NormalizeClock(s string) string {
	return strings.TrimSpace(s)
}

func NormalizeIDPtr(id *string) *string {
	if id == nil {
		return nil
	}
	v := NormalizeID(*id)
	return &v
}
