package dsl

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultFullTextFields are the weighted fields searched by free text.
var DefaultFullTextFields = []string{
	"title^3",
	"title.raw^10",
	"abstract^2",
	"abstract.raw^4",
	"author^10",
	"author.raw^15",
	"reportnumber^10",
	"eprint^10",
	"doi^10",
}

// ParseField splits "name^boost". A missing boost is 1.
func ParseField(s string) (Field, error) {
	name, boost, ok := strings.Cut(s, "^")
	if name == "" {
		return Field{}, fmt.Errorf("field %q: empty name", s)
	}
	if !ok {
		return Field{Name: name, Boost: 1}, nil
	}
	b, err := strconv.ParseFloat(boost, 64)
	if err != nil || b <= 0 {
		return Field{}, fmt.Errorf("field %q: invalid boost %q", s, boost)
	}
	return Field{Name: name, Boost: b}, nil
}

func formatBoost(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}
