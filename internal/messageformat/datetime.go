package messageformat

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

type layouts struct {
	english string
	other   string
}

var dateLayouts = map[string]layouts{
	"short":  {english: "1/2/06", other: "02/01/2006"},
	"medium": {english: "Jan 2, 2006", other: "2 Jan 2006"},
	"long":   {english: "January 2, 2006", other: "2 January 2006"},
	"full":   {english: "Monday, January 2, 2006", other: "Monday 2 January 2006"},
}

var timeLayouts = map[string]layouts{
	"short":  {english: "3:04 PM", other: "15:04"},
	"medium": {english: "3:04:05 PM", other: "15:04:05"},
	"long":   {english: "3:04:05 PM MST", other: "15:04:05 MST"},
	"full":   {english: "3:04:05 PM MST", other: "15:04:05 MST"},
}

func (f *formatter) formatDateTime(t time.Time, kind argKind, style string) string {
	if style == "" {
		style = "medium"
	}

	table := dateLayouts
	if kind == argTime {
		table = timeLayouts
	}

	base, _ := f.tag.Base()
	region, _ := f.tag.Region()

	l := table[style]
	if base.String() == "en" {
		return monday.Format(t, l.english, monday.Locale("en_"+region.String()))
	}
	return monday.Format(t, l.other, monday.Locale(base.String()+"_"+region.String()))
}

// toTime accepts a time.Time or milliseconds since the Unix epoch, as a number or numeric string.
// RFC 3339 strings are accepted too.
func toTime(name string, v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x != nil {
			return *x, nil
		}
	case string:
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(x)); err == nil {
			return t, nil
		}
	}

	n, err := toNumber(name, v)
	if err != nil {
		return time.Time{}, &FormatError{Argument: name, Reason: fmt.Sprintf("%v is not a date", v)}
	}
	return time.UnixMilli(int64(math.Round(n.value))).UTC(), nil
}
