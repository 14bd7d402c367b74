package messageformat

import (
	"golang.org/x/text/feature/plural"
)

type argKind int

const (
	argSimple argKind = iota
	argNumber
	argPlural
	argOrdinal
	argSelect
	argDate
	argTime
)

// part is one element of a parsed message: literal text, a placeholder, or # inside a plural branch.
type part interface {
	isPart()
}

type textPart string

type hashPart struct{}

type argPart struct {
	name  string
	kind  argKind
	style string

	// number
	number *numberFormat

	// plural and selectordinal
	offset float64
	exact  []exactCase
	forms  map[plural.Form][]part

	// select
	cases map[string][]part

	other []part
}

type exactCase struct {
	value float64
	parts []part
}

func (textPart) isPart() {}
func (hashPart) isPart() {}
func (*argPart) isPart() {}

var pluralForms = map[string]plural.Form{
	"zero": plural.Zero,
	"one":  plural.One,
	"two":  plural.Two,
	"few":  plural.Few,
	"many": plural.Many,
}
