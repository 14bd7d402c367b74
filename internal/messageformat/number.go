package messageformat

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/number"
)

// numberFormat is the parsed style of a {n, number, ...} argument. Skeletons follow the ICU
// number skeleton syntax, a subset of its stems: percent, currency/XXX, precision-integer,
// fraction precision (.00, .0#) and scale/N.
type numberFormat struct {
	percent  bool
	currency *currency.Unit
	minFrac  int
	maxFrac  int
	scale    float64
}

func parseNumberStyle(style string) (*numberFormat, error) {
	nf := &numberFormat{minFrac: -1, maxFrac: -1, scale: 1}

	switch style {
	case "":
		return nf, nil
	case "integer":
		nf.maxFrac = 0
		return nf, nil
	case "percent":
		nf.percent = true
		return nf, nil
	}

	skeleton, ok := strings.CutPrefix(style, "::")
	if !ok {
		return nil, fmt.Errorf("unsupported number style %q", style)
	}

	for _, stem := range strings.Fields(skeleton) {
		if err := nf.apply(stem); err != nil {
			return nil, err
		}
	}
	return nf, nil
}

func (nf *numberFormat) apply(stem string) error {
	switch {
	case stem == "percent" || stem == "%":
		nf.percent = true
	case stem == "precision-integer":
		nf.minFrac, nf.maxFrac = 0, 0
	case strings.HasPrefix(stem, "currency/"):
		unit, err := currency.ParseISO(strings.TrimPrefix(stem, "currency/"))
		if err != nil {
			return fmt.Errorf("unsupported currency in %q", stem)
		}
		nf.currency = &unit
	case strings.HasPrefix(stem, "scale/"):
		scale, err := strconv.ParseFloat(strings.TrimPrefix(stem, "scale/"), 64)
		if err != nil || scale == 0 {
			return fmt.Errorf("invalid scale in %q", stem)
		}
		nf.scale = scale
	case strings.HasPrefix(stem, "."):
		digits := stem[1:]
		required := len(digits) - len(strings.TrimLeft(digits, "0"))
		if strings.Trim(digits[required:], "#") != "" {
			return fmt.Errorf("invalid fraction precision %q", stem)
		}
		nf.minFrac, nf.maxFrac = required, len(digits)
	default:
		return fmt.Errorf("unsupported number skeleton stem %q", stem)
	}
	return nil
}

func (nf *numberFormat) options() []number.Option {
	var opts []number.Option
	if nf.minFrac >= 0 {
		opts = append(opts, number.MinFractionDigits(nf.minFrac))
	}
	if nf.maxFrac >= 0 {
		opts = append(opts, number.MaxFractionDigits(nf.maxFrac))
	}
	return opts
}

func (f *formatter) formatNumber(v float64, nf *numberFormat) string {
	if nf == nil {
		return f.printer.Sprint(number.Decimal(v))
	}

	v *= nf.scale
	switch {
	case nf.currency != nil:
		return f.printer.Sprint(currency.Symbol(nf.currency.Amount(v)))
	case nf.percent:
		return f.printer.Sprint(number.Percent(v, nf.options()...))
	default:
		return f.printer.Sprint(number.Decimal(v, nf.options()...))
	}
}
