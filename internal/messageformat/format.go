package messageformat

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Values are the arguments substituted into a message.
type Values map[string]any

// Message is a compiled template bound to a locale.
type Message struct {
	tag   language.Tag
	parts []part
}

// Parse compiles template for locale. Unknown locales fall back to root plural rules.
func Parse(locale, template string) (*Message, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}

	parts, err := parse(template)
	if err != nil {
		return nil, err
	}
	return &Message{tag: tag, parts: parts}, nil
}

// Format renders the message with values.
func (m *Message) Format(values Values) (string, error) {
	f := &formatter{
		tag:     m.tag,
		printer: message.NewPrinter(m.tag),
		values:  values,
	}

	var b strings.Builder
	if err := f.write(&b, m.parts, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

type formatter struct {
	tag     language.Tag
	printer *message.Printer
	values  Values
}

func (f *formatter) write(b *strings.Builder, parts []part, hash *float64) error {
	for _, p := range parts {
		switch p := p.(type) {
		case textPart:
			b.WriteString(string(p))
		case hashPart:
			if hash == nil {
				b.WriteByte('#')
				continue
			}
			b.WriteString(f.printer.Sprint(number.Decimal(*hash)))
		case *argPart:
			if err := f.argument(b, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *formatter) lookup(name string) (any, error) {
	v, ok := f.values[name]
	if !ok {
		return nil, &FormatError{Argument: name, Reason: "no value supplied"}
	}
	return v, nil
}

func (f *formatter) argument(b *strings.Builder, arg *argPart) error {
	v, err := f.lookup(arg.name)
	if err != nil {
		return err
	}

	switch arg.kind {
	case argSimple:
		b.WriteString(f.simple(arg.name, v))
		return nil
	case argNumber:
		n, err := toNumber(arg.name, v)
		if err != nil {
			return err
		}
		b.WriteString(f.formatNumber(n.value, arg.number))
		return nil
	case argDate, argTime:
		t, err := toTime(arg.name, v)
		if err != nil {
			return err
		}
		b.WriteString(f.formatDateTime(t, arg.kind, arg.style))
		return nil
	case argSelect:
		branch, ok := arg.cases[stringify(v)]
		if !ok {
			branch = arg.other
		}
		return f.write(b, branch, nil)
	default:
		n, err := toNumber(arg.name, v)
		if err != nil {
			return err
		}
		branch, hash := f.selectPlural(arg, n)
		return f.write(b, branch, &hash)
	}
}

// simple renders a bare {x}. Numbers are printed for the locale; strings are never parsed.
func (f *formatter) simple(name string, v any) string {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		if n, err := toNumber(name, v); err == nil {
			return f.formatNumber(n.value, nil)
		}
	}
	return stringify(v)
}

// selectPlural picks an exact match on the raw value first, then the category of the value
// less the offset, then other.
func (f *formatter) selectPlural(arg *argPart, n numeric) ([]part, float64) {
	shifted := n.value - arg.offset

	for _, ec := range arg.exact {
		if ec.value == n.value {
			return ec.parts, shifted
		}
	}

	ops := n.operands
	if arg.offset != 0 {
		ops = operandsOf(strconv.FormatFloat(shifted, 'f', -1, 64))
	}

	rules := plural.Cardinal
	if arg.kind == argOrdinal {
		rules = plural.Ordinal
	}

	form := rules.MatchPlural(f.tag, ops.i, ops.v, ops.w, ops.f, ops.t)
	if branch, ok := arg.forms[form]; ok {
		return branch, shifted
	}
	return arg.other, shifted
}

type operands struct {
	i, v, w, f, t int
}

type numeric struct {
	value    float64
	operands operands
}

// operandsOf derives CLDR plural operands from a plain decimal string.
func operandsOf(text string) operands {
	text = strings.TrimLeft(text, "+-")
	intPart, frac, _ := strings.Cut(text, ".")

	var ops operands
	ops.i = atoiTail(intPart)
	ops.v = len(frac)
	ops.f = atoiTail(frac)

	trimmed := strings.TrimRight(frac, "0")
	ops.w = len(trimmed)
	ops.t = atoiTail(trimmed)
	return ops
}

// atoiTail parses the trailing digits of s that fit an int. Plural rules only look at the low digits.
func atoiTail(s string) int {
	const maxDigits = 18
	if len(s) > maxDigits {
		s = s[len(s)-maxDigits:]
	}
	n, _ := strconv.Atoi(s)
	return n
}

func toNumber(name string, v any) (numeric, error) {
	var text string

	switch x := v.(type) {
	case int:
		text = strconv.FormatInt(int64(x), 10)
	case int8:
		text = strconv.FormatInt(int64(x), 10)
	case int16:
		text = strconv.FormatInt(int64(x), 10)
	case int32:
		text = strconv.FormatInt(int64(x), 10)
	case int64:
		text = strconv.FormatInt(x, 10)
	case uint:
		text = strconv.FormatUint(uint64(x), 10)
	case uint8:
		text = strconv.FormatUint(uint64(x), 10)
	case uint16:
		text = strconv.FormatUint(uint64(x), 10)
	case uint32:
		text = strconv.FormatUint(uint64(x), 10)
	case uint64:
		text = strconv.FormatUint(x, 10)
	case float32:
		text = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		text = strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		text = x.String()
	case string:
		text = strings.TrimSpace(x)
	default:
		return numeric{}, &FormatError{Argument: name, Reason: fmt.Sprintf("%T is not a number", v)}
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return numeric{}, &FormatError{Argument: name, Reason: fmt.Sprintf("%q is not a number", text)}
	}

	if strings.ContainsAny(text, "eE") || strings.HasPrefix(strings.TrimLeft(text, "+-"), ".") {
		text = strconv.FormatFloat(value, 'f', -1, 64)
	}

	return numeric{value: value, operands: operandsOf(text)}, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
