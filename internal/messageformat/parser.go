package messageformat

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/feature/plural"
)

type parser struct {
	src string
	pos int
}

func parse(src string) ([]part, error) {
	p := &parser{src: src}
	return p.message(0, false)
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Offset: p.pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() byte {
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

// message reads parts until end of input or, when nested, until the closing brace of the
// enclosing branch. The closing brace is left for the caller.
func (p *parser) message(depth int, inPlural bool) ([]part, error) {
	var parts []part
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, textPart(text.String()))
			text.Reset()
		}
	}

	for !p.eof() {
		c := p.peek()
		switch {
		case c == '\'':
			p.quoted(&text, inPlural)
		case c == '{':
			flush()
			arg, err := p.argument(depth)
			if err != nil {
				return nil, err
			}
			parts = append(parts, arg)
		case c == '}':
			if depth == 0 {
				return nil, p.errorf("unmatched '}'")
			}
			flush()
			return parts, nil
		case c == '#' && inPlural:
			flush()
			parts = append(parts, hashPart{})
			p.pos++
		default:
			text.WriteByte(c)
			p.pos++
		}
	}

	if depth > 0 {
		return nil, p.errorf("unclosed '{'")
	}

	flush()
	return parts, nil
}

// quoted handles an apostrophe. '' is a literal apostrophe; an apostrophe before a syntax
// character starts quoted literal text that runs to the next lone apostrophe.
func (p *parser) quoted(text *strings.Builder, inPlural bool) {
	next := p.pos + 1
	if next < len(p.src) && p.src[next] == '\'' {
		text.WriteByte('\'')
		p.pos += 2
		return
	}

	if next >= len(p.src) || !isQuotable(p.src[next], inPlural) {
		text.WriteByte('\'')
		p.pos++
		return
	}

	p.pos++
	for !p.eof() {
		c := p.peek()
		if c == '\'' {
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'' {
				text.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return
		}
		text.WriteByte(c)
		p.pos++
	}
}

// token reads a run of characters up to whitespace or one of stop.
func (p *parser) token(stop string) string {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if isSpace(c) || strings.IndexByte(stop, c) >= 0 {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) expect(c byte) error {
	if p.eof() {
		return p.errorf("unclosed '{'")
	}
	if p.peek() != c {
		return p.errorf("expected %q, found %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *parser) argument(depth int) (*argPart, error) {
	p.pos++ // {
	p.skipSpace()

	name := p.token(",{}'#")
	if name == "" {
		return nil, p.errorf("missing argument name")
	}
	arg := &argPart{name: name}

	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("unclosed '{'")
	}
	if p.peek() == '}' {
		p.pos++
		return arg, nil
	}
	if err := p.expect(','); err != nil {
		return nil, err
	}

	p.skipSpace()
	typ := p.token(",{}")
	p.skipSpace()

	switch typ {
	case "number":
		arg.kind = argNumber
		return arg, p.numberStyle(arg)
	case "date":
		arg.kind = argDate
		return arg, p.dateStyle(arg)
	case "time":
		arg.kind = argTime
		return arg, p.dateStyle(arg)
	case "plural":
		arg.kind = argPlural
	case "selectordinal":
		arg.kind = argOrdinal
	case "select":
		arg.kind = argSelect
	case "":
		return nil, p.errorf("missing argument type")
	default:
		return nil, p.errorf("unsupported argument type %q", typ)
	}

	if err := p.expect(','); err != nil {
		return nil, err
	}
	if arg.kind == argSelect {
		return arg, p.selectBody(arg, depth)
	}
	return arg, p.pluralBody(arg, depth)
}

// styleText reads an optional ", style" up to the closing brace of the argument.
func (p *parser) styleText() string {
	if p.eof() || p.peek() != ',' {
		return ""
	}
	p.pos++
	start := p.pos
	for !p.eof() && p.peek() != '}' && p.peek() != '{' {
		p.pos++
	}
	return strings.TrimSpace(p.src[start:p.pos])
}

func (p *parser) numberStyle(arg *argPart) error {
	start := p.pos
	arg.style = p.styleText()
	nf, err := parseNumberStyle(arg.style)
	if err != nil {
		p.pos = start
		return p.errorf("%v", err)
	}
	arg.number = nf
	return p.expect('}')
}

func (p *parser) dateStyle(arg *argPart) error {
	start := p.pos
	arg.style = p.styleText()
	switch arg.style {
	case "", "short", "medium", "long", "full":
	default:
		p.pos = start
		return p.errorf("unsupported %s style %q", kindName(arg.kind), arg.style)
	}
	return p.expect('}')
}

func kindName(k argKind) string {
	if k == argTime {
		return "time"
	}
	return "date"
}

func (p *parser) pluralBody(arg *argPart, depth int) error {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "offset:") {
		p.pos += len("offset:")
		p.skipSpace()
		raw := p.token("{}")
		offset, err := strconv.ParseFloat(raw, 64)
		if err != nil || offset < 0 {
			return p.errorf("invalid plural offset %q", raw)
		}
		arg.offset = offset
	}

	arg.forms = map[plural.Form][]part{}
	seen := map[string]bool{}

	return p.branches(depth, true, func(selector string, parts []part) error {
		if seen[selector] {
			return p.errorf("duplicate selector %q", selector)
		}
		seen[selector] = true

		switch {
		case strings.HasPrefix(selector, "="):
			v, err := strconv.ParseFloat(selector[1:], 64)
			if err != nil {
				return p.errorf("invalid exact selector %q", selector)
			}
			arg.exact = append(arg.exact, exactCase{value: v, parts: parts})
		case selector == "other":
			arg.other = parts
		default:
			form, ok := pluralForms[selector]
			if !ok {
				return p.errorf("unknown plural category %q", selector)
			}
			arg.forms[form] = parts
		}
		return nil
	}, arg)
}

func (p *parser) selectBody(arg *argPart, depth int) error {
	arg.cases = map[string][]part{}

	return p.branches(depth, false, func(selector string, parts []part) error {
		if _, dup := arg.cases[selector]; dup || (selector == "other" && arg.other != nil) {
			return p.errorf("duplicate selector %q", selector)
		}
		if selector == "other" {
			arg.other = parts
			return nil
		}
		arg.cases[selector] = parts
		return nil
	}, arg)
}

// branches parses `selector {message}` pairs up to the closing brace of the argument.
func (p *parser) branches(depth int, inPlural bool, add func(string, []part) error, arg *argPart) error {
	count := 0
	for {
		p.skipSpace()
		if p.eof() {
			return p.errorf("unclosed '{'")
		}
		if p.peek() == '}' {
			p.pos++
			break
		}

		selector := p.token("{}")
		if selector == "" {
			return p.errorf("missing selector")
		}
		p.skipSpace()
		if err := p.expect('{'); err != nil {
			return err
		}

		parts, err := p.message(depth+1, inPlural)
		if err != nil {
			return err
		}
		p.pos++ // }

		if parts == nil {
			parts = []part{}
		}
		if err = add(selector, parts); err != nil {
			return err
		}
		count++
	}

	if count == 0 {
		return p.errorf("argument %q has no branches", arg.name)
	}
	if arg.other == nil {
		return p.errorf("argument %q is missing the 'other' branch", arg.name)
	}
	return nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isQuotable(c byte, inPlural bool) bool {
	return c == '{' || c == '}' || c == '|' || (c == '#' && inPlural)
}
