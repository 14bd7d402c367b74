package messageformat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/localesync/internal/messageformat"
)

type MessageFormatSuite struct {
	suite.Suite
}

func TestMessageFormatSuite(t *testing.T) {
	suite.Run(t, new(MessageFormatSuite))
}

func (s *MessageFormatSuite) format(locale, template string, values messageformat.Values) string {
	m, err := messageformat.Parse(locale, template)
	s.Require().NoError(err, template)
	out, err := m.Format(values)
	s.Require().NoError(err, template)
	return out
}

func (s *MessageFormatSuite) TestSimpleArgument() {
	s.Equal("Hello, Ana!", s.format("en", "Hello, {name}!", messageformat.Values{"name": "Ana"}))
	s.Equal("Item #5", s.format("en", "Item #{id}", messageformat.Values{"id": 5}))
	s.Equal("plain", s.format("en", "plain", nil))
	s.Equal("", s.format("en", "", nil))
	s.Equal("x 1.5", s.format("en", "x { v }", messageformat.Values{"v": 1.5}))
	s.Equal("Total 1,234.5", s.format("en", "Total {v}", messageformat.Values{"v": 1234.5}))
	s.Equal("Total 1.234,5", s.format("de", "Total {v}", messageformat.Values{"v": 1234.5}))
	s.Equal("Code 1234", s.format("en", "Code {v}", messageformat.Values{"v": "1234"}))
}

func (s *MessageFormatSuite) TestPluralEnglish() {
	tmpl := "{count, plural, =0 {no items} one {# item} other {# items}}"
	tests := []struct {
		value any
		want  string
	}{
		{0, "no items"},
		{1, "1 item"},
		{5, "5 items"},
		{1234, "1,234 items"},
		{"3", "3 items"},
		{int64(1), "1 item"},
	}
	for _, tt := range tests {
		s.Equal(tt.want, s.format("en", tmpl, messageformat.Values{"count": tt.value}), tt.value)
	}
}

func (s *MessageFormatSuite) TestPluralOffset() {
	tmpl := "{n, plural, offset:1 =0 {nobody} =1 {only {name}} one {{name} and # other} other {{name} and # others}}"
	s.Equal("nobody", s.format("en", tmpl, messageformat.Values{"n": 0, "name": "Ana"}))
	s.Equal("only Ana", s.format("en", tmpl, messageformat.Values{"n": 1, "name": "Ana"}))
	s.Equal("Ana and 1 other", s.format("en", tmpl, messageformat.Values{"n": 2, "name": "Ana"}))
	s.Equal("Ana and 2 others", s.format("en", tmpl, messageformat.Values{"n": 3, "name": "Ana"}))
}

func (s *MessageFormatSuite) TestPluralRussian() {
	tmpl := "{n, plural, one {# файл} few {# файла} many {# файлов} other {# файла}}"
	s.Equal("1 файл", s.format("ru", tmpl, messageformat.Values{"n": 1}))
	s.Equal("3 файла", s.format("ru", tmpl, messageformat.Values{"n": 3}))
	s.Equal("5 файлов", s.format("ru", tmpl, messageformat.Values{"n": 5}))
	s.Equal("21 файл", s.format("ru", tmpl, messageformat.Values{"n": 21}))
}

func (s *MessageFormatSuite) TestPluralFrenchZeroIsOne() {
	tmpl := "{n, plural, one {# fichier} other {# fichiers}}"
	s.Equal("0 fichier", s.format("fr", tmpl, messageformat.Values{"n": 0}))
	s.Equal("2 fichiers", s.format("fr", tmpl, messageformat.Values{"n": 2}))
}

func (s *MessageFormatSuite) TestSelectOrdinal() {
	tmpl := "{n, selectordinal, one {#st} two {#nd} few {#rd} other {#th}}"
	for value, want := range map[int]string{1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 11: "11th", 21: "21st", 22: "22nd", 112: "112th"} {
		s.Equal(want, s.format("en", tmpl, messageformat.Values{"n": value}))
	}
}

func (s *MessageFormatSuite) TestSelect() {
	tmpl := "{gender, select, female {She} male {He} other {They}} replied"
	s.Equal("She replied", s.format("en", tmpl, messageformat.Values{"gender": "female"}))
	s.Equal("They replied", s.format("en", tmpl, messageformat.Values{"gender": "unknown"}))
}

func (s *MessageFormatSuite) TestNestedPluralInSelect() {
	tmpl := "{who, select, team {{n, plural, one {the team has # task} other {the team has # tasks}}} other {{n} tasks}}"
	s.Equal("the team has 1 task", s.format("en", tmpl, messageformat.Values{"who": "team", "n": 1}))
	s.Equal("4 tasks", s.format("en", tmpl, messageformat.Values{"who": "me", "n": 4}))
}

func (s *MessageFormatSuite) TestNumbers() {
	s.Equal("1,234.5", s.format("en", "{n, number}", messageformat.Values{"n": 1234.5}))
	s.Equal("1.234,5", s.format("de", "{n, number}", messageformat.Values{"n": 1234.5}))
	s.Equal("25%", s.format("en", "{p, number, percent}", messageformat.Values{"p": 0.25}))
	s.Equal("42", s.format("en", "{n, number, integer}", messageformat.Values{"n": "42"}))
}

func (s *MessageFormatSuite) TestNumberSkeletons() {
	s.Equal("25%", s.format("en", "{p, number, ::percent}", messageformat.Values{"p": 0.25}))
	s.Equal("3.10", s.format("en", "{n, number, ::.00}", messageformat.Values{"n": 3.1}))
	s.Equal("3.1", s.format("en", "{n, number, ::.0#}", messageformat.Values{"n": 3.1}))
	s.Equal("4", s.format("en", "{n, number, ::precision-integer}", messageformat.Values{"n": 3.7}))
	s.Equal("1,500", s.format("en", "{n, number, ::scale/1000}", messageformat.Values{"n": 1.5}))

	price := s.format("en", "{n, number, ::currency/EUR}", messageformat.Values{"n": 12.5})
	s.Contains(price, "€")
	s.Contains(price, "12.5")
}

func (s *MessageFormatSuite) TestDatesAndTimes() {
	at := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)
	values := messageformat.Values{"d": at}

	s.Equal("3/5/24", s.format("en", "{d, date, short}", values))
	s.Equal("Mar 5, 2024", s.format("en", "{d, date}", values))
	s.Equal("March 5, 2024", s.format("en", "{d, date, long}", values))
	s.Equal("Tuesday, March 5, 2024", s.format("en", "{d, date, full}", values))
	s.Equal("2:07 PM", s.format("en", "{d, time, short}", values))
	s.Equal("14:07:09", s.format("fr", "{d, time}", values))
	s.Equal("05/03/2024", s.format("fr", "{d, date, short}", values))

	long := s.format("fr", "{d, date, long}", values)
	s.Contains(long, "mars")
	s.Contains(long, "2024")

	s.Equal("Due 3/5/24", s.format("en", "Due {d, date, short}", messageformat.Values{"d": at.UnixMilli()}))
	s.Equal("3/5/24", s.format("en", "{d, date, short}", messageformat.Values{"d": "2024-03-05T14:07:09Z"}))

	m, err := messageformat.Parse("en", "{d, date}")
	s.Require().NoError(err)
	_, err = m.Format(messageformat.Values{"d": "tomorrow"})
	var fe *messageformat.FormatError
	s.Require().ErrorAs(err, &fe)
	s.Equal("d", fe.Argument)
}

func (s *MessageFormatSuite) TestApostropheQuoting() {
	s.Equal("It's {literal} text", s.format("en", "It''s '{literal}' text", nil))
	s.Equal("don't", s.format("en", "don't", nil))
	s.Equal("# 3", s.format("en", "{n, plural, other {'#' #}}", messageformat.Values{"n": 3}))
	s.Equal("a '{b}' c", s.format("en", "a '''{b}''' c", nil))
}

func (s *MessageFormatSuite) TestFormatErrors() {
	m, err := messageformat.Parse("en", "Hello, {name}!")
	s.Require().NoError(err)
	_, err = m.Format(nil)
	var fe *messageformat.FormatError
	s.Require().ErrorAs(err, &fe)
	s.Equal("name", fe.Argument)

	m, err = messageformat.Parse("en", "{n, plural, other {# items}}")
	s.Require().NoError(err)
	_, err = m.Format(messageformat.Values{"n": "abc"})
	s.Require().ErrorAs(err, &fe)
	_, err = m.Format(messageformat.Values{"n": []int{1}})
	s.Require().ErrorAs(err, &fe)
}

func (s *MessageFormatSuite) TestParseErrors() {
	for _, tmpl := range []string{
		"{",
		"{name",
		"Hello }",
		"{}",
		"{n, plural, one {x}}",
		"{n, select, a {x}}",
		"{n, date, sometimes}",
		"{n, time, ::HHmm}",
		"{n, number, currency}",
		"{n, number, ::bogus}",
		"{n, number, ::currency/12}",
		"{n, number, ::.#0}",
		"{n, duration}",
		"{n, plural, bogus {x} other {y}}",
		"{n, plural, other {x} other {y}}",
		"{n, plural, offset:x other {y}}",
		"{n, plural, =x {a} other {y}}",
		"{n, plural, other {unclosed}",
		"{n plural}",
	} {
		_, err := messageformat.Parse("en", tmpl)
		var pe *messageformat.ParseError
		s.Require().ErrorAs(err, &pe, tmpl)
	}
}

func (s *MessageFormatSuite) TestTranslator() {
	ctx := s.T().Context()
	tr := messageformat.Compile(ctx, "en", map[string]string{
		"greeting": "Hello, {name}!",
		"broken":   "Hello, {name",
		"items":    "{count, plural, one {# item} other {# items}}",
	})

	s.Equal("en", tr.Locale())
	s.True(tr.Has("greeting"))
	s.False(tr.Has("broken"))
	s.Contains(tr.Failures(), "broken")
	s.Len(tr.Failures(), 1)

	s.Equal("Hello, Ana!", tr.Translate(ctx, "greeting", messageformat.Values{"name": "Ana"}))
	s.Equal("2 items", tr.Translate(ctx, "items", messageformat.Values{"count": 2}))
	s.Equal("missing.key", tr.Translate(ctx, "missing.key", nil))
	s.Equal("broken", tr.Translate(ctx, "broken", nil))
	s.Equal("greeting", tr.Translate(ctx, "greeting", nil))

	_, err := tr.Format("missing.key", nil)
	s.Require().ErrorIs(err, messageformat.ErrUnknownKey)

	var nilTranslator *messageformat.Translator
	s.Equal("k", nilTranslator.Translate(ctx, "k", nil))
}
