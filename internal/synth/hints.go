package synth

import (
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/takumiyoshikawa/jsonsynth/internal/hint"
	"github.com/takumiyoshikawa/jsonsynth/internal/skeleton"
)

const dateSpan = 2 * 365 * 24 * time.Hour

// fromHint produces a string for the instruction's hint. It returns false
// for hints with no string generator (unknown, enum, regex and the numeric
// kinds), letting the caller fall back to a generic value.
func (s *Synthesizer) fromHint(in *skeleton.Instruction) (string, bool) {
	f := s.faker
	switch in.Hint {
	case hint.Email:
		return f.Email(), true
	case hint.Name:
		return f.Name(), true
	case hint.FirstName:
		return f.FirstName(), true
	case hint.LastName:
		return f.LastName(), true
	case hint.Username:
		return f.Username(), true
	case hint.Phone:
		return f.PhoneFormatted(), true
	case hint.Address:
		return f.Address().Address, true
	case hint.Street:
		return f.Street(), true
	case hint.City:
		return f.City(), true
	case hint.Postcode:
		return f.Zip(), true
	case hint.Country:
		return f.Country(), true
	case hint.Company:
		return f.Company(), true
	case hint.URL:
		return f.URL(), true
	case hint.UUID:
		return s.uuid(), true
	case hint.Date:
		return s.date(in).Format("2006-01-02"), true
	case hint.DateTime:
		return s.date(in).Format(time.RFC3339), true
	case hint.Text:
		return f.Sentence(f.IntRange(6, 12)), true
	case hint.Paragraph:
		return f.Paragraph(1, f.IntRange(2, 4), 10, " "), true
	case hint.Word:
		return f.Word(), true
	case hint.IPv4:
		return f.IPv4Address(), true
	case hint.CreditCard:
		return groupLike(f.CreditCardNumber(&gofakeit.CreditCardOptions{Types: []string{"visa", "mastercard"}}), in.Literal), true
	case hint.SSN:
		return f.Numerify("###-##-####"), true
	case hint.Unknown, hint.Integer, hint.Number, hint.Boolean, hint.Enum, hint.Regex:
		return "", false
	default:
		return "", false
	}
}

// uuid draws a version 4 UUID from the run's random source so seeded runs
// repeat.
func (s *Synthesizer) uuid() string {
	id, err := uuid.NewRandomFromReader(fakerReader{s.faker})
	if err != nil {
		return s.faker.UUID()
	}
	return id.String()
}

type fakerReader struct {
	f *gofakeit.Faker
}

func (r fakerReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.f.Uint8()
	}
	return len(p), nil
}

// date draws a time within [after, before], defaulting to the two years up
// to the run's anchor.
func (s *Synthesizer) date(in *skeleton.Instruction) time.Time {
	c := in.Constraints
	start, end := s.now.Add(-dateSpan), s.now
	switch {
	case c.After != nil && c.Before != nil:
		start, end = *c.After, *c.Before
	case c.After != nil:
		start, end = *c.After, c.After.Add(dateSpan)
	case c.Before != nil:
		start, end = c.Before.Add(-dateSpan), *c.Before
	}
	if !end.After(start) {
		return start.UTC()
	}
	return s.faker.DateRange(start, end).UTC()
}

// groupLike formats a digit string with the separator of an example card
// number, in groups of four.
func groupLike(digits string, example any) string {
	lit, _ := example.(string)
	sep := ""
	switch {
	case strings.Contains(lit, " "):
		sep = " "
	case strings.Contains(lit, "-"):
		sep = "-"
	}
	if sep == "" {
		return digits
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%4 == 0 {
			b.WriteString(sep)
		}
		b.WriteRune(r)
	}
	return b.String()
}
