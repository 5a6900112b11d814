package anonymize

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/takumiyoshikawa/jsonsynth/internal/detect"
	"github.com/takumiyoshikawa/jsonsynth/internal/hint"
)

const maxAttempts = 25

var (
	errNoVariant = errors.New("could not produce a different value")
	errNoDigits  = errors.New("value has no digits to replace")
)

// strategy returns a replacement for a flagged string that keeps its format.
type strategy func(f *gofakeit.Faker, v string) (string, error)

var strategies = map[detect.FieldType]strategy{
	detect.Email:      email,
	detect.Phone:      phone,
	detect.SSN:        ssn,
	detect.CreditCard: card,
	detect.Name:       name,
	detect.Address:    address,
	detect.FreeText:   freeText,
	detect.Other:      other,
}

func differentFrom(orig string, gen func() string) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		if s := gen(); s != orig {
			return s, nil
		}
	}
	return "", errNoVariant
}

func email(f *gofakeit.Faker, v string) (string, error) {
	local, domain := v, ""
	if at := strings.LastIndex(v, "@"); at >= 0 {
		local, domain = v[:at], v[at+1:]
	}
	for i := 0; i < maxAttempts; i++ {
		first, last, host := slug(f.FirstName()), slug(f.LastName()), slug(f.LastName())
		if first == "" || last == "" || host == "" {
			continue
		}
		l, d := first+"."+last, host+"."+f.DomainSuffix()
		if !strings.EqualFold(l, local) && !strings.EqualFold(d, domain) {
			return l + "@" + d, nil
		}
	}
	return "", errNoVariant
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// redigit replaces every ASCII digit of v with a random one and keeps all
// other characters. A non-zero leading digit stays non-zero, so the digit
// count of a number never shrinks.
func redigit(f *gofakeit.Faker, v string) string {
	b := []byte(v)
	first := true
	for i, c := range b {
		if c < '0' || c > '9' {
			continue
		}
		if first && c != '0' {
			b[i] = byte('1' + f.IntN(9))
		} else {
			b[i] = byte('0' + f.IntN(10))
		}
		first = false
	}
	return string(b)
}

func digitPositions(v string) []int {
	var pos []int
	for i := 0; i < len(v); i++ {
		if v[i] >= '0' && v[i] <= '9' {
			pos = append(pos, i)
		}
	}
	return pos
}

func phone(f *gofakeit.Faker, v string) (string, error) {
	if len(digitPositions(v)) == 0 {
		return "", errNoDigits
	}
	return differentFrom(v, func() string { return redigit(f, v) })
}

var usSSN = regexp.MustCompile(`^(\d{3})-(\d{2})-(\d{4})$`)

// ssn keeps the grouping. US numbers are drawn outside the ranges the SSA
// never assigns (area 000, 666 and 9xx, group 00, serial 0000).
func ssn(f *gofakeit.Faker, v string) (string, error) {
	if len(digitPositions(v)) == 0 {
		return "", errNoDigits
	}
	us := usSSN.MatchString(v)
	for i := 0; i < maxAttempts; i++ {
		s := redigit(f, v)
		if s == v {
			continue
		}
		if us {
			m := usSSN.FindStringSubmatch(s)
			if m[1] == "000" || m[1] == "666" || m[1][0] == '9' || m[2] == "00" || m[3] == "0000" {
				continue
			}
		}
		return s, nil
	}
	return "", errNoVariant
}

// card keeps the issuer digit and the layout and recomputes the check digit
// so the result stays Luhn-valid.
func card(f *gofakeit.Faker, v string) (string, error) {
	pos := digitPositions(v)
	if len(pos) < 2 {
		return "", errNoDigits
	}
	for i := 0; i < maxAttempts; i++ {
		b := []byte(v)
		for _, p := range pos[1 : len(pos)-1] {
			b[p] = byte('0' + f.IntN(10))
		}
		last := pos[len(pos)-1]
		b[last] = '0'
		b[last] = byte('0' + (10-luhnSum(b)%10)%10)
		if s := string(b); s != v {
			return s, nil
		}
	}
	return "", errNoVariant
}

func luhnSum(b []byte) int {
	sum, n := 0, 0
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < '0' || b[i] > '9' {
			continue
		}
		d := int(b[i] - '0')
		if n%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		n++
	}
	return sum
}

// name draws a plausible name with as many words as v, in v's letter case
// when v is all lower or all upper case.
func name(f *gofakeit.Faker, v string) (string, error) {
	n := len(strings.Fields(v))
	if n == 0 {
		return "", errNoVariant
	}
	word := func(gen func() string) string {
		return strings.Join(strings.Fields(gen()), "-")
	}
	return differentFrom(v, func() string {
		parts := make([]string, n)
		parts[0] = word(f.FirstName)
		for i := 1; i < n-1; i++ {
			parts[i] = word(f.MiddleName)
		}
		if n > 1 {
			parts[n-1] = word(f.LastName)
		}
		return matchCase(strings.Join(parts, " "), v)
	})
}

func matchCase(s, like string) string {
	switch {
	case like == strings.ToLower(like):
		return strings.ToLower(s)
	case like == strings.ToUpper(like):
		return strings.ToUpper(s)
	}
	return s
}

var postcodeShape = regexp.MustCompile(`^\d{4,6}(-\d{4})?$`)

func address(f *gofakeit.Faker, v string) (string, error) {
	switch {
	case postcodeShape.MatchString(v):
		return differentFrom(v, func() string { return redigit(f, v) })
	case strings.Contains(v, ","):
		return differentFrom(v, func() string { return f.Street() + ", " + f.Zip() + " " + f.City() })
	case len(digitPositions(v)) > 0:
		return differentFrom(v, f.Street)
	default:
		return differentFrom(v, f.City)
	}
}

// freeText writes filler sentences of roughly the original length.
func freeText(f *gofakeit.Faker, v string) (string, error) {
	target := utf8.RuneCountInString(v)
	if target <= 12 {
		return differentFrom(v, f.Word)
	}
	return differentFrom(v, func() string {
		var b strings.Builder
		for utf8.RuneCountInString(b.String()) < target {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(f.Sentence(f.IntRange(4, 10)))
		}
		return cutWords(b.String(), target)
	})
}

// cutWords shortens s to at most n runes, at a word boundary when one exists.
func cutWords(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;")
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// other handles values without a dedicated format: dates become other dates
// in the same layout, IPv4 addresses other addresses, and anything else keeps
// its character classes.
func other(f *gofakeit.Faker, v string) (string, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, v)
		if err != nil {
			continue
		}
		return differentFrom(v, func() string {
			return f.DateRange(t.AddDate(-10, 0, 0), t.AddDate(10, 0, 0)).Truncate(time.Second).In(t.Location()).Format(layout)
		})
	}
	if k, _ := hint.FromLiteral(v); k == hint.IPv4 {
		return differentFrom(v, f.IPv4Address)
	}

	hasClass := strings.IndexFunc(v, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0
	if !hasClass {
		return "", errNoVariant
	}
	return differentFrom(v, func() string { return reshape(f, v) })
}

// reshape swaps every ASCII letter and digit for a random one of the same
// class and case. Other letters become ASCII letters of the same case.
func reshape(f *gofakeit.Faker, v string) string {
	var b strings.Builder
	for _, r := range v {
		switch {
		case unicode.IsDigit(r):
			b.WriteByte(byte('0' + f.IntN(10)))
		case unicode.IsUpper(r):
			b.WriteByte(byte('A' + f.IntN(26)))
		case unicode.IsLetter(r):
			b.WriteByte(byte('a' + f.IntN(26)))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
