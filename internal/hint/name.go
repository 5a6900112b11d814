package hint

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalize lowercases a field name and splits camelCase, kebab-case and
// spaces into underscore separated tokens: "firstName" -> "first_name".
func Normalize(key string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(key))
	for i, r := range runes {
		switch {
		case r == '-' || r == ' ' || r == '.' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
		case unicode.IsUpper(r):
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1])
			if (prevLower || nextLower) && b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_")
}

type keyRule struct {
	kind    Kind
	pattern *regexp.Regexp
}

// Rules are evaluated in order; the first match wins.
var keyRules = []keyRule{
	{Email, regexp.MustCompile(`e_?mail|courriel`)},
	{Phone, regexp.MustCompile(`phone|(^|_)(tel|telephone|mobile|cell|fax|portable)(_|$)`)},
	{FirstName, regexp.MustCompile(`first_?name|given_?name|prenom`)},
	{LastName, regexp.MustCompile(`last_?name|surname|family_?name|(^|_)nom(_|$)`)},
	{Username, regexp.MustCompile(`user_?name|(^|_)login(_|$)|nickname`)},
	{Name, regexp.MustCompile(`(^|_)(name|full_name)(_|$)`)},
	{SSN, regexp.MustCompile(`(^|_)(ssn|nir)(_|$)|social_security|national_id`)},
	{CreditCard, regexp.MustCompile(`credit_?card|card_?number|(^|_)pan(_|$)`)},
	{IPv4, regexp.MustCompile(`(^|_)ip(_|$)|ip_?address`)},
	{Street, regexp.MustCompile(`street|(^|_)(rue|voie)(_|$)`)},
	{Address, regexp.MustCompile(`address|adresse|(^|_)addr(_|$)`)},
	{City, regexp.MustCompile(`city|ville|localite`)},
	{Postcode, regexp.MustCompile(`zip|postal|postcode`)},
	{Country, regexp.MustCompile(`country|(^|_)(pays|nation)(_|$)`)},
	{Company, regexp.MustCompile(`company|entreprise|societe|organi[sz]ation|employer`)},
	{URL, regexp.MustCompile(`(^|_)(url|uri|website|site|link|lien)(_|$)`)},
	{UUID, regexp.MustCompile(`uuid|guid`)},
	{DateTime, regexp.MustCompile(`(_at|timestamp|datetime|_time)$`)},
	{Date, regexp.MustCompile(`date|created|updated|birth|(^|_)dob(_|$)`)},
	{Text, regexp.MustCompile(`description|comment|(^|_)(note|notes|bio|summary|message)(_|$)`)},
	{Boolean, regexp.MustCompile(`^(is|has|can|should)_|active|enabled|verified|deleted`)},
	{Number, regexp.MustCompile(`price|amount|cost|rate|percent|ratio|score|balance|weight|height|latitude|longitude|(^|_)(lat|lng)(_|$)`)},
	{Integer, regexp.MustCompile(`(^|_)(id|count|number|age|year|quantity|qty|total|size|index|rank)(_|$)`)},
}

// FromKey infers a hint from a field name, for skeleton leaves that carry no
// usable example (null or empty string).
func FromKey(key string) (Kind, bool) {
	norm := Normalize(key)
	if norm == "" {
		return Unknown, false
	}
	for _, rule := range keyRules {
		if rule.pattern.MatchString(norm) {
			return rule.kind, true
		}
	}
	return Unknown, false
}
