// Package hint defines the closed set of semantic hints a skeleton leaf can
// carry, and the heuristics that infer a hint from a literal example or a
// field name.
package hint

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is a semantic hint. The zero value is Unknown.
type Kind int

const (
	Unknown Kind = iota
	Email
	Name
	FirstName
	LastName
	Username
	Phone
	Address
	Street
	City
	Postcode
	Country
	Company
	URL
	UUID
	Date
	DateTime
	Text
	Paragraph
	Word
	IPv4
	CreditCard
	SSN
	Integer
	Number
	Boolean
	Enum
	Regex
)

var canonical = map[Kind]string{
	Unknown:    "unknown",
	Email:      "email",
	Name:       "name",
	FirstName:  "first_name",
	LastName:   "last_name",
	Username:   "username",
	Phone:      "phone",
	Address:    "address",
	Street:     "street",
	City:       "city",
	Postcode:   "postcode",
	Country:    "country",
	Company:    "company",
	URL:        "url",
	UUID:       "uuid",
	Date:       "date",
	DateTime:   "datetime",
	Text:       "text",
	Paragraph:  "paragraph",
	Word:       "word",
	IPv4:       "ipv4",
	CreditCard: "credit_card",
	SSN:        "ssn",
	Integer:    "integer",
	Number:     "number",
	Boolean:    "boolean",
	Enum:       "enum",
	Regex:      "regex",
}

var aliases = map[string]Kind{
	"mail":             Email,
	"e-mail":           Email,
	"full_name":        Name,
	"fullname":         Name,
	"firstname":        FirstName,
	"given_name":       FirstName,
	"prenom":           FirstName,
	"lastname":         LastName,
	"surname":          LastName,
	"family_name":      LastName,
	"nom":              LastName,
	"user_name":        Username,
	"login":            Username,
	"telephone":        Phone,
	"tel":              Phone,
	"mobile":           Phone,
	"phone_number":     Phone,
	"adresse":          Address,
	"street_address":   Street,
	"ville":            City,
	"zip":              Postcode,
	"zipcode":          Postcode,
	"zip_code":         Postcode,
	"postal_code":      Postcode,
	"code_postal":      Postcode,
	"pays":             Country,
	"entreprise":       Company,
	"organization":     Company,
	"uri":              URL,
	"website":          URL,
	"guid":             UUID,
	"date-in-range":    Date,
	"date-time":        DateTime,
	"timestamp":        DateTime,
	"sentence":         Text,
	"free-text":        Text,
	"description":      Text,
	"ip":               IPv4,
	"credit-card":      CreditCard,
	"card":             CreditCard,
	"national_id":      SSN,
	"int":              Integer,
	"integer-in-range": Integer,
	"float":            Number,
	"bool":             Boolean,
	"enum-pick":        Enum,
	"pattern":          Regex,
	"regex-conforming": Regex,
}

var byName = func() map[string]Kind {
	m := make(map[string]Kind, len(canonical)+len(aliases))
	for k, name := range canonical {
		if k != Unknown {
			m[name] = k
		}
	}
	for name, k := range aliases {
		m[name] = k
	}
	return m
}()

func (k Kind) String() string {
	if name, ok := canonical[k]; ok {
		return name
	}
	return "unknown"
}

// Parse resolves a hint name, case-insensitively, including aliases.
func Parse(name string) (Kind, bool) {
	k, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// Type returns the JSON type a hint naturally produces.
func (k Kind) Type() string {
	switch k {
	case Integer:
		return "integer"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Unknown, Enum:
		return ""
	default:
		return "string"
	}
}

var (
	emailShape    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	urlShape      = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
	ipv4Shape     = regexp.MustCompile(`^((25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(25[0-5]|2[0-4]\d|1?\d?\d)$`)
	ssnShape      = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	cardShape     = regexp.MustCompile(`^(\d{4}[ -]?){3}\d{1,7}$`)
	phoneShape    = regexp.MustCompile(`^\+?\(?\d{1,4}\)?([ .\-]?\(?\d{1,4}\)?){2,6}$`)
	dateShape     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimeShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}`)
)

// FromLiteral infers a hint from a skeleton example string.
func FromLiteral(s string) (Kind, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown, false
	}

	switch {
	case emailShape.MatchString(s):
		return Email, true
	case isUUID(s):
		return UUID, true
	case dateShape.MatchString(s) && validDate(s):
		return Date, true
	case dateTimeShape.MatchString(s):
		return DateTime, true
	case urlShape.MatchString(s):
		return URL, true
	case ipv4Shape.MatchString(s):
		return IPv4, true
	case ssnShape.MatchString(s):
		return SSN, true
	case cardShape.MatchString(s) && Luhn(s):
		return CreditCard, true
	case LooksLikePhone(s):
		return Phone, true
	}
	return Unknown, false
}

// LooksLikePhone reports whether s is a grouped or "+"-prefixed number of 7
// to 15 digits that is not a date.
func LooksLikePhone(s string) bool {
	if !phoneShape.MatchString(s) || dateShape.MatchString(s) {
		return false
	}
	if !strings.ContainsAny(s, "+ .-()") {
		return false
	}
	n := digitCount(s)
	return n >= 7 && n <= 15
}

func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// Luhn reports whether the digits of s pass the Luhn checksum.
func Luhn(s string) bool {
	sum, n := 0, 0
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			continue
		}
		d := int(c - '0')
		if n%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		n++
	}
	return n > 0 && sum%10 == 0
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
