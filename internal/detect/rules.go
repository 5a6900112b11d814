package detect

import (
	"regexp"
	"strings"

	"github.com/takumiyoshikawa/jsonsynth/internal/config"
	"github.com/takumiyoshikawa/jsonsynth/internal/hint"
)

// FieldType is the category of a sensitive field.
type FieldType string

const (
	Email      FieldType = "email"
	Phone      FieldType = "phone"
	Name       FieldType = "name"
	Address    FieldType = "address"
	SSN        FieldType = "ssn"
	CreditCard FieldType = "credit_card"
	FreeText   FieldType = "free_text"
	Other      FieldType = "other"
)

// FieldTypes lists every field type in report order.
var FieldTypes = []FieldType{Email, Phone, Name, Address, SSN, CreditCard, FreeText, Other}

// ParseFieldType accepts a field type name, with "credit-card" and
// "free-text" spellings.
func ParseFieldType(s string) (FieldType, bool) {
	s = config.NormalizeFieldType(s)
	for _, t := range FieldTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Rule is one named detection heuristic. Key is matched against the
// normalized field name; a value matches when its literal shape is one of
// Shapes or when Value accepts it.
type Rule struct {
	Name   string
	Type   FieldType
	Key    *regexp.Regexp
	Shapes []hint.Kind
	Value  func(string) bool
}

// DefaultRules returns the detection rules in evaluation order. The first
// matching rule wins for each pass.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "email",
			Type:   Email,
			Key:    regexp.MustCompile(`e_?mail|courriel`),
			Shapes: []hint.Kind{hint.Email},
		},
		{
			Name:   "ssn",
			Type:   SSN,
			Key:    regexp.MustCompile(`(^|_)(ssn|nir|sin|insee)(_|$)|social_security|national_id|tax_id|passport`),
			Shapes: []hint.Kind{hint.SSN},
			Value:  isNIR,
		},
		{
			Name: "name",
			Type: Name,
			Key:  regexp.MustCompile(`(^|_)(first|last|full|given|family|middle|maiden|display|contact|customer|owner|holder)_?name$|^(name|surname|prenom|nom|username|user_name)$`),
		},
		{
			Name:   "credit_card",
			Type:   CreditCard,
			Key:    regexp.MustCompile(`credit|(^|_)(card|card_number|cc_number|pan)(_|$)`),
			Shapes: []hint.Kind{hint.CreditCard},
		},
		{
			Name:   "phone",
			Type:   Phone,
			Key:    regexp.MustCompile(`phone|(^|_)(tel|telephone|mobile|cell|fax|portable)(_|$)`),
			Shapes: []hint.Kind{hint.Phone},
		},
		{
			Name:   "ip_address",
			Type:   Other,
			Key:    regexp.MustCompile(`(^|_)(ip|ipv4|ip_address|mac_address)(_|$)`),
			Shapes: []hint.Kind{hint.IPv4},
		},
		{
			Name: "address",
			Type: Address,
			Key:  regexp.MustCompile(`address|adresse|(^|_)(addr|street|rue|city|ville|zip|zip_code|zipcode|postal_code|postcode|code_postal)(_|$)`),
		},
		{
			Name: "credential",
			Type: Other,
			Key:  regexp.MustCompile(`password|passwd|secret|token|api_?key|private_?key|credential|(^|_)(pwd|pin|cvv|cvc)(_|$)`),
		},
		{
			Name: "birth_date",
			Type: Other,
			Key:  regexp.MustCompile(`birth|naissance|(^|_)dob(_|$)`),
		},
		{
			Name: "free_text",
			Type: FreeText,
			Key:  regexp.MustCompile(`(^|_)(comment|comments|commentaire|bio|biography|remark|remarks|feedback|message)(_|$)`),
		},
	}
}

func (r Rule) matchesKey(norm string) bool {
	return r.Key != nil && norm != "" && r.Key.MatchString(norm)
}

func (r Rule) matchesValue(s string, shape hint.Kind) bool {
	if r.Value != nil && r.Value(s) {
		return true
	}
	for _, k := range r.Shapes {
		if k == shape {
			return true
		}
	}
	return false
}

var nirShape = regexp.MustCompile(`^[12] ?\d{2} ?(0[1-9]|1[0-2]|[2-9]\d) ?(\d{2}|2[AB]) ?\d{3} ?\d{3} ?\d{2}$`)

// isNIR reports whether s is a French social security number whose control
// key checks out.
func isNIR(s string) bool {
	if !nirShape.MatchString(s) {
		return false
	}
	digits := strings.ReplaceAll(s, " ", "")
	body, key := digits[:13], digits[13:]
	// Corsican departments replace 2A and 2B by 19 and 18 for the key.
	body = strings.NewReplacer("2A", "19", "2B", "18").Replace(body)

	var rem, k int
	for _, c := range body {
		if c < '0' || c > '9' {
			return false
		}
		rem = (rem*10 + int(c-'0')) % 97
	}
	for _, c := range key {
		k = k*10 + int(c-'0')
	}
	return 97-rem == k
}
