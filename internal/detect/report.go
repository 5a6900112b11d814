package detect

import "fmt"

// Report is the analyze mode output document.
type Report struct {
	SensitiveFields []Record `json:"sensitive_fields" jsonschema:"description=Findings in document order."`
	TotalFields     int      `json:"total_fields" jsonschema:"description=Number of sensitive fields found."`
	ScannedFields   int      `json:"scanned_fields" jsonschema:"description=Number of scalar fields inspected."`
	Message         string   `json:"message"`
	Recommendations []string `json:"recommendations" jsonschema:"description=One recommendation per detected field type in order of first occurrence."`
	Warnings        []string `json:"warnings"`
}

var recommendations = map[FieldType]string{
	Email:      "Replace email addresses with fictitious ones before sharing.",
	Phone:      "Replace phone numbers with fictitious numbers that keep the same format.",
	Name:       "Pseudonymize personal names.",
	Address:    "Replace postal addresses, cities and postcodes with fictitious ones.",
	SSN:        "Mask SSN-like national identifiers before sharing.",
	CreditCard: "Never share card numbers; substitute test card numbers.",
	FreeText:   "Review free-text fields, they may embed personal details.",
	Other:      "Review credentials, birth dates and network identifiers; redact them where possible.",
}

// Recommendation returns the advice attached to a field type.
func Recommendation(t FieldType) string {
	return recommendations[t]
}

func newReport(records []Record, scanned int) *Report {
	report := &Report{
		SensitiveFields: records,
		TotalFields:     len(records),
		ScannedFields:   scanned,
		Message:         fmt.Sprintf("Found %d sensitive field(s) in %d scanned field(s)", len(records), scanned),
		Recommendations: []string{},
		Warnings:        []string{},
	}

	seen := make(map[FieldType]bool)
	for _, r := range records {
		if seen[r.FieldType] {
			continue
		}
		seen[r.FieldType] = true
		report.Recommendations = append(report.Recommendations, recommendations[r.FieldType])
	}
	return report
}
