// internal/service/template_service.go
package service

import "strings"

// Placeholder keys understood by plan templates.
const (
	KeyCustomerName        = "customer_name"
	KeyCustomerEmail       = "customer_email"
	KeyCustomerPhone       = "customer_phone"
	KeyContractStartDate   = "contract_start_date"
	KeySurveyDueDate       = "survey_due_date"
	KeyPlanName            = "plan_name"
	KeyGroupName           = "group_name"
	KeyContractFingerprint = "contract_fingerprint"
	KeyGeneratedAt         = "generated_at"
)

// TemplateData holds the values substituted into plan templates.
type TemplateData struct {
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       string
	ContractStartDate   string
	SurveyDueDate       string
	PlanName            string
	GroupName           string
	ContractFingerprint string
	GeneratedAt         string
}

func (d TemplateData) Values() map[string]string {
	return map[string]string{
		KeyCustomerName:        d.CustomerName,
		KeyCustomerEmail:       d.CustomerEmail,
		KeyCustomerPhone:       d.CustomerPhone,
		KeyContractStartDate:   d.ContractStartDate,
		KeySurveyDueDate:       d.SurveyDueDate,
		KeyPlanName:            d.PlanName,
		KeyGroupName:           d.GroupName,
		KeyContractFingerprint: d.ContractFingerprint,
		KeyGeneratedAt:         d.GeneratedAt,
	}
}

// RenderTemplate replaces every {{name}} in template with data[name], or with
// the empty string when data has no entry. The output is built in one pass,
// so substituted values are never scanned again. Nothing is escaped.
func RenderTemplate(template string, data map[string]string) string {
	var b strings.Builder
	b.Grow(len(template))

	rest := template
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])
		rest = rest[open:]

		end := strings.Index(rest[2:], "}}")
		if end < 0 || !isPlaceholderName(rest[2:2+end]) {
			// not a placeholder; emit one brace and keep scanning after it
			b.WriteByte('{')
			rest = rest[1:]
			continue
		}
		b.WriteString(data[rest[2:2+end]])
		rest = rest[2+end+2:]
	}
	return b.String()
}

func isPlaceholderName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
