package service_test

import (
	"testing"

	"github.com/unclebandit/aspform-backend/internal/service"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]string
		want     string
	}{
		{"missing key renders empty", "Hello {{x}}", map[string]string{}, "Hello "},
		{"nil map", "Hello {{customer_name}}!", nil, "Hello !"},
		{"every occurrence", "{{plan_name}}/{{plan_name}}", map[string]string{"plan_name": "A"}, "A/A"},
		{"values are not rescanned", "{{customer_name}}", map[string]string{"customer_name": "{{plan_name}}", "plan_name": "P"}, "{{plan_name}}"},
		{"unbalanced braces are literal", "a {{ b }} {{c", map[string]string{"c": "x"}, "a {{ b }} {{c"},
		{"triple braces", "{{{customer_name}}}", map[string]string{"customer_name": "N"}, "{N}"},
		{"html is not escaped", "<p>{{customer_name}}</p>", map[string]string{"customer_name": "<b>&</b>"}, "<p><b>&</b></p>"},
		{"multibyte text", "{{customer_name}} 様", map[string]string{"customer_name": "山田"}, "山田 様"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := service.RenderTemplate(tc.template, tc.data); got != tc.want {
				t.Errorf("RenderTemplate(%q) = %q, want %q", tc.template, got, tc.want)
			}
		})
	}
}

func TestTemplateDataValuesCoversEveryKey(t *testing.T) {
	values := service.TemplateData{}.Values()
	for _, k := range []string{
		service.KeyCustomerName, service.KeyCustomerEmail, service.KeyCustomerPhone,
		service.KeyContractStartDate, service.KeySurveyDueDate, service.KeyPlanName,
		service.KeyGroupName, service.KeyContractFingerprint, service.KeyGeneratedAt,
	} {
		if _, ok := values[k]; !ok {
			t.Errorf("missing key %s", k)
		}
	}
}
