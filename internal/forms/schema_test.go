package forms

import (
	"encoding/json"
	"testing"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/common"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
)

func TestGetRegisteredForms(t *testing.T) {
	for _, ft := range constants.FormTypes {
		if ft == constants.FormOther {
			continue
		}
		s, err := Get(ft)
		if err != nil {
			t.Fatalf("Get(%s): %v", ft, err)
		}
		if s.Form != ft {
			t.Errorf("Get(%s).Form = %s", ft, s.Form)
		}
		if len(s.Fields) == 0 {
			t.Errorf("Get(%s): empty field set", ft)
		}
	}
}

func TestGetUnregisteredForm(t *testing.T) {
	_, err := Get(constants.FormOther)
	if err == nil {
		t.Fatal("Get(OTHER): expected error")
	}
	if !common.IsClass(err, common.ClassConfiguration) {
		t.Fatalf("Get(OTHER): class = %s, want configuration_error", common.ClassOf(err))
	}
}

func TestSchemaRequired(t *testing.T) {
	s, err := Get(constants.FormW2)
	if err != nil {
		t.Fatal(err)
	}
	req := s.Required()
	want := map[string]bool{
		"employer_name":        true,
		"employer_ein":         true,
		"employee_name":        true,
		"wages":                true,
		"federal_tax_withheld": true,
	}
	if len(req) != len(want) {
		t.Fatalf("Required() = %v, want %d names", req, len(want))
	}
	for _, name := range req {
		if !want[name] {
			t.Errorf("unexpected required field %q", name)
		}
	}
}

func TestJSONSchemaShape(t *testing.T) {
	s, err := Get(constants.Form1099INT)
	if err != nil {
		t.Fatal(err)
	}
	js := s.JSONSchema()
	if js["additionalProperties"] != false {
		t.Error("schema must reject unknown keys")
	}
	required, ok := js["required"].([]string)
	if !ok || len(required) != len(s.Fields) {
		t.Fatalf("required = %v, want every field name", js["required"])
	}
	props, ok := js["properties"].(map[string]any)
	if !ok {
		t.Fatal("properties missing")
	}
	for _, f := range s.Fields {
		if _, ok := props[f.Name]; !ok {
			t.Errorf("property %q missing", f.Name)
		}
	}
}

// necPayload marshals a full 1099-NEC payload: every schema key present,
// null unless overridden, the shape the sanitizer hands to validation.
func necPayload(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	s, err := Get(constants.Form1099NEC)
	if err != nil {
		t.Fatal(err)
	}
	m := map[string]any{}
	for _, name := range s.FieldNames() {
		m[name] = nil
	}
	for k, v := range overrides {
		m[k] = v
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestSchemaValidate(t *testing.T) {
	s, err := Get(constants.Form1099NEC)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name    string
		payload []byte
		ok      bool
	}{
		{"all null", necPayload(t, nil), true},
		{"well formed", necPayload(t, map[string]any{
			"payer_name":               "Globex LLC",
			"payer_tin":                "45-1234567",
			"nonemployee_compensation": "24000.00",
		}), true},
		{"unknown key", necPayload(t, map[string]any{"hallucinated_key": "x"}), false},
		{"bad decimal", necPayload(t, map[string]any{"nonemployee_compensation": "24000.005"}), false},
		{"numeric currency", necPayload(t, map[string]any{"nonemployee_compensation": 24000}), false},
		{"missing key", []byte(`{"payer_name": "Globex LLC"}`), false},
		{"not json", []byte(`{"payer_name": "Globex`), false},
	}
	for _, tc := range cases {
		err := s.Validate(tc.payload)
		if tc.ok && err != nil {
			t.Errorf("%s: Validate: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: Validate accepted %s", tc.name, tc.payload)
		}
	}
}

func TestIdentifierPatterns(t *testing.T) {
	cases := []struct {
		format IdentifierFormat
		value  string
		match  bool
	}{
		{FormatEIN, "12-3456789", true},
		{FormatEIN, "123456789", false},
		{FormatEIN, "12-345678", false},
		{FormatSSN, "123-45-6789", true},
		{FormatSSN, "123456789", false},
	}
	for _, tc := range cases {
		re := IdentifierPattern(tc.format)
		if re == nil {
			t.Fatalf("no pattern for %s", tc.format)
		}
		if got := re.MatchString(tc.value); got != tc.match {
			t.Errorf("%s match %q = %v, want %v", tc.format, tc.value, got, tc.match)
		}
	}
}

func TestDecodeFields(t *testing.T) {
	s, err := Get(constants.FormW2)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte(`{
		"employer_name": "Acme Corporation",
		"employer_ein": "12-3456789",
		"wages": "75000.00",
		"federal_tax_withheld": "8500.00",
		"retirement_plan": true,
		"box_12_codes": [{"code":"D","amount":"6000.00"}],
		"employee_ssn": null
	}`)
	fields, err := DecodeFields(s, data)
	if err != nil {
		t.Fatalf("DecodeFields: %v", err)
	}
	if got := fields["wages"]; got != entity.Amount(7500000) {
		t.Errorf("wages = %v (%T), want Amount 7500000", got, got)
	}
	if got := fields["employer_name"]; got != "Acme Corporation" {
		t.Errorf("employer_name = %v", got)
	}
	if got := fields["retirement_plan"]; got != true {
		t.Errorf("retirement_plan = %v", got)
	}
	codes, ok := fields["box_12_codes"].([]entity.CodedEntry)
	if !ok || len(codes) != 1 {
		t.Fatalf("box_12_codes = %v (%T)", fields["box_12_codes"], fields["box_12_codes"])
	}
	if codes[0].Code != "D" || codes[0].Amount != 600000 {
		t.Errorf("box_12_codes[0] = %+v", codes[0])
	}
	if v, present := fields["employee_ssn"]; !present || v != nil {
		t.Errorf("employee_ssn = %v, want explicit nil", v)
	}
}
