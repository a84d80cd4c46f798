package validate

import (
	"strings"
	"testing"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
)

func w2Fields() entity.FieldMap {
	return entity.FieldMap{
		"employer_name":        "Acme Corporation",
		"employer_ein":         "12-3456789",
		"employee_name":        "Jane Q. Public",
		"wages":                entity.Amount(7500000),
		"federal_tax_withheld": entity.Amount(850000),
	}
}

func hasWarning(warns []string, substr string) bool {
	for _, w := range warns {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestValidateValid(t *testing.T) {
	v := NewValidator(nil)
	out, err := v.Validate(constants.FormW2, w2Fields())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if out.Status != constants.ValidationValid {
		t.Fatalf("Status = %s, warnings = %v", out.Status, out.Warnings)
	}
	if out.FieldConfidence["wages"] != 1 {
		t.Errorf("wages confidence = %v", out.FieldConfidence["wages"])
	}
}

func TestValidateRequiredAbsent(t *testing.T) {
	fields := w2Fields()
	fields["wages"] = nil
	v := NewValidator(nil)

	out, err := v.Validate(constants.FormW2, fields)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != constants.ValidationInvalid {
		t.Fatalf("Status = %s, want invalid", out.Status)
	}
	if !hasWarning(out.Warnings, "required field absent: wages") {
		t.Errorf("Warnings = %v", out.Warnings)
	}
	if out.FieldConfidence["wages"] != 0 {
		t.Errorf("absent field confidence = %v", out.FieldConfidence["wages"])
	}
}

func TestValidateNegativeCurrency(t *testing.T) {
	fields := w2Fields()
	fields["federal_tax_withheld"] = entity.Amount(-100)
	v := NewValidator(nil)

	out, err := v.Validate(constants.FormW2, fields)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != constants.ValidationInvalid {
		t.Fatalf("Status = %s, want invalid", out.Status)
	}
}

func TestValidateIdentifierFormatWarnsOnly(t *testing.T) {
	fields := w2Fields()
	fields["employer_ein"] = "123456789"
	v := NewValidator(nil)

	out, err := v.Validate(constants.FormW2, fields)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != constants.ValidationWithWarnings {
		t.Fatalf("Status = %s, want valid-with-warnings", out.Status)
	}
	if !hasWarning(out.Warnings, "employer_ein does not match ein format") {
		t.Errorf("Warnings = %v", out.Warnings)
	}
	if out.FieldConfidence["employer_ein"] != 0.5 {
		t.Errorf("confidence = %v, want 0.5", out.FieldConfidence["employer_ein"])
	}
}

// An invalid finding keeps the record invalid no matter how many softer
// warnings pile on top.
func TestValidateInvalidBeatsWarnings(t *testing.T) {
	fields := w2Fields()
	fields["wages"] = nil
	fields["employer_ein"] = "123456789"
	v := NewValidator(nil)

	out, err := v.Validate(constants.FormW2, fields)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != constants.ValidationInvalid {
		t.Fatalf("Status = %s, want invalid", out.Status)
	}
}

func TestValidateOther(t *testing.T) {
	v := NewValidator(nil)
	out, err := v.Validate(constants.FormOther, entity.FieldMap{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != constants.ValidationWithWarnings {
		t.Fatalf("Status = %s", out.Status)
	}
}

func TestValidateWithheldWithoutWages(t *testing.T) {
	fields := w2Fields()
	fields["wages"] = entity.Amount(0)
	v := NewValidator(nil)

	out, err := v.Validate(constants.FormW2, fields)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != constants.ValidationWithWarnings {
		t.Fatalf("Status = %s", out.Status)
	}
	if !hasWarning(out.Warnings, "federal tax withheld with zero wages") {
		t.Errorf("Warnings = %v", out.Warnings)
	}
}

func TestValidatePayrollRates(t *testing.T) {
	fields := w2Fields()
	fields["social_security_wages"] = entity.Amount(7500000)
	fields["social_security_tax_withheld"] = entity.Amount(465000) // 6.2% exactly
	fields["medicare_wages"] = entity.Amount(7500000)
	fields["medicare_tax_withheld"] = entity.Amount(500) // far off 1.45%
	v := NewValidator(nil)

	out, err := v.Validate(constants.FormW2, fields)
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != constants.ValidationWithWarnings {
		t.Fatalf("Status = %s, warnings = %v", out.Status, out.Warnings)
	}
	if hasWarning(out.Warnings, "social_security_tax_withheld") {
		t.Errorf("exact social security rate must not warn: %v", out.Warnings)
	}
	if !hasWarning(out.Warnings, "medicare_tax_withheld") {
		t.Errorf("Warnings = %v, want medicare rate warning", out.Warnings)
	}
}

func TestValidateQualifiedExceedsOrdinary(t *testing.T) {
	fields := entity.FieldMap{
		"payer_name":               "Vanguard Brokerage",
		"payer_tin":                "23-1945930",
		"total_ordinary_dividends": entity.Amount(100000),
		"qualified_dividends":      entity.Amount(200000),
	}
	v := NewValidator(nil)

	out, err := v.Validate(constants.Form1099DIV, fields)
	if err != nil {
		t.Fatal(err)
	}
	if !hasWarning(out.Warnings, "exceed ordinary dividends") {
		t.Errorf("Warnings = %v", out.Warnings)
	}
}

// Restoring a well-formed value for the one missing required field lifts
// the verdict out of invalid; it never stays below valid-with-warnings.
func TestValidateRestoredRequiredFieldLiftsVerdict(t *testing.T) {
	v := NewValidator(nil)
	for name, value := range w2Fields() {
		fields := w2Fields()
		fields[name] = nil

		before, err := v.Validate(constants.FormW2, fields)
		if err != nil {
			t.Fatal(err)
		}
		if before.Status != constants.ValidationInvalid {
			t.Fatalf("%s absent: Status = %s, want invalid", name, before.Status)
		}

		fields[name] = value
		after, err := v.Validate(constants.FormW2, fields)
		if err != nil {
			t.Fatal(err)
		}
		if after.Status == constants.ValidationInvalid {
			t.Errorf("%s restored: Status = %s, want at least valid-with-warnings", name, after.Status)
		}
	}
}

// Validation is pure: re-validating identical fields never changes the verdict.
func TestValidateDeterministic(t *testing.T) {
	v := NewValidator(nil)
	fields := w2Fields()
	fields["employer_ein"] = "bad"

	first, err := v.Validate(constants.FormW2, fields)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := v.Validate(constants.FormW2, fields)
		if err != nil {
			t.Fatal(err)
		}
		if again.Status != first.Status || len(again.Warnings) != len(first.Warnings) {
			t.Fatalf("run %d diverged: %s %v", i, again.Status, again.Warnings)
		}
	}
}
