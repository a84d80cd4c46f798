package validate

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/taxdocs-pipeline/constants"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/entity"
	"github.com/joseph-ayodele/taxdocs-pipeline/internal/forms"
)

// Outcome is the validator's verdict for one field mapping. Validation is
// pure: the same fields always produce the same outcome, and re-validating
// an outcome's inputs never improves the status.
type Outcome struct {
	Status          constants.ValidationStatus
	Warnings        []string
	FieldConfidence map[string]float32
}

// Validator applies per-field and cross-field rules for each form type.
type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate annotates a field mapping. Hard failures (missing required
// values, negative currency) make the record invalid; format mismatches
// and cross-field inconsistencies only warn and lower field confidence.
// OTHER documents validate as valid-with-warnings with no field rules.
func (v *Validator) Validate(form constants.FormType, fields entity.FieldMap) (Outcome, error) {
	if form == constants.FormOther {
		return Outcome{
			Status:          constants.ValidationWithWarnings,
			Warnings:        []string{"unrecognized form type; no fields extracted"},
			FieldConfidence: map[string]float32{},
		}, nil
	}

	schema, err := forms.Get(form)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Status:          constants.ValidationValid,
		FieldConfidence: make(map[string]float32, len(schema.Fields)),
	}
	invalid := false

	for _, f := range schema.Fields {
		val := fields[f.Name]
		if val == nil {
			out.FieldConfidence[f.Name] = 0
			if f.Required {
				invalid = true
				out.Warnings = append(out.Warnings, "required field absent: "+f.Name)
			}
			continue
		}
		conf := float32(1.0)
		switch f.Kind {
		case forms.KindCurrency:
			amt, ok := val.(entity.Amount)
			if !ok {
				invalid = true
				out.Warnings = append(out.Warnings, "field has wrong type: "+f.Name)
				conf = 0
				break
			}
			if amt.Negative() {
				invalid = true
				out.Warnings = append(out.Warnings, fmt.Sprintf("negative amount in %s: %s", f.Name, amt))
				conf = 0
			}
		case forms.KindIdentifier:
			s, ok := val.(string)
			if !ok {
				invalid = true
				out.Warnings = append(out.Warnings, "field has wrong type: "+f.Name)
				conf = 0
				break
			}
			if re := forms.IdentifierPattern(f.Format); re != nil && !re.MatchString(s) {
				out.Warnings = append(out.Warnings, fmt.Sprintf("%s does not match %s format", f.Name, f.Format))
				conf = 0.5
			}
		case forms.KindCoded:
			entries, ok := val.([]entity.CodedEntry)
			if !ok {
				invalid = true
				out.Warnings = append(out.Warnings, "field has wrong type: "+f.Name)
				conf = 0
				break
			}
			for _, e := range entries {
				if e.Amount.Negative() {
					invalid = true
					out.Warnings = append(out.Warnings,
						fmt.Sprintf("negative amount in %s code %s: %s", f.Name, e.Code, e.Amount))
					conf = 0
				}
			}
		}
		out.FieldConfidence[f.Name] = conf
	}

	out.Warnings = append(out.Warnings, crossFieldWarnings(form, fields)...)

	switch {
	case invalid:
		out.Status = constants.ValidationInvalid
	case len(out.Warnings) > 0:
		out.Status = constants.ValidationWithWarnings
	}

	v.logger.Debug("validate.ok",
		"form_type", form,
		"status", out.Status,
		"warnings", len(out.Warnings),
	)
	return out, nil
}

// Payroll tax rates checked against W-2 boxes 4 and 6. A dollar of slack
// absorbs rounding in the source document.
const (
	socialSecurityRate = 0.062
	medicareRate       = 0.0145
	rateSlackCents     = 100
)

func crossFieldWarnings(form constants.FormType, fields entity.FieldMap) []string {
	var warns []string
	switch form {
	case constants.FormW2:
		if wages, ok := amountOf(fields, "wages"); ok && wages == 0 {
			if withheld, ok := amountOf(fields, "federal_tax_withheld"); ok && withheld > 0 {
				warns = append(warns, "federal tax withheld with zero wages")
			}
		}
		warns = append(warns,
			rateWarnings("social_security_tax_withheld", "social_security_wages", socialSecurityRate, fields)...)
		warns = append(warns,
			rateWarnings("medicare_tax_withheld", "medicare_wages", medicareRate, fields)...)
	case constants.Form1099DIV:
		qual, okQ := amountOf(fields, "qualified_dividends")
		ord, okO := amountOf(fields, "total_ordinary_dividends")
		if okQ && okO && qual > ord {
			warns = append(warns, fmt.Sprintf(
				"qualified dividends %s exceed ordinary dividends %s", qual, ord))
		}
	case constants.Form1099B:
		proceeds, okP := amountOf(fields, "proceeds")
		wash, okW := amountOf(fields, "wash_sale_loss_disallowed")
		if okP && okW && wash > proceeds {
			warns = append(warns, fmt.Sprintf(
				"wash sale adjustment %s exceeds proceeds %s", wash, proceeds))
		}
	}
	return warns
}

func rateWarnings(taxField, baseField string, rate float64, fields entity.FieldMap) []string {
	tax, okT := amountOf(fields, taxField)
	base, okB := amountOf(fields, baseField)
	if !okT || !okB || base == 0 {
		return nil
	}
	expected := int64(float64(base)*rate + 0.5)
	diff := int64(tax) - expected
	if diff < 0 {
		diff = -diff
	}
	if diff > rateSlackCents {
		return []string{fmt.Sprintf("%s is %s, expected about %s from %s",
			taxField, tax, entity.Amount(expected), baseField)}
	}
	return nil
}

func amountOf(fields entity.FieldMap, name string) (entity.Amount, bool) {
	amt, ok := fields[name].(entity.Amount)
	return amt, ok
}
