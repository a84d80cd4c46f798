package constants

import "strings"

// FormType is the closed set of supported tax-form categories.
type FormType string

const (
	FormW2      FormType = "W2"
	Form1099INT FormType = "FORM_1099_INT"
	Form1099DIV FormType = "FORM_1099_DIV"
	Form1099B   FormType = "FORM_1099_B"
	Form1099NEC FormType = "FORM_1099_NEC"
	Form1098    FormType = "FORM_1098"
	FormOther   FormType = "OTHER"
)

// FormTypes lists every supported form type in stable order.
var FormTypes = []FormType{
	FormW2,
	Form1099INT,
	Form1099DIV,
	Form1099B,
	Form1099NEC,
	Form1098,
	FormOther,
}

// labelAliases maps spellings the model tends to emit onto canonical types.
var labelAliases = map[string]FormType{
	"W2":            FormW2,
	"W-2":           FormW2,
	"FORM_W2":       FormW2,
	"1099_INT":      Form1099INT,
	"1099-INT":      Form1099INT,
	"FORM_1099_INT": Form1099INT,
	"1099_DIV":      Form1099DIV,
	"1099-DIV":      Form1099DIV,
	"FORM_1099_DIV": Form1099DIV,
	"1099_B":        Form1099B,
	"1099-B":        Form1099B,
	"FORM_1099_B":   Form1099B,
	"1099_NEC":      Form1099NEC,
	"1099-NEC":      Form1099NEC,
	"FORM_1099_NEC": Form1099NEC,
	"1098":          Form1098,
	"FORM_1098":     Form1098,
	"OTHER":         FormOther,
}

func normalizeLabel(label string) string {
	s := strings.ToUpper(strings.TrimSpace(label))
	s = strings.Trim(s, `"'`)
	return s
}

// CanonicalFormType resolves a model-emitted label to a FormType.
// Labels outside the enumeration resolve to OTHER with ok=false.
func CanonicalFormType(label string) (FormType, bool) {
	if ft, ok := labelAliases[normalizeLabel(label)]; ok {
		return ft, true
	}
	return FormOther, false
}

// AsStringSlice returns the enum labels for closed-label prompting.
func AsStringSlice() []string {
	out := make([]string, len(FormTypes))
	for i, ft := range FormTypes {
		out[i] = string(ft)
	}
	return out
}
