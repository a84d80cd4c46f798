package forms

import "github.com/joseph-ayodele/taxdocs-pipeline/constants"

// Field sets mirror the printed boxes of each form. Names are stable: they
// key the extraction prompt, the JSON Schema, and the persisted field map,
// so renaming one is a data migration.

var w2Schema = &Schema{
	Form: constants.FormW2,
	Fields: []Field{
		{Name: "employer_name", Kind: KindString, Required: true, Example: "Acme Corporation"},
		{Name: "employer_ein", Kind: KindIdentifier, Required: true, Format: FormatEIN, Example: "12-3456789"},
		{Name: "employee_name", Kind: KindString, Required: true, Example: "Jane Q. Public"},
		{Name: "employee_ssn", Kind: KindIdentifier, Format: FormatSSN, Example: "123-45-6789"},
		{Name: "control_number", Kind: KindString, Example: "000123"},
		{Name: "wages", Kind: KindCurrency, Required: true, Example: "75000.00"},
		{Name: "federal_tax_withheld", Kind: KindCurrency, Required: true, Example: "8500.00"},
		{Name: "social_security_wages", Kind: KindCurrency, Example: "75000.00"},
		{Name: "social_security_tax_withheld", Kind: KindCurrency, Example: "4650.00"},
		{Name: "medicare_wages", Kind: KindCurrency, Example: "75000.00"},
		{Name: "medicare_tax_withheld", Kind: KindCurrency, Example: "1087.50"},
		{Name: "social_security_tips", Kind: KindCurrency, Example: "0.00"},
		{Name: "allocated_tips", Kind: KindCurrency, Example: "0.00"},
		{Name: "dependent_care_benefits", Kind: KindCurrency, Example: "0.00"},
		{Name: "nonqualified_plans", Kind: KindCurrency, Example: "0.00"},
		{Name: "box_12_codes", Kind: KindCoded, Example: `[{"code":"D","amount":"6000.00"}]`},
		{Name: "statutory_employee", Kind: KindBoolean, Example: "false"},
		{Name: "retirement_plan", Kind: KindBoolean, Example: "true"},
		{Name: "third_party_sick_pay", Kind: KindBoolean, Example: "false"},
		{Name: "state_wages", Kind: KindCurrency, Example: "75000.00"},
		{Name: "state_income_tax", Kind: KindCurrency, Example: "3200.00"},
	},
}

var int1099Schema = &Schema{
	Form: constants.Form1099INT,
	Fields: []Field{
		{Name: "payer_name", Kind: KindString, Required: true, Example: "First National Bank"},
		{Name: "payer_tin", Kind: KindIdentifier, Required: true, Format: FormatEIN, Example: "98-7654321"},
		{Name: "recipient_name", Kind: KindString, Example: "Jane Q. Public"},
		{Name: "recipient_tin", Kind: KindIdentifier, Format: FormatSSN, Example: "123-45-6789"},
		{Name: "interest_income", Kind: KindCurrency, Required: true, Example: "1250.33"},
		{Name: "early_withdrawal_penalty", Kind: KindCurrency, Example: "0.00"},
		{Name: "us_savings_bond_interest", Kind: KindCurrency, Example: "0.00"},
		{Name: "federal_tax_withheld", Kind: KindCurrency, Example: "0.00"},
		{Name: "investment_expenses", Kind: KindCurrency, Example: "0.00"},
		{Name: "foreign_tax_paid", Kind: KindCurrency, Example: "0.00"},
		{Name: "tax_exempt_interest", Kind: KindCurrency, Example: "0.00"},
	},
}

var div1099Schema = &Schema{
	Form: constants.Form1099DIV,
	Fields: []Field{
		{Name: "payer_name", Kind: KindString, Required: true, Example: "Vanguard Brokerage"},
		{Name: "payer_tin", Kind: KindIdentifier, Required: true, Format: FormatEIN, Example: "23-1945930"},
		{Name: "recipient_name", Kind: KindString, Example: "Jane Q. Public"},
		{Name: "recipient_tin", Kind: KindIdentifier, Format: FormatSSN, Example: "123-45-6789"},
		{Name: "total_ordinary_dividends", Kind: KindCurrency, Required: true, Example: "3210.55"},
		{Name: "qualified_dividends", Kind: KindCurrency, Example: "2980.10"},
		{Name: "total_capital_gain", Kind: KindCurrency, Example: "412.00"},
		{Name: "nondividend_distributions", Kind: KindCurrency, Example: "0.00"},
		{Name: "federal_tax_withheld", Kind: KindCurrency, Example: "0.00"},
		{Name: "section_199a_dividends", Kind: KindCurrency, Example: "0.00"},
		{Name: "foreign_tax_paid", Kind: KindCurrency, Example: "18.22"},
	},
}

var b1099Schema = &Schema{
	Form: constants.Form1099B,
	Fields: []Field{
		{Name: "payer_name", Kind: KindString, Required: true, Example: "Fidelity Investments"},
		{Name: "payer_tin", Kind: KindIdentifier, Required: true, Format: FormatEIN, Example: "04-1590160"},
		{Name: "recipient_tin", Kind: KindIdentifier, Format: FormatSSN, Example: "123-45-6789"},
		{Name: "description", Kind: KindString, Example: "100 sh ACME CORP"},
		{Name: "date_acquired", Kind: KindString, Example: "03/15/2023"},
		{Name: "date_sold", Kind: KindString, Example: "11/02/2024"},
		{Name: "proceeds", Kind: KindCurrency, Required: true, Example: "15400.00"},
		{Name: "cost_basis", Kind: KindCurrency, Example: "12100.00"},
		{Name: "wash_sale_loss_disallowed", Kind: KindCurrency, Example: "0.00"},
		{Name: "federal_tax_withheld", Kind: KindCurrency, Example: "0.00"},
	},
}

var nec1099Schema = &Schema{
	Form: constants.Form1099NEC,
	Fields: []Field{
		{Name: "payer_name", Kind: KindString, Required: true, Example: "Globex LLC"},
		{Name: "payer_tin", Kind: KindIdentifier, Required: true, Format: FormatEIN, Example: "45-1234567"},
		{Name: "recipient_name", Kind: KindString, Example: "Jane Q. Public"},
		{Name: "recipient_tin", Kind: KindIdentifier, Format: FormatSSN, Example: "123-45-6789"},
		{Name: "nonemployee_compensation", Kind: KindCurrency, Required: true, Example: "24000.00"},
		{Name: "federal_tax_withheld", Kind: KindCurrency, Example: "0.00"},
	},
}

var f1098Schema = &Schema{
	Form: constants.Form1098,
	Fields: []Field{
		{Name: "lender_name", Kind: KindString, Required: true, Example: "Home Mortgage Servicing"},
		{Name: "lender_tin", Kind: KindIdentifier, Required: true, Format: FormatEIN, Example: "36-4321098"},
		{Name: "borrower_tin", Kind: KindIdentifier, Format: FormatSSN, Example: "123-45-6789"},
		{Name: "mortgage_interest_received", Kind: KindCurrency, Required: true, Example: "9875.40"},
		{Name: "outstanding_mortgage_principal", Kind: KindCurrency, Example: "284500.00"},
		{Name: "mortgage_origination_date", Kind: KindString, Example: "06/01/2019"},
		{Name: "points_paid", Kind: KindCurrency, Example: "0.00"},
		{Name: "property_address", Kind: KindString, Example: "742 Evergreen Terrace, Springfield"},
	},
}
