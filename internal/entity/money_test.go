package entity

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{"75000.00", 7500000, false},
		{"$75,000.00", 7500000, false},
		{"8500.00", 850000, false},
		{"1250.33", 125033, false},
		{"0", 0, false},
		{"0.5", 50, false},
		{"-12.34", -1234, false},
		{"(12.34)", -1234, false},
		{"  $1,087.50  ", 108750, false},
		{"12.345", 0, true},
		{"twelve", 0, true},
		{"", 0, true},
		{"12.34.56", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestAmountString(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{7500000, "75000.00"},
		{850000, "8500.00"},
		{50, "0.50"},
		{5, "0.05"},
		{0, "0.00"},
		{-1234, "-12.34"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Errorf("Amount(%d).String() = %q, want %q", int64(tc.in), got, tc.want)
		}
	}
}

func TestAmountJSONRoundTrip(t *testing.T) {
	in := Amount(7500000)
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"75000.00"` {
		t.Fatalf("marshal = %s, want %q", data, `"75000.00"`)
	}
	var out Amount
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Fatalf("round trip = %d, want %d", out, in)
	}
}

func TestAmountUnmarshalBareNumber(t *testing.T) {
	var a Amount
	if err := json.Unmarshal([]byte(`1250.33`), &a); err != nil {
		t.Fatalf("unmarshal bare number: %v", err)
	}
	if a != 125033 {
		t.Fatalf("got %d, want 125033", a)
	}
}
