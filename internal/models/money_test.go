package models

import "testing"

func TestParseMoney(t *testing.T) {
	tests := []struct {
		input   string
		want    Money
		wantErr bool
	}{
		{input: "33.34", want: 3334},
		{input: "$40", want: 4000},
		{input: "-$35.00", want: -3500},
		{input: " 1,250.5 ", want: 125050},
		{input: "0.01", want: 1},
		{input: "10.001", wantErr: true},
		{input: "", wantErr: true},
		{input: "$", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "--5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMoney(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseMoney(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		m    Money
		want string
	}{
		{Dollars(33, 34), "$33.34"},
		{Cents(-3500), "-$35.00"},
		{0, "$0.00"},
		{Cents(5), "$0.05"},
	}
	for _, tt := range tests {
		if got := tt.m.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", int64(tt.m), got, tt.want)
		}
	}
}
