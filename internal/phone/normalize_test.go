package phone

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		countryCode string
		want        string
	}{
		{name: "local ten digits gets country code", raw: "9876543210", countryCode: "91", want: "919876543210"},
		{name: "formatted international number kept", raw: "+91-98765-43210", countryCode: "91", want: "919876543210"},
		{name: "leading double zero stripped", raw: "00919876543210", countryCode: "91", want: "919876543210"},
		{name: "double zero then local length", raw: "009876543210", countryCode: "44", want: "449876543210"},
		{name: "spaces and brackets", raw: "(987) 654 3210", countryCode: "1", want: "19876543210"},
		{name: "no digits", raw: "n/a", countryCode: "91", want: ""},
		{name: "empty", raw: "", countryCode: "91", want: ""},
		{name: "short number unchanged", raw: "12345", countryCode: "91", want: "12345"},
		{name: "empty country code", raw: "9876543210", countryCode: "", want: "9876543210"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Normalize(tt.raw, tt.countryCode); got != tt.want {
				t.Fatalf("Normalize(%q, %q) = %q, want %q", tt.raw, tt.countryCode, got, tt.want)
			}
		})
	}
}
