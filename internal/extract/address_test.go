package extract

import (
	"errors"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{
			name:  "street state zip country",
			input: "1 Anystreet, Ri 02816-7613 US",
			want:  Address{Street: "1 Anystreet", City: "", State: "Ri", Zip: "02816", Country: "US"},
		},
		{
			name:  "plain zip no plus4",
			input: "4 Anystreet, NY 10001 US",
			want:  Address{Street: "4 Anystreet", City: "", State: "NY", Zip: "10001", Country: "US"},
		},
		{
			name:  "street city state zip",
			input: "12 Harbor Way, Warwick, RI 02886 US",
			want:  Address{Street: "12 Harbor Way", City: "Warwick", State: "RI", Zip: "02886", Country: "US"},
		},
		{
			name:  "country defaults when absent",
			input: "12 Harbor Way, Warwick, RI 02886",
			want:  Address{Street: "12 Harbor Way", City: "Warwick", State: "RI", Zip: "02886", Country: "US"},
		},
		{
			name:  "surrounding commas and whitespace",
			input: " , 9 Pine St, MA 01701 US , ",
			want:  Address{Street: "9 Pine St", City: "", State: "MA", Zip: "01701", Country: "US"},
		},
		{
			name:    "no zip",
			input:   "1 Main Street, Springfield",
			wantErr: true,
		},
		{
			name:    "no commas",
			input:   "02816",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "state without zip in tail",
			input:   "02816 somewhere, RI",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input, "US")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAddress(%q) expected error, got %+v", tt.input, got)
				}
				if !errors.Is(err, ErrAddressParse) {
					t.Errorf("error should wrap ErrAddressParse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAddress(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAddress_DefaultCountry(t *testing.T) {
	got, err := ParseAddress("12 Harbor Way, Warwick, RI 02886", "CA")
	if err != nil {
		t.Fatalf("ParseAddress() error = %v", err)
	}
	if got.Country != "CA" {
		t.Errorf("Country = %q, want %q", got.Country, "CA")
	}
}
