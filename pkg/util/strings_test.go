package util

import "testing"

func TestSplitCommaSeparated(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"oid:0x1", 1},
		{"oid:0x1,oid:0x2", 2},
		{"oid:0x1, oid:0x2, ,oid:0x3", 3},
	}

	for _, tt := range tests {
		got := SplitCommaSeparated(tt.input)
		if len(got) != tt.want {
			t.Errorf("SplitCommaSeparated(%q) = %v (len %d), want len %d", tt.input, got, len(got), tt.want)
		}
	}
}

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		input     string
		wantName  string
		wantValue string
		wantErr   bool
	}{
		{"SAI_NEXT_HOP_ATTR_IP=10.0.0.1", "SAI_NEXT_HOP_ATTR_IP", "10.0.0.1", false},
		{"A = b=c", "A", "b=c", false},
		{"A=", "A", "", false},
		{"=value", "", "", true},
		{"novalue", "", "", true},
	}

	for _, tt := range tests {
		name, value, err := ParseAssignment(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAssignment(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if name != tt.wantName || value != tt.wantValue {
			t.Errorf("ParseAssignment(%q) = (%q, %q), want (%q, %q)", tt.input, name, value, tt.wantName, tt.wantValue)
		}
	}
}
