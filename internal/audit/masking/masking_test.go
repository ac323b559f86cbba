package masking

import "testing"

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "****"},
		{"JBSWY3DPEHPK3PXP", "****3PXP"},
		{"  spaced  ", "****aced"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	out := Sanitize(map[string]any{
		"password": "Tr0ubadour&Strings",
		"CODE":     "287082",
		"secret":   12345,
		"reason":   "logout",
		"":         "dropped",
	})

	if out["password"] != "****ings" {
		t.Fatalf("password not masked: %v", out["password"])
	}
	if out["CODE"] != "****7082" {
		t.Fatalf("code not masked: %v", out["CODE"])
	}
	if out["secret"] != "****" {
		t.Fatalf("non-string secret not masked: %v", out["secret"])
	}
	if out["reason"] != "logout" {
		t.Fatalf("non-sensitive value changed: %v", out["reason"])
	}
	if _, ok := out[""]; ok {
		t.Fatal("empty key should be dropped")
	}
}
