package domain

import (
	"errors"
	"testing"
)

func TestEnrollRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     EnrollRequest
		wantErr bool
	}{
		{"valid", EnrollRequest{Name: "Ada", Email: "ada@example.com", Position: "Engineer"}, false},
		{"valid without position", EnrollRequest{Name: "Ada", Email: "ada@example.com"}, false},
		{"missing name", EnrollRequest{Email: "ada@example.com"}, true},
		{"missing email", EnrollRequest{Name: "Ada"}, true},
		{"malformed email", EnrollRequest{Name: "Ada", Email: "not-an-address"}, true},
		{"email without host", EnrollRequest{Name: "Ada", Email: "ada@"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr && !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}

func TestEnrollRequestNormalize(t *testing.T) {
	r := EnrollRequest{Name: "  Ada  ", Email: "  Ada.L@EXAMPLE.Com ", Position: " Engineer "}
	r.Normalize()
	if r.Name != "Ada" {
		t.Errorf("name = %q", r.Name)
	}
	if r.Email != "Ada.L@example.com" {
		t.Errorf("email = %q, host should be lowercased, local part untouched", r.Email)
	}
	if r.Position != "Engineer" {
		t.Errorf("position = %q", r.Position)
	}
}
