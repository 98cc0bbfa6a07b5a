package domain

import "testing"

func TestIsValidAdminRole(t *testing.T) {
	cases := []struct {
		role string
		ok   bool
	}{
		{"read", true},
		{"write", true},
		{"", false},
		{"root", false},
	}

	for _, c := range cases {
		if IsValidAdminRole(c.role) != c.ok {
			t.Fatalf("unexpected IsValidAdminRole(%q)", c.role)
		}
	}
}

func TestAdminRoleRank(t *testing.T) {
	if AdminRoleRank("read") >= AdminRoleRank("write") {
		t.Fatalf("read should be lower than write")
	}
	if AdminRoleRank("invalid") != 0 {
		t.Fatalf("invalid role should rank 0")
	}
}
