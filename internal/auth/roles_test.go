package auth

import "testing"

func TestRoleHierarchy(t *testing.T) {
	cases := []struct {
		have, need Role
		want       bool
	}{
		{RoleUser, RoleUser, true},
		{RoleUser, RoleManager, false},
		{RoleUser, RoleAdmin, false},
		{RoleManager, RoleUser, true},
		{RoleManager, RoleManager, true},
		{RoleManager, RoleAdmin, false},
		{RoleAdmin, RoleUser, true},
		{RoleAdmin, RoleManager, true},
		{RoleAdmin, RoleAdmin, true},
	}
	for _, c := range cases {
		if got := c.have.Satisfies(c.need); got != c.want {
			t.Fatalf("%s.Satisfies(%s) = %v, want %v", c.have, c.need, got, c.want)
		}
	}
}

func TestUnknownRoleSatisfiesNothing(t *testing.T) {
	bogus := Role("SUPERADMIN")
	if bogus.Valid() {
		t.Fatal("unknown role reported valid")
	}
	if bogus.Satisfies(RoleUser) {
		t.Fatal("unknown role satisfied USER")
	}
}
