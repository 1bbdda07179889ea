package auth

// Role is an ordered privilege level. Comparison always goes through
// Satisfies; role strings are never compared directly elsewhere.
type Role string

const (
	RoleUser    Role = "USER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleUser:    0,
	RoleManager: 1,
	RoleAdmin:   2,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Satisfies reports whether r meets the required privilege level. Higher
// ranked roles satisfy every lower ranked requirement, so an ADMIN passes a
// MANAGER check.
func (r Role) Satisfies(required Role) bool {
	ur, ok := roleRank[r]
	if !ok {
		return false
	}
	rr, ok := roleRank[required]
	if !ok {
		return false
	}
	return ur >= rr
}
