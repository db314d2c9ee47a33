package domain

// Organization identity is ordinal string equality on User.OrganizationName.
// These functions are the only places that interpret or compare organization names.

// SameOrganization reports whether two organization names denote the same organization.
func SameOrganization(a, b string) bool {
	return a == b
}

// OrganizationOf returns the organization of u. A null or empty name means the
// user has no organization.
func OrganizationOf(u User) (string, bool) {
	if u.OrganizationName == nil || *u.OrganizationName == "" {
		return "", false
	}
	return *u.OrganizationName, true
}

// ValidOrganizationName reports whether name can identify an organization.
func ValidOrganizationName(name string) bool {
	return name != ""
}

// GroupByOrganization returns the distinct organization names of users in first-seen
// order together with the member emails of each. Users without an organization are skipped.
func GroupByOrganization(users []User) ([]string, map[string][]string) {
	names := make([]string, 0)
	members := make(map[string][]string)
	for _, user := range users {
		name, ok := OrganizationOf(user)
		if !ok {
			continue
		}
		if _, seen := members[name]; !seen {
			names = append(names, name)
		}
		members[name] = append(members[name], user.Email)
	}
	return names, members
}

// MembersOf keeps the users whose organization is exactly name. Stores may
// match names under a looser collation than SameOrganization.
func MembersOf(users []User, name string) []User {
	out := make([]User, 0, len(users))
	for _, user := range users {
		if org, ok := OrganizationOf(user); ok && SameOrganization(org, name) {
			out = append(out, user)
		}
	}
	return out
}
