package auth

import "strings"

// DefaultOperatorRoles are the roles with operator privilege.
var DefaultOperatorRoles = []string{"admin", "operator", "super_user"}

// Roles decides which role names carry operator privilege.
type Roles struct {
	operator map[string]struct{}
}

func NewRoles(operatorRoles ...string) Roles {
	if len(operatorRoles) == 0 {
		operatorRoles = DefaultOperatorRoles
	}
	r := Roles{operator: make(map[string]struct{}, len(operatorRoles))}
	for _, role := range operatorRoles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			r.operator[role] = struct{}{}
		}
	}
	return r
}

func (r Roles) IsOperator(role string) bool {
	_, ok := r.operator[strings.ToLower(strings.TrimSpace(role))]
	return ok
}
