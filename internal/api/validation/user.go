package validation

import "strings"

var userRoles = map[string]bool{
	"USER": true, "TEAM_ADMIN": true, "GLOBAL_ADMIN": true,
}

// CreateUserRequest mirrors the fields needed for create user validation.
type CreateUserRequest struct {
	Email string
	Role  string
}

// ValidateCreateUserRequest validates the fields of a create user request.
func ValidateCreateUserRequest(req CreateUserRequest) []FieldError {
	var errs []FieldError

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		errs = append(errs, FieldError{Field: "email", Message: "email must be a valid address"})
	} else if len(email) > 255 {
		errs = append(errs, FieldError{Field: "email", Message: "email must be at most 255 characters"})
	}

	if req.Role != "" && !userRoles[req.Role] {
		errs = append(errs, FieldError{Field: "role", Message: "role must be one of USER, TEAM_ADMIN, GLOBAL_ADMIN"})
	}

	return errs
}

// ValidateUserRole validates a global role value.
func ValidateUserRole(role string) []FieldError {
	if !userRoles[role] {
		return []FieldError{{Field: "role", Message: "role must be one of USER, TEAM_ADMIN, GLOBAL_ADMIN"}}
	}
	return nil
}
