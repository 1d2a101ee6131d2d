package validation

import "strings"

// CreateTeamRequest mirrors the fields needed for create team validation.
type CreateTeamRequest struct {
	Name string
}

// ValidateCreateTeamRequest validates the fields of a create team request.
func ValidateCreateTeamRequest(req CreateTeamRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > 255 {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 255 characters"})
	}

	return errs
}

// ValidateMembershipRole validates a membership role value.
func ValidateMembershipRole(role string) []FieldError {
	if role != "MEMBER" && role != "ADMIN" {
		return []FieldError{{Field: "role", Message: "role must be \"MEMBER\" or \"ADMIN\""}}
	}
	return nil
}
