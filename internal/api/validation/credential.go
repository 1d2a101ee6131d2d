package validation

import (
	"strconv"
	"strings"
)

var riskLevels = map[string]bool{
	"LOW": true, "MEDIUM": true, "HIGH": true, "CRITICAL": true,
}

var accessLevels = map[string]bool{
	"READ": true, "WRITE": true,
}

// CreateCredentialRequest mirrors the fields needed for create validation.
type CreateCredentialRequest struct {
	Name      string
	Secret    string
	RiskLevel string
}

// ValidateCreateCredentialRequest validates the fields of a create request.
func ValidateCreateCredentialRequest(req CreateCredentialRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > 255 {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 255 characters"})
	}

	if req.Secret == "" {
		errs = append(errs, FieldError{Field: "secret", Message: "secret is required"})
	}

	if req.RiskLevel != "" && !riskLevels[req.RiskLevel] {
		errs = append(errs, FieldError{Field: "riskLevel", Message: "riskLevel must be one of LOW, MEDIUM, HIGH, CRITICAL"})
	}

	return errs
}

// ShareTargetRequest mirrors one share recipient for validation.
type ShareTargetRequest struct {
	UserID      string
	TeamID      string
	AccessLevel string
}

// ValidateShareRequest validates a share request's targets. Each target must
// name exactly one of a user or a team.
func ValidateShareRequest(targets []ShareTargetRequest) []FieldError {
	var errs []FieldError

	for i, t := range targets {
		if (t.UserID == "") == (t.TeamID == "") {
			errs = append(errs, FieldError{
				Field:   field(i, "userId/teamId"),
				Message: "exactly one of userId and teamId must be set",
			})
		}
		if t.AccessLevel != "" && !accessLevels[t.AccessLevel] {
			errs = append(errs, FieldError{
				Field:   field(i, "accessLevel"),
				Message: "accessLevel must be READ or WRITE",
			})
		}
	}

	return errs
}

func field(i int, name string) string {
	return "targets[" + strconv.Itoa(i) + "]." + name
}
