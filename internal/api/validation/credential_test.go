package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmeza44/team-vault-sub000/internal/api/validation"
)

func TestValidateCreateCredentialRequest_Valid(t *testing.T) {
	errs := validation.ValidateCreateCredentialRequest(validation.CreateCredentialRequest{
		Name:      "prod db password",
		Secret:    "s3cr3t!",
		RiskLevel: "HIGH",
	})
	assert.Empty(t, errs)
}

func TestValidateCreateCredentialRequest_RiskLevelOptional(t *testing.T) {
	errs := validation.ValidateCreateCredentialRequest(validation.CreateCredentialRequest{
		Name:   "prod db password",
		Secret: "s3cr3t!",
	})
	assert.Empty(t, errs)
}

func TestValidateCreateCredentialRequest_MissingFields(t *testing.T) {
	errs := validation.ValidateCreateCredentialRequest(validation.CreateCredentialRequest{})

	require.Len(t, errs, 2)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "secret", errs[1].Field)
}

func TestValidateCreateCredentialRequest_BlankNameRejected(t *testing.T) {
	errs := validation.ValidateCreateCredentialRequest(validation.CreateCredentialRequest{
		Name:   "   ",
		Secret: "s3cr3t!",
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "name", errs[0].Field)
}

func TestValidateCreateCredentialRequest_NameTooLong(t *testing.T) {
	errs := validation.ValidateCreateCredentialRequest(validation.CreateCredentialRequest{
		Name:   strings.Repeat("n", 256),
		Secret: "s3cr3t!",
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "name", errs[0].Field)
}

func TestValidateCreateCredentialRequest_BadRiskLevel(t *testing.T) {
	errs := validation.ValidateCreateCredentialRequest(validation.CreateCredentialRequest{
		Name:      "prod db password",
		Secret:    "s3cr3t!",
		RiskLevel: "SEVERE",
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "riskLevel", errs[0].Field)
}

func TestValidateShareRequest_Valid(t *testing.T) {
	errs := validation.ValidateShareRequest([]validation.ShareTargetRequest{
		{UserID: "5e2f", AccessLevel: "READ"},
		{TeamID: "9a1c", AccessLevel: "WRITE"},
		{TeamID: "77b0"}, // level defaults downstream
	})
	assert.Empty(t, errs)
}

func TestValidateShareRequest_BothTargetsSet(t *testing.T) {
	errs := validation.ValidateShareRequest([]validation.ShareTargetRequest{
		{UserID: "5e2f", TeamID: "9a1c", AccessLevel: "READ"},
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "targets[0].userId/teamId", errs[0].Field)
}

func TestValidateShareRequest_NeitherTargetSet(t *testing.T) {
	errs := validation.ValidateShareRequest([]validation.ShareTargetRequest{
		{AccessLevel: "READ"},
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "targets[0].userId/teamId", errs[0].Field)
}

func TestValidateShareRequest_BadAccessLevel(t *testing.T) {
	errs := validation.ValidateShareRequest([]validation.ShareTargetRequest{
		{UserID: "5e2f", AccessLevel: "ADMIN"},
	})

	require.Len(t, errs, 1)
	assert.Equal(t, "targets[0].accessLevel", errs[0].Field)
}

func TestValidateShareRequest_IndexesEachTarget(t *testing.T) {
	errs := validation.ValidateShareRequest([]validation.ShareTargetRequest{
		{UserID: "5e2f", AccessLevel: "READ"},
		{AccessLevel: "OWNER"},
	})

	require.Len(t, errs, 2)
	assert.Equal(t, "targets[1].userId/teamId", errs[0].Field)
	assert.Equal(t, "targets[1].accessLevel", errs[1].Field)
}

func TestValidateCreateTeamRequest(t *testing.T) {
	assert.Empty(t, validation.ValidateCreateTeamRequest(validation.CreateTeamRequest{Name: "platform"}))

	errs := validation.ValidateCreateTeamRequest(validation.CreateTeamRequest{Name: " "})
	require.Len(t, errs, 1)
	assert.Equal(t, "name", errs[0].Field)
}

func TestValidateCreateUserRequest(t *testing.T) {
	assert.Empty(t, validation.ValidateCreateUserRequest(validation.CreateUserRequest{Email: "u@example.com"}))
	assert.Empty(t, validation.ValidateCreateUserRequest(validation.CreateUserRequest{Email: "u@example.com", Role: "TEAM_ADMIN"}))

	errs := validation.ValidateCreateUserRequest(validation.CreateUserRequest{Email: "not-an-address"})
	require.Len(t, errs, 1)
	assert.Equal(t, "email", errs[0].Field)

	errs = validation.ValidateCreateUserRequest(validation.CreateUserRequest{Email: "u@example.com", Role: "SUPERUSER"})
	require.Len(t, errs, 1)
	assert.Equal(t, "role", errs[0].Field)
}

func TestValidateUserRole(t *testing.T) {
	assert.Empty(t, validation.ValidateUserRole("USER"))
	assert.Empty(t, validation.ValidateUserRole("GLOBAL_ADMIN"))

	errs := validation.ValidateUserRole("")
	require.Len(t, errs, 1)
	assert.Equal(t, "role", errs[0].Field)
}

func TestValidateMembershipRole(t *testing.T) {
	assert.Empty(t, validation.ValidateMembershipRole("MEMBER"))
	assert.Empty(t, validation.ValidateMembershipRole("ADMIN"))

	errs := validation.ValidateMembershipRole("OWNER")
	require.Len(t, errs, 1)
	assert.Equal(t, "role", errs[0].Field)
}
