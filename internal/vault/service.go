package vault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jmeza44/team-vault-sub000/internal/audit"
	"github.com/jmeza44/team-vault-sub000/internal/crypto"
	"github.com/jmeza44/team-vault-sub000/internal/team"
	"github.com/jmeza44/team-vault-sub000/internal/user"
)

// CredentialView is a credential returned to an authorized reader: the
// decrypted secret plus the permissions the principal holds over it.
type CredentialView struct {
	Credential  *Credential
	Secret      string
	Permissions PermissionSet
}

// AuditLog reads back the audit trail recorded by the store.
type AuditLog interface {
	ListByCredential(ctx context.Context, credentialID uuid.UUID, limit int) ([]audit.Entry, error)
}

// Service orchestrates credential operations: it resolves permissions,
// transforms payloads through the cipher, and drives the store
// transactionally. Every completed mutation carries exactly one audit entry.
type Service struct {
	store  Store
	teams  team.Repository
	audits AuditLog
	cipher *crypto.Cipher

	linkTTL time.Duration
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a credential Service. linkTTL is the fixed lifetime of
// one-time links.
func NewService(store Store, teams team.Repository, audits AuditLog, cipher *crypto.Cipher, linkTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		store:   store,
		teams:   teams,
		audits:  audits,
		cipher:  cipher,
		linkTTL: linkTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create encrypts the secret and persists a new credential owned by the
// caller. RiskLevel defaults to MEDIUM.
func (s *Service) Create(ctx context.Context, owner *user.User, fields CreateFields) (*Credential, error) {
	blob, err := s.cipher.Encrypt([]byte(fields.Secret))
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	c := &Credential{
		OwnerID:         owner.ID,
		Name:            fields.Name,
		EncryptedSecret: blob,
		Username:        fields.Username,
		Description:     fields.Description,
		Category:        fields.Category,
		URL:             fields.URL,
		Tags:            fields.Tags,
		RiskLevel:       fields.RiskLevel,
		ExpirationDate:  fields.ExpirationDate,
	}

	entry := &audit.Entry{
		UserID:  owner.ID,
		Action:  audit.ActionCreateCredential,
		Details: map[string]any{"name": fields.Name},
	}

	if err := s.store.CreateCredential(ctx, c, entry); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	slog.Info("credential created", "credentialId", c.ID, "ownerId", owner.ID)
	return c, nil
}

// Get returns the credential with its decrypted secret. A credential that
// does not exist and one the principal may not view are reported identically
// as ErrCredentialNotFound.
func (s *Service) Get(ctx context.Context, principal *user.User, id uuid.UUID) (*CredentialView, error) {
	c, perms, err := s.authorize(ctx, principal, id)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	secret, err := s.cipher.Decrypt(c.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return &CredentialView{Credential: c, Secret: string(secret), Permissions: perms}, nil
}

// List returns the credentials visible to the principal, secrets excluded.
// Global admins see everything.
func (s *Service) List(ctx context.Context, principal *user.User) ([]Credential, error) {
	if principal.IsGlobalAdmin() {
		credentials, err := s.store.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		return credentials, nil
	}

	memberships, err := s.teams.ListForUser(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	teamIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		teamIDs = append(teamIDs, m.TeamID)
	}

	credentials, err := s.store.ListAccessible(ctx, principal.ID, teamIDs, s.now())
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return credentials, nil
}

// Update applies partial changes. A provided secret is re-encrypted with
// fresh salt and IV even if the plaintext is unchanged, and stamps
// LastRotated. Requires edit permission.
func (s *Service) Update(ctx context.Context, principal *user.User, id uuid.UUID, fields UpdateFields) (*Credential, error) {
	_, perms, err := s.authorize(ctx, principal, id)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	if !perms.CanEdit {
		return nil, fmt.Errorf("update: %w", ErrAccessDenied)
	}

	var encryptedSecret *string
	var rotatedAt *time.Time
	if fields.Secret != nil {
		blob, err := s.cipher.Encrypt([]byte(*fields.Secret))
		if err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		encryptedSecret = &blob
		now := s.now()
		rotatedAt = &now
	}

	entry := &audit.Entry{
		UserID:  principal.ID,
		Action:  audit.ActionUpdateCredential,
		Details: map[string]any{"secretRotated": encryptedSecret != nil},
	}

	c, err := s.store.UpdateCredential(ctx, id, fields, encryptedSecret, rotatedAt, entry)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	slog.Info("credential updated", "credentialId", id, "userId", principal.ID)
	return c, nil
}

// Delete removes the credential and cascades its shares and one-time links.
// Only the owner or a global admin may delete.
func (s *Service) Delete(ctx context.Context, principal *user.User, id uuid.UUID) error {
	_, perms, err := s.authorize(ctx, principal, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if !perms.CanDelete {
		return fmt.Errorf("delete: %w", ErrAccessDenied)
	}

	entry := &audit.Entry{
		UserID:       principal.ID,
		CredentialID: &id,
		Action:       audit.ActionDeleteCredential,
		Details:      map[string]any{},
	}

	if err := s.store.DeleteCredentialCascade(ctx, id, entry); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	slog.Info("credential deleted", "credentialId", id, "userId", principal.ID)
	return nil
}

// Share replaces the credential's share set with the given targets;
// recipients omitted from the list are revoked. Each target must name
// exactly one of a user or a team, and no recipient may appear twice.
func (s *Service) Share(ctx context.Context, principal *user.User, id uuid.UUID, targets []ShareTarget) ([]SharedCredential, error) {
	_, perms, err := s.authorize(ctx, principal, id)
	if err != nil {
		return nil, fmt.Errorf("share: %w", err)
	}
	if !perms.CanShare {
		return nil, fmt.Errorf("share: %w", ErrAccessDenied)
	}

	shares, err := buildShares(id, principal.ID, targets)
	if err != nil {
		return nil, fmt.Errorf("share: %w", err)
	}

	entry := &audit.Entry{
		UserID:  principal.ID,
		Action:  audit.ActionShareCredential,
		Details: map[string]any{"recipients": len(shares)},
	}

	if err := s.store.ReplaceShares(ctx, id, shares, entry); err != nil {
		return nil, fmt.Errorf("share: %w", err)
	}

	slog.Info("credential shared", "credentialId", id, "userId", principal.ID, "recipients", len(shares))
	return shares, nil
}

// Unshare deletes a single share row. Fails with ErrShareNotFound when the
// share does not belong to this credential.
func (s *Service) Unshare(ctx context.Context, principal *user.User, id, shareID uuid.UUID) error {
	_, perms, err := s.authorize(ctx, principal, id)
	if err != nil {
		return fmt.Errorf("unshare: %w", err)
	}
	if !perms.CanShare {
		return fmt.Errorf("unshare: %w", ErrAccessDenied)
	}

	entry := &audit.Entry{
		UserID:  principal.ID,
		Action:  audit.ActionUnshareCredential,
		Details: map[string]any{"shareId": shareID.String()},
	}

	if err := s.store.DeleteShare(ctx, id, shareID, entry); err != nil {
		return fmt.Errorf("unshare: %w", err)
	}

	return nil
}

// CreateOneTimeLink mints an unguessable bearer token for the credential,
// valid once until the configured TTL elapses. View access is sufficient.
func (s *Service) CreateOneTimeLink(ctx context.Context, principal *user.User, id uuid.UUID) (*OneTimeLink, error) {
	_, _, err := s.authorize(ctx, principal, id)
	if err != nil {
		return nil, fmt.Errorf("create one-time link: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("create one-time link: %w", err)
	}

	l := &OneTimeLink{
		CredentialID: id,
		Token:        token,
		AccessLevel:  AccessRead,
		CreatedByID:  principal.ID,
		ExpiresAt:    s.now().Add(s.linkTTL),
	}

	entry := &audit.Entry{
		UserID:  principal.ID,
		Action:  audit.ActionCreateOneTimeLink,
		Details: map[string]any{"expiresAt": l.ExpiresAt.UTC().Format(time.RFC3339)},
	}

	if err := s.store.CreateOneTimeLink(ctx, l, entry); err != nil {
		return nil, fmt.Errorf("create one-time link: %w", err)
	}

	slog.Info("one-time link created", "credentialId", id, "userId", principal.ID)
	return l, nil
}

// RedeemOneTimeLink consumes a bearer token and returns the decrypted secret.
// Used and expired tokens fail identically to unknown ones.
func (s *Service) RedeemOneTimeLink(ctx context.Context, token string) (*CredentialView, error) {
	link, err := s.store.RedeemOneTimeLink(ctx, token, s.now())
	if err != nil {
		return nil, fmt.Errorf("redeem one-time link: %w", err)
	}

	c, err := s.store.GetCredential(ctx, link.CredentialID)
	if err != nil {
		return nil, fmt.Errorf("redeem one-time link: %w", err)
	}

	secret, err := s.cipher.Decrypt(c.EncryptedSecret)
	if err != nil {
		return nil, fmt.Errorf("redeem one-time link: %w", err)
	}

	slog.Info("one-time link redeemed", "credentialId", c.ID)
	return &CredentialView{
		Credential:  c,
		Secret:      string(secret),
		Permissions: PermissionSet{CanView: true},
	}, nil
}

// AuditTrail returns the credential's audit entries, newest first. Reading
// the trail is restricted to the owner and global admins; share grantees see
// the credential but not its history.
func (s *Service) AuditTrail(ctx context.Context, principal *user.User, id uuid.UUID, limit int) ([]audit.Entry, error) {
	_, perms, err := s.authorize(ctx, principal, id)
	if err != nil {
		return nil, fmt.Errorf("audit trail: %w", err)
	}
	if !perms.CanDelete {
		return nil, fmt.Errorf("audit trail: %w", ErrAccessDenied)
	}

	entries, err := s.audits.ListByCredential(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("audit trail: %w", err)
	}
	return entries, nil
}

// authorize loads the credential and resolves the principal's permissions.
// Absent rows and rows without view permission both come back as
// ErrCredentialNotFound.
func (s *Service) authorize(ctx context.Context, principal *user.User, id uuid.UUID) (*Credential, PermissionSet, error) {
	c, err := s.store.GetCredential(ctx, id)
	if err != nil {
		return nil, PermissionSet{}, err
	}

	shares, err := s.store.ListShares(ctx, id)
	if err != nil {
		return nil, PermissionSet{}, err
	}

	memberships, err := s.teams.ListForUser(ctx, principal.ID)
	if err != nil {
		return nil, PermissionSet{}, err
	}

	perms := Resolve(principal, c, shares, memberships, s.now())
	if !perms.CanView {
		return nil, PermissionSet{}, ErrCredentialNotFound
	}

	return c, perms, nil
}

// buildShares validates targets and converts them to rows. Validation runs
// before any row is written.
func buildShares(credentialID, createdByID uuid.UUID, targets []ShareTarget) ([]SharedCredential, error) {
	seen := make(map[uuid.UUID]bool, len(targets))
	shares := make([]SharedCredential, 0, len(targets))

	for _, t := range targets {
		if (t.UserID == nil) == (t.TeamID == nil) {
			return nil, ErrInvalidShareTarget
		}

		var recipient uuid.UUID
		if t.UserID != nil {
			recipient = *t.UserID
		} else {
			recipient = *t.TeamID
		}
		if seen[recipient] {
			return nil, ErrDuplicateShare
		}
		seen[recipient] = true

		level := t.AccessLevel
		if level == "" {
			level = AccessRead
		}

		shares = append(shares, SharedCredential{
			CredentialID:     credentialID,
			SharedWithUserID: t.UserID,
			SharedWithTeamID: t.TeamID,
			AccessLevel:      level,
			CreatedByID:      createdByID,
			ExpiresAt:        t.ExpiresAt,
		})
	}

	return shares, nil
}

// generateToken returns an unguessable URL-safe token for one-time links.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token bytes: %w", err)
	}
	return "tvl_" + base64.RawURLEncoding.EncodeToString(b), nil
}
