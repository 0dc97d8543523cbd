package service

import (
	"context"
	"net/mail"
	"sort"
	"strings"

	"basmah/internal/domain"
	"basmah/internal/models"
	"basmah/internal/repository"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type UserAdminService struct {
	st           repository.Stores
	passwordCost int
}

func NewUserAdminService(st repository.Stores) *UserAdminService {
	return &UserAdminService{st: st, passwordCost: bcrypt.DefaultCost}
}

func (s *UserAdminService) WithStores(st repository.Stores) *UserAdminService {
	c := *s
	c.st = st
	return &c
}

type NewUser struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     string
}

// CreateUser registers an account with a hashed password and returns its profile.
func (s *UserAdminService) CreateUser(ctx context.Context, in NewUser) (*models.Profile, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, errors.Wrapf(ErrInvalidInput, "password must be at least %d characters", minPasswordLength)
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, errors.Wrapf(ErrInvalidInput, "role %q", role)
	}
	existing, err := s.st.Profiles().FindByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "lookup email")
	}
	if len(existing) > 0 {
		return nil, ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.passwordCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	p := &models.Profile{
		Email:         email,
		Phone:         strings.TrimSpace(in.Phone),
		FullName:      strings.TrimSpace(in.FullName),
		Role:          role,
		AccountStatus: domain.AccountActive,
		PasswordHash:  string(hash),
	}
	if err := s.st.Profiles().Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create profile")
	}
	return p, nil
}

// UserPatch lists the editable profile fields. Nil fields are left unchanged.
type UserPatch struct {
	FullName *string
	Phone    *string
	Email    *string
	Role     *string
}

// UpdateUser applies patch and returns the updated profile with the names of
// the columns that actually changed.
func (s *UserAdminService) UpdateUser(ctx context.Context, id string, patch UserPatch) (*models.Profile, []string, error) {
	p, err := s.st.Profiles().GetByID(ctx, id)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "profile %s", id)
	}
	fields := map[string]interface{}{}
	if patch.FullName != nil && strings.TrimSpace(*patch.FullName) != p.FullName {
		fields["full_name"] = strings.TrimSpace(*patch.FullName)
	}
	if patch.Phone != nil && strings.TrimSpace(*patch.Phone) != p.Phone {
		fields["phone"] = strings.TrimSpace(*patch.Phone)
	}
	if patch.Role != nil && *patch.Role != p.Role {
		if *patch.Role != domain.RoleUser && *patch.Role != domain.RoleAdmin {
			return nil, nil, errors.Wrapf(ErrInvalidInput, "role %q", *patch.Role)
		}
		fields["role"] = *patch.Role
	}
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, nil, err
		}
		if !strings.EqualFold(email, p.Email) {
			others, err := s.st.Profiles().FindByEmail(ctx, email)
			if err != nil {
				return nil, nil, errors.Wrap(err, "lookup email")
			}
			if len(others) > 0 {
				return nil, nil, ErrEmailTaken
			}
			fields["email"] = email
		}
	}
	if len(fields) == 0 {
		return nil, nil, errors.Wrap(ErrInvalidInput, "nothing to update")
	}
	if err := s.st.Profiles().Update(ctx, id, fields); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, errors.Wrap(err, "update profile")
	}
	changed := make([]string, 0, len(fields))
	for k := range fields {
		changed = append(changed, k)
	}
	sort.Strings(changed)
	updated, err := s.st.Profiles().GetByID(ctx, id)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reload profile")
	}
	return updated, changed, nil
}

// SetAccountStatus moves the account to status and returns the previous one.
func (s *UserAdminService) SetAccountStatus(ctx context.Context, id, status string) (*models.Profile, string, error) {
	switch status {
	case domain.AccountActive, domain.AccountBlocked, domain.AccountDeactivated:
	default:
		return nil, "", errors.Wrapf(ErrInvalidInput, "account status %q", status)
	}
	p, err := s.st.Profiles().GetByID(ctx, id)
	if err != nil {
		return nil, "", errors.Wrapf(err, "profile %s", id)
	}
	prev := p.AccountStatus
	if err := s.st.Profiles().Update(ctx, id, map[string]interface{}{"account_status": status}); err != nil {
		return nil, "", errors.Wrap(err, "update account status")
	}
	p.AccountStatus = status
	return p, prev, nil
}

// DeleteAccount soft-deletes the profile. Bookings and ledger rows are kept.
func (s *UserAdminService) DeleteAccount(ctx context.Context, id string) (*models.Profile, error) {
	p, err := s.st.Profiles().GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "profile %s", id)
	}
	if err := s.st.Profiles().Delete(ctx, id); err != nil {
		return nil, errors.Wrap(err, "delete profile")
	}
	return p, nil
}

// Authenticate checks admin credentials for the login endpoint.
func (s *UserAdminService) Authenticate(ctx context.Context, email, password string) (*models.Profile, error) {
	matches, err := s.st.Profiles().FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, errors.Wrap(err, "lookup email")
	}
	if len(matches) != 1 || matches[0].PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	p := matches[0]
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if p.Role != domain.RoleAdmin {
		return nil, ErrInvalidCredentials
	}
	if p.AccountStatus != domain.AccountActive {
		return nil, ErrAccountDisabled
	}
	return &p, nil
}

func (s *UserAdminService) Get(ctx context.Context, id string) (*models.Profile, error) {
	return s.st.Profiles().GetByID(ctx, id)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.Wrapf(ErrInvalidInput, "email %q", raw)
	}
	return email, nil
}
