package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/aussiebroadwan/collab/internal/api/domain"
	"github.com/aussiebroadwan/collab/internal/api/store"
	"github.com/aussiebroadwan/collab/pkg/cryptox"
	"github.com/aussiebroadwan/collab/pkg/idx"
	"github.com/aussiebroadwan/collab/pkg/slogx"
)

// MinPasswordLength is the shortest password registration accepts.
const MinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

// CredentialService is the username/password half of authentication.
type CredentialService struct {
	Store  store.Store
	Tokens *TokenService
	Now    func() time.Time
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string // optional
}

// Login authenticates username/password and issues a token pair. Unknown
// users, accounts without a usable password and wrong passwords are all
// ErrInvalidCredentials.
func (s *CredentialService) Login(ctx context.Context, username, password string) (*domain.TokenPair, domain.User, error) {
	l := slogx.FromContext(ctx)
	username = strings.TrimSpace(username)

	if username == "" || password == "" {
		return nil, domain.User{}, ErrInvalidCredentials
	}

	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			cryptox.VerifyDummy(password)
			l.Info("login failed", slog.String("reason", "unknown_user"))
			return nil, domain.User{}, ErrInvalidCredentials
		}
		return nil, domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		reason := "password_mismatch"
		if errors.Is(err, cryptox.ErrUnusablePassword) {
			cryptox.VerifyDummy(password)
			reason = "unusable_password"
		}
		l.Info("login failed", slog.String("reason", reason), slog.String("user_id", u.ID))
		return nil, domain.User{}, ErrInvalidCredentials
	}

	pair, err := s.Tokens.Issue(ctx, u)
	if err != nil {
		return nil, domain.User{}, err
	}

	l.Info("login succeeded", slog.String("user_id", u.ID))
	return pair, u, nil
}

// Register creates a password account. It never logs the user in.
//
// Role policy: omitted means member; creator and member may be chosen;
// anything else, admin included, is a validation error.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	l := slogx.FromContext(ctx)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))

	verr := &ValidationError{}

	switch {
	case in.Username == "":
		verr.Add("username", "This field is required.")
	case !usernamePattern.MatchString(in.Username):
		verr.Add("username", "Enter a valid username. Letters, digits and @/./+/-/_ only, up to 150 characters.")
	}

	if in.Email == "" {
		verr.Add("email", "This field is required.")
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		verr.Add("email", "Enter a valid email address.")
	}

	switch {
	case in.Password == "":
		verr.Add("password", "This field is required.")
	case len(in.Password) < MinPasswordLength:
		verr.Add("password", fmt.Sprintf("Ensure this field has at least %d characters.", MinPasswordLength))
	}

	role := domain.DefaultRole
	if in.Role != "" {
		r, err := domain.ParseRole(in.Role)
		if err != nil || !r.SelfAssignable() {
			verr.Add("role", fmt.Sprintf("%q is not a valid choice.", in.Role))
		} else {
			role = r
		}
	}

	if err := verr.OrNil(); err != nil {
		return domain.User{}, err
	}

	// Friendly duplicate messages; the unique constraints below are what
	// actually guarantee it.
	if _, err := s.Store.Users().GetUserByUsername(ctx, in.Username); err == nil {
		verr.Add("username", "A user with that username already exists.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}
	if _, err := s.Store.Users().GetUserByEmail(ctx, in.Email); err == nil {
		verr.Add("email", "A user with that email already exists.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}
	if err := verr.OrNil(); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			verr.Add("username", "A user with that username or email already exists.")
			return domain.User{}, verr
		}
		return domain.User{}, err
	}

	l.Info("user registered", slog.String("user_id", u.ID), slog.String("role", u.Role.String()))
	return u, nil
}

// User returns the profile for an authenticated subject. A subject that no
// longer exists is reported as ErrInvalidToken.
func (s *CredentialService) User(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrInvalidToken
	}
	return u, err
}

func (s *CredentialService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
