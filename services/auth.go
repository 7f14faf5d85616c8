package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/lborres/tala/core"
	"github.com/lborres/tala/internal/logging"
	"github.com/lborres/tala/pkg/crypto"
	"github.com/lborres/tala/pkg/errutil"
)

// AuthService is the policy layer between the HTTP surface and the stores.
// Every data-returning call goes through Authenticate or Profile first.
type AuthService struct {
	identities     core.IdentityStorage
	passwordHasher crypto.PasswordHandler
	sessionManager *SessionManager
	metrics        *Metrics
	log            *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

func NewAuthService(identities core.IdentityStorage, passwordHasher crypto.PasswordHandler, sessionManager *SessionManager, metrics *Metrics, logger *slog.Logger) *AuthService {
	return &AuthService{
		identities:     identities,
		passwordHasher: passwordHasher,
		sessionManager: sessionManager,
		metrics:        metrics,
		log:            logging.OrDefault(logger),
	}
}

// SignUp registers a new identity. Email uniqueness is left to the store.
func (s *AuthService) SignUp(ctx context.Context, input core.SignUpInput) (_ *core.PublicIdentity, err error) {
	defer func() { s.metrics.observeAuth("signup", err) }()

	if err := input.Validate(); err != nil {
		return nil, oops.Code("AUTH_INVALID_INPUT").With("validation", err.Error()).Wrap(core.ErrInvalidInput)
	}

	// Step 1: Check if username already exists
	_, err = s.identities.GetIdentityByUsername(ctx, input.Username)
	if err == nil {
		return nil, oops.Code("AUTH_USERNAME_TAKEN").With("username", input.Username).Wrap(core.ErrUsernameTaken)
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return nil, oops.Code("IDENTITY_LOOKUP_FAILED").With("username", input.Username).Wrap(err)
	}

	// Step 2: Hash the password
	hash, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, oops.Code("PASSWORD_HASH_FAILED").Wrap(err)
	}

	// Step 3: Create the identity
	identity, err := s.identities.CreateIdentity(ctx, &core.Identity{
		Username:     input.Username,
		PasswordHash: hash,
		Email:        input.EmailOrNil(),
	})
	if err != nil {
		code := "IDENTITY_CREATE_FAILED"
		if errors.Is(err, core.ErrDuplicateIdentity) {
			code = "AUTH_IDENTITY_CONFLICT"
		}
		return nil, oops.Code(code).With("username", input.Username).Wrap(err)
	}

	s.log.InfoContext(ctx, "identity created", "username", identity.Username)
	return identity, nil
}

// Login authenticates by username or email and issues a session.
// Unknown identifiers and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, input core.LoginInput, ipAddress, userAgent string) (_ *core.LoginResult, err error) {
	defer func() { s.metrics.observeAuth("login", err) }()

	if err := input.Validate(); err != nil {
		return nil, oops.Code("AUTH_INVALID_INPUT").With("validation", err.Error()).Wrap(core.ErrInvalidInput)
	}

	// Step 1: Find the identity
	identity, err := s.identities.GetIdentityByUsernameOrEmail(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			s.burnVerify(input.Password)
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(core.ErrInvalidCredentials)
		}
		return nil, oops.Code("IDENTITY_LOOKUP_FAILED").Wrap(err)
	}

	// Step 2: Verify the password
	valid, err := s.passwordHasher.Verify(input.Password, identity.PasswordHash)
	if err != nil {
		return nil, oops.Code("AUTH_DIGEST_INVALID").With("username", identity.Username).Wrap(err)
	}
	if !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(core.ErrInvalidCredentials)
	}

	// Step 3: Issue a session
	issued, err := s.sessionManager.Issue(ctx, identity.Username, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	return &core.LoginResult{
		Identity:  identity.Public(),
		Token:     issued.Token,
		ExpiresAt: issued.Session.ExpiresAt,
	}, nil
}

// Logout destroys the session. It never fails; store errors are logged.
func (s *AuthService) Logout(ctx context.Context, token string) {
	err := s.sessionManager.Destroy(ctx, token)
	if err != nil {
		errutil.LogError(s.log, "logout", err)
	}
	s.metrics.observeAuth("logout", err)
}

// Authenticate resolves token to the identity it belongs to. Sessions whose
// identity no longer exists are destroyed and reported as unauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) (_ *core.PublicIdentity, err error) {
	defer func() { s.metrics.observeAuth("authenticate", err) }()

	identity, err := s.resolveIdentity(ctx, token)
	if errors.Is(err, core.ErrUserNotFound) {
		return nil, oops.Code("SESSION_DANGLING").Wrap(core.ErrUnauthenticated)
	}
	return identity, err
}

// Profile is Authenticate for the caller's own profile: a vanished identity
// is reported as core.ErrUserNotFound after its session is destroyed.
func (s *AuthService) Profile(ctx context.Context, token string) (_ *core.PublicIdentity, err error) {
	defer func() { s.metrics.observeAuth("profile", err) }()

	return s.resolveIdentity(ctx, token)
}

func (s *AuthService) resolveIdentity(ctx context.Context, token string) (*core.PublicIdentity, error) {
	session, err := s.sessionManager.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(core.ErrUnauthenticated)
		}
		return nil, err
	}

	identity, err := s.identities.GetPublicIdentity(ctx, session.Username)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			if derr := s.sessionManager.Destroy(ctx, token); derr != nil {
				errutil.LogError(s.log, "destroy dangling session", derr)
			}
			s.log.WarnContext(ctx, "session referenced a missing identity", "username", session.Username, "session_id", session.ID)
			return nil, oops.Code("IDENTITY_GONE").With("username", session.Username).Wrap(core.ErrUserNotFound)
		}
		return nil, oops.Code("IDENTITY_LOOKUP_FAILED").With("username", session.Username).Wrap(err)
	}

	return identity, nil
}

// burnVerify runs a verification against a throwaway digest so that unknown
// identifiers take as long as wrong passwords.
func (s *AuthService) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.passwordHasher.Hash("tala-timing-equaliser")
		if err != nil {
			errutil.LogError(s.log, "build dummy digest", err)
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.passwordHasher.Verify(password, s.dummyHash)
	}
}
