package auth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/splitledger/splitledger/internal/shared"
)

// AuthResult is the payload of a successful register or login: the account
// plus a fresh token pair.
type AuthResult struct {
	User         *User
	AccessToken  string
	RefreshToken string
}

// Service implements account and session business rules.
type Service struct {
	repo       Repository
	tokens     *TokenIssuer
	denylist   Denylist
	bcryptCost int
	now        func() time.Time
}

// NewService constructs an auth Service.
func NewService(repo Repository, tokens *TokenIssuer, denylist Denylist, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, tokens: tokens, denylist: denylist, bcryptCost: bcryptCost, now: time.Now}
}

func (s *Service) issueTokenPair(ctx context.Context, userID int64) (access, refresh string, err error) {
	access, _, err = s.tokens.IssueAccessToken(userID)
	if err != nil {
		return "", "", err
	}
	raw, hash, err := s.tokens.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	now := s.now().UTC()
	err = s.repo.InsertRefreshToken(ctx, &RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.tokens.RefreshTTL()),
		CreatedAt: now,
	})
	if err != nil {
		return "", "", err
	}
	return access, raw, nil
}

// Register creates an account and signs the user in.
func (s *Service) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	existing, err := s.repo.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.FieldErrorf(shared.CodeDuplicateEmail, http.StatusConflict, "email",
			"The email address %q is already registered.", email)
	}

	existing, err = s.repo.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.FieldErrorf(shared.CodeDuplicateUsername, http.StatusConflict, "username",
			"The username %q is already taken.", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.InsertUser(ctx, user); err != nil {
		return nil, err
	}

	access, refresh, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Login validates credentials and issues a new token pair. Unknown
// usernames and wrong passwords return the same error so usernames cannot
// be enumerated.
func (s *Service) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.repo.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, shared.Errorf(shared.CodeInvalidCredentials, http.StatusUnauthorized,
			"The username or password is incorrect.")
	}

	access, refresh, err := s.issueTokenPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated; it stays valid until it expires or
// logout revokes it.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string) (string, error) {
	record, err := s.repo.RefreshTokenByHash(ctx, HashToken(rawRefreshToken))
	if err != nil {
		return "", err
	}
	if record == nil || record.Revoked || !record.ExpiresAt.After(s.now().UTC()) {
		return "", shared.Errorf(shared.CodeRefreshTokenInvalid, http.StatusUnauthorized,
			"The refresh token is invalid, expired, or has been revoked.")
	}

	access, _, err := s.tokens.IssueAccessToken(record.UserID)
	if err != nil {
		return "", err
	}
	return access, nil
}

// Logout revokes the refresh token and denylists the presenting access
// token's jti for its remaining lifetime, killing both halves of the
// session at once.
func (s *Service) Logout(ctx context.Context, rawRefreshToken string, access Claims) error {
	record, err := s.repo.RefreshTokenByHash(ctx, HashToken(rawRefreshToken))
	if err != nil {
		return err
	}
	if record == nil || record.Revoked {
		return shared.Errorf(shared.CodeRefreshTokenInvalid, http.StatusUnauthorized,
			"The refresh token is invalid or has already been revoked.")
	}
	if err := s.repo.RevokeRefreshToken(ctx, record.ID); err != nil {
		return err
	}

	if access.JTI != "" {
		ttl := access.ExpiresAt.Sub(s.now().UTC())
		if err := s.denylist.Add(ctx, access.JTI, ttl); err != nil {
			return err
		}
	}
	return nil
}

// CurrentUser returns the account for an authenticated user ID.
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*User, error) {
	user, err := s.repo.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.Errorf(shared.CodeUserNotFound, http.StatusNotFound, "User %d does not exist.", userID)
	}
	return user, nil
}

// UserByUsername resolves a username to an account, for clients that need
// an ID before calling ID-based endpoints such as add-member.
func (s *Service) UserByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.repo.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.Errorf(shared.CodeUserNotFound, http.StatusNotFound, "User %q not found.", username)
	}
	return user, nil
}

// PurgeDeadTokens removes expired and revoked refresh tokens. Called by
// the background worker.
func (s *Service) PurgeDeadTokens(ctx context.Context) (int64, error) {
	return s.repo.DeleteDeadRefreshTokens(ctx, s.now().UTC())
}
