package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/splitledger/splitledger/internal/shared"
)

type fakeRepo struct {
	nextUserID  int64
	users       map[int64]*User
	nextTokenID int64
	tokens      map[string]*RefreshToken
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]*User{}, tokens: map[string]*RefreshToken{}}
}

func (f *fakeRepo) InsertUser(_ context.Context, u *User) error {
	f.nextUserID++
	u.ID = f.nextUserID
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeRepo) UserByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) UserByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range f.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) UserByID(_ context.Context, id int64) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (f *fakeRepo) InsertRefreshToken(_ context.Context, t *RefreshToken) error {
	f.nextTokenID++
	t.ID = f.nextTokenID
	clone := *t
	f.tokens[t.TokenHash] = &clone
	return nil
}

func (f *fakeRepo) RefreshTokenByHash(_ context.Context, hash string) (*RefreshToken, error) {
	t, ok := f.tokens[hash]
	if !ok {
		return nil, nil
	}
	clone := *t
	return &clone, nil
}

func (f *fakeRepo) RevokeRefreshToken(_ context.Context, id int64) error {
	for _, t := range f.tokens {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (f *fakeRepo) DeleteDeadRefreshTokens(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for hash, t := range f.tokens {
		if t.Revoked || !t.ExpiresAt.After(before) {
			delete(f.tokens, hash)
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *RedisDenylist) {
	t.Helper()
	mr := miniredis.RunT(t)
	denylist := NewRedisDenylist(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	repo := newFakeRepo()
	// Low bcrypt cost keeps the suite fast.
	svc := NewService(repo, testIssuer(), denylist, 4)
	return svc, repo, denylist
}

func requireAppError(t *testing.T, err error, code string, status int) {
	t.Helper()
	var appErr *shared.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, code, appErr.Code)
	require.Equal(t, status, appErr.Status)
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "alice", "alice@example.com", "correct horse")
	require.NoError(t, err)
	require.NotZero(t, res.User.ID)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)
	require.NotEqual(t, "correct horse", res.User.PasswordHash)

	logged, err := svc.Login(ctx, "alice", "correct horse")
	require.NoError(t, err)
	require.Equal(t, res.User.ID, logged.User.ID)
}

func TestRegisterDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice2", "alice@example.com", "password1")
	requireAppError(t, err, shared.CodeDuplicateEmail, http.StatusConflict)

	_, err = svc.Register(ctx, "alice", "other@example.com", "password1")
	requireAppError(t, err, shared.CodeDuplicateUsername, http.StatusConflict)
}

func TestLoginBadCredentialsIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "alice", "nope")
	_, unknownUser := svc.Login(ctx, "mallory", "nope")

	requireAppError(t, wrongPassword, shared.CodeInvalidCredentials, http.StatusUnauthorized)
	requireAppError(t, unknownUser, shared.CodeInvalidCredentials, http.StatusUnauthorized)
	require.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	res, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
	require.NoError(t, err)

	access, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, access)

	// Not rotated: the same refresh token works again.
	_, err = svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsUnknownAndExpired(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	res, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, "no-such-token")
	requireAppError(t, err, shared.CodeRefreshTokenInvalid, http.StatusUnauthorized)

	repo.tokens[HashToken(res.RefreshToken)].ExpiresAt = time.Now().Add(-time.Minute)
	_, err = svc.Refresh(ctx, res.RefreshToken)
	requireAppError(t, err, shared.CodeRefreshTokenInvalid, http.StatusUnauthorized)
}

func TestLogoutRevokesBothTokenHalves(t *testing.T) {
	svc, _, denylist := newTestService(t)
	ctx := context.Background()
	res, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
	require.NoError(t, err)

	claims, err := svc.tokens.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.RefreshToken, claims))

	// Refresh token is dead.
	_, err = svc.Refresh(ctx, res.RefreshToken)
	requireAppError(t, err, shared.CodeRefreshTokenInvalid, http.StatusUnauthorized)

	// Access token jti is denylisted for its remaining lifetime.
	denied, err := denylist.Contains(ctx, claims.JTI)
	require.NoError(t, err)
	require.True(t, denied)

	// A second logout with the same refresh token fails.
	err = svc.Logout(ctx, res.RefreshToken, claims)
	requireAppError(t, err, shared.CodeRefreshTokenInvalid, http.StatusUnauthorized)
}

func TestPurgeDeadTokens(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "bob@example.com", "password1")
	require.NoError(t, err)

	repo.tokens[HashToken(a.RefreshToken)].ExpiresAt = time.Now().Add(-time.Hour)

	n, err := svc.PurgeDeadTokens(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Len(t, repo.tokens, 1)
}

func TestCurrentUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	res, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
	require.NoError(t, err)

	user, err := svc.CurrentUser(ctx, res.User.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)

	_, err = svc.CurrentUser(ctx, 999)
	requireAppError(t, err, shared.CodeUserNotFound, http.StatusNotFound)
}

func TestUserByUsername(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	res, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
	require.NoError(t, err)

	user, err := svc.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, res.User.ID, user.ID)
	require.Equal(t, "alice@example.com", user.Email)

	_, err = svc.UserByUsername(ctx, "nobody")
	requireAppError(t, err, shared.CodeUserNotFound, http.StatusNotFound)
}
