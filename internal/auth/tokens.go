package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/splitledger/splitledger/internal/shared"
)

// Claims is the decoded identity carried by an access token.
type Claims struct {
	UserID    int64
	JTI       string
	ExpiresAt time.Time
}

// TokenIssuer mints and verifies the two token kinds: short-lived HS256
// JWTs for requests, and opaque random refresh tokens stored hashed.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret []byte, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// RefreshTTL returns how long issued refresh tokens live.
func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.refreshTTL
}

// IssueAccessToken signs a JWT for the user. The jti claim makes every
// token unique even within the same second, which the logout denylist
// relies on.
func (t *TokenIssuer) IssueAccessToken(userID int64) (string, Claims, error) {
	jti := uuid.NewString()

	now := t.now().UTC()
	expiry := now.Add(t.accessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(expiry),
		"jti": jti,
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, Claims{UserID: userID, JTI: jti, ExpiresAt: expiry}, nil
}

// ParseAccessToken verifies signature and expiry. Expired tokens get their
// own code so clients know to refresh instead of re-authenticating.
func (t *TokenIssuer) ParseAccessToken(raw string) (Claims, error) {
	token, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, shared.Errorf(shared.CodeTokenExpired, http.StatusUnauthorized, "The access token has expired.")
		}
		return Claims{}, shared.Errorf(shared.CodeTokenInvalid, http.StatusUnauthorized, "The access token is invalid.")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, shared.Errorf(shared.CodeTokenInvalid, http.StatusUnauthorized, "The access token is invalid.")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return Claims{}, shared.Errorf(shared.CodeTokenInvalid, http.StatusUnauthorized, "The access token is invalid.")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Claims{}, shared.Errorf(shared.CodeTokenInvalid, http.StatusUnauthorized, "The access token is invalid.")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, shared.Errorf(shared.CodeTokenInvalid, http.StatusUnauthorized, "The access token is invalid.")
	}
	jti, _ := claims["jti"].(string)

	return Claims{UserID: userID, JTI: jti, ExpiresAt: exp.Time}, nil
}

// NewRefreshToken generates a raw refresh token and its storage hash. The
// raw value goes to the client exactly once.
func (t *TokenIssuer) NewRefreshToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("auth: generate refresh token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashToken(raw), nil
}

// HashToken returns the SHA-256 hex digest used to look up stored refresh
// tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
