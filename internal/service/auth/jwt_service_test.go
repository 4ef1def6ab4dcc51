package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/tasknotify/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

var fixedTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestService(secret string, now time.Time) *hmacJWTService {
	return &hmacJWTService{
		signingKey: []byte(secret),
		timeFunc:   func() time.Time { return now },
		clockSkew:  2 * time.Minute,
	}
}

// signToken mints a token the way the identity service does.
func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwtCustomClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(userID uuid.UUID, username string, issued time.Time, lifetime time.Duration) jwtCustomClaims {
	return jwtCustomClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(lifetime)),
			ID:        uuid.NewString(),
		},
	}
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	lifetime := time.Hour

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		now     time.Time
		secret  string
		wantErr error
	}{
		{
			name: "valid token",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(userID, "alice", fixedTime, lifetime))
			},
			now:    fixedTime.Add(time.Minute),
			secret: testSecret,
		},
		{
			name: "within clock skew after expiry",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(userID, "alice", fixedTime, lifetime))
			},
			now:    fixedTime.Add(lifetime + time.Minute),
			secret: testSecret,
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(userID, "alice", fixedTime, lifetime))
			},
			now:     fixedTime.Add(lifetime + time.Hour),
			secret:  testSecret,
			wantErr: ErrExpiredToken,
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				claims := validClaims(userID, "alice", fixedTime, lifetime)
				claims.NotBefore = jwt.NewNumericDate(fixedTime.Add(30 * time.Minute))
				return signToken(t, testSecret, jwt.SigningMethodHS256, claims)
			},
			now:     fixedTime,
			secret:  testSecret,
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "invalid signature",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(userID, "alice", fixedTime, lifetime))
			},
			now:     fixedTime,
			secret:  wrongSecret,
			wantErr: ErrInvalidToken,
		},
		{
			name: "disallowed algorithm",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS512, validClaims(userID, "alice", fixedTime, lifetime))
			},
			now:     fixedTime,
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			token: func(t *testing.T) string {
				return "this.is.not.a.valid.jwt.token"
			},
			now:     fixedTime,
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
		{
			name: "empty token",
			token: func(t *testing.T) string {
				return ""
			},
			now:     fixedTime,
			secret:  testSecret,
			wantErr: ErrMissingToken,
		},
		{
			name: "missing username",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(userID, "", fixedTime, lifetime))
			},
			now:     fixedTime,
			secret:  testSecret,
			wantErr: ErrMissingIdentity,
		},
		{
			name: "missing user id",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, jwt.SigningMethodHS256, validClaims(uuid.Nil, "alice", fixedTime, lifetime))
			},
			now:     fixedTime,
			secret:  testSecret,
			wantErr: ErrMissingIdentity,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newTestService(tt.secret, tt.now)

			claims, err := svc.ValidateToken(context.Background(), tt.token(t))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
			assert.Equal(t, "alice", claims.Username)
			assert.Equal(t, userID.String(), claims.Subject)
			assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
			assert.Equal(t, fixedTime.Add(lifetime).Unix(), claims.ExpiresAt.Unix())
			assert.NotEmpty(t, claims.ID)
			assert.Equal(t, RoleUser, claims.Role, "tokens without a role claim default to user")
		})
	}
}

func TestValidateTokenCarriesRole(t *testing.T) {
	t.Parallel()

	claims := validClaims(uuid.New(), "root", fixedTime, time.Hour)
	claims.Role = RoleAdmin
	token := signToken(t, testSecret, jwt.SigningMethodHS256, claims)

	got, err := newTestService(testSecret, fixedTime).ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, got.Role)
}
