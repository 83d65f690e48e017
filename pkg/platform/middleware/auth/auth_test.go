package auth

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acip/pkg/requestcontext"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, claims ReviewerClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return signed
}

func TestTokenVerifier(t *testing.T) {
	verifier := NewTokenVerifier(testSigningKey)

	t.Run("valid token returns claims", func(t *testing.T) {
		signed := signToken(t, ReviewerClaims{
			Role: "compliance_officer",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "reviewer-sarah",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		claims, err := verifier.Verify(signed)
		require.NoError(t, err)
		assert.Equal(t, "reviewer-sarah", claims.Subject)
		assert.Equal(t, "compliance_officer", claims.Role)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		signed := signToken(t, ReviewerClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "reviewer-sarah",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})

		_, err := verifier.Verify(signed)
		assert.Error(t, err)
	})

	t.Run("token signed with wrong key is rejected", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, ReviewerClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "reviewer-sarah"},
		})
		signed, err := token.SignedString([]byte("other-key"))
		require.NoError(t, err)

		_, err = verifier.Verify(signed)
		assert.Error(t, err)
	})

	t.Run("token without subject is rejected", func(t *testing.T) {
		signed := signToken(t, ReviewerClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		_, err := verifier.Verify(signed)
		assert.Error(t, err)
	})
}

func TestRequireReviewer(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	verifier := NewTokenVerifier(testSigningKey)

	newHandler := func(capturedActor *string) http.Handler {
		return RequireReviewer(verifier, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*capturedActor = requestcontext.Actor(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
	}

	t.Run("valid bearer token populates actor", func(t *testing.T) {
		var actor string
		signed := signToken(t, ReviewerClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "reviewer-sarah",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})

		req := httptest.NewRequest(http.MethodPost, "/cases/1/approve", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		w := httptest.NewRecorder()
		newHandler(&actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "reviewer-sarah", actor)
	})

	t.Run("missing authorization header returns 401", func(t *testing.T) {
		var actor string
		req := httptest.NewRequest(http.MethodPost, "/cases/1/approve", nil)
		w := httptest.NewRecorder()
		newHandler(&actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, actor)
	})

	t.Run("malformed token returns 401", func(t *testing.T) {
		var actor string
		req := httptest.NewRequest(http.MethodPost, "/cases/1/approve", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		newHandler(&actor).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
