package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func accessClaims(subject string, expiresIn time.Duration) JWTClaims {
	return JWTClaims{
		Email:     "broker@example.com",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
}

func setupAuthRouter() *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(testSecret))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(UserIDKey), "email": c.GetString(EmailKey)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	refresh := accessClaims("user-1", time.Hour)
	refresh.TokenType = "refresh"

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid_token", "Bearer " + signToken(t, testSecret, accessClaims("user-1", time.Hour)), http.StatusOK, "user-1"},
		{"missing_header", "", http.StatusUnauthorized, ""},
		{"wrong_scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"wrong_secret", "Bearer " + signToken(t, "other", accessClaims("user-1", time.Hour)), http.StatusUnauthorized, ""},
		{"expired", "Bearer " + signToken(t, testSecret, accessClaims("user-1", -time.Minute)), http.StatusUnauthorized, ""},
		{"refresh_token", "Bearer " + signToken(t, testSecret, refresh), http.StatusUnauthorized, ""},
		{"no_subject", "Bearer " + signToken(t, testSecret, accessClaims("", time.Hour)), http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			setupAuthRouter().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := parseBody(t, rec)
			if tt.wantStatus == http.StatusOK {
				if body["user_id"] != tt.wantUser {
					t.Errorf("user_id = %v, want %s", body["user_id"], tt.wantUser)
				}
				return
			}
			errObj, ok := body["error"].(map[string]interface{})
			if !ok || errObj["code"] != "UNAUTHORIZED" {
				t.Errorf("expected UNAUTHORIZED error body, got %v", body)
			}
		})
	}
}

func TestParseAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, accessClaims("user-1", time.Hour))
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}
	if _, err := ParseAccessToken(signed, []byte(testSecret)); err == nil {
		t.Error("expected unsigned token to be rejected")
	}
}
