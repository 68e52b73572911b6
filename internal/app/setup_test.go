package app

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"brokerage/internal/config"
	"brokerage/internal/idempotency"
	"brokerage/internal/logger"
	"brokerage/internal/middleware"
	"brokerage/internal/testutil"
	"brokerage/internal/validator"
)

const (
	testJWTSecret   = "integration-secret"
	testPipelineKey = "pipeline-key"
)

// testApp holds the full application stack for end-to-end tests.
type testApp struct {
	DB     *gorm.DB
	Redis  *miniredis.Miniredis
	Router *gin.Engine
	UserID string
	token  string
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates the router backed by an isolated in-memory SQLite database
// and an in-process Redis.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		Env:                    "test",
		JWTSecret:              testJWTSecret,
		PipelineAPIKey:         testPipelineKey,
		IdempotencyTTL:         time.Hour,
		ExpiringSoonWindowDays: 30,
	}

	router := NewRouter(Deps{
		DB:          db,
		Config:      cfg,
		Idempotency: idempotency.NewStore(client, cfg.IdempotencyTTL),
	})

	userID := testutil.NewUserID()
	return &testApp{
		DB:     db,
		Redis:  mr,
		Router: router,
		UserID: userID,
		token:  mintToken(t, userID),
	}
}

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	claims := middleware.JWTClaims{
		Email:     "agent@broker.test",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// request makes an authenticated HTTP request to the test router.
func (app *testApp) request(method, path, body string) *httptest.ResponseRecorder {
	return app.requestWithHeaders(method, path, body, map[string]string{"Authorization": "Bearer " + app.token})
}

func (app *testApp) requestWithHeaders(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// assertAmount compares a decimal JSON field against want.
func assertAmount(t *testing.T, obj map[string]interface{}, field, want string) {
	t.Helper()
	raw, ok := obj[field].(string)
	if !ok {
		t.Fatalf("field %s missing or not a string: %v", field, obj[field])
	}
	got, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("field %s is not a decimal: %q", field, raw)
	}
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s: expected %s, got %s", field, want, raw)
	}
}

func day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format("2006-01-02")
}
