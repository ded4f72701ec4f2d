package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/SscSPs/onesuite_backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
)

const testJWTSecret = "test-secret-key-that-is-long-enough"

// apiSuite builds an authenticated /api/v1 group; each suite registers its routes on v1.
type apiSuite struct {
	suite.Suite
	router *gin.Engine
	v1     *gin.RouterGroup
}

func (s *apiSuite) setupRouter() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.v1 = s.router.Group("/api/v1", middleware.AuthMiddleware(testJWTSecret, "onesuite-test"))
}

// generateTestToken creates a signed JWT for testing.
func (s *apiSuite) generateTestToken(userID string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "onesuite-test",
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		s.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

// do sends a request as userID; an empty userID sends no Authorization header.
func (s *apiSuite) do(method, path string, body any, userID string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.generateTestToken(userID))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *apiSuite) decode(w *httptest.ResponseRecorder, dest any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), dest), "Failed to unmarshal response body: %s", w.Body.String())
}
