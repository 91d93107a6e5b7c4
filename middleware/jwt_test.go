package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"budgetbot/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initJWTTestConfig() {
	InitJWT(&config.Config{
		Server: config.ServerConfig{Mode: "debug"},
		JWT:    config.JWTConfig{Secret: "test-jwt-secret-key"},
	})
}

func TestGenerateToken(t *testing.T) {
	initJWTTestConfig()

	token, err := GenerateToken("telegram-gateway", []string{ScopeEvents}, 24*time.Hour)
	require.NoError(t, err)
	assert.Greater(t, len(token), 20)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "telegram-gateway", claims.Client)
	assert.True(t, claims.HasScope(ScopeEvents))
	assert.False(t, claims.HasScope(ScopeExport))
}

func TestParseToken(t *testing.T) {
	initJWTTestConfig()

	_, err := ParseToken("")
	assert.Error(t, err)

	_, err = ParseToken("not.a.valid.jwt")
	assert.Error(t, err)

	// 过期
	expired, err := GenerateToken("gw", []string{ScopeAll}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	// 换了密钥后旧令牌失效
	token, _ := GenerateToken("gw", []string{ScopeAll}, time.Hour)
	InitJWT(&config.Config{JWT: config.JWTConfig{Secret: "another-secret"}})
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	initJWTTestConfig()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(JWTAuth())
	router.GET("/protected", func(c *gin.Context) {
		c.String(200, "client:%s", GetCurrentClient(c))
	})

	do := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/protected", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "401")

	assert.Equal(t, http.StatusUnauthorized, do("Basic xyz").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer ").Code)

	token, _ := GenerateToken("gw", []string{ScopeEvents}, time.Hour)
	w = do("Bearer " + token)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "client:gw", w.Body.String())
}

func TestGetCurrentClient_Empty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetCurrentClient(c))
	assert.Nil(t, GetClaims(c))
}
