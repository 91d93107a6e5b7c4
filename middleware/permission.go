package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// 令牌范围
const (
	ScopeAll    = "*"
	ScopeEvents = "events"
	ScopeExport = "export"
)

// scopeAPIs 每个范围可访问的接口，pattern 格式如 GET /api/v1/export/:format
var scopeAPIs = map[string][]string{
	ScopeEvents: {"POST /api/v1/events"},
	ScopeExport: {"GET /api/v1/export/excel", "GET /api/v1/export/csv"},
}

// ScopePermission 按令牌范围校验接口访问，需在 JWTAuth 之后使用
func ScopePermission() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			abortUnauthorized(c, "缺少认证信息")
			return
		}
		if claims.HasScope(ScopeAll) {
			c.Next()
			return
		}

		if matchAPIPermission(c.Request.Method, c.Request.URL.Path, allowedAPIs(claims.Scopes)) {
			c.Next()
			return
		}

		c.JSON(http.StatusForbidden, gin.H{
			"code":    http.StatusForbidden,
			"message": "权限不足",
		})
		c.Abort()
	}
}

// allowedAPIs 汇总范围对应的 (method, pathPattern) 集合
func allowedAPIs(scopes []string) map[string]bool {
	allowed := make(map[string]bool)
	for _, s := range scopes {
		for _, api := range scopeAPIs[s] {
			allowed[api] = true
		}
	}
	return allowed
}

// matchAPIPermission 检查 method+path 是否匹配任一允许的 pattern
func matchAPIPermission(method, path string, allowed map[string]bool) bool {
	path = normalizePath(path)
	for key := range allowed {
		parts := strings.SplitN(key, " ", 2)
		if len(parts) != 2 || parts[0] != method {
			continue
		}
		if matchPath(path, parts[1]) {
			return true
		}
	}
	return false
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return p
}

// matchPath 实际路径是否匹配 pattern，:name 占位符匹配单段
func matchPath(actual, pattern string) bool {
	a := splitPath(normalizePath(actual))
	p := splitPath(normalizePath(pattern))
	if len(a) != len(p) {
		return false
	}
	for i := range a {
		if strings.HasPrefix(p[i], ":") {
			if a[i] == "" {
				return false
			}
			continue
		}
		if a[i] != p[i] {
			return false
		}
	}
	return true
}

func splitPath(s string) []string {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}
