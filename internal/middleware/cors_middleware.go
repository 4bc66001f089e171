package middleware

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CORS tags responses for the configured origins and answers preflight
// requests. The methods it announces are set from the route table once the
// routes are registered.
type CORS struct {
	origins   map[string]struct{}
	anyOrigin bool

	mu      sync.RWMutex
	methods string
}

func NewCORS(allowedOrigins []string) *CORS {
	cors := &CORS{origins: make(map[string]struct{}, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			cors.anyOrigin = true
		}
		cors.origins[origin] = struct{}{}
	}
	cors.AllowMethods()
	return cors
}

// AllowMethods replaces the announced methods. OPTIONS is always included.
func (cors *CORS) AllowMethods(methods ...string) {
	set := map[string]struct{}{http.MethodOptions: {}}
	for _, method := range methods {
		set[strings.ToUpper(method)] = struct{}{}
	}
	list := make([]string, 0, len(set))
	for method := range set {
		list = append(list, method)
	}
	sort.Strings(list)

	cors.mu.Lock()
	cors.methods = strings.Join(list, ",")
	cors.mu.Unlock()
}

// AllowRoutes announces every method registered on the engine.
func (cors *CORS) AllowRoutes(routes gin.RoutesInfo) {
	methods := make([]string, 0, len(routes))
	for _, route := range routes {
		methods = append(methods, route.Method)
	}
	cors.AllowMethods(methods...)
}

func (cors *CORS) Methods() string {
	cors.mu.RLock()
	defer cors.mu.RUnlock()
	return cors.methods
}

func (cors *CORS) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if cors.anyOrigin {
				c.Header("Access-Control-Allow-Origin", "*")
			} else if _, ok := cors.origins[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}

		c.Header("Access-Control-Allow-Methods", cors.Methods())
		c.Header("Access-Control-Allow-Headers", "Authorization,Content-Type")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
