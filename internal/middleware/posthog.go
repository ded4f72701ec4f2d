package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/onesuite_backend/internal/utils"
	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1/"

// PosthogMiddleware reports successful state-changing API calls as product events,
// e.g. POST /api/v1/commissions/:id/approve becomes "commission_approve". Reads are not tracked.
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if posthogClient == nil || !posthogClient.IsInitialized() {
			return
		}
		if c.Request.Method == http.MethodGet || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		userID, ok := GetUserIDFromContext(c)
		if !ok {
			return
		}
		event := apiEventName(c.Request.Method, c.FullPath())
		if event == "" {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"status_code": c.Writer.Status(),
		}
		if id := c.Param("id"); id != "" {
			props["resource_id"] = id
		}
		posthogClient.Enqueue(userID, event, props)
	}
}

// apiEventName derives "<resource>_<action>" from a route template. The action is the last
// literal segment, or the HTTP verb when the route ends at the resource.
func apiEventName(method, route string) string {
	if !strings.HasPrefix(route, apiPrefix) {
		return ""
	}
	var literals []string
	for _, seg := range strings.Split(strings.TrimPrefix(route, apiPrefix), "/") {
		if seg != "" && !strings.HasPrefix(seg, ":") && !strings.HasPrefix(seg, "*") {
			literals = append(literals, strings.ReplaceAll(seg, "-", "_"))
		}
	}
	if len(literals) == 0 {
		return ""
	}

	resource := singular(literals[0])
	action := ""
	if len(literals) > 1 {
		action = literals[len(literals)-1]
	} else {
		switch method {
		case http.MethodPost:
			action = "create"
		case http.MethodPut, http.MethodPatch:
			action = "update"
		case http.MethodDelete:
			action = "delete"
		default:
			return ""
		}
	}
	return resource + "_" + action
}

func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "ies"):
		return strings.TrimSuffix(s, "ies") + "y"
	case strings.HasSuffix(s, "ches"), strings.HasSuffix(s, "sses"):
		return strings.TrimSuffix(s, "es")
	case strings.HasSuffix(s, "s"):
		return strings.TrimSuffix(s, "s")
	}
	return s
}
