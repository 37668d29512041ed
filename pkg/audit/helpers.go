package audit

import (
	"strings"
)

// isAuditedRequest returns true if the request should be recorded. Mutating
// methods are recorded; browsing is not.
func isAuditedRequest(method, path string) bool {
	if isHealthEndpoint(path) {
		return false
	}

	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}

// isHealthEndpoint returns true for health-check paths.
func isHealthEndpoint(path string) bool {
	switch path {
	case "/livez", "/readyz", "/healthz":
		return true
	}
	return false
}

// extractItemRef pulls the item reference out of an item-scoped path such as
// /api/v1/items/{ref}/status. Returns "" when the path carries none.
func extractItemRef(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, p := range parts {
		if p == "items" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// extractAction returns a short verb describing what the request did.
func extractAction(method, path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")

	for i, p := range parts {
		switch p {
		case "scan":
			return "scan"
		case "status":
			return "transition"
		case "login":
			return "login"
		case "logout":
			return "logout"
		case "register":
			return "register"
		case "refresh":
			return "refresh-session"
		case "role":
			return "update-role"
		case "active":
			return "update-active"
		case "items":
			// POST /items with nothing after the collection is a create.
			if method == "POST" && i+1 >= len(parts) {
				return "create-item"
			}
		}
	}

	switch method {
	case "POST":
		return "create"
	case "PUT":
		return "update"
	case "PATCH":
		return "patch"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// outcomeFromStatus maps HTTP status codes to audit outcomes.
func outcomeFromStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "success"
	case code == 401 || code == 403:
		return "denied"
	default:
		return "failure"
	}
}
