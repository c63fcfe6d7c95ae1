package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseRoute returns action and resource for an HTTP method and gin route
// pattern (e.g. POST /api/v1/members/:id/memberships). Resource is the last
// static path segment, singularized; action comes from the method, with
// auth routes mapped to login/register.
func ParseRoute(method, path string) ActionResource {
	switch {
	case strings.HasSuffix(path, "/auth/login"):
		return ActionResource{Action: "login", Resource: "owner"}
	case strings.HasSuffix(path, "/auth/register"):
		return ActionResource{Action: "register", Resource: "owner"}
	case strings.HasSuffix(path, "/me/password"):
		return ActionResource{Action: "update", Resource: "password"}
	case strings.HasSuffix(path, "/me/phone"):
		return ActionResource{Action: "update", Resource: "phone"}
	case strings.HasSuffix(path, "/me/phone/verify"):
		return ActionResource{Action: "verify", Resource: "phone"}
	}

	resource := "unknown"
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || strings.HasPrefix(seg, ":") || seg == "api" || strings.HasPrefix(seg, "v") && len(seg) <= 3 {
			continue
		}
		resource = singularize(seg)
	}
	if resource == "me" {
		resource = "owner"
	}

	action := "unknown"
	switch method {
	case "GET":
		if strings.HasSuffix(path, ":id") || resource == "owner" || resource == "revenue" {
			action = "get"
		} else {
			action = "list"
		}
	case "POST":
		action = "create"
	case "PUT", "PATCH":
		action = "update"
	case "DELETE":
		action = "delete"
	}
	return ActionResource{Action: action, Resource: resource}
}

func singularize(s string) string {
	if strings.HasSuffix(s, "s") && len(s) > 1 && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}
