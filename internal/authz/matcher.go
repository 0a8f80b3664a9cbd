// AngelaMos | 2026
// matcher.go

package authz

import "strings"

// Matches reports whether a granted permission string satisfies the
// required "resource:action" pair. Rules, most specific first: exact
// match, resource wildcard ("farms:*"), global wildcard ("*:*").
func Matches(required, granted string) bool {
	if required == granted {
		return true
	}

	if granted == "*:*" {
		return true
	}

	resource, _, ok := strings.Cut(required, ":")
	if !ok {
		return false
	}

	return granted == resource+":*"
}

// Can reports whether any member of the granted set satisfies the
// required resource/action pair.
func Can(resource, action string, granted []string) bool {
	required := resource + ":" + action
	for _, g := range granted {
		if Matches(required, g) {
			return true
		}
	}
	return false
}
