package auth

import (
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// DefaultRoleClaim is the claim key carrying the application role in
// the reference deployment (a Firebase custom claim named "role").
const DefaultRoleClaim = "role"

// RoleExtractor pulls the role claim out of a provider claim map.
// The path is a JMESPath expression so nested provider layouts
// (e.g. "realm_access.roles[0]" on Keycloak) work without code changes.
type RoleExtractor struct {
	path string
}

// NewRoleExtractor validates and stores the claim path. An empty path
// selects DefaultRoleClaim.
func NewRoleExtractor(path string) (*RoleExtractor, error) {
	if path == "" {
		path = DefaultRoleClaim
	}
	if _, err := jmespath.Compile(path); err != nil {
		return nil, fmt.Errorf("compile role claim path %q: %w", path, err)
	}
	return &RoleExtractor{path: path}, nil
}

// Path returns the configured claim path.
func (e *RoleExtractor) Path() string { return e.path }

// Extract evaluates the claim path against the claim map and returns
// the normalized role. A missing or non-string claim yields RoleUser,
// never an error: absence of a claim must not break the session, it
// just means unprivileged.
func (e *RoleExtractor) Extract(claims map[string]any) Role {
	if len(claims) == 0 {
		return RoleUser
	}
	v, err := jmespath.Search(e.path, claims)
	if err != nil {
		return RoleUser
	}
	s, ok := v.(string)
	if !ok {
		return RoleUser
	}
	return ParseRole(s)
}

// ExtractRaw returns the unparsed claim value, or "" when the claim is
// missing or not a string. The role stream surfaces this raw value;
// privilege decisions go through Extract.
func (e *RoleExtractor) ExtractRaw(claims map[string]any) string {
	if len(claims) == 0 {
		return ""
	}
	v, err := jmespath.Search(e.path, claims)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
