package esi

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
)

// Endpoint is an ESI route identified by a logical name.
// The path may contain placeholders like {character_id}.
type Endpoint struct {
	Name   string
	Method string
	Path   string
}

// The ESI routes used by this app.
// These must be kept in lockstep with ESI's route definitions.
var (
	EndpointFetchSkills = Endpoint{
		Name:   "fetch-skills",
		Method: http.MethodGet,
		Path:   "/characters/{character_id}/skills/",
	}
	EndpointFetchSecurityStatus = Endpoint{
		Name:   "fetch-security-status",
		Method: http.MethodGet,
		Path:   "/characters/{character_id}/",
	}
	EndpointListFittings = Endpoint{
		Name:   "list-fittings",
		Method: http.MethodGet,
		Path:   "/characters/{character_id}/fittings/",
	}
	EndpointCreateFitting = Endpoint{
		Name:   "create-fitting",
		Method: http.MethodPost,
		Path:   "/characters/{character_id}/fittings/",
	}
	EndpointDeleteFitting = Endpoint{
		Name:   "delete-fitting",
		Method: http.MethodDelete,
		Path:   "/characters/{character_id}/fittings/{fitting_id}/",
	}
)

// Params are the values for the placeholders of an endpoint.
type Params map[string]string

var rePlaceholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// Resolve returns the path of an endpoint with all placeholders
// replaced by their values in params.
// Values are path escaped. Params without a placeholder are ignored.
func (ep Endpoint) Resolve(params Params) (string, error) {
	var missing []string
	p := rePlaceholder.ReplaceAllStringFunc(ep.Path, func(s string) string {
		name := s[1 : len(s)-1]
		v, ok := params[name]
		if !ok || v == "" {
			missing = append(missing, name)
			return s
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("endpoint %s: missing params %v: %w", ep.Name, missing, ErrInvalidParams)
	}
	return p, nil
}

func (ep Endpoint) String() string {
	return fmt.Sprintf("%s %s", ep.Method, ep.Path)
}
