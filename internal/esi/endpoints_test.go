package esi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ErikKalkoken/evefit/internal/esi"
)

func TestEndpointResolve(t *testing.T) {
	cases := []struct {
		name   string
		ep     esi.Endpoint
		params esi.Params
		want   string
	}{
		{"list fittings", esi.EndpointListFittings, esi.Params{"character_id": "42"}, "/characters/42/fittings/"},
		{"delete fitting", esi.EndpointDeleteFitting, esi.Params{"character_id": "42", "fitting_id": "7"}, "/characters/42/fittings/7/"},
		{"ignores unused params", esi.EndpointFetchSkills, esi.Params{"character_id": "42", "other": "x"}, "/characters/42/skills/"},
		{"escapes values", esi.EndpointFetchSecurityStatus, esi.Params{"character_id": "a/b"}, "/characters/a%2Fb/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ep.Resolve(tc.params)
			if assert.NoError(t, err) {
				assert.Equal(t, tc.want, got)
			}
		})
	}
	t.Run("should resolve custom template", func(t *testing.T) {
		ep := esi.Endpoint{Name: "custom", Method: "GET", Path: "/characters/{character_id}/fittings/"}
		got, err := ep.Resolve(esi.Params{"character_id": "42"})
		if assert.NoError(t, err) {
			assert.Equal(t, "/characters/42/fittings/", got)
		}
	})
	t.Run("should return error when param is missing", func(t *testing.T) {
		_, err := esi.EndpointDeleteFitting.Resolve(esi.Params{"character_id": "42"})
		assert.ErrorIs(t, err, esi.ErrInvalidParams)
	})
}
