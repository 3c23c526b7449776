package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ErikKalkoken/evefit/internal/app"
)

func characterParams(token *app.CharacterToken) Params {
	if token == nil {
		return Params{}
	}
	return Params{"character_id": strconv.Itoa(int(token.CharacterID))}
}

// callJSON makes an authenticated call and decodes the response into a T.
func callJSON[T any](ctx context.Context, c *Client, token *app.CharacterToken, ep Endpoint, params Params, body []byte) (T, error) {
	var v T
	data, err := c.do(ctx, ep.Method, token, ep, params, body)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("esi %s: parse response: %w", ep.Name, err)
	}
	return v, nil
}

// FetchSkills returns the skills of a character.
func (c *Client) FetchSkills(ctx context.Context, token *app.CharacterToken) (*app.CharacterSkills, error) {
	v, err := callJSON[app.CharacterSkills](ctx, c, token, EndpointFetchSkills, characterParams(token), nil)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FetchSecurityStatus returns the public information of a character,
// which includes its security status.
func (c *Client) FetchSecurityStatus(ctx context.Context, token *app.CharacterToken) (*app.CharacterPublicInfo, error) {
	v, err := callJSON[app.CharacterPublicInfo](ctx, c, token, EndpointFetchSecurityStatus, characterParams(token), nil)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListFittings returns the fittings saved for a character.
func (c *Client) ListFittings(ctx context.Context, token *app.CharacterToken) ([]app.Fitting, error) {
	return callJSON[[]app.Fitting](ctx, c, token, EndpointListFittings, characterParams(token), nil)
}

// CreateFitting saves a new fitting for a character and returns its ID.
func (c *Client) CreateFitting(ctx context.Context, token *app.CharacterToken, f app.Fitting) (int32, error) {
	f.FittingID = 0
	body, err := json.Marshal(f)
	if err != nil {
		return 0, err
	}
	v, err := callJSON[app.CreatedFitting](ctx, c, token, EndpointCreateFitting, characterParams(token), body)
	if err != nil {
		return 0, err
	}
	return v.FittingID, nil
}

// DeleteFitting deletes a fitting of a character.
func (c *Client) DeleteFitting(ctx context.Context, token *app.CharacterToken, fittingID int32) error {
	p := characterParams(token)
	p["fitting_id"] = strconv.Itoa(int(fittingID))
	_, err := c.Call(ctx, http.MethodDelete, token, EndpointDeleteFitting, p, nil)
	return err
}
