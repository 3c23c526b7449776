package esi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/esi"
)

func TestCharacterEndpoints(t *testing.T) {
	ctx := context.Background()
	t.Run("can fetch skills", func(t *testing.T) {
		// given
		c, _, mt := newClient(t, esi.Config{})
		mt.RegisterResponder("GET", baseURL+"/characters/42/skills/", httpmock.NewStringResponder(http.StatusOK, `{
			"skills": [{"active_skill_level": 4, "skill_id": 3300, "skillpoints_in_skill": 45255, "trained_skill_level": 5}],
			"total_sp": 5000000,
			"unallocated_sp": 1000
		}`))
		// when
		got, err := c.FetchSkills(ctx, validToken(42))
		// then
		if assert.NoError(t, err) {
			assert.EqualValues(t, 5000000, got.TotalSP)
			assert.EqualValues(t, 1000, got.UnallocatedSP)
			assert.Equal(t, 4, got.Level(3300))
			assert.Equal(t, 0, got.Level(1))
		}
	})
	t.Run("can fetch security status", func(t *testing.T) {
		// given
		c, _, mt := newClient(t, esi.Config{})
		mt.RegisterResponder("GET", baseURL+"/characters/42/", httpmock.NewStringResponder(http.StatusOK, `{
			"corporation_id": 1000001,
			"name": "Bruce Wayne",
			"security_status": -1.5
		}`))
		// when
		got, err := c.FetchSecurityStatus(ctx, validToken(42))
		// then
		if assert.NoError(t, err) {
			assert.Equal(t, "Bruce Wayne", got.Name)
			assert.InDelta(t, -1.5, got.SecurityStatus, 0.001)
			assert.EqualValues(t, 1000001, got.CorporationID)
		}
	})
	t.Run("can list fittings", func(t *testing.T) {
		// given
		c, _, mt := newClient(t, esi.Config{})
		mt.RegisterResponder("GET", baseURL+"/characters/42/fittings/", httpmock.NewStringResponder(http.StatusOK, `[{
			"description": "PvE",
			"fitting_id": 7,
			"items": [{"flag": "HiSlot0", "quantity": 1, "type_id": 2873}, {"flag": "Cargo", "quantity": 100, "type_id": 212}],
			"name": "Rifter",
			"ship_type_id": 587
		}]`))
		// when
		got, err := c.ListFittings(ctx, validToken(42))
		// then
		if assert.NoError(t, err) && assert.Len(t, got, 1) {
			assert.EqualValues(t, 7, got[0].FittingID)
			assert.EqualValues(t, 587, got[0].ShipTypeID)
			assert.Len(t, got[0].Items, 2)
			assert.Equal(t, []app.FittingItem{{Flag: "Cargo", Quantity: 100, TypeID: 212}}, got[0].Cargo())
		}
	})
	t.Run("can create fitting", func(t *testing.T) {
		// given
		c, _, mt := newClient(t, esi.Config{})
		var sent map[string]any
		mt.RegisterResponder("POST", baseURL+"/characters/42/fittings/", func(req *http.Request) (*http.Response, error) {
			b, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(b, &sent); err != nil {
				return nil, err
			}
			return httpmock.NewStringResponse(http.StatusCreated, `{"fitting_id": 8}`), nil
		})
		f := app.Fitting{
			Description: "PvE",
			FittingID:   99,
			Items:       []app.FittingItem{{Flag: "HiSlot0", Quantity: 1, TypeID: 2873}},
			Name:        "Rifter",
			ShipTypeID:  587,
		}
		// when
		got, err := c.CreateFitting(ctx, validToken(42), f)
		// then
		if assert.NoError(t, err) {
			assert.EqualValues(t, 8, got)
			assert.Equal(t, "Rifter", sent["name"])
			assert.NotContains(t, sent, "fitting_id")
		}
	})
	t.Run("can delete fitting", func(t *testing.T) {
		// given
		c, _, mt := newClient(t, esi.Config{})
		mt.RegisterResponder("DELETE", baseURL+"/characters/42/fittings/7/", httpmock.NewStringResponder(http.StatusNoContent, ""))
		// when
		err := c.DeleteFitting(ctx, validToken(42), 7)
		// then
		if assert.NoError(t, err) {
			assert.Equal(t, 1, mt.GetTotalCallCount())
		}
	})
	t.Run("should return error when fitting does not exist", func(t *testing.T) {
		// given
		c, _, mt := newClient(t, esi.Config{})
		mt.RegisterResponder("DELETE", baseURL+"/characters/42/fittings/7/", httpmock.NewStringResponder(http.StatusNotFound, `{"error": "fitting not found"}`))
		// when
		err := c.DeleteFitting(ctx, validToken(42), 7)
		// then
		var authErr *app.AuthorizationError
		if assert.ErrorAs(t, err, &authErr) {
			assert.Equal(t, "HTTP Error 404: fitting not found", authErr.Error())
		}
	})
}
