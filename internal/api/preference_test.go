package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipnotify/backend/internal/models"
)

func TestGetCatalog(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/catalog", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	modelEntries := body["models"].([]interface{})
	assert.Len(t, modelEntries, 29)

	first := modelEntries[0].(map[string]interface{})
	assert.Equal(t, "iPhone 16 Pro Max", first["name"])
	assert.EqualValues(t, 900, first["default_price"])

	modes := body["notification_modes"].([]interface{})
	assert.Len(t, modes, 4)
}

func TestSubmitPreference(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/preferences", validRequest(), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	token := body["edit_token"].(string)
	assert.NotEmpty(t, token)
	assert.Equal(t, testBaseURL+"/edit/"+token, body["edit_url"])

	pref := body["preference"].(map[string]interface{})
	assert.Equal(t, "Brisbane", pref["location"])
	assert.Len(t, pref["products"].([]interface{}), 2)
}

func TestSubmitPreferenceValidation(t *testing.T) {
	env := setupTestEnv(t)

	missing := validRequest()
	missing.Location = ""
	w := env.request(t, http.MethodPost, "/api/v1/preferences", missing, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	badMode := validRequest()
	badMode.NotificationMode = "everything"
	w = env.request(t, http.MethodPost, "/api/v1/preferences", badMode, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown notification mode")

	badProduct := validRequest()
	badProduct.Products[0].Name = "Galaxy S24"
	w = env.request(t, http.MethodPost, "/api/v1/preferences", badProduct, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown product name")
}

func TestGetAndUpdateByToken(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/preferences", validRequest(), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	token := decodeBody(t, w)["edit_token"].(string)

	w = env.request(t, http.MethodGet, "/api/v1/preferences/"+token, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pref := decodeBody(t, w)["preference"].(map[string]interface{})
	assert.Equal(t, "Brisbane", pref["location"])

	update := validRequest()
	update.Location = "Gold Coast"
	update.NotificationMode = models.ModeGoodDeal
	update.Products = update.Products[:1]
	w = env.request(t, http.MethodPut, "/api/v1/preferences/"+token, update, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pref = decodeBody(t, w)["preference"].(map[string]interface{})
	assert.Equal(t, "Gold Coast", pref["location"])
	assert.Equal(t, models.ModeGoodDeal, pref["notification_mode"])
	assert.Len(t, pref["products"].([]interface{}), 1)
}

func TestTokenRoutesReject404(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodGet, "/api/v1/preferences/no-such-token", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.request(t, http.MethodPut, "/api/v1/preferences/no-such-token", validRequest(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditTokenIsNotSerialized(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/v1/preferences", validRequest(), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	// The token is returned only through the explicit edit_token field, never
	// through the model serialization.
	pref := decodeBody(t, w)["preference"].(map[string]interface{})
	_, leaked := pref["EditToken"]
	assert.False(t, leaked)
	_, leaked = pref["edit_token"]
	assert.False(t, leaked)
}
