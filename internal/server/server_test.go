package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedGenerator string

func (g fixedGenerator) Generate(context.Context, string) (string, error) { return string(g), nil }

func newTestRouter(gen engine.Generator, repo store.Repository) *gin.Engine {
	eng := engine.NewEngine(gen, engine.NewFallback(1))
	return New(eng, store.NewSaves(repo, nil), nil).Router(Config{CORSOrigins: []string{"*"}})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

var testPlayer = map[string]any{
	"name": "Aria", "class": "Mage", "gender": "female", "level": 2,
	"health": 80, "maxHealth": 120, "xp": 10, "maxXp": 150,
	"inventory": []map[string]any{{"id": "potion_1", "name": "Potion", "type": "potion", "effect": "Restores 30 HP", "quantity": 1}},
	"stats":     map[string]any{"strength": 5, "intelligence": 10, "agility": 6},
}

func TestStoryEndpoint(t *testing.T) {
	r := newTestRouter(fixedGenerator(`{"story": "The gate creaks open.", "choices": ["Enter", "Wait", "Leave"]}`), nil)

	w := doJSON(t, r, http.MethodPost, "/api/story", map[string]any{
		"player": testPlayer, "genre": "horror", "choice": "Push the gate",
		"previousEvents": []map[string]any{{"id": "1", "text": "You arrive.", "type": "story"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	var out models.StoryOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "The gate creaks open.", out.Story)
	assert.Len(t, out.Choices, 3)
}

func TestStoryEndpointFallback(t *testing.T) {
	r := newTestRouter(nil, nil)

	w := doJSON(t, r, http.MethodPost, "/api/story", map[string]any{"player": testPlayer, "genre": "fantasy"})
	require.Equal(t, http.StatusOK, w.Code)

	var out models.StoryOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NoError(t, out.Validate())
}

func TestStoryEndpointValidation(t *testing.T) {
	r := newTestRouter(nil, nil)

	w := doJSON(t, r, http.MethodPost, "/api/story", map[string]any{"genre": "fantasy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	noName := map[string]any{"class": "Mage"}
	w = doJSON(t, r, http.MethodPost, "/api/story", map[string]any{"player": noName})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	longName := map[string]any{"name": strings.Repeat("n", 51), "class": "Mage"}
	w = doJSON(t, r, http.MethodPost, "/api/story", map[string]any{"player": longName})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	longClass := map[string]any{"name": "Aria", "class": strings.Repeat("c", 31)}
	w = doJSON(t, r, http.MethodPost, "/api/combat", map[string]any{
		"player": longClass, "enemy": map[string]any{"name": "Goblin", "health": 5}, "action": "attack",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}
	w = doJSON(t, r, http.MethodPost, "/api/story", map[string]any{"player": testPlayer, "choice": string(long)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCombatEndpoint(t *testing.T) {
	r := newTestRouter(nil, nil)
	enemy := map[string]any{"id": "e1", "name": "Goblin", "health": 20, "maxHealth": 20, "attack": 6, "defense": 2}

	for _, action := range []string{"attack", "defend", "use-item", "run"} {
		w := doJSON(t, r, http.MethodPost, "/api/combat", map[string]any{
			"player": testPlayer, "enemy": enemy, "action": action, "itemId": "potion_1",
		})
		require.Equal(t, http.StatusOK, w.Code, action)

		var out models.CombatOutcome
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		assert.NoError(t, out.Validate(), action)
	}

	w := doJSON(t, r, http.MethodPost, "/api/combat", map[string]any{"player": testPlayer, "enemy": enemy, "action": "dance"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/combat", map[string]any{"player": testPlayer, "action": "attack"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaveFlow(t *testing.T) {
	r := newTestRouter(nil, store.NewMemory())
	state := map[string]any{"player": testPlayer, "genre": "fantasy"}

	w := doJSON(t, r, http.MethodPost, "/api/save", map[string]any{"playerId": "p1", "saveSlot": 1, "saveName": "Before the boss", "gameState": state})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var saved saveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	assert.True(t, saved.Success)
	assert.True(t, saved.Created)

	w = doJSON(t, r, http.MethodPost, "/api/save", map[string]any{"playerId": "p1", "saveSlot": 1, "saveName": "After the boss", "gameState": state})
	require.Equal(t, http.StatusOK, w.Code)
	var again saveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.False(t, again.Created)
	assert.Equal(t, saved.SaveID, again.SaveID)

	w = doJSON(t, r, http.MethodGet, "/api/saves/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.SaveSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "After the boss", list[0].SaveName)

	w = doJSON(t, r, http.MethodGet, "/api/save/"+saved.SaveID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var loaded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
	assert.Equal(t, "fantasy", loaded["genre"])

	w = doJSON(t, r, http.MethodDelete, "/api/save/"+saved.SaveID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/save/"+saved.SaveID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/saves/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestSaveErrors(t *testing.T) {
	r := newTestRouter(nil, store.NewMemory())

	w := doJSON(t, r, http.MethodGet, "/api/save/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/save/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/save", map[string]any{"playerId": "p1", "saveSlot": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	unavailable := newTestRouter(nil, nil)
	w = doJSON(t, unavailable, http.MethodPost, "/api/save", map[string]any{"playerId": "p1", "saveSlot": 1, "gameState": map[string]any{}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = doJSON(t, unavailable, http.MethodGet, "/api/saves/p1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(nil, nil)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["store"])

	doJSON(t, r, http.MethodPost, "/api/story", map[string]any{"player": testPlayer})
	w = doJSON(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dungeon_outcomes_total")
}
