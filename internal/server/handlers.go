package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/store"
)

type storyRequest struct {
	Player         *models.Player      `json:"player" binding:"required"`
	Genre          string              `json:"genre" binding:"max=30"`
	PreviousEvents []models.StoryEvent `json:"previousEvents"`
	Choice         string              `json:"choice" binding:"max=500"`
}

type combatRequest struct {
	Player *models.Player `json:"player" binding:"required"`
	Enemy  *models.Enemy  `json:"enemy" binding:"required"`
	Action string         `json:"action" binding:"required,oneof=attack defend use-item run"`
	ItemID string         `json:"itemId"`
}

// playerFields carries the request limits on the player snapshot.
type playerFields struct {
	Name  string `binding:"required,max=50"`
	Class string `binding:"required,max=30"`
}

func validatePlayer(p *models.Player) error {
	return binding.Validator.ValidateStruct(playerFields{Name: p.Name, Class: p.Class})
}

type saveRequest struct {
	PlayerID  string           `json:"playerId" binding:"required,max=100"`
	SaveSlot  int              `json:"saveSlot" binding:"min=0"`
	SaveName  string           `json:"saveName" binding:"max=200"`
	GameState models.GameState `json:"gameState" binding:"required"`
}

type saveResponse struct {
	Success bool   `json:"success"`
	SaveID  string `json:"saveId"`
	Created bool   `json:"created"`
}

func (s *Server) handleStory(c *gin.Context) {
	var req storyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := validatePlayer(req.Player); err != nil {
		badRequest(c, err)
		return
	}
	out := s.narrator.GenerateStory(c.Request.Context(), req.Player, req.Genre, req.PreviousEvents, req.Choice)
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCombat(c *gin.Context) {
	var req combatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := validatePlayer(req.Player); err != nil {
		badRequest(c, err)
		return
	}
	out := s.narrator.ResolveCombatTurn(c.Request.Context(), req.Player, req.Enemy, req.Action, req.ItemID)
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleSave(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.saves.SaveGame(c.Request.Context(), models.SaveRecord{
		PlayerID:  req.PlayerID,
		SaveSlot:  req.SaveSlot,
		SaveName:  req.SaveName,
		GameState: req.GameState,
	})
	if err != nil {
		s.storeError(c, "Failed to save game", err)
		return
	}
	c.JSON(http.StatusOK, saveResponse{Success: true, SaveID: res.SaveID, Created: res.Created})
}

func (s *Server) handleListSaves(c *gin.Context) {
	saves, err := s.saves.ListSaves(c.Request.Context(), c.Param("playerId"))
	if err != nil {
		s.storeError(c, "Failed to fetch saves", err)
		return
	}
	c.JSON(http.StatusOK, saves)
}

func (s *Server) handleLoadSave(c *gin.Context) {
	state, err := s.saves.LoadSave(c.Request.Context(), c.Param("saveId"))
	if err != nil {
		s.storeError(c, "Failed to load game", err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleDeleteSave(c *gin.Context) {
	if err := s.saves.DeleteSave(c.Request.Context(), c.Param("saveId")); err != nil {
		s.storeError(c, "Failed to delete save", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
}

// storeError maps store failures to HTTP statuses.
func (s *Server) storeError(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrInvalidKey), errors.Is(err, store.ErrInvalidRecord):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		msg = "Save not found"
	case errors.Is(err, store.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg, "message": err.Error()})
}
