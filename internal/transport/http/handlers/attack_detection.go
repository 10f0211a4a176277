package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/social-platform-lockout/internal/core/port"
	"github.com/arklim/social-platform-lockout/internal/repository"
	"github.com/arklim/social-platform-lockout/internal/usecase"
)

// AttackDetectionHandler exposes administrative reads and clears over failure
// records. The authentication flow itself never goes through these endpoints.
type AttackDetectionHandler struct {
	protector *usecase.BruteForceProtector
	failures  port.LoginFailureStore
}

// NewAttackDetectionHandler constructs a new handler instance.
func NewAttackDetectionHandler(protector *usecase.BruteForceProtector, failures port.LoginFailureStore) *AttackDetectionHandler {
	return &AttackDetectionHandler{protector: protector, failures: failures}
}

// RegisterRoutes attaches the attack-detection endpoints to the realm group.
func (h *AttackDetectionHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/attack-detection/users/:userId", h.UserStatus)
	group.DELETE("/attack-detection/users/:userId", h.ClearUser)
	group.DELETE("/attack-detection", h.ClearRealm)
}

// UserStatus handles GET /realms/{realm}/attack-detection/users/{userId}
// requests, reporting the user's current brute-force standing.
func (h *AttackDetectionHandler) UserStatus(c *gin.Context) {
	realmID, userID, ok := h.pathIdentifiers(c)
	if !ok {
		return
	}

	failure, err := h.failures.Get(c.Request.Context(), realmID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusOK, BruteForceStatusResponse{})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load failure record"))
		return
	}

	disabled, err := h.protector.IsTemporarilyDisabled(c.Request.Context(), realmID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to evaluate lockout status"))
		return
	}

	response := BruteForceStatusResponse{
		NumFailures:   failure.NumFailures,
		Disabled:      disabled,
		LastIPFailure: failure.LastIPFailure,
	}
	if failure.LastFailureAt > 0 {
		lastFailure := time.UnixMilli(failure.LastFailureAt).UTC()
		response.LastFailure = &lastFailure
	}
	if failure.FailedLoginNotBefore > 0 {
		notBefore := time.Unix(failure.FailedLoginNotBefore, 0).UTC()
		response.FailedLoginNotBefore = &notBefore
	}

	c.JSON(http.StatusOK, response)
}

// ClearUser handles DELETE /realms/{realm}/attack-detection/users/{userId}
// requests, removing the user's failure record so the wait window lifts
// immediately.
func (h *AttackDetectionHandler) ClearUser(c *gin.Context) {
	realmID, userID, ok := h.pathIdentifiers(c)
	if !ok {
		return
	}

	err := h.failures.Delete(c.Request.Context(), realmID, userID)
	RespondWithMappedError(c, err, []ErrorCase{
		{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "no failure record for user"},
	}, http.StatusInternalServerError, "failed to clear failure record")
}

// ClearRealm handles DELETE /realms/{realm}/attack-detection requests,
// removing every failure record in the realm.
func (h *AttackDetectionHandler) ClearRealm(c *gin.Context) {
	realmID := strings.TrimSpace(c.Param("realmId"))
	if realmID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "realmId is required"))
		return
	}

	if err := h.failures.DeleteAll(c.Request.Context(), realmID); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to clear realm failure records"))
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AttackDetectionHandler) pathIdentifiers(c *gin.Context) (string, string, bool) {
	realmID := strings.TrimSpace(c.Param("realmId"))
	if realmID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "realmId is required"))
		return "", "", false
	}

	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "userId is required"))
		return "", "", false
	}

	return realmID, userID, true
}
