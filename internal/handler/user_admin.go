package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abyssal/species-observation/internal/middleware"
	"github.com/abyssal/species-observation/internal/model"
	"github.com/abyssal/species-observation/internal/repository"
	"github.com/abyssal/species-observation/internal/service"
)

// UserAdminHandler exposes the identity store's role and reputation
// authority. The reputation endpoint is the target of the observation
// service's relay; the role endpoint serves both manual administration
// and the relay's promotion follow-up.
type UserAdminHandler struct {
	Users *repository.UserRepo
}

func NewUserAdminHandler(u *repository.UserRepo) *UserAdminHandler {
	return &UserAdminHandler{Users: u}
}

type roleReq struct {
	Role string `json:"role"`
}

type reputationReq struct {
	// Pointer so a missing field is distinguishable from zero points.
	Points *int `json:"points"`
}

func paramID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// moderationDelta reports whether points is one of the deltas the
// reputation relay produces.
func moderationDelta(points int) bool {
	switch points {
	case service.ValidationAuthorPoints, service.ValidationValidatorPoints, service.RejectionAuthorPoints:
		return true
	}
	return false
}

// List returns every user, without password hashes.
func (h *UserAdminHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, toUserPart(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(out), "users": out})
}

// UpdateRole overwrites a user's role.
func (h *UserAdminHandler) UpdateRole(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if !model.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be USER, EXPERT or ADMIN"})
	}
	// The expert grant exists only for the relay's promotion call,
	// which assigns EXPERT and nothing else. Anything beyond that is
	// an admin decision; without this check an expert could hand
	// themselves ADMIN.
	if middleware.Role(c) != model.RoleAdmin && role != model.RoleExpert {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only admins can assign this role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.SetRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update role failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// UpdateReputation applies a reputation delta. The repository clamps
// the result at zero and applies the promotion/demotion rule in the
// same update; the response carries the new reputation and role so the
// relay can decide whether a promotion follow-up is needed.
func (h *UserAdminHandler) UpdateReputation(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req reputationReq
	if err := c.Bind(&req); err != nil || req.Points == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "points is required and must be a number"})
	}
	// Non-admin callers are the relay forwarding a moderator's token,
	// and the relay only ever sends the fixed moderation deltas. An
	// arbitrary delta from an expert would let them mint their own
	// reputation.
	if middleware.Role(c) != model.RoleAdmin && !moderationDelta(*req.Points) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "reputation delta not allowed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.AdjustReputation(ctx, id, *req.Points)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update reputation failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"userId":     u.ID,
		"reputation": u.Reputation,
		"role":       u.Role,
	})
}
