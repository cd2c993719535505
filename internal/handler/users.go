package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"

	"library_auth/internal/models"
	"library_auth/internal/service"
	"library_auth/internal/storage"
)

type createUserRequest struct {
	UserName string      `json:"userName"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type updateUserRequest struct {
	UserName string      `json:"userName"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// POST /users
func (h *Handler) CreateUser(c *gin.Context) {
	const op = "handler.CreateUser"

	log := h.log.With(slog.String("op", op))

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Username, email and password are required")

		return
	}

	if req.UserName == "" || req.Email == "" || req.Password == "" {
		newErrorResponse(c, http.StatusBadRequest, "Username, email and password are required")

		return
	}

	if req.Role != "" && !req.Role.Valid() {
		newErrorResponse(c, http.StatusBadRequest, "Invalid role")

		return
	}

	user, err := h.serviceLayer.CreateUser(c.Request.Context(), req.UserName, req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicateEmail):
			newErrorResponse(c, http.StatusBadRequest, "User already exists with this email")
		case errors.Is(err, storage.ErrDuplicateUserName):
			newErrorResponse(c, http.StatusBadRequest, "Username is already taken")
		default:
			log.Error("failed to create user", slog.Any("error", err))

			newErrorResponse(c, http.StatusInternalServerError, "Error creating user")
		}

		return
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))

	c.JSON(http.StatusCreated, user.Public())
}

// GET /users
func (h *Handler) ListUsers(c *gin.Context) {
	const op = "handler.ListUsers"

	log := h.log.With(slog.String("op", op))

	users, err := h.serviceLayer.ListUsers(c.Request.Context())
	if err != nil {
		log.Error("failed to list users", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "Error getting users")

		return
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		public = append(public, user.Public())
	}

	c.JSON(http.StatusOK, public)
}

// GET /users/:id
func (h *Handler) GetUser(c *gin.Context) {
	const op = "handler.GetUser"

	log := h.log.With(slog.String("op", op))

	userID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Invalid user id")

		return
	}

	user, err := h.serviceLayer.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			newErrorResponse(c, http.StatusNotFound, "User not found")

			return
		}

		log.Error("failed to get user", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "Error getting user")

		return
	}

	c.JSON(http.StatusOK, user.Public())
}

// PUT /users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	const op = "handler.UpdateUser"

	log := h.log.With(slog.String("op", op))

	caller, ok := CurrentUser(c)
	if !ok {
		newFailResponse(c, http.StatusUnauthorized, msgNotLoggedIn)

		return
	}

	userID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Invalid user id")

		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "Invalid request body")

		return
	}

	if req.Role != "" && !req.Role.Valid() {
		newErrorResponse(c, http.StatusBadRequest, "Invalid role")

		return
	}

	user, err := h.serviceLayer.UpdateUser(c.Request.Context(), caller, userID, service.UpdateUserParams{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			newErrorResponse(c, http.StatusNotFound, "User not found")
		case errors.Is(err, storage.ErrDuplicateEmail):
			newErrorResponse(c, http.StatusBadRequest, "Email is already in use")
		case errors.Is(err, storage.ErrDuplicateUserName):
			newErrorResponse(c, http.StatusBadRequest, "Username is already taken")
		default:
			log.Error("failed to update user", slog.Any("error", err))

			newErrorResponse(c, http.StatusInternalServerError, "Error updating user")
		}

		return
	}

	log.Info("user updated", slog.String("user_id", user.ID.String()))

	c.JSON(http.StatusOK, user.Public())
}

// DELETE /users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	const op = "handler.DeleteUser"

	log := h.log.With(slog.String("op", op))

	caller, ok := CurrentUser(c)
	if !ok {
		newFailResponse(c, http.StatusUnauthorized, msgNotLoggedIn)

		return
	}

	userID, err := uuid.FromString(c.Param("id"))
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, "Invalid user id")

		return
	}

	err = h.serviceLayer.DeleteUser(c.Request.Context(), caller, userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfDeletion):
			newErrorResponse(c, http.StatusBadRequest, "You cannot delete your own account")
		case errors.Is(err, storage.ErrUserNotFound):
			newErrorResponse(c, http.StatusNotFound, "User not found")
		default:
			log.Error("failed to delete user", slog.Any("error", err))

			newErrorResponse(c, http.StatusInternalServerError, "Error deleting user")
		}

		return
	}

	log.Info("user deleted", slog.String("user_id", userID.String()))

	c.JSON(http.StatusOK, gin.H{"message": "User successfully deleted"})
}
