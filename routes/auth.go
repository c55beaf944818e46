package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventhub/apperr"
	"eventhub/models"
)

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/signup
func (d *deps) signup(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Name, email and password are required."))
		return
	}

	u := models.User{Name: req.Name, Email: req.Email, Password: req.Password}
	if err := d.users.Create(c.Request.Context(), &u); err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			respondError(c, apperr.Conflict("Email is already registered."))
			return
		}
		respondError(c, apperr.Internal("create user", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully.",
		"user":    gin.H{"id": u.ID, "name": u.Name, "email": u.Email},
	})
}

// POST /api/auth/login
func (d *deps) login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Email and password are required."))
		return
	}

	user, err := d.users.ValidateCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			respondError(c, apperr.Unauthenticated("Invalid email or password."))
			return
		}
		respondError(c, apperr.Internal("validate credentials", err))
		return
	}

	token, err := d.tokens.GenerateToken(user.Email, user.ID)
	if err != nil {
		respondError(c, apperr.Internal("sign token", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful!",
		"token":   token,
		"user":    gin.H{"id": user.ID, "name": user.Name, "email": user.Email},
	})
}
