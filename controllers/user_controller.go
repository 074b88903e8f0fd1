// File: /controllers/user_controller.go
package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tourbook-api/config"
	"tourbook-api/middleware"
	"tourbook-api/services"
	"tourbook-api/utils"
)

type UserController struct {
	users     *services.UserService
	cookies   sessionCookies
	uploadDir string
}

func NewUserController(users *services.UserService, cfg *config.Config) *UserController {
	return &UserController{
		users:     users,
		cookies:   newSessionCookies(cfg),
		uploadDir: filepath.Join(cfg.UploadDir, "users"),
	}
}

func (uc *UserController) GetMe(c *gin.Context) {
	user, err := uc.users.Me(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, user)
}

// UpdateProfile accepts JSON or a multipart form with an optional photo.
func (uc *UserController) UpdateProfile(c *gin.Context) {
	current := middleware.CurrentUser(c)

	var req services.ProfileUpdate
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			c.Error(utils.Validation("Invalid input data: %v", err))
			return
		}
		photo, err := uc.savePhoto(c, current.ID)
		if err != nil {
			c.Error(err)
			return
		}
		req.Photo = photo
	} else if !bindJSON(c, &req) {
		return
	}

	user, err := uc.users.UpdateProfile(c.Request.Context(), current.ID, req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": user}})
}

// savePhoto stores the "photo" upload as user-<id>-<millis>.<ext> and
// returns the file name, or "" when no file was sent.
func (uc *UserController) savePhoto(c *gin.Context, userID string) (string, error) {
	file, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", utils.Validation("Invalid photo upload: %v", err)
	}
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		return "", utils.Validation("Not an image! Please upload only images.")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = ".jpeg"
	}
	name := fmt.Sprintf("user-%s-%d%s", userID, time.Now().UnixMilli(), ext)

	if err := os.MkdirAll(uc.uploadDir, 0o755); err != nil {
		return "", utils.Internal(err, "Could not store the photo")
	}
	if err := c.SaveUploadedFile(file, filepath.Join(uc.uploadDir, name)); err != nil {
		return "", utils.Internal(err, "Could not store the photo")
	}
	return name, nil
}

func (uc *UserController) DeleteMyAccount(c *gin.Context) {
	if err := uc.users.DeleteMyAccount(c.Request.Context(), middleware.CurrentUser(c).ID); err != nil {
		c.Error(err)
		return
	}

	uc.cookies.clear(c)
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": nil})
}

func (uc *UserController) FavoriteTour(c *gin.Context) {
	var req struct {
		TourID string `json:"tourId"`
	}
	if !bindJSON(c, &req) {
		return
	}

	result, err := uc.users.ToggleFavorite(c.Request.Context(), middleware.CurrentUser(c).ID, req.TourID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"action":        result.Action,
		"favoriteCount": result.FavoriteCount,
	})
}

func (uc *UserController) CheckEmail(c *gin.Context) {
	exists, err := uc.users.CheckEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "exists": exists})
}

// Admin endpoints

func (uc *UserController) GetUsers(c *gin.Context) {
	users, err := uc.users.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendList(c, users, len(users))
}

func (uc *UserController) GetUser(c *gin.Context) {
	user, err := uc.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, user)
}

// CreateUser is not offered; accounts come from signup.
func (uc *UserController) CreateUser(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, utils.ErrorResponse{
		Status:  "error",
		Message: "This route is not defined! Please use /signup instead",
	})
}

func (uc *UserController) UpdateUser(c *gin.Context) {
	var req services.UserUpdate
	if !bindJSON(c, &req) {
		return
	}

	user, err := uc.users.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, user)
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	if err := uc.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	utils.SendNoContent(c)
}
