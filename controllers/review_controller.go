// File: /controllers/review_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tourbook-api/middleware"
	"tourbook-api/services"
	"tourbook-api/utils"
)

type ReviewController struct {
	reviews *services.ReviewService
}

func NewReviewController(reviews *services.ReviewService) *ReviewController {
	return &ReviewController{reviews: reviews}
}

func (rc *ReviewController) list(c *gin.Context, tourID string) {
	reviews, err := rc.reviews.List(c.Request.Context(), tourID, c.Request.URL.Query())
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendList(c, reviews, len(reviews))
}

func (rc *ReviewController) create(c *gin.Context, tourID string) {
	var req services.ReviewInput
	if !bindJSON(c, &req) {
		return
	}

	review, err := rc.reviews.Create(c.Request.Context(), middleware.CurrentUser(c), tourID, req)
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusCreated, review)
}

func (rc *ReviewController) GetReviews(c *gin.Context) {
	rc.list(c, "")
}

func (rc *ReviewController) CreateReview(c *gin.Context) {
	rc.create(c, "")
}

// GetTourReviews handles /tours/:id/reviews.
func (rc *ReviewController) GetTourReviews(c *gin.Context) {
	rc.list(c, c.Param("id"))
}

// CreateTourReview handles POST /tours/:id/reviews.
func (rc *ReviewController) CreateTourReview(c *gin.Context) {
	rc.create(c, c.Param("id"))
}

func (rc *ReviewController) GetReview(c *gin.Context) {
	review, err := rc.reviews.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, review)
}

func (rc *ReviewController) UpdateReview(c *gin.Context) {
	var req services.ReviewUpdate
	if !bindJSON(c, &req) {
		return
	}

	review, err := rc.reviews.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, review)
}

func (rc *ReviewController) DeleteReview(c *gin.Context) {
	if err := rc.reviews.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	utils.SendNoContent(c)
}
