// File: /controllers/tour_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tourbook-api/services"
	"tourbook-api/utils"
)

type TourController struct {
	tours *services.TourService
}

func NewTourController(tours *services.TourService) *TourController {
	return &TourController{tours: tours}
}

func (tc *TourController) GetTours(c *gin.Context) {
	tours, err := tc.tours.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendList(c, tours, len(tours))
}

// GetTopCheap is the five best rated, cheapest tours.
func (tc *TourController) GetTopCheap(c *gin.Context) {
	tours, err := tc.tours.TopCheap(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendList(c, tours, len(tours))
}

func (tc *TourController) GetTour(c *gin.Context) {
	tour, err := tc.tours.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, tour)
}

func (tc *TourController) CreateTour(c *gin.Context) {
	var req services.TourInput
	if !bindJSON(c, &req) {
		return
	}

	tour, err := tc.tours.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusCreated, tour)
}

func (tc *TourController) UpdateTour(c *gin.Context) {
	var req services.TourUpdate
	if !bindJSON(c, &req) {
		return
	}

	tour, err := tc.tours.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, tour)
}

func (tc *TourController) DeleteTour(c *gin.Context) {
	if err := tc.tours.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	utils.SendNoContent(c)
}

func (tc *TourController) CheckTourName(c *gin.Context) {
	exists, err := tc.tours.CheckName(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "exists": exists})
}

func (tc *TourController) GetTourStats(c *gin.Context) {
	stats, err := tc.tours.Stats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"stats": stats}})
}

func (tc *TourController) GetMonthlyPlan(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.Error(utils.Validation("Invalid year %s", c.Param("year")))
		return
	}

	plan, err := tc.tours.MonthlyPlan(c.Request.Context(), year)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"size": len(plan), "plan": plan}})
}

// GetToursWithin handles /tours-within/:distance/center/:latlng/unit/:unit.
func (tc *TourController) GetToursWithin(c *gin.Context) {
	distance, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil {
		c.Error(utils.Validation("Please provide a valid distance."))
		return
	}

	tours, err := tc.tours.Within(c.Request.Context(), distance, c.Param("latlng"), c.Param("unit"))
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendList(c, tours, len(tours))
}

func (tc *TourController) GetDistances(c *gin.Context) {
	distances, err := tc.tours.Distances(c.Request.Context(), c.Param("latlng"), c.Param("unit"))
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, distances)
}
