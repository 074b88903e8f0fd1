// File: /controllers/dashboard_controller.go
package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tourbook-api/middleware"
	"tourbook-api/services"
	"tourbook-api/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DashboardController struct {
	dashboard *services.DashboardService
}

func NewDashboardController(dashboard *services.DashboardService) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

// bookingRequest is the admin form: pay for tour on date for user.
type bookingRequest struct {
	TourID string `json:"tour"`
	UserID string `json:"user"`
	Date   string `json:"date"`
	Price  string `json:"price"`
}

// decodePayload reads the body shaped for the section's create or update form.
func decodePayload(c *gin.Context, kind services.SectionKind, create bool) (services.SectionPayload, bool) {
	switch kind {
	case services.SectionUser:
		var p services.UserPayload
		if create {
			var req SignupRequest
			ok := bindJSON(c, &req)
			p.Create = req.input()
			return p, ok
		}
		return p, bindJSON(c, &p.Update)
	case services.SectionTour:
		var p services.TourPayload
		if create {
			return p, bindJSON(c, &p.Create)
		}
		return p, bindJSON(c, &p.Update)
	case services.SectionReview:
		var p services.ReviewPayload
		if create {
			return p, bindJSON(c, &p.Create)
		}
		return p, bindJSON(c, &p.Update)
	case services.SectionBooking:
		var p services.BookingPayload
		if create {
			var req bookingRequest
			ok := bindJSON(c, &req)
			p.Create = services.CheckoutInput{
				TourID:        req.TourID,
				Date:          req.Date,
				Price:         req.Price,
				BookForUserID: req.UserID,
				BaseURL:       baseURL(c),
			}
			return p, ok
		}
		return p, bindJSON(c, &p.Update)
	}
	c.Error(utils.NotFound("There is no dashboard section %s", kind))
	return nil, false
}

func section(c *gin.Context) (services.SectionKind, bool) {
	kind, err := services.ParseSection(c.Param("section"))
	if err != nil {
		c.Error(err)
		return "", false
	}
	return kind, true
}

func (dc *DashboardController) List(c *gin.Context) {
	kind, ok := section(c)
	if !ok {
		return
	}

	data, err := dc.dashboard.List(c.Request.Context(), kind)
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, data)
}

func (dc *DashboardController) Get(c *gin.Context) {
	kind, ok := section(c)
	if !ok {
		return
	}

	data, err := dc.dashboard.Get(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, data)
}

func (dc *DashboardController) Create(c *gin.Context) {
	kind, ok := section(c)
	if !ok {
		return
	}
	payload, ok := decodePayload(c, kind, true)
	if !ok {
		return
	}

	created, err := dc.dashboard.Create(c.Request.Context(), middleware.CurrentUser(c), payload, baseURL(c)+"/confirm-email/")
	if err != nil {
		c.Error(err)
		return
	}

	if session, isSession := created.(*services.CheckoutSession); isSession {
		c.JSON(http.StatusOK, gin.H{"status": "success", "session": session})
		return
	}
	utils.SendData(c, http.StatusCreated, created)
}

func (dc *DashboardController) Update(c *gin.Context) {
	kind, ok := section(c)
	if !ok {
		return
	}
	payload, ok := decodePayload(c, kind, false)
	if !ok {
		return
	}

	updated, err := dc.dashboard.Update(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, updated)
}

func (dc *DashboardController) Delete(c *gin.Context) {
	kind, ok := section(c)
	if !ok {
		return
	}

	if err := dc.dashboard.Delete(c.Request.Context(), kind, c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	utils.SendNoContent(c)
}

// Export downloads the section as an xlsx workbook.
func (dc *DashboardController) Export(c *gin.Context) {
	kind, ok := section(c)
	if !ok {
		return
	}

	data, err := dc.dashboard.Export(c.Request.Context(), kind)
	if err != nil {
		c.Error(err)
		return
	}

	filename := fmt.Sprintf("%s_%s.xlsx", kind.Plural(), time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
