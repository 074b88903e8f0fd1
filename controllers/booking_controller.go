// File: /controllers/booking_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tourbook-api/middleware"
	"tourbook-api/repositories"
	"tourbook-api/services"
	"tourbook-api/utils"
)

type BookingController struct {
	bookings *services.BookingService
}

func NewBookingController(bookings *services.BookingService) *BookingController {
	return &BookingController{bookings: bookings}
}

// GetCheckoutSession serves both /checkout-session/:tourId/:date/:price and
// the staff variant with a trailing :userId.
func (bc *BookingController) GetCheckoutSession(c *gin.Context) {
	session, err := bc.bookings.CheckoutSession(c.Request.Context(), services.CheckoutInput{
		Actor:         middleware.CurrentUser(c),
		TourID:        c.Param("tourId"),
		Date:          c.Param("date"),
		Price:         c.Param("price"),
		BookForUserID: c.Param("userId"),
		BaseURL:       baseURL(c),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "session": session})
}

// CommitCheckout runs in front of the overview page. When the payment
// success redirect carries tour, user, price and date it records the booking
// and sends the browser on to the booking list.
func (bc *BookingController) CommitCheckout(c *gin.Context) {
	in := services.CommitInput{
		TourID: c.Query("tour"),
		UserID: c.Query("user"),
		Price:  c.Query("price"),
		Date:   c.Query("date"),
		Admin:  c.Query("admin") == "true",
	}
	if in.TourID == "" || in.UserID == "" || in.Price == "" || in.Date == "" {
		c.Next()
		return
	}

	if _, err := bc.bookings.Commit(c.Request.Context(), in); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	if in.Admin {
		c.Redirect(http.StatusFound, "/dashboard/bookings")
	} else {
		c.Redirect(http.StatusFound, "/my-bookings")
	}
	c.Abort()
}

func (bc *BookingController) list(c *gin.Context, filter repositories.BookingFilter) {
	bookings, err := bc.bookings.List(c.Request.Context(), filter, c.Request.URL.Query())
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendList(c, bookings, len(bookings))
}

func (bc *BookingController) GetBookings(c *gin.Context) {
	bc.list(c, repositories.BookingFilter{})
}

// GetTourBookings handles /tours/:id/bookings.
func (bc *BookingController) GetTourBookings(c *gin.Context) {
	bc.list(c, repositories.BookingFilter{TourID: c.Param("id")})
}

// GetUserBookings handles /users/:id/bookings and /users/:id/tours/:tourId/bookings.
func (bc *BookingController) GetUserBookings(c *gin.Context) {
	bc.list(c, repositories.BookingFilter{UserID: c.Param("id"), TourID: c.Param("tourId")})
}

func (bc *BookingController) GetBooking(c *gin.Context) {
	booking, err := bc.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, booking)
}

func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req services.BookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(utils.Validation("Invalid input data: %v", err))
		return
	}

	booking, err := bc.bookings.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusCreated, booking)
}

func (bc *BookingController) UpdateBooking(c *gin.Context) {
	var req services.BookingUpdate
	if !bindJSON(c, &req) {
		return
	}

	booking, err := bc.bookings.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	utils.SendData(c, http.StatusOK, booking)
}

func (bc *BookingController) DeleteBooking(c *gin.Context) {
	if err := bc.bookings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	utils.SendNoContent(c)
}
