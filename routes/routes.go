// File: /routes/routes.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tourbook-api/config"
	"tourbook-api/controllers"
	"tourbook-api/middleware"
	"tourbook-api/models"
	"tourbook-api/repositories"
	"tourbook-api/services"
	"tourbook-api/utils"
	"tourbook-api/views"
)

const (
	apiRateLimit  = 100
	apiRateWindow = time.Hour
)

func SetupRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, mailer services.Mailer, payments services.PaymentProvider) {
	// Repositories
	userRepo := repositories.NewUserRepository(db)
	tourRepo := repositories.NewTourRepository(db)
	bookingRepo := repositories.NewBookingRepository(db)
	reviewRepo := repositories.NewReviewRepository(db)

	// Services
	authService := services.NewAuthService(userRepo, mailer, cfg)
	presenceService := services.NewPresenceService(userRepo)
	userService := services.NewUserService(userRepo, tourRepo)
	tourService := services.NewTourService(tourRepo, userRepo)
	bookingService := services.NewBookingService(db, tourRepo, bookingRepo, userRepo, payments)
	reviewService := services.NewReviewService(reviewRepo, bookingRepo, tourRepo)
	dashboardService := services.NewDashboardService(authService, userService, tourService, reviewService, bookingService)

	// Controllers
	authController := controllers.NewAuthController(authService, cfg)
	userController := controllers.NewUserController(userService, cfg)
	tourController := controllers.NewTourController(tourService)
	bookingController := controllers.NewBookingController(bookingService)
	reviewController := controllers.NewReviewController(reviewService)
	dashboardController := controllers.NewDashboardController(dashboardService)
	viewController := controllers.NewViewController(tourService, userService, bookingService, reviewService, dashboardService)

	r.Use(middleware.ErrorHandler(cfg.IsProduction()))
	r.Use(middleware.Authenticate(authService, presenceService))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "healthy"})
	})

	r.Static("/img", cfg.UploadDir)
	r.StaticFS("/static", http.FS(views.Static()))

	protect := middleware.Protect()
	reviewers := middleware.RestrictTo(models.RoleUser, models.RoleAdmin)
	staff := middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide)
	adminOnly := middleware.RestrictTo(models.RoleAdmin)

	// API version 1
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(apiRateLimit, apiRateWindow))
	v1.Use(middleware.ValidateJSON("/updateProfile"))

	users := v1.Group("/users")
	{
		users.POST("/signup", authController.Signup)
		users.POST("/login", authController.Login)
		users.GET("/logout", authController.Logout)
		users.POST("/forgotPassword", authController.ForgotPassword)
		users.PATCH("/resetPassword/:token", authController.ResetPassword)

		users.PATCH("/updatePassword", protect, authController.UpdatePassword)
		users.PATCH("/updateProfile", protect, userController.UpdateProfile)
		users.DELETE("/deleteMyAccount", protect, userController.DeleteMyAccount)
		users.GET("/me", protect, userController.GetMe)
		users.PATCH("/favorite-tour", protect, userController.FavoriteTour)

		users.GET("/checkEmail/:email", protect, adminOnly, userController.CheckEmail)
		users.GET("", protect, adminOnly, userController.GetUsers)
		users.POST("", protect, adminOnly, userController.CreateUser)
		users.GET("/:id", protect, adminOnly, userController.GetUser)
		users.PATCH("/:id", protect, adminOnly, userController.UpdateUser)
		users.DELETE("/:id", protect, adminOnly, userController.DeleteUser)
		users.GET("/:id/bookings", protect, adminOnly, bookingController.GetUserBookings)
		users.GET("/:id/tours/:tourId/bookings", protect, adminOnly, bookingController.GetUserBookings)
	}

	tours := v1.Group("/tours")
	{
		tours.GET("", tourController.GetTours)
		tours.GET("/top-5-cheap", tourController.GetTopCheap)
		tours.GET("/tours-stats", tourController.GetTourStats)
		tours.GET("/monthly-plan/:year", protect, middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide, models.RoleGuide), tourController.GetMonthlyPlan)
		tours.GET("/tours-within/:distance/center/:latlng/unit/:unit", tourController.GetToursWithin)
		tours.GET("/distances/:latlng/unit/:unit", tourController.GetDistances)
		tours.GET("/checkTourName/:name", protect, staff, tourController.CheckTourName)

		tours.POST("", protect, staff, tourController.CreateTour)
		tours.GET("/:id", tourController.GetTour)
		tours.PATCH("/:id", protect, staff, tourController.UpdateTour)
		tours.DELETE("/:id", protect, staff, tourController.DeleteTour)

		tours.GET("/:id/reviews", reviewController.GetTourReviews)
		tours.POST("/:id/reviews", protect, reviewers, reviewController.CreateTourReview)
		tours.GET("/:id/bookings", protect, staff, bookingController.GetTourBookings)
	}

	reviews := v1.Group("/reviews")
	reviews.Use(protect)
	{
		reviews.GET("", reviewController.GetReviews)
		reviews.POST("", reviewers, reviewController.CreateReview)
		reviews.GET("/:id", reviewController.GetReview)
		reviews.PATCH("/:id", reviewers, reviewController.UpdateReview)
		reviews.DELETE("/:id", reviewers, reviewController.DeleteReview)
	}

	bookings := v1.Group("/bookings")
	bookings.Use(protect)
	{
		bookings.GET("/checkout-session/:tourId/:date/:price", bookingController.GetCheckoutSession)
		bookings.GET("/checkout-session/:tourId/:date/:price/:userId", staff, bookingController.GetCheckoutSession)

		bookings.GET("", staff, bookingController.GetBookings)
		bookings.POST("", staff, bookingController.CreateBooking)
		bookings.GET("/:id", staff, bookingController.GetBooking)
		bookings.PATCH("/:id", staff, bookingController.UpdateBooking)
		bookings.DELETE("/:id", staff, bookingController.DeleteBooking)
	}

	dashboard := v1.Group("/dashboard")
	dashboard.Use(protect, adminOnly)
	{
		dashboard.GET("/:section", dashboardController.List)
		dashboard.GET("/:section/export", dashboardController.Export)
		dashboard.GET("/:section/:id", dashboardController.Get)
		dashboard.POST("/:section", dashboardController.Create)
		dashboard.PATCH("/:section/:id", dashboardController.Update)
		dashboard.DELETE("/:section/:id", dashboardController.Delete)
	}

	// Server-rendered pages
	pages := r.Group("/")
	pages.Use(middleware.MarkView())
	{
		pages.GET("/", bookingController.CommitCheckout, viewController.Overview)
		pages.GET("/tour/:slug", viewController.Tour)
		pages.GET("/tour/:slug/create-review", protect, viewController.ReviewForm)
		pages.GET("/login", viewController.LoginForm)
		pages.GET("/signup", viewController.SignupForm)
		pages.GET("/confirm-email", viewController.ConfirmEmail)
		pages.GET("/confirm-email/:token", authController.ConfirmEmail)

		pages.GET("/profile", protect, viewController.Profile)
		pages.POST("/submit-user-data", protect, viewController.SubmitUserData)
		pages.GET("/my-bookings", protect, viewController.MyBookings)
		pages.GET("/my-favorites-tours", protect, viewController.MyFavoriteTours)
		pages.GET("/my-reviews", protect, viewController.MyReviews)
		pages.GET("/review/:id", protect, viewController.EditReview)

		pages.GET("/dashboard/:section", viewController.Dashboard)
		pages.GET("/dashboard/:section/add", viewController.AddSection)
		pages.GET("/dashboard/:section/:id", viewController.ViewSection)
		pages.GET("/dashboard/:section/:id/update", viewController.UpdateSection)
	}

	r.NoRoute(func(c *gin.Context) {
		c.Error(utils.NotFound("Can't find %s on this server!", c.Request.URL.RequestURI()))
	})
}
