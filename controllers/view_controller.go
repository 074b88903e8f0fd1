// File: /controllers/view_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tourbook-api/middleware"
	"tourbook-api/models"
	"tourbook-api/services"
	"tourbook-api/utils"
)

// ViewController renders the server-side pages. Errors go through
// middleware.ErrorHandler, which renders error.html for these routes.
type ViewController struct {
	tours     *services.TourService
	users     *services.UserService
	bookings  *services.BookingService
	reviews   *services.ReviewService
	dashboard *services.DashboardService
}

func NewViewController(tours *services.TourService, users *services.UserService, bookings *services.BookingService, reviews *services.ReviewService, dashboard *services.DashboardService) *ViewController {
	return &ViewController{tours: tours, users: users, bookings: bookings, reviews: reviews, dashboard: dashboard}
}

func render(c *gin.Context, page string, data gin.H) {
	if _, ok := data["user"]; !ok {
		data["user"] = middleware.CurrentUser(c)
	}
	c.HTML(http.StatusOK, page, data)
}

func (vc *ViewController) Overview(c *gin.Context) {
	tours, err := vc.tours.All(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	render(c, "overview.html", gin.H{"title": "All Tours", "tours": tours})
}

// Tour frees past seats before showing the page so availability is current.
func (vc *ViewController) Tour(c *gin.Context) {
	ctx := c.Request.Context()
	slug := c.Param("slug")
	if err := vc.tours.PurgeExpired(ctx, slug); err != nil {
		c.Error(err)
		return
	}
	tour, err := vc.tours.GetBySlug(ctx, slug)
	if err != nil {
		c.Error(err)
		return
	}

	var favorites []string
	if user := middleware.CurrentUser(c); user != nil {
		if favorites, err = vc.users.FavoriteIDs(ctx, user.ID); err != nil {
			c.Error(err)
			return
		}
	}
	render(c, "tour.html", gin.H{"title": tour.Name + " Tour", "tour": tour, "favorites": favorites})
}

// guestOnly sends signed-in users back to the overview.
func guestOnly(c *gin.Context) bool {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/")
		return false
	}
	return true
}

func (vc *ViewController) SignupForm(c *gin.Context) {
	if guestOnly(c) {
		render(c, "signup.html", gin.H{"title": "Create new account"})
	}
}

func (vc *ViewController) LoginForm(c *gin.Context) {
	if guestOnly(c) {
		render(c, "login.html", gin.H{"title": "Log into your account"})
	}
}

func (vc *ViewController) ConfirmEmail(c *gin.Context) {
	render(c, "confirm_email.html", gin.H{"title": "Confirm your email address"})
}

func (vc *ViewController) Profile(c *gin.Context) {
	render(c, "account.html", gin.H{"title": "Your account"})
}

// SubmitUserData is the form fallback of the profile page.
func (vc *ViewController) SubmitUserData(c *gin.Context) {
	name, email := c.PostForm("name"), c.PostForm("email")
	user, err := vc.users.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c).ID, services.ProfileUpdate{
		Name:  &name,
		Email: &email,
	})
	if err != nil {
		c.Error(err)
		return
	}
	render(c, "account.html", gin.H{"title": "Your account", "user": user})
}

func (vc *ViewController) MyBookings(c *gin.Context) {
	bookings, err := vc.bookings.LatestPerTourDate(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	render(c, "bookings.html", gin.H{"title": "All bookings", "bookings": bookings})
}

func (vc *ViewController) MyFavoriteTours(c *gin.Context) {
	tours, err := vc.users.FavoriteTours(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	render(c, "favorites.html", gin.H{"title": "My favorite tours", "tours": tours})
}

func (vc *ViewController) ReviewForm(c *gin.Context) {
	tour, err := vc.tours.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.Error(err)
		return
	}
	render(c, "review_form.html", gin.H{"title": "Create a review", "tour": tour})
}

func (vc *ViewController) MyReviews(c *gin.Context) {
	reviews, err := vc.reviews.ForUser(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		c.Error(err)
		return
	}
	render(c, "reviews.html", gin.H{"title": "My reviews", "reviews": reviews})
}

func (vc *ViewController) EditReview(c *gin.Context) {
	review, err := vc.reviews.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	user := middleware.CurrentUser(c)
	if review.UserID != user.ID && user.Role != models.RoleAdmin {
		c.Error(utils.Forbidden("You do not have permission to perform this action."))
		return
	}

	title := "Update your review"
	if review.Tour != nil {
		title = "Review for " + review.Tour.Name
	}
	render(c, "review_form.html", gin.H{"title": title, "review": review})
}

// adminSection resolves :section for the dashboard pages. Non-admins are sent
// home rather than shown an error.
func adminSection(c *gin.Context) (services.SectionKind, bool) {
	user := middleware.CurrentUser(c)
	if user == nil || user.Role != models.RoleAdmin {
		c.Redirect(http.StatusFound, "/")
		return "", false
	}
	return section(c)
}

func sectionData(kind services.SectionKind, title string) gin.H {
	return gin.H{"title": title, "section": kind, "plural": kind.Plural()}
}

func (vc *ViewController) Dashboard(c *gin.Context) {
	kind, ok := adminSection(c)
	if !ok {
		return
	}
	data, err := vc.dashboard.List(c.Request.Context(), kind)
	if err != nil {
		c.Error(err)
		return
	}

	page := sectionData(kind, kind.Title("Manage"))
	page["data"] = data
	render(c, "dashboard.html", page)
}

func (vc *ViewController) AddSection(c *gin.Context) {
	kind, ok := adminSection(c)
	if !ok {
		return
	}
	opts, err := vc.dashboard.AddFormOptions(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	page := sectionData(kind, kind.Title("Add"))
	page["tours"] = opts.Tours
	page["users"] = opts.Users
	render(c, "dashboard_add.html", page)
}

func (vc *ViewController) sectionRecord(c *gin.Context, action, template string) {
	kind, ok := adminSection(c)
	if !ok {
		return
	}
	data, err := vc.dashboard.Get(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	page := sectionData(kind, kind.Title(action))
	page["data"] = data
	render(c, template, page)
}

func (vc *ViewController) ViewSection(c *gin.Context) {
	vc.sectionRecord(c, "View", "dashboard_view.html")
}

func (vc *ViewController) UpdateSection(c *gin.Context) {
	vc.sectionRecord(c, "Update", "dashboard_update.html")
}
