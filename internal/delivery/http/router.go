package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/mjpery-beep/mj-member-sub014/internal/delivery/http/controllers"
)

// NewRouter initializes the HTTP router with all application routes.
// requireAuth wraps every dashboard route; metrics is served unauthenticated on /metrics.
func NewRouter(
	dashboardController *controllers.DashboardController,
	pickerController *controllers.PickerController,
	requireAuth func(http.HandlerFunc) http.HandlerFunc,
	metrics http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()

	// Dashboard
	mux.HandleFunc("GET /dashboard", requireAuth(dashboardController.GetDashboard))
	mux.HandleFunc("DELETE /dashboard", requireAuth(dashboardController.CloseDashboard))
	mux.HandleFunc("POST /dashboard/load", requireAuth(dashboardController.LoadDashboard))
	mux.HandleFunc("PUT /dashboard/filter", requireAuth(dashboardController.SetFilter))
	mux.HandleFunc("PUT /dashboard/selection", requireAuth(dashboardController.SetSelection))

	// Events
	mux.HandleFunc("POST /events/{eventID}/fetch", requireAuth(dashboardController.FetchEvent))
	mux.HandleFunc("POST /events/{eventID}/claim", requireAuth(dashboardController.ClaimEvent))
	mux.HandleFunc("POST /events/{eventID}/release", requireAuth(dashboardController.ReleaseEvent))
	mux.HandleFunc("PUT /events/{eventID}/attendance", requireAuth(dashboardController.SetAttendance))
	mux.HandleFunc("POST /events/{eventID}/registrations/{registrationID}/payment", requireAuth(dashboardController.TogglePayment))
	mux.HandleFunc("DELETE /events/{eventID}/registrations/{registrationID}", requireAuth(dashboardController.RemoveRegistration))
	mux.HandleFunc("POST /events/{eventID}/members", requireAuth(dashboardController.AddMembers))
	mux.HandleFunc("POST /events/{eventID}/messages", requireAuth(dashboardController.SendMessage))

	// Member picker
	mux.HandleFunc("POST /events/{eventID}/picker", requireAuth(pickerController.OpenPicker))
	mux.HandleFunc("GET /picker", requireAuth(pickerController.GetPicker))
	mux.HandleFunc("DELETE /picker", requireAuth(pickerController.ClosePicker))
	mux.HandleFunc("PUT /picker/search", requireAuth(pickerController.SearchPicker))
	mux.HandleFunc("POST /picker/scroll", requireAuth(pickerController.ScrollPicker))
	mux.HandleFunc("POST /picker/selection/{memberID}", requireAuth(pickerController.TogglePickerSelection))
	mux.HandleFunc("POST /picker/submit", requireAuth(pickerController.SubmitPicker))

	// Health and metrics
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
