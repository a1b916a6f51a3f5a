package wire

import (
	"homestay-booking/internal/adaptor"
	"homestay-booking/internal/data/repository"
	"homestay-booking/internal/usecase"
	"homestay-booking/pkg/clock"
	"homestay-booking/pkg/middleware"
	"homestay-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the assembled HTTP surface
type App struct {
	Router *chi.Mux
}

// Wiring builds handlers over service and mounts every route.
func Wiring(service *usecase.Service, repo *repository.Repository, pinger adaptor.Pinger, clk clock.Clock, config *utils.Config, logger *zap.Logger) *App {
	handler := adaptor.NewHandler(service, pinger, logger)
	auth := middleware.NewAuthenticator(repo.Session, repo.User, clk, logger)

	return &App{
		Router: setupRouter(handler, auth, config, logger),
	}
}

// setupRouter configures the chi router
func setupRouter(
	handler *adaptor.Handler,
	auth *middleware.Authenticator,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins))

	// Apply routes
	wireAuth(r, handler.Auth, auth)
	wireAvailability(r, handler.Availability)
	wireBooking(r, handler.Booking, auth, logger)
	wirePayment(r, handler.Payment, auth, logger)

	r.Get("/health", handler.Health.Health)

	return r
}
