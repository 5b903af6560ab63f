package httpserver

import (
	"log/slog"
	"net/http"

	"meal_planner/internal/auth"
	"meal_planner/internal/http_server/handlers/dishes"
	"meal_planner/internal/http_server/handlers/guests"
	"meal_planner/internal/http_server/handlers/login"
	"meal_planner/internal/http_server/handlers/meals"
	menuHandler "meal_planner/internal/http_server/handlers/menu"
	"meal_planner/internal/http_server/handlers/ranks"
	"meal_planner/internal/http_server/handlers/refresh"
	"meal_planner/internal/http_server/handlers/revoke"
	"meal_planner/internal/http_server/handlers/signup"
	"meal_planner/internal/lib/api/cookie"
	"meal_planner/internal/menu"
	"meal_planner/internal/middleware/authenticate"
	rateLimit "meal_planner/internal/middleware/ratelimit"
	"meal_planner/internal/planner"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Services struct {
	Auth    *auth.Auth
	Planner *planner.Planner
	Menu    *menu.Service
	Cookie  cookie.Config
}

func NewRouter(log *slog.Logger, svc Services) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.With(rateLimit.Signup()).Post("/signup", signup.New(log, svc.Auth))
		r.With(rateLimit.Login()).Post("/login", login.New(log, svc.Auth, svc.Cookie))
		r.With(rateLimit.Refresh()).Post("/refresh", refresh.New(log, svc.Auth, svc.Cookie))
		r.With(rateLimit.Revoke()).Post("/revoke", revoke.New(log, svc.Auth, svc.Cookie))
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticate.New(log, svc.Auth))

		r.Get("/guests", guests.NewList(log, svc.Planner))
		r.Post("/guests", guests.NewCreate(log, svc.Planner))
		r.Put("/guests/{guestID}/ranks/{dishID}", ranks.New(log, svc.Planner))

		r.Get("/dishes", dishes.NewList(log, svc.Planner))
		r.Post("/dishes", dishes.NewCreate(log, svc.Planner))

		r.Get("/meals", meals.NewList(log, svc.Planner))
		r.Post("/meals", meals.NewCreate(log, svc.Planner))
		r.Put("/meals/{mealID}/guests/{guestID}", meals.NewInvite(log, svc.Planner))
		r.Get("/meals/{mealID}/menu", menuHandler.New(log, svc.Menu))
	})

	return r
}
