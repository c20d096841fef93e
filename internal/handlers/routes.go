package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type RouterOptions struct {
	CORSOrigins    []string
	RateLimitRPM   int
	RequestTimeout time.Duration
	MetricsHandler http.Handler
}

func (h *Handler) Routes(m *Middleware, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.CORS(opts.CORSOrigins))
	r.Use(m.RateLimit(opts.RateLimitRPM))
	if opts.RequestTimeout > 0 {
		r.Use(m.Timeout(opts.RequestTimeout))
	}

	r.Get("/healthz", h.Healthz)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.Identify)

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/categories", h.ListCategories)
		r.Get("/posts", h.ListPosts)
		r.Get("/posts/{postID}", h.GetPost)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Post("/logout", h.Logout)
			r.Route("/me", func(r chi.Router) {
				r.Get("/", h.Me)
				r.Get("/posts", h.MyPosts)
				r.Get("/history", h.History)
				r.Get("/feed", h.Feed)
				r.Get("/subscriptions", h.Subscriptions)
				r.Put("/subscriptions/{userID}", h.Subscribe)
				r.Delete("/subscriptions/{userID}", h.Unsubscribe)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireActive)

			r.Post("/posts", h.CreatePost)
			r.Post("/posts/{postID}/comments", h.AddComment)
			r.Post("/posts/{postID}/comments/{commentID}/replies", h.Reply)
			r.Post("/posts/{postID}/reaction", h.ReactToPost)
			r.Post("/comments/{commentID}/like", h.LikeComment)
			r.Post("/comments/{commentID}/reaction", h.ReactToComment)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAdmin)

			r.Post("/categories", h.CreateCategory)
			r.Delete("/categories/{categoryID}", h.DeleteCategory)
			r.Delete("/posts/{postID}", h.DeletePost)
			r.Post("/admins", h.MakeAdmin)
			r.Post("/suspensions", h.Suspend)
			r.Get("/stats", h.Stats)
		})
	})

	return r
}
