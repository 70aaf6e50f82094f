// Package rest wires the HTTP surface: the native path-style routes, the
// action surface, and the shared middleware stack.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"s3vectors/application/commands/bus"
	querybus "s3vectors/application/queries/bus"
	"s3vectors/interfaces/http/rest/handlers"
	"s3vectors/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/healthz", rt.healthCheck)

	bucketHandler := handlers.NewBucketHandler(rt.commandBus, rt.queryBus, rt.logger)
	indexHandler := handlers.NewIndexHandler(rt.commandBus, rt.queryBus, rt.logger)
	vectorHandler := handlers.NewVectorHandler(rt.commandBus, rt.queryBus, rt.logger)

	// Native path-style surface
	router.Route("/buckets", func(r chi.Router) {
		r.Get("/", bucketHandler.List)
		r.Route("/{bucket}", func(r chi.Router) {
			r.Put("/", bucketHandler.Create)
			r.Get("/", bucketHandler.Get)
			r.Delete("/", bucketHandler.Delete)

			r.Route("/indexes", func(r chi.Router) {
				r.Get("/", indexHandler.List)
				r.Route("/{index}", func(r chi.Router) {
					r.Post("/", indexHandler.Create)
					r.Get("/", indexHandler.Get)
					r.Delete("/", indexHandler.Delete)

					r.Post("/vectors", vectorHandler.Put)
					r.Post("/query", vectorHandler.Query)
					r.Post("/vectors:get", vectorHandler.Get)
					r.Post("/vectors:list", vectorHandler.List)
					r.Post("/vectors:delete", vectorHandler.Delete)
				})
			})
		})
	})

	// Action surface: the path is the operation name, coordinates ride in
	// the body
	actionHandler := handlers.NewActionHandler(rt.commandBus, rt.queryBus, rt.logger)
	router.Post("/{action}", actionHandler.Dispatch)

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
