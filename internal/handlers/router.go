package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouteRegistrar is implemented by every handler group
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// NewRouter builds the API router with middleware, the handler groups and
// the documentation routes.
func NewRouter(mw *Middleware, groups ...RouteRegistrar) *mux.Router {
	router := mux.NewRouter()
	router.Use(mw.RequestID, mw.Instrument, mw.Recover)

	for _, g := range groups {
		g.RegisterRoutes(router)
	}
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw.sendError(w, "unmatched", "route_not_found", "route not found", http.StatusNotFound)
	})
	return router
}
