package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"jansarthi/handler"
	"jansarthi/middleware"
)

// SetupRoutes wires the full HTTP surface.
func SetupRoutes(
	issueHandler *handler.IssueHandler,
	adminHandler *handler.AdminHandler,
	publicHandler *handler.PublicHandler,
	auth *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", handler.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// public endpoints
	api.HandleFunc("/reports/map", issueHandler.Map).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id:[0-9]+}", issueHandler.GetIssue).Methods(http.MethodGet)
	api.HandleFunc("/localities", publicHandler.ListLocalities).Methods(http.MethodGet)
	api.HandleFunc("/localities/{id:[0-9]+}", publicHandler.GetLocality).Methods(http.MethodGet)

	// authenticated endpoints
	api.Handle("/reports", auth.RequireAuth(http.HandlerFunc(issueHandler.CreateIssue))).Methods(http.MethodPost)
	api.Handle("/reports/{id:[0-9]+}/status", auth.RequireAuth(http.HandlerFunc(issueHandler.UpdateStatus))).Methods(http.MethodPatch)
	api.Handle("/reports/{id:[0-9]+}/photos", auth.RequireAuth(http.HandlerFunc(issueHandler.AddPhotos))).Methods(http.MethodPost)

	// admin endpoints
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Handle("/localities", auth.RequireAdmin(http.HandlerFunc(adminHandler.CreateLocality))).Methods(http.MethodPost)
	admin.Handle("/localities", auth.RequireAdmin(http.HandlerFunc(adminHandler.ListLocalities))).Methods(http.MethodGet)
	admin.Handle("/localities/{id:[0-9]+}", auth.RequireAdmin(http.HandlerFunc(adminHandler.GetLocality))).Methods(http.MethodGet)
	admin.Handle("/localities/{id:[0-9]+}", auth.RequireAdmin(http.HandlerFunc(adminHandler.UpdateLocality))).Methods(http.MethodPatch)
	admin.Handle("/localities/{id:[0-9]+}", auth.RequireAdmin(http.HandlerFunc(adminHandler.DeleteLocality))).Methods(http.MethodDelete)
	admin.Handle("/users", auth.RequireAdmin(http.HandlerFunc(adminHandler.CreateUser))).Methods(http.MethodPost)
	admin.Handle("/users", auth.RequireAdmin(http.HandlerFunc(adminHandler.ListUsers))).Methods(http.MethodGet)
	admin.Handle("/users/{id:[0-9]+}", auth.RequireAdmin(http.HandlerFunc(adminHandler.GetUser))).Methods(http.MethodGet)
	admin.Handle("/users/{id:[0-9]+}", auth.RequireAdmin(http.HandlerFunc(adminHandler.UpdateUser))).Methods(http.MethodPatch)
	admin.Handle("/users/{id:[0-9]+}", auth.RequireAdmin(http.HandlerFunc(adminHandler.DeactivateUser))).Methods(http.MethodDelete)
	admin.Handle("/reports/{id:[0-9]+}", auth.RequireAdmin(http.HandlerFunc(adminHandler.DeleteIssue))).Methods(http.MethodDelete)

	return r
}
