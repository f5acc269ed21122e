package handlers

import (
	"fmt"
	"net/http"

	"github.com/arjun7095/Chat-Application/database"
	"github.com/arjun7095/Chat-Application/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router 集合所有 HTTP 路由需要的元件
type Router struct {
	Auth      *AuthHandler
	Rooms     *RoomHandler
	Guard     *middleware.IdentityGuard
	WebSocket http.Handler
	Store     database.Store
}

// NewRouter 註冊 REST、WebSocket、健康檢查與 metrics 路由
func NewRouter(deps Router) *mux.Router {
	router := mux.NewRouter()

	// 健康檢查路由
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Store.Ping(r.Context()); err != nil {
			sendJSONError(w, "Storage unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "Backend is running!")
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.Handle("/ws", deps.WebSocket)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", deps.Auth.RegisterUser).Methods(http.MethodPost)
	api.HandleFunc("/login", deps.Auth.LoginUser).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(deps.Guard.JWTMiddleware)
	protected.HandleFunc("/rooms", deps.Rooms.ListRooms).Methods(http.MethodGet)
	protected.HandleFunc("/rooms", deps.Rooms.CreateRoom).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{room}", deps.Rooms.DeleteRoom).Methods(http.MethodDelete)
	protected.HandleFunc("/messages/{room}", deps.Rooms.GetMessages).Methods(http.MethodGet)
	protected.HandleFunc("/messages", deps.Rooms.PostMessage).Methods(http.MethodPost)

	return router
}
