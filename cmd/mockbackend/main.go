// Command mockbackend serves sample tenant APIs for local gateway testing.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Order struct {
	ID     string `json:"id"`
	Amount int    `json:"amount"`
}

type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserOrder struct {
	UserID  string `json:"userId"`
	OrderID string `json:"orderId"`
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	flag.Parse()

	log.Printf("mock backend listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, newRouter()))
}

func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Order{ID: chi.URLParam(r, "orderId"), Amount: 100})
	})

	// rejects non-positive amounts so upstream 4xx relaying can be tried out
	r.Post("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		var o Order
		if err := json.NewDecoder(r.Body).Decode(&o); err != nil || o.Amount <= 0 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "bad input"})
			return
		}
		if o.ID == "" {
			o.ID = "generated"
		}
		writeJSON(w, http.StatusCreated, o)
	})

	r.Get("/api/products/{productId}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Product{ID: chi.URLParam(r, "productId"), Name: "Sample"})
	})

	r.Get("/users/{userId}/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, UserOrder{UserID: chi.URLParam(r, "userId"), OrderID: chi.URLParam(r, "orderId")})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
