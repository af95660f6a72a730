package handler

import "net/http"

const (
	serviceName    = "Netfluenz API"
	serviceVersion = "2.0.0"
)

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type rootResponse struct {
	Message string `json:"message"`
	Docs    string `json:"docs"`
}

// Health は死活監視用のエンドポイント。外部プラットフォームには問い合わせない。
// GET /api/health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: serviceVersion,
	})
}

// Root はAPIのウェルカムメッセージを返す。
// GET /api
func Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "Welcome to " + serviceName,
		Docs:    "/api/docs",
	})
}
