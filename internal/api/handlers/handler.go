// handler.go — APIHandler собирает доменные handlers и регистрирует
// маршруты на chi-роутере.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIHandler — единый handler всех endpoints NFT Store.
type APIHandler struct {
	nft         *NFTHandler
	health      *HealthHandler
	promHandler http.Handler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(nft *NFTHandler, health *HealthHandler) *APIHandler {
	return &APIHandler{
		nft:         nft,
		health:      health,
		promHandler: promhttp.Handler(),
	}
}

// RegisterRoutes регистрирует все маршруты на роутере.
// authMw — middleware аутентификации для мутирующих endpoints
// (nil — аутентификация выключена).
func (h *APIHandler) RegisterRoutes(r chi.Router, authMw func(http.Handler) http.Handler) {
	// Мутирующие endpoints — с аутентификацией, если настроена
	r.Group(func(r chi.Router) {
		if authMw != nil {
			r.Use(authMw)
		}
		r.Post("/upload/", h.nft.Upload)
		r.Post("/upload", h.nft.Upload)
	})

	// Читающие endpoints — всегда публичные
	r.Get("/nft/{nft_id}", h.nft.Get)
	r.Get("/nfts/", h.nft.List)
	r.Get("/nfts", h.nft.List)
	r.Get("/qrcode/{nft_id}", h.nft.QRCode)
	r.Get("/qrcode/gateway/{nft_id}", h.nft.GatewayQRCode)

	// Health и метрики
	r.Get("/health", h.health.Health)
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.promHandler.ServeHTTP)
}
