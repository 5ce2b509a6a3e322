// health.go — обработчики health endpoints.
// /health — статус сервиса и соединения с IPFS (всегда 200)
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (директория записей + индекс)
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/arturkryukov/nftstore/internal/config"
)

// Константы статусов health check.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// Pinger — liveness probe IPFS-узла.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// IndexReadinessChecker — интерфейс для проверки готовности индекса.
type IndexReadinessChecker interface {
	IsReady() bool
}

// HealthHandler реализует health endpoints.
type HealthHandler struct {
	version string
	// pinger — probe IPFS-узла (для /health)
	pinger Pinger
	// pingTimeout — таймаут liveness probe
	pingTimeout time.Duration
	// metadataDir — директория записей (для проверки FS в /health/ready)
	metadataDir string
	// idx — ссылка на индекс для проверки готовности
	idx IndexReadinessChecker
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(pinger Pinger, pingTimeout time.Duration, metadataDir string, idx IndexReadinessChecker) *HealthHandler {
	return &HealthHandler{
		version:     config.Version,
		pinger:      pinger,
		pingTimeout: pingTimeout,
		metadataDir: metadataDir,
		idx:         idx,
	}
}

// healthResponse — ответ GET /health.
type healthResponse struct {
	Status    string `json:"status"`
	IPFS      string `json:"ipfs"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// Health обрабатывает GET /health.
// Всегда возвращает 200: статус "ok"/"degraded" и состояние IPFS
// "connected"/"disconnected" передаются в теле.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    statusOK,
		IPFS:      "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Service:   config.ServiceName,
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.pingTimeout)
	defer cancel()

	if h.pinger == nil || !h.pinger.Ping(ctx) {
		resp.Status = statusDegraded
		resp.IPFS = "disconnected"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    statusOK,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   config.ServiceName,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: директория записей доступна на запись, индекс построен.
// IPFS-узел намеренно не проверяется: сервис отдаёт уже созданные
// записи и без узла, деградация видна в /health и метриках dephealth.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := statusOK
	httpStatus := http.StatusOK

	fsCheck := h.checkFilesystem()
	if fsCheck["status"] != statusOK {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	indexReady := true
	if h.idx != nil {
		indexReady = h.idx.IsReady()
	}
	if !indexReady {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   config.ServiceName,
		"checks": map[string]any{
			"filesystem": fsCheck,
			"index": map[string]any{
				"status": readyStatus(indexReady),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// checkFilesystem проверяет доступность директории записей на запись.
func (h *HealthHandler) checkFilesystem() map[string]any {
	if h.metadataDir == "" {
		return map[string]any{
			"status":  statusOK,
			"message": "Проверка не настроена",
		}
	}

	testFile := filepath.Join(h.metadataDir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Директория записей недоступна для записи: " + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	return map[string]any{
		"status": statusOK,
	}
}

func readyStatus(ready bool) string {
	if ready {
		return statusOK
	}
	return statusFail
}
