// nft.go — HTTP handlers операций NFT.
// Upload, Get, List, QR-коды.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arturkryukov/nftstore/internal/api/errors"
	"github.com/arturkryukov/nftstore/internal/api/middleware"
	"github.com/arturkryukov/nftstore/internal/domain/model"
	"github.com/arturkryukov/nftstore/internal/service"
)

// multipartMemoryLimit — буфер парсинга multipart form в памяти,
// остальное уходит во временные файлы.
const multipartMemoryLimit = 32 << 20 // 32 MB

// NFTHandler — обработчик endpoints NFT.
type NFTHandler struct {
	nftSvc *service.NFTService
	qrSvc  *service.QRService
	// maxUploadSize — лимит размера тела запроса (NFT_MAX_UPLOAD_SIZE)
	maxUploadSize int64
}

// NewNFTHandler создаёт обработчик endpoints NFT.
func NewNFTHandler(nftSvc *service.NFTService, qrSvc *service.QRService, maxUploadSize int64) *NFTHandler {
	return &NFTHandler{
		nftSvc:        nftSvc,
		qrSvc:         qrSvc,
		maxUploadSize: maxUploadSize,
	}
}

// nftListResponse — ответ GET /nfts/.
type nftListResponse struct {
	NFTs       []*model.NFTRecord `json:"nfts"`
	TotalCount int                `json:"total_count"`
}

// Upload обрабатывает POST /upload/.
// Multipart form: name (обязательно), description (обязательно),
// file (опционально), content (опционально, текстовая альтернатива file),
// attributes (опционально, JSON-массив {trait_type, value}).
func (h *NFTHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Лимит на всё тело запроса, включая multipart-заголовки
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			errors.FileTooLarge(w, fmt.Sprintf("Размер запроса превышает максимум %d байт", h.maxUploadSize))
			return
		}
		errors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	params := service.UploadParams{
		Name:           r.FormValue("name"),
		Description:    r.FormValue("description"),
		AttributesJSON: r.FormValue("attributes"),
		Content:        r.FormValue("content"),
		CreatedBy:      middleware.SubjectFromContext(r.Context()),
	}

	// Файл опционален: без него требуется поле content
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		params.File = file
		params.Filename = header.Filename
		params.ContentType = header.Header.Get("Content-Type")
	}

	rec, uploadErr := h.nftSvc.Upload(r.Context(), params)
	if uploadErr != nil {
		errors.WriteError(w, uploadErr.StatusCode, uploadErr.Code, uploadErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Get обрабатывает GET /nft/{nft_id}.
func (h *NFTHandler) Get(w http.ResponseWriter, r *http.Request) {
	nftID := chi.URLParam(r, "nft_id")
	if nftID == "" {
		errors.ValidationError(w, "Параметр nft_id обязателен")
		return
	}

	rec, getErr := h.nftSvc.Get(nftID)
	if getErr != nil {
		errors.WriteError(w, getErr.StatusCode, getErr.Code, getErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// List обрабатывает GET /nfts/.
// Пагинация: limit (по умолчанию 50, максимум 1000), offset.
func (h *NFTHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil || n == 0 || n > 1000 {
			errors.ValidationError(w, "Параметр limit должен быть от 1 до 1000")
			return
		}
		limit = n
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			errors.ValidationError(w, "Параметр offset не может быть отрицательным")
			return
		}
		offset = n
	}

	items, total := h.nftSvc.List(limit, offset)
	if items == nil {
		items = []*model.NFTRecord{}
	}

	writeJSON(w, http.StatusOK, nftListResponse{
		NFTs:       items,
		TotalCount: total,
	})
}

// QRCode обрабатывает GET /qrcode/{nft_id}.
// Возвращает PNG QR-код с ipfs:// URI содержимого.
func (h *NFTHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	rec, getErr := h.nftSvc.Get(chi.URLParam(r, "nft_id"))
	if getErr != nil {
		errors.WriteError(w, getErr.StatusCode, getErr.Code, getErr.Message)
		return
	}

	png, err := h.qrSvc.ContentPNG(rec)
	if err != nil {
		errors.InternalError(w, "Ошибка генерации QR-кода")
		return
	}

	writePNG(w, png)
}

// GatewayQRCode обрабатывает GET /qrcode/gateway/{nft_id}?gateway=.
// Возвращает PNG QR-код с URL содержимого через публичный gateway.
func (h *NFTHandler) GatewayQRCode(w http.ResponseWriter, r *http.Request) {
	rec, getErr := h.nftSvc.Get(chi.URLParam(r, "nft_id"))
	if getErr != nil {
		errors.WriteError(w, getErr.StatusCode, getErr.Code, getErr.Message)
		return
	}

	png, err := h.qrSvc.GatewayPNG(rec, r.URL.Query().Get("gateway"))
	if err != nil {
		errors.InternalError(w, "Ошибка генерации QR-кода")
		return
	}

	writePNG(w, png)
}

// --- Вспомогательные функции ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("отрицательное значение: %d", n)
	}
	return n, nil
}
