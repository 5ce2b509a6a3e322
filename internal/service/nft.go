// nft.go — сервис создания и чтения NFT.
// Оркестрация загрузки: валидация → генерация id → add содержимого
// в IPFS → сборка metadata → add metadata → сохранение записи
// в локальный индекс. Без retry: любой сбой прерывает запрос целиком,
// частичные записи в индекс не попадают.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apierrors "github.com/arturkryukov/nftstore/internal/api/errors"
	"github.com/arturkryukov/nftstore/internal/api/middleware"
	"github.com/arturkryukov/nftstore/internal/domain/model"
	"github.com/arturkryukov/nftstore/internal/ipfs"
	"github.com/arturkryukov/nftstore/internal/storage/index"
)

// IPFSClient — операции IPFS-узла, нужные сервису.
// Реализация — *ipfs.Client; в тестах подменяется fake.
type IPFSClient interface {
	Add(ctx context.Context, reader io.Reader, name string) (string, error)
	AddBytes(ctx context.Context, data []byte, name string) (string, error)
	Ping(ctx context.Context) bool
}

// UploadParams — параметры создания NFT.
type UploadParams struct {
	// Name — имя NFT (обязательное)
	Name string
	// Description — описание NFT (обязательное)
	Description string
	// AttributesJSON — JSON-массив атрибутов (опционально)
	AttributesJSON string
	// File — поток содержимого файла (nil, если файл не передан)
	File io.Reader
	// Filename — оригинальное имя файла
	Filename string
	// ContentType — MIME-тип файла
	ContentType string
	// Content — текстовое содержимое, альтернатива файлу
	Content string
	// CreatedBy — subject из JWT (пусто без аутентификации)
	CreatedBy string
}

// NFTError — ошибка сервиса с HTTP-кодом.
type NFTError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *NFTError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NFTService — сервис создания и чтения NFT.
type NFTService struct {
	ipfs   IPFSClient
	idx    index.Store
	cache  *CacheService
	logger *slog.Logger
}

// NewNFTService создаёт сервис NFT.
// cache может быть nil — тогда чтение идёт напрямую из индекса.
func NewNFTService(ipfsClient IPFSClient, idx index.Store, cache *CacheService, logger *slog.Logger) *NFTService {
	return &NFTService{
		ipfs:   ipfsClient,
		idx:    idx,
		cache:  cache,
		logger: logger.With(slog.String("component", "nft_service")),
	}
}

// Upload создаёт NFT: сохраняет содержимое и metadata-документ в IPFS
// и записывает результат в локальный индекс.
//
// Поток:
//  1. Валидация (name, description, attributes, наличие содержимого)
//  2. Генерация nft_id (UUID v4)
//  3. add содержимого → content_cid
//  4. Сборка metadata (image = ipfs://{content_cid})
//  5. add сериализованного metadata → metadata_cid
//  6. Запись в индекс (атомарный файл + map)
//
// Валидация выполняется до любых побочных эффектов: отклонённая
// загрузка не делает ни одного обращения к IPFS и не пишет в индекс.
func (s *NFTService) Upload(ctx context.Context, params UploadParams) (*model.NFTRecord, *NFTError) {
	// 1. Валидация входных данных
	if params.Name == "" {
		return nil, validationError("Поле 'name' обязательно")
	}
	if params.Description == "" {
		return nil, validationError("Поле 'description' обязательно")
	}

	attributes := []model.Attribute{}
	if params.AttributesJSON != "" {
		if err := json.Unmarshal([]byte(params.AttributesJSON), &attributes); err != nil {
			return nil, validationError(fmt.Sprintf("Некорректный формат attributes: %s", err.Error()))
		}
		if attributes == nil {
			attributes = []model.Attribute{}
		}
	}

	var contentReader io.Reader
	var contentName string
	contentType := params.ContentType
	switch {
	case params.File != nil:
		contentReader = params.File
		contentName = params.Filename
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	case params.Content != "":
		// Текстовая публикация без файла
		contentReader = nil
		contentType = "text/plain; charset=utf-8"
	default:
		return nil, validationError("Требуется поле 'file' или 'content'")
	}

	// 2. Генерация nft_id
	nftID := uuid.New().String()

	// 3. Сохраняем содержимое в IPFS (строго до metadata:
	// metadata ссылается на content_cid)
	var contentCID string
	var err error
	if contentReader != nil {
		contentCID, err = s.ipfs.Add(ctx, contentReader, contentName)
	} else {
		contentCID, err = s.ipfs.AddBytes(ctx, []byte(params.Content), nftID+".txt")
	}
	if err != nil {
		middleware.UploadsTotal.WithLabelValues("backend_error").Inc()
		return nil, s.backendError("add содержимого", nftID, err)
	}

	// 4. Сборка metadata-документа
	metadata := model.Metadata{
		Name:        params.Name,
		Description: params.Description,
		Attributes:  attributes,
		Image:       "ipfs://" + contentCID,
		ContentType: contentType,
	}

	// 5. Сохраняем metadata в IPFS
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		middleware.UploadsTotal.WithLabelValues("internal_error").Inc()
		return nil, internalError("Ошибка сериализации metadata")
	}

	metadataCID, err := s.ipfs.AddBytes(ctx, metadataJSON, nftID+".json")
	if err != nil {
		middleware.UploadsTotal.WithLabelValues("backend_error").Inc()
		// Содержимое уже в IPFS, отката нет (delete-примитив отсутствует).
		// Логируем осиротевший CID для возможной ручной сверки.
		s.logger.Warn("Metadata не сохранена, content CID осиротел",
			slog.String("nft_id", nftID),
			slog.String("content_cid", contentCID),
			slog.String("error", err.Error()),
		)
		return nil, s.backendError("add metadata", nftID, err)
	}

	// 6. Сохраняем запись в индекс
	rec := &model.NFTRecord{
		NFTID:       nftID,
		ContentCID:  contentCID,
		MetadataCID: metadataCID,
		Metadata:    metadata,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		CreatedBy:   params.CreatedBy,
	}

	if err := s.idx.Put(rec); err != nil {
		middleware.UploadsTotal.WithLabelValues("internal_error").Inc()
		s.logger.Error("Ошибка сохранения записи NFT",
			slog.String("nft_id", nftID),
			slog.String("error", err.Error()),
		)
		return nil, internalError("Ошибка сохранения записи NFT")
	}

	if s.cache != nil {
		s.cache.Set(nftID, rec)
	}

	middleware.UploadsTotal.WithLabelValues("success").Inc()
	middleware.RecordsTotal.Set(float64(s.idx.Count()))

	s.logger.Info("NFT создан",
		slog.String("nft_id", nftID),
		slog.String("content_cid", contentCID),
		slog.String("metadata_cid", metadataCID),
	)

	return rec, nil
}

// Get возвращает запись NFT по nft_id (кэш → индекс).
func (s *NFTService) Get(nftID string) (*model.NFTRecord, *NFTError) {
	if s.cache != nil {
		if rec, ok := s.cache.Get(nftID); ok {
			return rec, nil
		}
	}

	rec, err := s.idx.Get(nftID)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return nil, &NFTError{
				StatusCode: 404,
				Code:       apierrors.CodeNotFound,
				Message:    fmt.Sprintf("NFT %s не найден", nftID),
			}
		}
		s.logger.Error("Ошибка чтения записи NFT",
			slog.String("nft_id", nftID),
			slog.String("error", err.Error()),
		)
		return nil, internalError("Ошибка чтения записи NFT")
	}

	if s.cache != nil {
		s.cache.Set(nftID, rec)
	}

	return rec, nil
}

// List возвращает пагинированный список записей (новые первые)
// и общее количество.
func (s *NFTService) List(limit, offset int) ([]*model.NFTRecord, int) {
	return s.idx.List(limit, offset)
}

// --- Вспомогательные конструкторы ошибок ---

func validationError(message string) *NFTError {
	middleware.UploadsTotal.WithLabelValues("validation_error").Inc()
	return &NFTError{
		StatusCode: 400,
		Code:       apierrors.CodeValidationError,
		Message:    message,
	}
}

func internalError(message string) *NFTError {
	return &NFTError{
		StatusCode: 500,
		Code:       apierrors.CodeInternalError,
		Message:    message,
	}
}

// backendError преобразует ошибку IPFS-клиента в *NFTError:
// ErrUnavailable → 503 BACKEND_UNAVAILABLE, *ipfs.APIError → 502 BACKEND_ERROR.
func (s *NFTService) backendError(op, nftID string, err error) *NFTError {
	s.logger.Error("Ошибка операции IPFS",
		slog.String("op", op),
		slog.String("nft_id", nftID),
		slog.String("error", err.Error()),
	)

	if errors.Is(err, ipfs.ErrUnavailable) {
		return &NFTError{
			StatusCode: 503,
			Code:       apierrors.CodeBackendUnavailable,
			Message:    "IPFS-узел недоступен",
		}
	}

	var apiErr *ipfs.APIError
	if errors.As(err, &apiErr) {
		return &NFTError{
			StatusCode: 502,
			Code:       apierrors.CodeBackendError,
			Message:    fmt.Sprintf("IPFS-узел отклонил операцию: %s", apiErr.Message),
		}
	}

	return &NFTError{
		StatusCode: 502,
		Code:       apierrors.CodeBackendError,
		Message:    "Ошибка взаимодействия с IPFS-узлом",
	}
}
