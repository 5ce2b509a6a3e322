// Пакет ipfs — HTTP-клиент для RPC API IPFS-узла (kubo).
// Используются три операции: add (загрузка содержимого),
// cat (чтение по CID) и id (liveness probe).
// Клиент stateless: хранит только адрес узла и HTTP-клиент,
// безопасен для конкурентного использования.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable — IPFS-узел недоступен (ошибка соединения/таймаут).
var ErrUnavailable = errors.New("IPFS-узел недоступен")

// APIError — узел доступен, но отклонил операцию.
type APIError struct {
	// StatusCode — HTTP статус ответа узла
	StatusCode int
	// Message — сообщение об ошибке из тела ответа
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("IPFS API: статус %d: %s", e.StatusCode, e.Message)
}

// apiErrorBody — формат тела ошибки kubo RPC API.
type apiErrorBody struct {
	Message string `json:"Message"`
	Code    int    `json:"Code"`
}

// addResponse — формат ответа /api/v0/add.
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Client — HTTP-клиент IPFS-узла.
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент IPFS RPC API.
// apiURL — базовый URL API узла (например, http://127.0.0.1:5001).
// timeout — таймаут HTTP-запросов (из конфигурации NFT_IPFS_TIMEOUT).
func New(apiURL string, timeout time.Duration, logger *slog.Logger) *Client {
	transport := &http.Transport{
		// Настройка пула idle-соединений для эффективного переиспользования
		MaxIdleConnsPerHost: 10,
	}

	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger: logger.With(slog.String("component", "ipfs_client")),
	}
}

// Add загружает содержимое reader в IPFS и возвращает присвоенный CID.
// name — имя файла в multipart-части (kubo использует его только
// в ответе, на CID не влияет).
//
// Формат запроса: POST {api}/api/v0/add, multipart поле "file".
// Ошибка соединения → ErrUnavailable, отказ узла → *APIError.
func (c *Client) Add(ctx context.Context, reader io.Reader, name string) (string, error) {
	// Multipart-тело стримится через pipe, без буферизации файла в памяти
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, reader); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	reqURL := c.apiURL + "/api/v0/add"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, pr)
	if err != nil {
		return "", fmt.Errorf("создание запроса add: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("запрос add к %s: %w: %w", c.apiURL, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readAPIError(resp)
	}

	var addResp addResponse
	if err := json.NewDecoder(resp.Body).Decode(&addResp); err != nil {
		return "", fmt.Errorf("декодирование ответа add: %w", err)
	}
	if addResp.Hash == "" {
		return "", fmt.Errorf("ответ add не содержит Hash")
	}

	return addResp.Hash, nil
}

// AddBytes загружает байтовый срез в IPFS. Обёртка над Add
// для metadata-документов и текстовых публикаций.
func (c *Client) AddBytes(ctx context.Context, data []byte, name string) (string, error) {
	return c.Add(ctx, bytes.NewReader(data), name)
}

// Cat возвращает содержимое по CID как поток.
// Вызывающий код ОБЯЗАН закрыть ReadCloser.
//
// Формат запроса: POST {api}/api/v0/cat?arg={cid}.
func (c *Client) Cat(ctx context.Context, cid string) (io.ReadCloser, error) {
	reqURL := fmt.Sprintf("%s/api/v0/cat?arg=%s", c.apiURL, cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса cat: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("запрос cat к %s: %w: %w", c.apiURL, ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}

	// Не закрываем resp.Body — вызывающий код отвечает за это (streaming)
	return resp.Body, nil
}

// Ping проверяет доступность узла через /api/v0/id.
// Никогда не возвращает ошибку: любой сбой — false.
func (c *Client) Ping(ctx context.Context) bool {
	reqURL := c.apiURL + "/api/v0/id"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, http.NoBody)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("IPFS liveness probe не прошёл",
			slog.String("error", err.Error()),
		)
		return false
	}
	defer resp.Body.Close()

	// Дочитываем тело, чтобы соединение вернулось в пул
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// APIURL возвращает базовый URL API узла.
func (c *Client) APIURL() string {
	return c.apiURL
}

// readAPIError преобразует не-200 ответ узла в *APIError.
func readAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr apiErrorBody
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Message}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
