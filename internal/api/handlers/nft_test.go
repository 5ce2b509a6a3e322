package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arturkryukov/nftstore/internal/domain/model"
	"github.com/arturkryukov/nftstore/internal/service"
	"github.com/arturkryukov/nftstore/internal/storage/index"
)

// testLogger создаёт логгер для тестов (только ошибки).
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// fakeIPFS — fake IPFS-клиента, выдаёт предсказуемые CID.
type fakeIPFS struct {
	addCalls int
	pingOK   bool
}

func (f *fakeIPFS) Add(ctx context.Context, reader io.Reader, name string) (string, error) {
	f.addCalls++
	io.Copy(io.Discard, reader)
	return fmt.Sprintf("QmFake%03d", f.addCalls), nil
}

func (f *fakeIPFS) AddBytes(ctx context.Context, data []byte, name string) (string, error) {
	f.addCalls++
	return fmt.Sprintf("QmFake%03d", f.addCalls), nil
}

func (f *fakeIPFS) Ping(ctx context.Context) bool {
	return f.pingOK
}

// newTestRouter собирает роутер со всеми маршрутами над fake IPFS
// и реальным индексом во временной директории.
func newTestRouter(t *testing.T, fake *fakeIPFS) (chi.Router, *index.Index) {
	t.Helper()

	metadataDir := t.TempDir()
	idx := index.New(metadataDir, testLogger())
	if err := idx.BuildFromDir(); err != nil {
		t.Fatalf("ошибка построения индекса: %v", err)
	}

	nftSvc := service.NewNFTService(fake, idx, nil, testLogger())
	qrSvc := service.NewQRService("ipfs.io")

	nftHandler := NewNFTHandler(nftSvc, qrSvc, 10*1024*1024)
	healthHandler := NewHealthHandler(fake, time.Second, metadataDir, idx)
	apiHandler := NewAPIHandler(nftHandler, healthHandler)

	router := chi.NewRouter()
	apiHandler.RegisterRoutes(router, nil)
	return router, idx
}

// multipartBody собирает multipart-тело из полей формы и опционального файла.
func multipartBody(t *testing.T, fields map[string]string, filename string, fileContent []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("ошибка записи поля %s: %v", k, err)
		}
	}

	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("ошибка создания части file: %v", err)
		}
		part.Write(fileContent)
	}

	if err := mw.Close(); err != nil {
		t.Fatalf("ошибка закрытия multipart writer: %v", err)
	}

	return body, mw.FormDataContentType()
}

// doUpload выполняет POST /upload/ и возвращает recorder.
func doUpload(t *testing.T, router chi.Router, fields map[string]string, filename string, fileContent []byte) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartBody(t, fields, filename, fileContent)
	req := httptest.NewRequest(http.MethodPost, "/upload/", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// errorCode извлекает код ошибки из тела ответа.
func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("ошибка разбора тела ошибки: %v (%s)", err, string(body))
	}
	return resp.Error.Code
}

// TestUploadEndpoint проверяет успешную загрузку файла.
func TestUploadEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &fakeIPFS{pingOK: true})

	fields := map[string]string{
		"name":        "Тестовый NFT",
		"description": "Описание",
		"attributes":  `[{"trait_type":"color","value":"blue"}]`,
	}
	rec := doUpload(t, router, fields, "art.png", []byte("png data"))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидалось 200, получено %d (%s)", rec.Code, rec.Body.String())
	}

	var created model.NFTRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("ошибка разбора ответа: %v", err)
	}
	if created.NFTID == "" {
		t.Error("ответ должен содержать nft_id")
	}
	if created.ContentCID == "" || created.MetadataCID == "" {
		t.Error("ответ должен содержать content_cid и metadata_cid")
	}
	if created.ContentCID == created.MetadataCID {
		t.Error("content_cid и metadata_cid должны различаться")
	}
	if created.Metadata.Image != "ipfs://"+created.ContentCID {
		t.Errorf("image: получено %q", created.Metadata.Image)
	}
	if len(created.Metadata.Attributes) != 1 {
		t.Errorf("attributes: ожидался 1 атрибут, получено %d", len(created.Metadata.Attributes))
	}
}

// TestUploadEndpoint_TextContent проверяет загрузку текста без файла.
func TestUploadEndpoint_TextContent(t *testing.T) {
	router, _ := newTestRouter(t, &fakeIPFS{pingOK: true})

	fields := map[string]string{
		"name":        "Текстовый NFT",
		"description": "Описание",
		"content":     "просто текст",
	}
	rec := doUpload(t, router, fields, "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидалось 200, получено %d (%s)", rec.Code, rec.Body.String())
	}

	var created model.NFTRecord
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Metadata.ContentType != "text/plain; charset=utf-8" {
		t.Errorf("content_type: получено %q", created.Metadata.ContentType)
	}
}

// TestUploadEndpoint_ValidationError проверяет 400 при отсутствии name.
func TestUploadEndpoint_ValidationError(t *testing.T) {
	fake := &fakeIPFS{pingOK: true}
	router, idx := newTestRouter(t, fake)

	fields := map[string]string{
		"description": "Описание без имени",
	}
	rec := doUpload(t, router, fields, "art.png", []byte("png data"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус: ожидалось 400, получено %d", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "VALIDATION_ERROR" {
		t.Errorf("код ошибки: получено %q", code)
	}

	// Без побочных эффектов
	if fake.addCalls != 0 {
		t.Errorf("IPFS не должен вызываться, вызовов: %d", fake.addCalls)
	}
	if idx.Count() != 0 {
		t.Errorf("индекс должен быть пуст, записей: %d", idx.Count())
	}
}

// TestUploadEndpoint_MissingContent проверяет 400 без file и content.
func TestUploadEndpoint_MissingContent(t *testing.T) {
	router, _ := newTestRouter(t, &fakeIPFS{pingOK: true})

	fields := map[string]string{
		"name":        "NFT",
		"description": "Описание",
	}
	rec := doUpload(t, router, fields, "", nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("статус: ожидалось 400, получено %d", rec.Code)
	}
}

// TestGetEndpoint проверяет чтение NFT по id.
func TestGetEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &fakeIPFS{pingOK: true})

	fields := map[string]string{
		"name":        "NFT",
		"description": "Описание",
	}
	uploadRec := doUpload(t, router, fields, "art.png", []byte("data"))
	var created model.NFTRecord
	json.Unmarshal(uploadRec.Body.Bytes(), &created)

	req := httptest.NewRequest(http.MethodGet, "/nft/"+created.NFTID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидалось 200, получено %d", rec.Code)
	}

	var got model.NFTRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("ошибка разбора ответа: %v", err)
	}
	if got.NFTID != created.NFTID {
		t.Errorf("nft_id: получено %q", got.NFTID)
	}
	if got.ContentCID != created.ContentCID {
		t.Errorf("content_cid: получено %q", got.ContentCID)
	}
}

// TestGetEndpoint_NotFound проверяет 404 для неизвестного id.
func TestGetEndpoint_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, &fakeIPFS{pingOK: true})

	req := httptest.NewRequest(http.MethodGet, "/nft/no-such-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("статус: ожидалось 404, получено %d", rec.Code)
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "NOT_FOUND" {
		t.Errorf("код ошибки: получено %q", code)
	}
}

// TestListEndpoint проверяет список NFT с пагинацией.
func TestListEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &fakeIPFS{pingOK: true})

	for i := 0; i < 3; i++ {
		fields := map[string]string{
			"name":        fmt.Sprintf("NFT %d", i),
			"description": "Описание",
		}
		doUpload(t, router, fields, "art.png", []byte("data"))
	}

	req := httptest.NewRequest(http.MethodGet, "/nfts/?limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидалось 200, получено %d", rec.Code)
	}

	var resp struct {
		NFTs       []*model.NFTRecord `json:"nfts"`
		TotalCount int                `json:"total_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("ошибка разбора ответа: %v", err)
	}
	if resp.TotalCount != 3 {
		t.Errorf("total_count: ожидалось 3, получено %d", resp.TotalCount)
	}
	if len(resp.NFTs) != 2 {
		t.Errorf("nfts: ожидалось 2 записи, получено %d", len(resp.NFTs))
	}
}

// TestListEndpoint_Empty проверяет пустой список.
func TestListEndpoint_Empty(t *testing.T) {
	router, _ := newTestRouter(t, &fakeIPFS{pingOK: true})

	req := httptest.NewRequest(http.MethodGet, "/nfts/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("статус: ожидалось 200, получено %d", rec.Code)
	}

	// nfts должен быть [], не null
	var raw map[string]json.RawMessage
	json.Unmarshal(rec.Body.Bytes(), &raw)
	if string(raw["nfts"]) != "[]" {
		t.Errorf("пустой список должен сериализоваться как []: %s", string(raw["nfts"]))
	}
}

// TestListEndpoint_InvalidLimit проверяет 400 для некорректного limit.
func TestListEndpoint_InvalidLimit(t *testing.T) {
	router, _ := newTestRouter(t, &fakeIPFS{pingOK: true})

	for _, limit := range []string{"0", "-5", "1001", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/nfts/?limit="+limit, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: ожидалось 400, получено %d", limit, rec.Code)
		}
	}
}

// TestQRCodeEndpoint проверяет генерацию QR-кода PNG.
func TestQRCodeEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &fakeIPFS{pingOK: true})

	fields := map[string]string{
		"name":        "NFT",
		"description": "Описание",
	}
	uploadRec := doUpload(t, router, fields, "art.png", []byte("data"))
	var created model.NFTRecord
	json.Unmarshal(uploadRec.Body.Bytes(), &created)

	for _, path := range []string{
		"/qrcode/" + created.NFTID,
		"/qrcode/gateway/" + created.NFTID,
		"/qrcode/gateway/" + created.NFTID + "?gateway=gateway.example.com",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: ожидалось 200, получено %d", path, rec.Code)
			continue
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("%s: Content-Type получено %q", path, ct)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte{0x89, 'P', 'N', 'G'}) {
			t.Errorf("%s: тело должно быть PNG", path)
		}
	}
}

// TestQRCodeEndpoint_NotFound проверяет 404 для неизвестного id.
func TestQRCodeEndpoint_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, &fakeIPFS{pingOK: true})

	req := httptest.NewRequest(http.MethodGet, "/qrcode/no-such-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("статус: ожидалось 404, получено %d", rec.Code)
	}
}
