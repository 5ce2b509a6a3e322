// Пакет index — локальный индекс записей NFT.
//
// Index — потокобезопасная обёртка над файлами записей (*.nft.json):
// запись сначала атомарно сохраняется на диск, затем попадает
// в in-memory map. При старте индекс строится из директории
// (BuildFromDir), поэтому переживает рестарт процесса.
//
// Записи неизменяемы: Put никогда не перезаписывает существующий
// nft_id, update-in-place отсутствует. Конкурентные Put для разных
// ключей не требуют координации за пределами mutex на map.
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/arturkryukov/nftstore/internal/domain/model"
	"github.com/arturkryukov/nftstore/internal/storage/record"
)

// Ошибки индекса.
var (
	// ErrNotFound — запись с указанным nft_id отсутствует.
	ErrNotFound = errors.New("запись не найдена")
	// ErrDuplicateID — запись с указанным nft_id уже существует.
	// Перезапись запрещена: изменение содержимого — новая запись.
	ErrDuplicateID = errors.New("nft_id уже существует")
)

// Store — абстракция key-value хранилища записей NFT.
// Файловая реализация — Index; в тестах подменяется in-memory fake.
type Store interface {
	// Put сохраняет новую запись. Возвращает ErrDuplicateID,
	// если nft_id уже занят.
	Put(rec *model.NFTRecord) error
	// Get возвращает запись по nft_id или ErrNotFound.
	Get(nftID string) (*model.NFTRecord, error)
	// List возвращает пагинированный список записей (новые первые)
	// и общее количество.
	List(limit, offset int) ([]*model.NFTRecord, int)
	// Count возвращает общее количество записей.
	Count() int
}

// Index — файловый индекс записей NFT с in-memory кэшем всех записей.
type Index struct {
	mu      sync.RWMutex
	dataDir string
	records map[string]*model.NFTRecord // nft_id → record
	ready   bool
	logger  *slog.Logger
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ Store = (*Index)(nil)

// New создаёт пустой индекс. Для заполнения вызовите BuildFromDir.
func New(dataDir string, logger *slog.Logger) *Index {
	return &Index{
		dataDir: dataDir,
		records: make(map[string]*model.NFTRecord),
		logger:  logger.With(slog.String("component", "index")),
	}
}

// BuildFromDir строит индекс из файлов записей в директории данных.
// Вызывается при старте сервера. Повреждённые файлы логируются
// и пропускаются — один битый файл не блокирует остальные записи.
// После успешного построения индекс помечается как ready.
func (idx *Index) BuildFromDir() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	records, skipped, err := record.ScanDir(idx.dataDir)
	if err != nil {
		return fmt.Errorf("ошибка сканирования директории %s: %w", idx.dataDir, err)
	}

	idx.records = make(map[string]*model.NFTRecord, len(records))
	for _, rec := range records {
		idx.records[rec.NFTID] = rec
	}

	for _, path := range skipped {
		idx.logger.Warn("Повреждённый файл записи пропущен",
			slog.String("path", path),
		)
	}

	idx.ready = true

	idx.logger.Info("Индекс NFT построен",
		slog.Int("records", len(idx.records)),
		slog.Int("skipped", len(skipped)),
		slog.String("data_dir", idx.dataDir),
	)

	return nil
}

// IsReady возвращает true, если индекс построен и готов к использованию.
func (idx *Index) IsReady() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.ready
}

// DataDir возвращает путь к директории данных индекса.
func (idx *Index) DataDir() string {
	return idx.dataDir
}

// Put атомарно сохраняет новую запись на диск и добавляет её в индекс.
// Возвращает ErrDuplicateID, если nft_id уже существует — перезапись
// запрещена, чтобы не нарушить инвариант неизменяемости записей.
func (idx *Index) Put(rec *model.NFTRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.records[rec.NFTID]; ok {
		return fmt.Errorf("nft_id %s: %w", rec.NFTID, ErrDuplicateID)
	}

	path := record.Path(idx.dataDir, rec.NFTID)
	if record.Exists(path) {
		// Файл есть, а в map нет — записан вне текущего процесса
		return fmt.Errorf("nft_id %s: %w", rec.NFTID, ErrDuplicateID)
	}

	if err := record.Write(path, rec); err != nil {
		return fmt.Errorf("ошибка сохранения записи %s: %w", rec.NFTID, err)
	}

	// Копия — чтобы внешние изменения не попали в индекс
	copied := *rec
	idx.records[rec.NFTID] = &copied

	return nil
}

// Get возвращает запись по nft_id.
// Возвращает ErrNotFound, если запись отсутствует.
func (idx *Index) Get(nftID string) (*model.NFTRecord, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rec, ok := idx.records[nftID]
	if !ok {
		return nil, fmt.Errorf("nft_id %s: %w", nftID, ErrNotFound)
	}

	// Возвращаем копию для потокобезопасности
	copied := *rec
	return &copied, nil
}

// List возвращает пагинированный список записей и общее количество.
// Записи отсортированы по дате создания (новые первые).
// limit = 0 — без ограничения.
func (idx *Index) List(limit, offset int) ([]*model.NFTRecord, int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	all := make([]*model.NFTRecord, 0, len(idx.records))
	for _, rec := range idx.records {
		copied := *rec
		all = append(all, &copied)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].NFTID < all[j].NFTID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)

	if offset >= total {
		return nil, total
	}

	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	return all[offset:end], total
}

// Count возвращает общее количество записей в индексе.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}
