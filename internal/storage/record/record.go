// Пакет record — чтение и запись файлов записей NFT (*.nft.json).
// Каждая запись индекса хранится в отдельном файле {nft_id}.nft.json,
// который является единственным источником истины для записи.
// Все операции записи выполняются атомарно: temp → fsync → rename.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arturkryukov/nftstore/internal/domain/model"
)

// Suffix — суффикс файла записи NFT.
const Suffix = ".nft.json"

// maxRecordFileSize — максимальный допустимый размер файла записи (64 КБ).
// Ограничение гарантирует атомарность записи и отсекает
// патологически большие attributes.
const maxRecordFileSize = 64 * 1024

// Path возвращает путь к файлу записи для данного nft_id.
// Пример: ("/data/metadata", "abc") → "/data/metadata/abc.nft.json"
func Path(dir, nftID string) string {
	return filepath.Join(dir, nftID+Suffix)
}

// IsRecordFile проверяет, является ли путь файлом записи NFT.
func IsRecordFile(path string) bool {
	return strings.HasSuffix(path, Suffix)
}

// Write атомарно записывает запись NFT в файл.
// Паттерн: JSON → temp файл → fsync → atomic rename.
// Возвращает ошибку, если сериализованные данные превышают 64 КБ.
func Write(path string, rec *model.NFTRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	// Проверка размера для гарантии атомарности
	if len(data) > maxRecordFileSize {
		return fmt.Errorf("размер записи (%d байт) превышает максимум (%d байт)", len(data), maxRecordFileSize)
	}

	// Создаём директорию если не существует
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	// Атомарная запись: temp → fsync → rename
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Read читает и десериализует запись NFT из файла.
// Возвращает ошибку, если файл не найден или содержит невалидный JSON.
func Read(path string) (*model.NFTRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения записи %s: %w", path, err)
	}

	var rec model.NFTRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("ошибка десериализации записи %s: %w", path, err)
	}

	if rec.NFTID == "" {
		return nil, fmt.Errorf("запись %s не содержит nft_id", path)
	}

	return &rec, nil
}

// Exists проверяет существование файла записи.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ScanDir читает все файлы записей в директории.
// Повреждённые или нечитаемые файлы пропускаются и возвращаются
// отдельным списком путей — один битый файл не блокирует остальные.
func ScanDir(dir string) ([]*model.NFTRecord, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			// Директория ещё не создана — пустой индекс
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("ошибка чтения директории %s: %w", dir, err)
	}

	var records []*model.NFTRecord
	var skipped []string

	for _, entry := range entries {
		if entry.IsDir() || !IsRecordFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		rec, err := Read(path)
		if err != nil {
			skipped = append(skipped, path)
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}
