// Пакет model — доменные модели NFT Store.
// NFTRecord — единая структура записи NFT, используется как
// in-memory представление и как формат *.nft.json на диске.
package model

import (
	"time"
)

// Attribute — один атрибут NFT в метаданных.
// Формат соответствует общепринятой схеме NFT-метаданных:
// {"trait_type": "...", "value": ...}.
type Attribute struct {
	// TraitType — имя атрибута
	TraitType string `json:"trait_type"`
	// Value — значение атрибута (строка, число или bool)
	Value any `json:"value"`
}

// Metadata — metadata-документ NFT. Сериализуется в JSON и
// добавляется в IPFS как отдельный объект.
type Metadata struct {
	// Name — имя NFT (обязательное)
	Name string `json:"name"`

	// Description — описание NFT (обязательное)
	Description string `json:"description"`

	// Attributes — упорядоченный список атрибутов (может быть пустым).
	// Пустой список сериализуется как [], не null.
	Attributes []Attribute `json:"attributes"`

	// Image — ссылка на содержимое в формате ipfs://{content_cid}
	Image string `json:"image,omitempty"`

	// ContentType — MIME-тип исходной загрузки.
	// Отсутствует для текстовых публикаций без файла.
	ContentType string `json:"content_type,omitempty"`
}

// NFTRecord — запись локального индекса NFT.
// После создания запись неизменяема: content-addressed хранилище
// означает, что изменение содержимого — это новая запись, не update.
type NFTRecord struct {
	// NFTID — уникальный идентификатор NFT (UUID v4), первичный ключ
	NFTID string `json:"nft_id"`

	// ContentCID — CID содержимого, присвоенный IPFS-узлом
	ContentCID string `json:"content_cid"`

	// MetadataCID — CID сериализованного metadata-документа
	MetadataCID string `json:"metadata_cid"`

	// Metadata — сам metadata-документ
	Metadata Metadata `json:"metadata"`

	// CreatedAt — дата и время создания записи (UTC)
	CreatedAt time.Time `json:"created_at"`

	// CreatedBy — subject из JWT (пусто, если аутентификация выключена)
	CreatedBy string `json:"created_by,omitempty"`
}

// ContentURI возвращает ipfs:// URI содержимого записи.
// Если content CID отсутствует, возвращает URI metadata-документа.
func (r *NFTRecord) ContentURI() string {
	if r.ContentCID != "" {
		return "ipfs://" + r.ContentCID
	}
	return "ipfs://" + r.MetadataCID
}
