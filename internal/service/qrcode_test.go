package service

import (
	"bytes"
	"testing"

	"github.com/arturkryukov/nftstore/internal/domain/model"
)

// pngMagic — сигнатура PNG-файла.
var pngMagic = []byte{0x89, 'P', 'N', 'G'}

// qrRecord создаёт запись для тестов QR-кодов.
func qrRecord() *model.NFTRecord {
	return &model.NFTRecord{
		NFTID:       "nft-qr-001",
		ContentCID:  "QmContentQR",
		MetadataCID: "QmMetadataQR",
	}
}

// TestContentPNG проверяет генерацию PNG QR-кода содержимого.
func TestContentPNG(t *testing.T) {
	svc := NewQRService("ipfs.io")

	png, err := svc.ContentPNG(qrRecord())
	if err != nil {
		t.Fatalf("ошибка генерации QR-кода: %v", err)
	}

	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("результат должен быть PNG")
	}
}

// TestContentPNG_MetadataFallback проверяет fallback на metadata CID.
func TestContentPNG_MetadataFallback(t *testing.T) {
	svc := NewQRService("ipfs.io")

	rec := qrRecord()
	rec.ContentCID = ""

	png, err := svc.ContentPNG(rec)
	if err != nil {
		t.Fatalf("ошибка генерации QR-кода: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("результат должен быть PNG")
	}
}

// TestGatewayPNG проверяет генерацию QR-кода gateway-URL.
func TestGatewayPNG(t *testing.T) {
	svc := NewQRService("ipfs.io")

	png, err := svc.GatewayPNG(qrRecord(), "")
	if err != nil {
		t.Fatalf("ошибка генерации QR-кода: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("результат должен быть PNG")
	}
}

// TestGatewayPNG_CustomGateway проверяет QR-код с нестандартным gateway.
func TestGatewayPNG_CustomGateway(t *testing.T) {
	svc := NewQRService("ipfs.io")

	png, err := svc.GatewayPNG(qrRecord(), "gateway.example.com")
	if err != nil {
		t.Fatalf("ошибка генерации QR-кода: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Error("результат должен быть PNG")
	}
}
