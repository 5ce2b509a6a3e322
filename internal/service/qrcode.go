// qrcode.go — генерация QR-кодов для содержимого NFT.
// QR кодирует либо ipfs:// URI, либо URL публичного gateway,
// чтобы содержимое можно было открыть с мобильного устройства.
package service

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/arturkryukov/nftstore/internal/domain/model"
)

// qrSize — размер стороны QR-кода в пикселях.
const qrSize = 256

// QRService — генерация QR-кодов PNG.
type QRService struct {
	// defaultGateway — хост публичного IPFS gateway (NFT_IPFS_GATEWAY)
	defaultGateway string
}

// NewQRService создаёт сервис QR-кодов.
func NewQRService(defaultGateway string) *QRService {
	return &QRService{defaultGateway: defaultGateway}
}

// ContentPNG возвращает PNG QR-код с ipfs:// URI содержимого записи.
// Если content CID отсутствует, кодируется URI metadata-документа.
func (q *QRService) ContentPNG(rec *model.NFTRecord) ([]byte, error) {
	png, err := qrcode.Encode(rec.ContentURI(), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("генерация QR-кода: %w", err)
	}
	return png, nil
}

// GatewayPNG возвращает PNG QR-код с URL содержимого через публичный
// gateway. gateway — хост gateway; пустая строка — значение по умолчанию.
func (q *QRService) GatewayPNG(rec *model.NFTRecord, gateway string) ([]byte, error) {
	if gateway == "" {
		gateway = q.defaultGateway
	}

	cid := rec.ContentCID
	if cid == "" {
		cid = rec.MetadataCID
	}

	gatewayURL := fmt.Sprintf("https://%s/ipfs/%s", gateway, cid)
	png, err := qrcode.Encode(gatewayURL, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("генерация QR-кода: %w", err)
	}
	return png, nil
}
