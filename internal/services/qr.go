package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	qrgen "github.com/skip2/go-qrcode"

	"github.com/kvistad/russekort/internal/logging"
)

const (
	qrImageSize = 256
	qrCacheTTL  = 24 * time.Hour
)

// QRService renders the QR image encoding a card's canonical deep link.
// Generated images are cached in Redis; cache failures are ignored and
// the code is generated fresh.
type QRService struct {
	redis *redis.Client
}

func NewQRService(redisClient *redis.Client) *QRService {
	return &QRService{redis: redisClient}
}

// Generate returns the PNG bytes of a QR code pointing at url. cardID
// only scopes the cache key; the same card re-encoded under a different
// host gets its own entry.
func (s *QRService) Generate(ctx context.Context, cardID, url string) ([]byte, error) {
	key := fmt.Sprintf("qrcode:%s:%s", cardID, url)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	png, err := qrgen.Encode(url, qrgen.Medium, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("encoding qr code: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, png, qrCacheTTL).Err(); err != nil {
			logging.Warn("QR cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return png, nil
}
