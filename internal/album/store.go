package album

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// FileStore keeps the album as a JSON array in a single file, the
// scanner CLI's stand-in for browser-local storage.
type FileStore struct {
	path string
}

// NewFileStore stores the album under dir, named by StorageKey.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, StorageKey+".json")}
}

func (s *FileStore) Load(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading album file: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		// Corrupt storage recovers as an empty album.
		return nil, nil
	}
	return ids, nil
}

func (s *FileStore) Save(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding album: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating album dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing album file: %w", err)
	}
	return nil
}

// RedisStore keeps one device's album as a JSON array under a
// device-scoped key, so the web UI's album follows the device cookie.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore scopes the album to a device identifier. Albums idle for
// ttl expire; zero means keep forever.
func NewRedisStore(client *redis.Client, deviceID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		key:    StorageKey + ":" + deviceID,
		ttl:    ttl,
	}
}

func (s *RedisStore) Load(ctx context.Context) ([]string, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading album key: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, nil
	}
	return ids, nil
}

func (s *RedisStore) Save(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding album: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing album key: %w", err)
	}
	return nil
}
