package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dirkkok101/roguelike-sub001/pkg/logger"
)

// FileStore — синхронное плоское хранилище: каталог на store,
// файл на ключ. Операции завершаются в момент вызова; контракт
// Adapter с контекстом поверх — просто адаптация к асинхронному
// интерфейсу, под которым живёт ядро.
type FileStore struct {
	baseDir string
	quota   int64
}

// NewFileStore создаёт хранилище в dir с мягким лимитом quota байт.
// Каталоги обоих store'ов создаются сразу.
func NewFileStore(dir string, quota int64) (*FileStore, error) {
	for _, store := range []string{StoreSaves, StoreReplays} {
		if err := os.MkdirAll(filepath.Join(dir, store), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir %s: %w", store, err)
		}
	}
	return &FileStore{baseDir: dir, quota: quota}, nil
}

func (f *FileStore) path(store, key string) (string, error) {
	if store != StoreSaves && store != StoreReplays {
		return "", fmt.Errorf("%w: %s", ErrUnknownStore, store)
	}
	// Ключ уходит в имя файла, поэтому набор символов жёстко ограничен.
	if key == "" || strings.ContainsAny(key, "/\\..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(f.baseDir, store, key+".json"), nil
}

func (f *FileStore) Get(_ context.Context, store, key string) (json.RawMessage, error) {
	path, err := f.path(store, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", store, key, err)
	}
	return data, nil
}

func (f *FileStore) Put(ctx context.Context, store, key string, value json.RawMessage) error {
	path, err := f.path(store, key)
	if err != nil {
		return err
	}

	// Мягкая квота: проверяется до записи, чтобы не добить диск.
	if f.quota > 0 {
		info, err := f.CheckQuota(ctx)
		if err == nil && info.Usage+int64(len(value)) > f.quota {
			return fmt.Errorf("%w: %d of %d bytes used", ErrQuotaExceeded, info.Usage, f.quota)
		}
	}

	// Запись через временный файл и rename: получивший ошибку на
	// полпути ключ остаётся со старым содержимым, а не с половиной
	// нового.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("write %s/%s: %w", store, key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit %s/%s: %w", store, key, err)
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, store, key string) error {
	path, err := f.path(store, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s/%s: %w", store, key, err)
	}
	return nil
}

func (f *FileStore) GetAll(_ context.Context, store string) ([]json.RawMessage, error) {
	if store != StoreSaves && store != StoreReplays {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, store)
	}
	dir := filepath.Join(f.baseDir, store)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", store, err)
	}

	records := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			// Один нечитаемый файл не валит весь список.
			logger.Log.WithError(err).WithField("file", e.Name()).Warn("Skipping unreadable record")
			continue
		}
		records = append(records, data)
	}
	return records, nil
}

func (f *FileStore) CheckQuota(_ context.Context) (QuotaInfo, error) {
	var usage int64
	err := filepath.Walk(f.baseDir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // считаем то, что смогли прочитать
		}
		if !info.IsDir() {
			usage += info.Size()
		}
		return nil
	})
	if err != nil {
		return QuotaInfo{}, fmt.Errorf("walk %s: %w", f.baseDir, err)
	}
	return QuotaInfo{
		Usage:       usage,
		Quota:       f.quota,
		PercentUsed: percentUsed(usage, f.quota),
	}, nil
}

func (f *FileStore) Close() error {
	return nil
}
