// Package storage — key/value персистентность для записей сохранений.
//
// Ядро сервиса написано против асинхронного контракта Adapter
// (каждый вызов принимает context). Бэкендов два: синхронное плоское
// файловое хранилище, приведённое к этому же контракту, и база SQLite
// с отдельной таблицей на каждый object store.
package storage

import (
	"context"
	"encoding/json"
	"errors"
)

// Имена object store'ов.
const (
	// StoreSaves — сохранения плюс указатель продолжения.
	StoreSaves = "saves"

	// StoreReplays — исторический отдельный store для реплеев.
	// Вытеснен встраиванием реплея прямо в запись сохранения;
	// бэкенды по-прежнему создают его, но ядро туда не пишет
	// и старую раскладку не читает.
	StoreReplays = "replays"
)

// ErrQuotaExceeded — закончилось место. Единственная ошибка записи,
// которую вызывающий обязан уметь отличать: игроку нужно явно сказать,
// что прогресс НЕ сохранён из-за нехватки места.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// ErrUnknownStore возвращается при обращении к незарегистрированному
// object store.
var ErrUnknownStore = errors.New("unknown object store")

// QuotaInfo — приблизительная оценка занятого места.
type QuotaInfo struct {
	Usage       int64   `json:"usage"`
	Quota       int64   `json:"quota"`
	PercentUsed float64 `json:"percentUsed"`
}

// Adapter — контракт хранилища, потребляемый сервисом сохранений.
//
// Get возвращает (nil, nil) для отсутствующего ключа: "нет записи" —
// не ошибка. Delete идемпотентен. CheckQuota чисто информационный
// и никогда не блокирует сохранение/загрузку.
type Adapter interface {
	Get(ctx context.Context, store, key string) (json.RawMessage, error)
	Put(ctx context.Context, store, key string, value json.RawMessage) error
	Delete(ctx context.Context, store, key string) error
	GetAll(ctx context.Context, store string) ([]json.RawMessage, error)
	CheckQuota(ctx context.Context) (QuotaInfo, error)
	Close() error
}

func percentUsed(usage, quota int64) float64 {
	if quota <= 0 {
		return 0
	}
	p := float64(usage) / float64(quota) * 100
	if p > 100 {
		p = 100
	}
	return p
}
