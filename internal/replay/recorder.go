// Package replay — журнал команд для пошагового воспроизведения забега.
//
// Рекордер держит в памяти один начальный снапшот и append-only лог
// выполненных команд. Сервис сохранений встраивает этот лог в запись
// сохранения и восстанавливает его при загрузке; проигрыватель реплея
// (клиентская сторона) получает от ядра лишь упорядоченный лог без
// пропусков и соответствующий ему начальный снапшот.
package replay

import (
	"encoding/json"
	"sync"

	"github.com/dirkkok101/roguelike-sub001/internal/domain"
)

// Recorder — потокобезопасный журнал команд одной игровой сессии.
//
// Состояния: EMPTY (нет начального снапшота, лог пуст) -> RECORDING
// (снапшот установлен, лог растёт). Сохранение состояния не меняет —
// запись продолжается. Загрузка возвращает рекордер в RECORDING либо
// с восстановленным логом (продолжение реплея), либо с пустым
// (свежая запись от точки загрузки). ClearLog возвращает в EMPTY.
//
// Снапшоты хранятся УЖЕ плоскими (сырой JSON) и через кодек повторно
// не прогоняются — это сознательная асимметрия с конвейером
// сохранения: реплей фиксирует байты, какими они были.
type Recorder struct {
	mu      sync.Mutex
	initial json.RawMessage
	entries []domain.CommandLogEntry
}

// NewRecorder создаёт пустой рекордер (состояние EMPTY).
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetInitialState фиксирует начальный снапшот — плоский JSON состояния
// на момент начала записи.
func (r *Recorder) SetInitialState(state json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initial = append(json.RawMessage(nil), state...)
}

// GetInitialState возвращает начальный снапшот или nil, если запись
// не начата.
func (r *Recorder) GetInitialState() json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initial == nil {
		return nil
	}
	return append(json.RawMessage(nil), r.initial...)
}

// RecordCommand дописывает команду в конец лога.
func (r *Recorder) RecordCommand(entry domain.CommandLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// GetCommandLog возвращает копию лога в порядке записи.
func (r *Recorder) GetCommandLog() []domain.CommandLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.CommandLogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// RestoreCommandLog целиком заменяет лог. Используется при загрузке
// сохранения со встроенным реплеем.
func (r *Recorder) RestoreCommandLog(entries []domain.CommandLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make([]domain.CommandLogEntry, len(entries))
	copy(r.entries, entries)
}

// ClearLog опустошает лог и сбрасывает начальный снапшот (EMPTY).
func (r *Recorder) ClearLog() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initial = nil
	r.entries = nil
}

// Len возвращает текущую длину лога.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
