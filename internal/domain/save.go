package domain

import "encoding/json"

// ContinueKey — ключ служебной записи "указатель продолжения" в хранилище.
//
// Указатель хранится в том же object store, что и сохранения, под
// фиксированным ключом. Никакого глобального состояния в памяти:
// хранилище и так сериализует доступ.
const ContinueKey GameID = "continue_pointer"

// SaveRecord — то, что реально лежит в хранилище для одного забега.
//
// GameState хранится сжатым блобом; Metadata дублирует сводку,
// чтобы список сохранений строился без распаковки.
type SaveRecord struct {
	GameID GameID `json:"gameId"`

	// GameState — сжатый снапшот состояния (кодек -> компрессор).
	GameState []byte `json:"gameState"`

	// ReplayData — встроенная запись реплея. Поле пишется ВСЕГДА:
	// явный null означает "реплей не записывался", и это отличимо
	// от старых записей, где поля не было вовсе.
	ReplayData *ReplayData `json:"replayData"`

	Metadata SaveMetadata `json:"metadata"`

	// Version — версия схемы сохранения. Сравнивается строго на
	// равенство с CurrentSaveVersion при каждой загрузке.
	Version   int   `json:"version"`
	Timestamp int64 `json:"timestamp"` // unix millis
}

// SaveMetadata — денормализованная сводка для списков и лидерборда.
type SaveMetadata struct {
	GameID         GameID `json:"gameId"`
	CharacterName  string `json:"characterName"`
	CurrentLevel   int    `json:"currentLevel"`
	TurnCount      int    `json:"turnCount"`
	Timestamp      int64  `json:"timestamp"`
	Status         string `json:"status"` // active, won, dead
	Gold           int    `json:"gold"`
	MonstersKilled int    `json:"monstersKilled"`
	MaxDepth       int    `json:"maxDepth"`

	// Score вычисляется из счётчиков выше при построении списка,
	// в хранилище не пишется.
	Score int `json:"score,omitempty"`
}

// ReplayData — запись реплея, встроенная в SaveRecord.
//
// InitialState — уже плоский снапшот состояния на момент начала записи.
// Он сознательно хранится как сырой JSON и НЕ прогоняется через кодек
// повторно: реплей должен воспроизводить байт в байт то, что было
// зафиксировано.
type ReplayData struct {
	InitialState json.RawMessage   `json:"initialState"`
	Seed         string            `json:"seed"`
	Commands     []CommandLogEntry `json:"commands"`
}

// CommandLogEntry — одна выполненная команда в логе реплея.
//
// Лог обязан быть упорядоченным и без пропусков: проигрывание всех
// записей по порядку против InitialState детерминированно воспроизводит
// состояние на момент сохранения.
type CommandLogEntry struct {
	CommandType string          `json:"commandType"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	TurnNumber  int             `json:"turnNumber"`
	ActorType   string          `json:"actorType"` // player, world
	// RNGState — слепок состояния генератора ДО выполнения команды.
	RNGState  string `json:"rngState"`
	Timestamp int64  `json:"timestamp"`
}

// ContinuePointer — служебная запись "какой забег продолжать".
//
// Жизненный цикл: создаётся/перезаписывается при каждом успешном
// сохранении; удаляется вместе с сохранением, на которое указывает;
// удаление любого другого сохранения её не трогает.
type ContinuePointer struct {
	GameID         GameID `json:"gameId"` // всегда ContinueKey
	ContinueGameID GameID `json:"continueGameId"`
}
