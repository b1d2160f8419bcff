package api

import "encoding/json"

// --- КЛИЕНТ -> СЕРВЕР ---

// Типы действий клиента.
const (
	ActionSaveGame      = "SAVE_GAME"
	ActionLoadGame      = "LOAD_GAME"
	ActionContinueGame  = "CONTINUE"
	ActionDeleteSave    = "DELETE_SAVE"
	ActionListGames     = "LIST_GAMES"
	ActionRecordCommand = "RECORD_COMMAND"
	ActionGetQuota      = "GET_QUOTA"
)

// ClientCommand — сообщение клиента по WebSocket.
type ClientCommand struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SavePayload — нагрузка SAVE_GAME: плоский снапшот состояния,
// каким его сериализовал клиент.
type SavePayload struct {
	State json.RawMessage `json:"state"`
}

// GamePayload — нагрузка LOAD_GAME и DELETE_SAVE.
type GamePayload struct {
	GameID string `json:"gameId"`
}

// RecordPayload — нагрузка RECORD_COMMAND: одна выполненная команда.
type RecordPayload struct {
	CommandType string          `json:"commandType"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	TurnNumber  int             `json:"turnNumber"`
	ActorType   string          `json:"actorType"`
	RNGState    string          `json:"rngState"`
	Timestamp   int64           `json:"timestamp"`
}

// --- СЕРВЕР -> КЛИЕНТ ---

// Типы ответов сервера.
const (
	ResponseSaved   = "SAVED"
	ResponseLoaded  = "LOADED"
	ResponseNoSave  = "NO_SAVE"
	ResponseDeleted = "DELETED"
	ResponseGames   = "GAMES"
	ResponseQuota   = "QUOTA"
	ResponseError   = "ERROR"
)

// ServerResponse — ответ сервиса сохранений клиенту.
type ServerResponse struct {
	Type   string `json:"type"`
	GameID string `json:"gameId,omitempty"`

	// State — плоский снапшот загруженного состояния (для LOADED).
	State json.RawMessage `json:"state,omitempty"`

	// Games — сводки сохранений, новые сверху (для GAMES).
	Games []GameSummary `json:"games,omitempty"`

	// Quota — оценка занятого места (для QUOTA).
	Quota *QuotaView `json:"quota,omitempty"`

	// Error — человекочитаемое сообщение для тоста на клиенте.
	// QuotaExceeded=true — отдельный текст "не хватает места".
	Error         string `json:"error,omitempty"`
	QuotaExceeded bool   `json:"quotaExceeded,omitempty"`
}

// GameSummary — одна строка списка сохранений.
type GameSummary struct {
	GameID         string `json:"gameId"`
	CharacterName  string `json:"characterName"`
	CurrentLevel   int    `json:"currentLevel"`
	TurnCount      int    `json:"turnCount"`
	Timestamp      int64  `json:"timestamp"`
	Status         string `json:"status"`
	Gold           int    `json:"gold"`
	MonstersKilled int    `json:"monstersKilled"`
	MaxDepth       int    `json:"maxDepth"`
	Score          int    `json:"score"`
}

// QuotaView — usage/quota в байтах плюс процент занятого.
type QuotaView struct {
	Usage       int64   `json:"usage"`
	Quota       int64   `json:"quota"`
	PercentUsed float64 `json:"percentUsed"`
}
