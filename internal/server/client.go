package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dirkkok101/roguelike-sub001/internal/codec"
	"github.com/dirkkok101/roguelike-sub001/internal/domain"
	"github.com/dirkkok101/roguelike-sub001/internal/saves"
	"github.com/dirkkok101/roguelike-sub001/internal/storage"
	"github.com/dirkkok101/roguelike-sub001/pkg/api"
	"github.com/dirkkok101/roguelike-sub001/pkg/logger"
)

// Настройки WebSocket
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 20 // снапшот состояния бывает крупным

	requestTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client — посредник между WebSocket и сервисом сохранений.
// Одно соединение — одна игровая сессия браузера.
type Client struct {
	Saves *saves.Service
	Conn  *websocket.Conn
	Send  chan api.ServerResponse
}

func NewClient(svc *saves.Service, conn *websocket.Conn) *Client {
	return &Client{
		Saves: svc,
		Conn:  conn,
		Send:  make(chan api.ServerResponse, 64),
	}
}

// readPump читает команды от клиента
func (c *Client) readPump() {
	defer func() {
		close(c.Send)
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection")
		}
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logger.Log.WithError(err).Warn("failed to set read deadline")
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			logger.Log.WithError(err).Warn("failed to set pong read deadline")
		}
		return nil
	})

	for {
		var cmd api.ClientCommand
		if err := c.Conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Errorf("WS Error: %v", err)
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		resp := c.handleCommand(ctx, cmd)
		cancel()

		c.Send <- resp
	}
}

// handleCommand диспетчеризует команду клиента в сервис сохранений.
func (c *Client) handleCommand(ctx context.Context, cmd api.ClientCommand) api.ServerResponse {
	switch cmd.Action {
	case api.ActionSaveGame:
		return c.handleSave(ctx, cmd.Payload)
	case api.ActionLoadGame:
		return c.handleLoad(ctx, cmd.Payload, false)
	case api.ActionContinueGame:
		return c.handleLoad(ctx, nil, true)
	case api.ActionDeleteSave:
		return c.handleDelete(ctx, cmd.Payload)
	case api.ActionListGames:
		return c.handleList(ctx)
	case api.ActionRecordCommand:
		return c.handleRecord(cmd.Payload)
	case api.ActionGetQuota:
		return c.handleQuota(ctx)
	default:
		return api.ServerResponse{Type: api.ResponseError, Error: "unknown action " + cmd.Action}
	}
}

func (c *Client) handleSave(ctx context.Context, payload json.RawMessage) api.ServerResponse {
	var p api.SavePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return api.ServerResponse{Type: api.ResponseError, Error: "bad SAVE_GAME payload"}
	}
	if err := p.Validate(); err != nil {
		return api.ServerResponse{Type: api.ResponseError, Error: err.Error()}
	}

	// Клиент шлёт состояние уже в плоской форме — той же, которую
	// строит кодек. Восстанавливаем граф и прогоняем через обычный
	// конвейер сохранения.
	flat, err := codec.Unmarshal(p.State)
	if err != nil {
		return api.ServerResponse{Type: api.ResponseError, Error: "state rejected: " + err.Error()}
	}
	state, err := codec.Rebuild(flat)
	if err != nil {
		return api.ServerResponse{Type: api.ResponseError, Error: "state rejected: " + err.Error()}
	}
	if state.GameID.IsNil() {
		state.GameID = domain.NewGameID()
	}

	if err := c.Saves.SaveGame(ctx, state); err != nil {
		// Игрок ОБЯЗАН увидеть, что прогресс не записан. Нехватка
		// места — отдельный, ремонтопригодный случай.
		logger.Log.WithError(err).Error("Save failed")
		return api.ServerResponse{
			Type:          api.ResponseError,
			GameID:        string(state.GameID),
			Error:         "failed to save game",
			QuotaExceeded: errors.Is(err, storage.ErrQuotaExceeded),
		}
	}

	return api.ServerResponse{Type: api.ResponseSaved, GameID: string(state.GameID)}
}

func (c *Client) handleLoad(ctx context.Context, payload json.RawMessage, useContinue bool) api.ServerResponse {
	var id domain.GameID
	if !useContinue {
		var p api.GamePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return api.ServerResponse{Type: api.ResponseError, Error: "bad LOAD_GAME payload"}
		}
		if err := p.Validate(); err != nil {
			return api.ServerResponse{Type: api.ResponseError, Error: err.Error()}
		}
		id = domain.GameID(p.GameID)
	}

	state := c.Saves.LoadGame(ctx, id)
	if state == nil {
		// Любой сбой загрузки для клиента — "сохранения нет":
		// экран "нет сохранений", а не крэш.
		return api.ServerResponse{Type: api.ResponseNoSave}
	}

	raw, err := codec.Marshal(state)
	if err != nil {
		logger.Log.WithError(err).Error("Loaded state re-marshal failed")
		return api.ServerResponse{Type: api.ResponseNoSave}
	}

	return api.ServerResponse{Type: api.ResponseLoaded, GameID: string(state.GameID), State: raw}
}

func (c *Client) handleDelete(ctx context.Context, payload json.RawMessage) api.ServerResponse {
	var p api.GamePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return api.ServerResponse{Type: api.ResponseError, Error: "bad DELETE_SAVE payload"}
	}
	if err := p.Validate(); err != nil {
		return api.ServerResponse{Type: api.ResponseError, Error: err.Error()}
	}
	c.Saves.DeleteSave(ctx, domain.GameID(p.GameID))
	return api.ServerResponse{Type: api.ResponseDeleted, GameID: p.GameID}
}

func (c *Client) handleList(ctx context.Context) api.ServerResponse {
	metas, err := c.Saves.ListGames(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("List games failed")
		return api.ServerResponse{Type: api.ResponseError, Error: "failed to list games"}
	}
	return api.ServerResponse{Type: api.ResponseGames, Games: toSummaries(metas)}
}

func (c *Client) handleRecord(payload json.RawMessage) api.ServerResponse {
	var p api.RecordPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return api.ServerResponse{Type: api.ResponseError, Error: "bad RECORD_COMMAND payload"}
	}
	if err := p.Validate(); err != nil {
		return api.ServerResponse{Type: api.ResponseError, Error: err.Error()}
	}

	c.Saves.Recorder().RecordCommand(domain.CommandLogEntry{
		CommandType: p.CommandType,
		Payload:     p.Payload,
		TurnNumber:  p.TurnNumber,
		ActorType:   p.ActorType,
		RNGState:    p.RNGState,
		Timestamp:   p.Timestamp,
	})

	// Подтверждение не шлём: запись команды — горячий путь каждого
	// хода, и клиент не ждёт ответа.
	return api.ServerResponse{}
}

func (c *Client) handleQuota(ctx context.Context) api.ServerResponse {
	info, err := c.Saves.GetQuota(ctx)
	if err != nil {
		return api.ServerResponse{Type: api.ResponseError, Error: "quota unavailable"}
	}
	return api.ServerResponse{Type: api.ResponseQuota, Quota: &api.QuotaView{
		Usage:       info.Usage,
		Quota:       info.Quota,
		PercentUsed: info.PercentUsed,
	}}
}

// writePump отправляет данные клиенту + Ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.Conn.Close(); err != nil {
			logger.Log.WithError(err).Debug("failed to close websocket connection in writePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set write deadline")
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logger.Log.WithError(err).Debug("write close message failed")
				}
				return
			}
			if message.Type == "" {
				continue // ответ-заглушка (RECORD_COMMAND)
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				logger.Log.WithError(err).Debug("write json message failed")
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logger.Log.WithError(err).Warn("failed to set ping write deadline")
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
