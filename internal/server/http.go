package server

import (
	"encoding/json"
	"net/http"
	_ "net/http/pprof" // Profiling

	"github.com/dirkkok101/roguelike-sub001/internal/domain"
	"github.com/dirkkok101/roguelike-sub001/internal/saves"
	"github.com/dirkkok101/roguelike-sub001/internal/version"
	"github.com/dirkkok101/roguelike-sub001/pkg/api"
	"github.com/dirkkok101/roguelike-sub001/pkg/logger"
)

// Server — HTTP/WebSocket поверхность сервиса сохранений.
type Server struct {
	Saves *saves.Service
	Port  string
}

func New(svc *saves.Service, port string) *Server {
	return &Server{
		Saves: svc,
		Port:  port,
	}
}

// Run запускает HTTP сервер.
func (s *Server) Run() error {
	mux := http.DefaultServeMux

	// Регистрируем роуты
	mux.HandleFunc("/ws", enableCORS(s.handleWS))
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))

	// REST-дублёры для списков и квоты: ими пользуется экран
	// "continue" до установления WebSocket-сессии.
	mux.HandleFunc("GET /api/games", enableCORS(s.handleListGames))
	mux.HandleFunc("DELETE /api/games/{id}", enableCORS(s.handleDeleteGame))
	mux.HandleFunc("GET /api/quota", enableCORS(s.handleQuota))

	logger.Log.Infof("🗄️  Save service running on :%s", s.Port)
	return http.ListenAndServe(":"+s.Port, mux)
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// handleWS обрабатывает подключение по WebSocket
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("Upgrade error:", err)
		return
	}

	client := NewClient(s.Saves, conn)

	// Запускаем пампы
	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		logger.Log.WithError(err).Debug("health write failed")
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, version.Get())
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	metas, err := s.Saves.ListGames(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("List games failed")
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, toSummaries(metas))
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	id := domain.GameID(r.PathValue("id"))
	if err := id.Validate(); err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	// Идемпотентно: повторный DELETE того же id — тоже 204.
	s.Saves.DeleteSave(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	info, err := s.Saves.GetQuota(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("Quota check failed")
		http.Error(w, "quota unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, api.QuotaView{
		Usage:       info.Usage,
		Quota:       info.Quota,
		PercentUsed: info.PercentUsed,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Debug("response encode failed")
	}
}

func toSummaries(metas []domain.SaveMetadata) []api.GameSummary {
	out := make([]api.GameSummary, 0, len(metas))
	for _, md := range metas {
		out = append(out, api.GameSummary{
			GameID:         string(md.GameID),
			CharacterName:  md.CharacterName,
			CurrentLevel:   md.CurrentLevel,
			TurnCount:      md.TurnCount,
			Timestamp:      md.Timestamp,
			Status:         md.Status,
			Gold:           md.Gold,
			MonstersKilled: md.MonstersKilled,
			MaxDepth:       md.MaxDepth,
			Score:          md.Score,
		})
	}
	return out
}
