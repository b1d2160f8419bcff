// Package saves — верхний уровень персистентности: save/continue/list/
// delete API, которым пользуется игровой цикл. Оркестрирует конвейер
// кодек -> компрессор -> хранилище и обратный ему на загрузке, владеет
// указателем продолжения и встраиванием/извлечением данных реплея.
package saves

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dirkkok101/roguelike-sub001/internal/codec"
	"github.com/dirkkok101/roguelike-sub001/internal/compress"
	"github.com/dirkkok101/roguelike-sub001/internal/domain"
	"github.com/dirkkok101/roguelike-sub001/internal/replay"
	"github.com/dirkkok101/roguelike-sub001/internal/storage"
	"github.com/dirkkok101/roguelike-sub001/pkg/logger"
)

// ErrSaveFailed оборачивает любую ошибку конвейера сохранения.
// Проверяйте errors.Is(err, storage.ErrQuotaExceeded), чтобы отличить
// нехватку места от прочих сбоев — тексты уведомлений разные.
var ErrSaveFailed = errors.New("save failed")

// Service — сервис сохранений.
//
// Известное ограничение: два одновременных SaveGame ОДНОГО gameId
// гонятся по принципу last-write-wins и за запись, и за указатель
// продолжения. Мьютекса на пару запись+указатель нет умышленно:
// каждая запись ключуется собственным gameId, и в одиночной игре
// такая гонка не воспроизводится.
type Service struct {
	store    storage.Adapter
	comp     compress.Compressor
	recorder *replay.Recorder

	// saving — счётчик сохранений в полёте. Клиент опрашивает его,
	// чтобы предупредить игрока, закрывающего вкладку посреди записи.
	saving atomic.Int64
}

// NewService собирает сервис из хранилища, компрессора и рекордера.
func NewService(store storage.Adapter, comp compress.Compressor, rec *replay.Recorder) *Service {
	return &Service{store: store, comp: comp, recorder: rec}
}

// Recorder возвращает журнал команд этой сессии.
func (s *Service) Recorder() *replay.Recorder {
	return s.recorder
}

// IsSavingInProgress сообщает, есть ли сейчас сохранение в полёте.
func (s *Service) IsSavingInProgress() bool {
	return s.saving.Load() > 0
}

// SaveGame сериализует, сжимает и записывает состояние, затем двигает
// указатель продолжения на этот забег.
//
// Порядок важен: указатель обновляется ТОЛЬКО после успешной записи
// самого сохранения — упавший конвейер не оставляет указателя на
// несуществующую запись.
func (s *Service) SaveGame(ctx context.Context, state *domain.GameState) error {
	s.saving.Add(1)
	defer s.saving.Add(-1)

	if state == nil || state.GameID.IsNil() {
		return fmt.Errorf("%w: state has no game id", ErrSaveFailed)
	}

	started := time.Now()

	// 1. Кодек: граф -> плоский JSON.
	payload, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	// 2. Компрессор.
	blob, err := s.comp.Compress(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	// 3. Сборка записи. Реплей встраивается только когда рекордер
	// реально что-то записал: есть начальный снапшот И хотя бы одна
	// команда. Иначе поле — явный null.
	var replayData *domain.ReplayData
	if initial := s.recorder.GetInitialState(); initial != nil {
		if commands := s.recorder.GetCommandLog(); len(commands) > 0 {
			replayData = &domain.ReplayData{
				InitialState: initial,
				Seed:         state.Seed,
				Commands:     commands,
			}
		}
	}

	record := domain.SaveRecord{
		GameID:     state.GameID,
		GameState:  blob,
		ReplayData: replayData,
		Metadata:   buildMetadata(state),
		Version:    CurrentSaveVersion,
		Timestamp:  time.Now().UnixMilli(),
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encode record: %w", ErrSaveFailed, err)
	}

	// 4. Запись сохранения.
	if err := s.store.Put(ctx, storage.StoreSaves, string(state.GameID), raw); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	// 5. Указатель продолжения — строго после успешной записи.
	pointer := domain.ContinuePointer{GameID: domain.ContinueKey, ContinueGameID: state.GameID}
	ptrRaw, _ := json.Marshal(pointer)
	if err := s.store.Put(ctx, storage.StoreSaves, string(domain.ContinueKey), ptrRaw); err != nil {
		return fmt.Errorf("%w: continue pointer: %w", ErrSaveFailed, err)
	}

	logger.Log.WithFields(logrus.Fields{
		"game_id":     state.GameID,
		"turn":        state.TurnCount,
		"payload":     len(payload),
		"compressed":  len(blob),
		"with_replay": replayData != nil,
		"took":        time.Since(started).Round(time.Millisecond).String(),
	}).Info("Game saved")

	return nil
}

// LoadGame восстанавливает состояние забега.
//
// gameID == NilGameID означает "что показывает указатель продолжения".
// Любой сбой по пути (нет записи, несовместимая версия, битый блоб,
// провал валидации) разрешается локально: лог + nil. За границу API
// ошибка загрузки не выходит — для вызывающего это "сохранения нет".
func (s *Service) LoadGame(ctx context.Context, gameID domain.GameID) *domain.GameState {
	id := gameID
	if id.IsNil() {
		id = s.GetContinueGameID(ctx)
		if id.IsNil() {
			return nil
		}
	}

	raw, err := s.store.Get(ctx, storage.StoreSaves, string(id))
	if err != nil {
		logger.Log.WithError(err).WithField("game_id", id).Warn("Load: storage read failed")
		return nil
	}
	if raw == nil {
		return nil
	}

	var record domain.SaveRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		logger.Log.WithError(err).WithField("game_id", id).Warn("Load: record is not parseable")
		return nil
	}

	// Версионный гейт. Несовместимая запись трактуется как
	// отсутствующая и сразу вычищается — совместимую запись чистка
	// не задевает по построению.
	if !CheckVersion(&record) {
		logger.Log.WithFields(logrus.Fields{
			"game_id":      id,
			"save_version": record.Version,
			"current":      CurrentSaveVersion,
		}).Warn("Load: incompatible save version, purging")
		if err := s.store.Delete(ctx, storage.StoreSaves, string(id)); err != nil {
			logger.Log.WithError(err).Warn("Load: purge of incompatible save failed")
		}
		return nil
	}

	payload, err := s.comp.Decompress(record.GameState)
	if err != nil {
		logger.Log.WithError(err).WithField("game_id", id).Warn("Load: corrupted save blob")
		return nil
	}

	flat, err := codec.Unmarshal(payload)
	if err != nil {
		logger.Log.WithError(err).WithField("game_id", id).Warn("Load: save payload rejected")
		return nil
	}

	flat = Migrate(flat)

	state, err := codec.Rebuild(flat)
	if err != nil {
		logger.Log.WithError(err).WithField("game_id", id).Warn("Load: state rebuild failed")
		return nil
	}

	// Последний рубеж: запись распарсилась, но может быть тонко
	// битой. В геймплей такое состояние не пропускается.
	if err := validateState(state); err != nil {
		logger.Log.WithError(err).WithField("game_id", id).Warn("Load: state validation failed")
		return nil
	}

	// Сброс рекордера. Если в записи есть реплей — восстанавливаем
	// его точный начальный снапшот и лог: отладка реплея после
	// загрузки видит забег с нулевого хода, а не с точки загрузки.
	// Если реплея нет — начинаем чистую запись от загруженного
	// состояния.
	s.recorder.ClearLog()
	if record.ReplayData != nil && record.ReplayData.InitialState != nil {
		s.recorder.SetInitialState(record.ReplayData.InitialState)
		s.recorder.RestoreCommandLog(record.ReplayData.Commands)
	} else {
		freshRaw, err := json.Marshal(flat)
		if err == nil {
			s.recorder.SetInitialState(freshRaw)
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"game_id": id,
		"turn":    state.TurnCount,
		"replay":  record.ReplayData != nil,
	}).Info("Game loaded")

	return state
}

// DeleteSave удаляет сохранение. Перманентно, без корзины: на этом
// построен permadeath — вызывающий обязан дёрнуть DeleteSave при
// проигрыше и НЕ дёргать при победе. Сервис исходов игры не трактует.
//
// Идемпотентно: удаление отсутствующего сохранения или указателя —
// не ошибка.
func (s *Service) DeleteSave(ctx context.Context, gameID domain.GameID) {
	if gameID.IsNil() {
		return
	}

	if err := s.store.Delete(ctx, storage.StoreSaves, string(gameID)); err != nil {
		logger.Log.WithError(err).WithField("game_id", gameID).Warn("Delete: record removal failed")
	}

	// Указатель продолжения умирает вместе с записью, на которую
	// указывает. Указатель на ДРУГОЙ забег не трогаем.
	if s.GetContinueGameID(ctx) == gameID {
		if err := s.store.Delete(ctx, storage.StoreSaves, string(domain.ContinueKey)); err != nil {
			logger.Log.WithError(err).Warn("Delete: continue pointer removal failed")
		}
	}

	logger.Log.WithField("game_id", gameID).Info("Save deleted")
}

// HasSave отвечает, существует ли сохранение. Пустой id — проверка
// по указателю продолжения.
func (s *Service) HasSave(ctx context.Context, gameID domain.GameID) bool {
	id := gameID
	if id.IsNil() {
		id = s.GetContinueGameID(ctx)
		if id.IsNil() {
			return false
		}
	}
	raw, err := s.store.Get(ctx, storage.StoreSaves, string(id))
	return err == nil && raw != nil
}

// GetContinueGameID возвращает id последнего сохранённого забега
// или NilGameID.
func (s *Service) GetContinueGameID(ctx context.Context) domain.GameID {
	raw, err := s.store.Get(ctx, storage.StoreSaves, string(domain.ContinueKey))
	if err != nil || raw == nil {
		return domain.NilGameID
	}
	var pointer domain.ContinuePointer
	if err := json.Unmarshal(raw, &pointer); err != nil {
		logger.Log.WithError(err).Warn("Continue pointer is not parseable")
		return domain.NilGameID
	}
	return pointer.ContinueGameID
}

// ListGames возвращает сводки всех сохранений, новые сверху.
// Распаковка не нужна: сводка денормализована в метаданные записи.
func (s *Service) ListGames(ctx context.Context) ([]domain.SaveMetadata, error) {
	records, err := s.store.GetAll(ctx, storage.StoreSaves)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	metas := make([]domain.SaveMetadata, 0, len(records))
	for _, raw := range records {
		var record domain.SaveRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		// В этом же store лежит указатель продолжения — у него нет
		// метаданных, пропускаем.
		if record.GameID.IsNil() || record.GameID == domain.ContinueKey {
			continue
		}
		md := record.Metadata
		md.Score = Score(md)
		metas = append(metas, md)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Timestamp > metas[j].Timestamp
	})
	return metas, nil
}

// GetQuota — приблизительная оценка занятого места. Чисто
// информационная: сохранение/загрузку никогда не блокирует.
func (s *Service) GetQuota(ctx context.Context) (storage.QuotaInfo, error) {
	return s.store.CheckQuota(ctx)
}

// Score — формула счёта для списков и лидерборда.
// Фиксирована: золото + 100 за монстра + 1000 за глубину.
func Score(md domain.SaveMetadata) int {
	return md.Gold + md.MonstersKilled*100 + md.MaxDepth*1000
}

func buildMetadata(state *domain.GameState) domain.SaveMetadata {
	md := domain.SaveMetadata{
		GameID:         state.GameID,
		CharacterName:  state.CharacterName,
		CurrentLevel:   state.CurrentLevel,
		TurnCount:      state.TurnCount,
		Timestamp:      time.Now().UnixMilli(),
		Status:         "active",
		MonstersKilled: state.MonstersKilled,
		MaxDepth:       state.DeepestLevel,
	}
	if state.Player != nil {
		md.Gold = state.Player.Gold
	}
	if state.HasWon {
		md.Status = "won"
	} else if state.IsGameOver {
		md.Status = "dead"
	}
	return md
}

// validateState — структурная валидация восстановленного состояния.
func validateState(state *domain.GameState) error {
	if state.Player == nil {
		return fmt.Errorf("state has no player")
	}
	if len(state.Levels) == 0 {
		return fmt.Errorf("state has no levels")
	}

	current, ok := state.Levels[state.CurrentLevel]
	if !ok {
		return fmt.Errorf("current level %d is missing", state.CurrentLevel)
	}
	if !current.InBounds(state.Player.Position) {
		return fmt.Errorf("player position %v is outside level %d (%dx%d)",
			state.Player.Position, current.Depth, current.Width, current.Height)
	}

	for depth, lvl := range state.Levels {
		if len(lvl.Tiles) != lvl.Height {
			return fmt.Errorf("level %d: tile grid height %d != %d", depth, len(lvl.Tiles), lvl.Height)
		}
		for y, row := range lvl.Tiles {
			if len(row) != lvl.Width {
				return fmt.Errorf("level %d: tile row %d width %d != %d", depth, y, len(row), lvl.Width)
			}
		}
		for _, m := range lvl.Monsters {
			if !lvl.InBounds(m.Position) {
				return fmt.Errorf("level %d: monster %s is out of bounds", depth, m.ID)
			}
		}
	}

	return nil
}
