package saves

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dirkkok101/roguelike-sub001/internal/codec"
	"github.com/dirkkok101/roguelike-sub001/internal/compress"
	"github.com/dirkkok101/roguelike-sub001/internal/domain"
	"github.com/dirkkok101/roguelike-sub001/internal/replay"
	"github.com/dirkkok101/roguelike-sub001/internal/storage"
)

// newTestService собирает сервис на настоящем конвейере: файловое
// хранилище во временном каталоге, синхронный zstd, чистый рекордер.
func newTestService(t *testing.T) (*Service, storage.Adapter) {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	comp, err := compress.NewZstd()
	if err != nil {
		t.Fatalf("NewZstd failed: %v", err)
	}
	t.Cleanup(comp.Close)

	return NewService(store, comp, replay.NewRecorder()), store
}

// newState строит минимальное валидное состояние забега.
func newState(id domain.GameID, turn int) *domain.GameState {
	tiles := make([][]domain.Tile, 3)
	for y := range tiles {
		tiles[y] = make([]domain.Tile, 3)
		for x := range tiles[y] {
			tiles[y][x] = domain.Tile{Type: "floor", Walkable: true, Transparent: true}
		}
	}

	return &domain.GameState{
		GameID:        id,
		CharacterName: "Tester",
		Seed:          "seed-1",
		CurrentLevel:  1,
		Player: &domain.Player{
			Position: domain.Position{X: 1, Y: 1},
			HP:       100, MaxHP: 100,
			Strength: 16, MaxStrength: 16,
			AC: 5, Level: 1, Hunger: 1300,
			Energy: 100,
		},
		Levels: map[int]*domain.Level{
			1: {Depth: 1, Width: 3, Height: 3, Tiles: tiles},
		},
		TurnCount:    turn,
		DeepestLevel: 1,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id := domain.NewGameID()
	orig := newState(id, 42)
	orig.Player.Gold = 30
	orig.MonstersKilled = 2

	if err := svc.SaveGame(ctx, orig); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}

	state := svc.LoadGame(ctx, id)
	if state == nil {
		t.Fatal("LoadGame returned nil for a fresh save")
	}
	if state.GameID != id {
		t.Errorf("GameID = %s, want %s", state.GameID, id)
	}
	if state.TurnCount != 42 {
		t.Errorf("TurnCount = %d, want 42", state.TurnCount)
	}
	if state.Player.Gold != 30 {
		t.Errorf("Gold = %d, want 30", state.Player.Gold)
	}
	if state.CharacterName != "Tester" {
		t.Errorf("CharacterName = %q", state.CharacterName)
	}
}

func TestSaveRequiresGameID(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.SaveGame(context.Background(), newState(domain.NilGameID, 0))
	if !errors.Is(err, ErrSaveFailed) {
		t.Errorf("err = %v, want ErrSaveFailed", err)
	}
	err = svc.SaveGame(context.Background(), nil)
	if !errors.Is(err, ErrSaveFailed) {
		t.Errorf("err = %v, want ErrSaveFailed", err)
	}
}

func TestContinuePointerFollowsLatestSave(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	idA := domain.NewGameID()
	idB := domain.NewGameID()

	if err := svc.SaveGame(ctx, newState(idA, 10)); err != nil {
		t.Fatalf("save A failed: %v", err)
	}
	if err := svc.SaveGame(ctx, newState(idB, 20)); err != nil {
		t.Fatalf("save B failed: %v", err)
	}

	if got := svc.GetContinueGameID(ctx); got != idB {
		t.Errorf("continue id = %s, want %s", got, idB)
	}

	// Пустой id в LoadGame означает "последний сохранённый забег".
	state := svc.LoadGame(ctx, domain.NilGameID)
	if state == nil || state.GameID != idB {
		t.Fatalf("LoadGame(nil) loaded %v, want %s", state, idB)
	}

	// Удаление ДРУГОГО забега указатель не трогает.
	svc.DeleteSave(ctx, idA)
	if got := svc.GetContinueGameID(ctx); got != idB {
		t.Errorf("continue id after deleting A = %s, want %s", got, idB)
	}
	if svc.HasSave(ctx, idA) {
		t.Error("save A survived deletion")
	}

	// Удаление забега, на который указывает указатель, уносит и его.
	svc.DeleteSave(ctx, idB)
	if got := svc.GetContinueGameID(ctx); !got.IsNil() {
		t.Errorf("continue id after deleting B = %s, want nil", got)
	}
	if svc.LoadGame(ctx, domain.NilGameID) != nil {
		t.Error("LoadGame(nil) returned a state after the last save was deleted")
	}
}

func TestDeleteSaveIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id := domain.NewGameID()
	if err := svc.SaveGame(ctx, newState(id, 5)); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}

	// Удаление несуществующего забега — no-op: запись и указатель целы.
	svc.DeleteSave(ctx, domain.NewGameID())
	if !svc.HasSave(ctx, id) {
		t.Error("deleting a missing id removed an unrelated save")
	}
	if svc.GetContinueGameID(ctx) != id {
		t.Error("deleting a missing id moved the continue pointer")
	}

	svc.DeleteSave(ctx, id)
	svc.DeleteSave(ctx, id) // повторно — тоже не ошибка
	if svc.HasSave(ctx, id) {
		t.Error("save survived deletion")
	}
}

// TestPermadeathCycle — жизненный цикл "умер, начал заново под тем же
// id": после удаления и нового сохранения загрузка видит только новый
// забег с нулевого хода.
func TestPermadeathCycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id := domain.NewGameID()
	if err := svc.SaveGame(ctx, newState(id, 100)); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}

	// Смерть: вызывающий удаляет сохранение.
	svc.DeleteSave(ctx, id)
	if svc.HasSave(ctx, id) {
		t.Fatal("save exists after permadeath")
	}
	if svc.LoadGame(ctx, id) != nil {
		t.Fatal("LoadGame resurrected a deleted run")
	}

	// Новый забег под тем же id.
	if err := svc.SaveGame(ctx, newState(id, 0)); err != nil {
		t.Fatalf("SaveGame of the new run failed: %v", err)
	}
	state := svc.LoadGame(ctx, id)
	if state == nil {
		t.Fatal("LoadGame returned nil for the new run")
	}
	if state.TurnCount != 0 {
		t.Errorf("TurnCount = %d, want 0: old run leaked through", state.TurnCount)
	}
}

// TestVersionGatePurges: запись с чужой версией трактуется как
// отсутствующая и вычищается из хранилища.
func TestVersionGatePurges(t *testing.T) {
	for _, version := range []int{0, 1, CurrentSaveVersion + 1, 999} {
		t.Run(fmt.Sprintf("version %d", version), func(t *testing.T) {
			svc, store := newTestService(t)
			ctx := context.Background()

			id := domain.NewGameID()
			if err := svc.SaveGame(ctx, newState(id, 7)); err != nil {
				t.Fatalf("SaveGame failed: %v", err)
			}

			tamperRecord(t, store, id, func(rec map[string]any) {
				rec["version"] = version
			})

			if svc.LoadGame(ctx, id) != nil {
				t.Fatal("incompatible version passed the gate")
			}
			if svc.HasSave(ctx, id) {
				t.Error("incompatible save was not purged")
			}
		})
	}
}

func TestVersionGateAbsentVersionPurges(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id := domain.NewGameID()
	if err := svc.SaveGame(ctx, newState(id, 7)); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}

	tamperRecord(t, store, id, func(rec map[string]any) {
		delete(rec, "version")
	})

	if svc.LoadGame(ctx, id) != nil {
		t.Fatal("record without a version passed the gate")
	}
	if svc.HasSave(ctx, id) {
		t.Error("record without a version was not purged")
	}
}

// TestLoadCorruptedBlob: битый компрессорный блоб — это nil на выходе,
// но НЕ чистка: вычищаются только несовместимые версии.
func TestLoadCorruptedBlob(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id := domain.NewGameID()
	if err := svc.SaveGame(ctx, newState(id, 7)); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}

	tamperRecord(t, store, id, func(rec map[string]any) {
		rec["gameState"] = []byte("this is not a zstd frame")
	})

	if svc.LoadGame(ctx, id) != nil {
		t.Fatal("corrupted blob produced a state")
	}
	if !svc.HasSave(ctx, id) {
		t.Error("corrupted save was purged; only version mismatches purge")
	}
}

func TestLoadRejectsInvalidState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id := domain.NewGameID()
	state := newState(id, 3)
	state.Player.Position = domain.Position{X: 99, Y: 99} // вне уровня 3x3

	if err := svc.SaveGame(ctx, state); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}
	if svc.LoadGame(ctx, id) != nil {
		t.Error("out-of-bounds player passed validation")
	}
}

// TestReplayFieldExplicitNull: без записи реплея поле replayData
// присутствует в записи и равно null — это отличимо от старых записей
// без поля.
func TestReplayFieldExplicitNull(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id := domain.NewGameID()
	if err := svc.SaveGame(ctx, newState(id, 1)); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}

	raw, err := store.Get(ctx, storage.StoreSaves, string(id))
	if err != nil || raw == nil {
		t.Fatalf("record missing: %v", err)
	}
	if !strings.Contains(string(raw), `"replayData":null`) {
		t.Errorf("record lacks the explicit null replayData: %s", raw)
	}
}

// TestReplayFidelity — сквозной сценарий: 40 команд, сохранение со
// встроенным реплеем, "перезапуск" и загрузка. Реплей обязан дать
// нулевой снапшот и полный лог без пропусков.
func TestReplayFidelity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id := domain.NewGameID()
	initial := newState(id, 0)
	initial.Player.HP = 100

	initialRaw, err := codec.Marshal(initial)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	rec := svc.Recorder()
	rec.SetInitialState(initialRaw)

	for i := 0; i < 40; i++ {
		direction := "north"
		if i%2 == 1 {
			direction = "east"
		}
		rec.RecordCommand(domain.CommandLogEntry{
			CommandType: "move",
			Payload:     json.RawMessage(fmt.Sprintf(`{"direction":%q}`, direction)),
			TurnNumber:  i,
			ActorType:   "player",
			RNGState:    fmt.Sprintf("rng-%d", i),
		})
	}

	final := newState(id, 40)
	final.Player.HP = 75
	if err := svc.SaveGame(ctx, final); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}

	// Перезапуск процесса: рекордер пуст.
	rec.ClearLog()

	state := svc.LoadGame(ctx, id)
	if state == nil {
		t.Fatal("LoadGame returned nil")
	}
	if state.TurnCount != 40 || state.Player.HP != 75 {
		t.Errorf("loaded state: turn %d hp %d, want 40/75", state.TurnCount, state.Player.HP)
	}

	log := rec.GetCommandLog()
	if len(log) != 40 {
		t.Fatalf("restored log has %d entries, want 40", len(log))
	}
	for i, e := range log {
		if e.TurnNumber != i {
			t.Fatalf("log entry %d has TurnNumber %d: the log has gaps", i, e.TurnNumber)
		}
	}
	if log[0].RNGState != "rng-0" || log[39].RNGState != "rng-39" {
		t.Error("RNG snapshots were not preserved")
	}

	var snap codec.FlatState
	if err := json.Unmarshal(rec.GetInitialState(), &snap); err != nil {
		t.Fatalf("initial snapshot unparseable: %v", err)
	}
	if snap.TurnCount != 0 {
		t.Errorf("initial snapshot TurnCount = %d, want 0", snap.TurnCount)
	}
	if snap.Player == nil || snap.Player.HP != 100 {
		t.Error("initial snapshot lost the starting HP")
	}
}

// Загрузка записи без реплея начинает чистую запись от точки загрузки.
func TestLoadStartsFreshRecording(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id := domain.NewGameID()
	if err := svc.SaveGame(ctx, newState(id, 15)); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}
	if svc.LoadGame(ctx, id) == nil {
		t.Fatal("LoadGame returned nil")
	}

	rec := svc.Recorder()
	if rec.Len() != 0 {
		t.Errorf("fresh recording has %d commands", rec.Len())
	}
	var snap codec.FlatState
	if err := json.Unmarshal(rec.GetInitialState(), &snap); err != nil {
		t.Fatalf("fresh snapshot unparseable: %v", err)
	}
	if snap.TurnCount != 15 {
		t.Errorf("fresh snapshot TurnCount = %d, want the loaded turn 15", snap.TurnCount)
	}
}

func TestScore(t *testing.T) {
	md := domain.SaveMetadata{Gold: 100, MonstersKilled: 10, MaxDepth: 5}
	if got := Score(md); got != 6500 {
		t.Errorf("Score = %d, want 6500", got)
	}
	if got := Score(domain.SaveMetadata{}); got != 0 {
		t.Errorf("Score of empty metadata = %d, want 0", got)
	}
}

func TestListGames(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	idA := domain.NewGameID()
	idB := domain.NewGameID()

	stateA := newState(idA, 50)
	stateA.Player.Gold = 100
	stateA.MonstersKilled = 10
	stateA.DeepestLevel = 5
	if err := svc.SaveGame(ctx, stateA); err != nil {
		t.Fatalf("save A failed: %v", err)
	}
	if err := svc.SaveGame(ctx, newState(idB, 5)); err != nil {
		t.Fatalf("save B failed: %v", err)
	}

	// Метки времени записей делаем заведомо разными.
	tamperRecord(t, store, idA, func(rec map[string]any) {
		md := rec["metadata"].(map[string]any)
		md["timestamp"] = float64(1000)
	})
	tamperRecord(t, store, idB, func(rec map[string]any) {
		md := rec["metadata"].(map[string]any)
		md["timestamp"] = float64(2000)
	})

	games, err := svc.ListGames(ctx)
	if err != nil {
		t.Fatalf("ListGames failed: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("ListGames returned %d entries, want 2 (pointer must be skipped)", len(games))
	}
	if games[0].GameID != idB || games[1].GameID != idA {
		t.Errorf("order = [%s %s], want newest first", games[0].GameID, games[1].GameID)
	}
	if games[1].Score != 6500 {
		t.Errorf("Score of A = %d, want 6500", games[1].Score)
	}
	if games[1].Status != "active" {
		t.Errorf("Status of A = %q, want active", games[1].Status)
	}
}

func TestListGamesSkipsBrokenRecords(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id := domain.NewGameID()
	if err := svc.SaveGame(ctx, newState(id, 1)); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}
	if err := store.Put(ctx, storage.StoreSaves, "broken", json.RawMessage(`{not json`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	games, err := svc.ListGames(ctx)
	if err != nil {
		t.Fatalf("ListGames failed: %v", err)
	}
	if len(games) != 1 {
		t.Errorf("ListGames returned %d entries, want 1", len(games))
	}
}

func TestGetQuota(t *testing.T) {
	svc, _ := newTestService(t)

	info, err := svc.GetQuota(context.Background())
	if err != nil {
		t.Fatalf("GetQuota failed: %v", err)
	}
	if info.Quota != 1<<20 {
		t.Errorf("Quota = %d, want %d", info.Quota, 1<<20)
	}
}

func TestIsSavingInProgress(t *testing.T) {
	svc, _ := newTestService(t)
	if svc.IsSavingInProgress() {
		t.Error("fresh service reports a save in flight")
	}
	if err := svc.SaveGame(context.Background(), newState(domain.NewGameID(), 1)); err != nil {
		t.Fatalf("SaveGame failed: %v", err)
	}
	if svc.IsSavingInProgress() {
		t.Error("counter was not decremented after SaveGame returned")
	}
}

// tamperRecord читает запись, правит её через переданный колбэк и
// кладёт обратно — для тестов несовместимых и битых записей.
func tamperRecord(t *testing.T, store storage.Adapter, id domain.GameID, mutate func(map[string]any)) {
	t.Helper()
	ctx := context.Background()

	raw, err := store.Get(ctx, storage.StoreSaves, string(id))
	if err != nil || raw == nil {
		t.Fatalf("record %s missing: %v", id, err)
	}

	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("record unparseable: %v", err)
	}
	mutate(rec)

	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := store.Put(ctx, storage.StoreSaves, string(id), out); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
}
