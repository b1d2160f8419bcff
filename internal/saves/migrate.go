package saves

import (
	"encoding/json"

	"github.com/dirkkok101/roguelike-sub001/internal/codec"
	"github.com/dirkkok101/roguelike-sub001/internal/domain"
	"github.com/dirkkok101/roguelike-sub001/pkg/logger"
)

// migrationStep — одна доливка поля, появившегося в поздней ревизии
// схемы той же версии.
//
// Правило одно на все шаги: дефолт пишется ТОЛЬКО если поле
// отсутствует. Присутствующее значение не перезаписывается никогда,
// включая "ложные" (false, 0) и явный null у runState — это
// осмысленные значения, а не дыры.
type migrationStep struct {
	field   string
	present func(f *codec.FlatState) bool
	apply   func(f *codec.FlatState)
}

var migrationSteps = []migrationStep{
	{
		field:   "player.energy",
		present: func(f *codec.FlatState) bool { return f.Player.Energy != nil },
		apply:   func(f *codec.FlatState) { f.Player.Energy = intPtr(100) },
	},
	{
		field:   "player.isRunning",
		present: func(f *codec.FlatState) bool { return f.Player.IsRunning != nil },
		apply:   func(f *codec.FlatState) { f.Player.IsRunning = boolPtr(false) },
	},
	{
		field:   "player.runState",
		present: func(f *codec.FlatState) bool { return len(f.Player.RunState) > 0 },
		apply:   func(f *codec.FlatState) { f.Player.RunState = json.RawMessage("null") },
	},
	{
		field:   "player.statusEffects",
		present: func(f *codec.FlatState) bool { return f.Player.StatusEffects != nil },
		apply:   func(f *codec.FlatState) { f.Player.StatusEffects = []domain.StatusEffect{} },
	},
	{
		field:   "characterName",
		present: func(f *codec.FlatState) bool { return f.CharacterName != nil },
		apply:   func(f *codec.FlatState) { f.CharacterName = strPtr("") },
	},
	{
		field:   "levelsExplored",
		present: func(f *codec.FlatState) bool { return f.LevelsExplored != nil },
		apply:   func(f *codec.FlatState) { f.LevelsExplored = intPtr(0) },
	},
	{
		field:   "deepestLevel",
		present: func(f *codec.FlatState) bool { return f.DeepestLevel != nil },
		apply:   func(f *codec.FlatState) { f.DeepestLevel = intPtr(1) },
	},
}

// Migrate доливает в запись значения по умолчанию для полей, которых
// в ней ещё не было. Применяется только к записям, прошедшим проверку
// версии. Миграция строго аддитивна: поля не удаляются и не
// переименовываются.
func Migrate(flat *codec.FlatState) *codec.FlatState {
	if flat == nil || flat.Player == nil {
		return flat
	}
	for _, step := range migrationSteps {
		if step.present(flat) {
			continue
		}
		step.apply(flat)
		logger.Log.WithField("field", step.field).Debug("Backfilled missing save field")
	}
	return flat
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }
