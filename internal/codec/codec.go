package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dirkkok101/roguelike-sub001/internal/domain"
)

// ErrRequiredField возвращается из Unmarshal, когда в записи нет одного
// из обязательных полей верхнего уровня. Отсутствующие НЕобязательные
// коллекции молча становятся пустыми; здесь — жёсткий отказ.
var ErrRequiredField = errors.New("save record is missing required field")

// Marshal сериализует состояние: уплощает граф и кодирует его в JSON.
// Результат — текст, который дальше уходит компрессору.
func Marshal(state *domain.GameState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("cannot marshal nil state")
	}
	data, err := json.Marshal(Flatten(state))
	if err != nil {
		return nil, fmt.Errorf("marshal game state: %w", err)
	}
	return data, nil
}

// Unmarshal разбирает сериализованный текст в плоскую форму и проверяет
// обязательные поля (gameId, player, levels). Миграции применяются
// ПОСЛЕ этого шага, восстановление графа — после миграций.
func Unmarshal(data []byte) (*FlatState, error) {
	var flat FlatState
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("parse game state: %w", err)
	}
	if flat.GameID == "" {
		return nil, fmt.Errorf("%w: gameId", ErrRequiredField)
	}
	if flat.Player == nil {
		return nil, fmt.Errorf("%w: player", ErrRequiredField)
	}
	if flat.Levels == nil {
		return nil, fmt.Errorf("%w: levels", ErrRequiredField)
	}
	return &flat, nil
}

// Flatten разворачивает все keyed-коллекции в списки пар, а множества —
// в списки элементов. Ключи сортируются: порядок не несёт смысла, но
// детерминированный вывод даёт стабильные байты для одного состояния.
func Flatten(state *domain.GameState) *FlatState {
	name := state.CharacterName
	levelsExplored := state.LevelsExplored
	deepest := state.DeepestLevel

	flat := &FlatState{
		GameID:        string(state.GameID),
		CharacterName: &name,
		Seed:          state.Seed,
		CurrentLevel:  state.CurrentLevel,

		VisibleCells:       flattenSet(state.VisibleCells),
		IdentifiedItems:    flattenSet(state.IdentifiedItems),
		DetectedMonsters:   flattenSet(state.DetectedMonsters),
		DetectedMagicItems: flattenSet(state.DetectedMagicItems),

		AmuletLevelsVisited: flattenIntSet(state.AmuletLevelsVisited),
		ItemNameMap:         flattenItemNames(state.ItemNameMap),
		Messages:            state.Messages,

		TurnCount:      state.TurnCount,
		MonstersKilled: state.MonstersKilled,
		GoldCollected:  state.GoldCollected,
		ItemsFound:     state.ItemsFound,
		ItemsUsed:      state.ItemsUsed,
		LevelsExplored: &levelsExplored,
		DeepestLevel:   &deepest,

		IsGameOver: state.IsGameOver,
		HasWon:     state.HasWon,
	}

	if state.Player != nil {
		flat.Player = flattenPlayer(state.Player)
	}

	// Уровни: пары (глубина, уровень), глубины по возрастанию.
	depths := make([]int, 0, len(state.Levels))
	for d := range state.Levels {
		depths = append(depths, d)
	}
	sort.Ints(depths)

	flat.Levels = make([]LevelEntry, 0, len(depths))
	for _, d := range depths {
		flat.Levels = append(flat.Levels, LevelEntry{
			Depth: d,
			Level: flattenLevel(state.Levels[d]),
		})
	}

	return flat
}

// Rebuild восстанавливает граф состояния из плоской формы.
//
// Все отсутствующие коллекции становятся пустыми, а не nil: игровые
// системы рассчитывают, что по коллекции можно итерироваться сразу
// после загрузки.
func Rebuild(flat *FlatState) (*domain.GameState, error) {
	if flat == nil {
		return nil, fmt.Errorf("cannot rebuild nil flat state")
	}
	if flat.Player == nil {
		return nil, fmt.Errorf("%w: player", ErrRequiredField)
	}

	state := &domain.GameState{
		GameID:       domain.GameID(flat.GameID),
		Seed:         flat.Seed,
		CurrentLevel: flat.CurrentLevel,

		Player: rebuildPlayer(flat.Player),
		Levels: make(map[int]*domain.Level, len(flat.Levels)),

		VisibleCells:       rebuildSet(flat.VisibleCells),
		IdentifiedItems:    rebuildSet(flat.IdentifiedItems),
		DetectedMonsters:   rebuildSet(flat.DetectedMonsters),
		DetectedMagicItems: rebuildSet(flat.DetectedMagicItems),

		AmuletLevelsVisited: rebuildIntSet(flat.AmuletLevelsVisited),
		ItemNameMap:         rebuildItemNames(flat.ItemNameMap),
		Messages:            flat.Messages,

		TurnCount:      flat.TurnCount,
		MonstersKilled: flat.MonstersKilled,
		GoldCollected:  flat.GoldCollected,
		ItemsFound:     flat.ItemsFound,
		ItemsUsed:      flat.ItemsUsed,

		IsGameOver: flat.IsGameOver,
		HasWon:     flat.HasWon,
	}

	if flat.CharacterName != nil {
		state.CharacterName = *flat.CharacterName
	}
	if flat.LevelsExplored != nil {
		state.LevelsExplored = *flat.LevelsExplored
	}
	if flat.DeepestLevel != nil {
		state.DeepestLevel = *flat.DeepestLevel
	}
	if state.Messages == nil {
		state.Messages = []domain.Message{}
	}

	for _, entry := range flat.Levels {
		lvl, err := rebuildLevel(entry.Level)
		if err != nil {
			return nil, fmt.Errorf("rebuild level %d: %w", entry.Depth, err)
		}
		// Числовой ключ берётся из пары, а не из тела уровня:
		// глубина в паре — источник истины для lookup'ов.
		lvl.Depth = entry.Depth
		state.Levels[entry.Depth] = lvl
	}

	return state, nil
}

// --- Игрок ---

func flattenPlayer(p *domain.Player) *FlatPlayer {
	energy := p.Energy
	running := p.IsRunning

	fp := &FlatPlayer{
		Position:    p.Position,
		HP:          p.HP,
		MaxHP:       p.MaxHP,
		Strength:    p.Strength,
		MaxStrength: p.MaxStrength,
		AC:          p.AC,
		Level:       p.Level,
		XP:          p.XP,
		Gold:        p.Gold,
		Hunger:      p.Hunger,

		Energy:        &energy,
		IsRunning:     &running,
		StatusEffects: p.StatusEffects,
		Inventory:     p.Inventory,
	}
	if fp.StatusEffects == nil {
		fp.StatusEffects = []domain.StatusEffect{}
	}

	// RunState пишется всегда: либо объект, либо явный null.
	if p.RunState != nil {
		raw, _ := json.Marshal(p.RunState)
		fp.RunState = raw
	} else {
		fp.RunState = json.RawMessage("null")
	}

	slots := make([]string, 0, len(p.Equipment))
	for slot := range p.Equipment {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	for _, slot := range slots {
		fp.Equipment = append(fp.Equipment, EquipmentEntry{Slot: slot, ItemID: p.Equipment[slot]})
	}

	return fp
}

func rebuildPlayer(fp *FlatPlayer) *domain.Player {
	p := &domain.Player{
		Position:    fp.Position,
		HP:          fp.HP,
		MaxHP:       fp.MaxHP,
		Strength:    fp.Strength,
		MaxStrength: fp.MaxStrength,
		AC:          fp.AC,
		Level:       fp.Level,
		XP:          fp.XP,
		Gold:        fp.Gold,
		Hunger:      fp.Hunger,

		StatusEffects: fp.StatusEffects,
		Inventory:     fp.Inventory,
		Equipment:     make(map[string]string, len(fp.Equipment)),
	}
	if p.StatusEffects == nil {
		p.StatusEffects = []domain.StatusEffect{}
	}
	if p.Inventory == nil {
		p.Inventory = []domain.Item{}
	}

	if fp.Energy != nil {
		p.Energy = *fp.Energy
	}
	if fp.IsRunning != nil {
		p.IsRunning = *fp.IsRunning
	}
	if len(fp.RunState) > 0 && string(fp.RunState) != "null" {
		var rs domain.RunState
		// Кривой runState не валит загрузку целиком: бег просто
		// сбрасывается.
		if err := json.Unmarshal(fp.RunState, &rs); err == nil {
			p.RunState = &rs
		}
	}

	for _, e := range fp.Equipment {
		p.Equipment[e.Slot] = e.ItemID
	}

	return p
}

// --- Уровни и монстры ---

func flattenLevel(l *domain.Level) FlatLevel {
	fl := FlatLevel{
		Depth:      l.Depth,
		Width:      l.Width,
		Height:     l.Height,
		Tiles:      l.Tiles,
		Items:      l.Items,
		Gold:       l.Gold,
		Doors:      l.Doors,
		Traps:      l.Traps,
		StairsUp:   l.StairsUp,
		StairsDown: l.StairsDown,
		Explored:   l.Explored,
	}

	fl.Monsters = make([]FlatMonster, 0, len(l.Monsters))
	for _, m := range l.Monsters {
		fl.Monsters = append(fl.Monsters, FlatMonster{
			ID:       m.ID,
			Letter:   m.Letter,
			Name:     m.Name,
			Position: m.Position,
			HP:       m.HP,
			MaxHP:    m.MaxHP,
			AC:       m.AC,
			Damage:   m.Damage,
			Speed:    m.Speed,
			Behavior: m.Behavior,
			State:    m.State,
			IsMean:   m.IsMean,

			VisibleCells: flattenSet(m.VisibleCells),
			CurrentPath:  m.CurrentPath,
		})
	}

	return fl
}

func rebuildLevel(fl FlatLevel) (*domain.Level, error) {
	if fl.Width <= 0 || fl.Height <= 0 {
		return nil, fmt.Errorf("level has invalid dimensions %dx%d", fl.Width, fl.Height)
	}

	l := &domain.Level{
		Depth:      fl.Depth,
		Width:      fl.Width,
		Height:     fl.Height,
		Tiles:      fl.Tiles,
		Items:      fl.Items,
		Gold:       fl.Gold,
		Doors:      fl.Doors,
		Traps:      fl.Traps,
		StairsUp:   fl.StairsUp,
		StairsDown: fl.StairsDown,
		Explored:   fl.Explored,
	}

	if l.Items == nil {
		l.Items = []domain.Item{}
	}
	if l.Gold == nil {
		l.Gold = []domain.GoldPile{}
	}
	if l.Doors == nil {
		l.Doors = []domain.Door{}
	}
	if l.Traps == nil {
		l.Traps = []domain.Trap{}
	}

	// Отсутствующая матрица Explored — это легальное старое сохранение:
	// считаем, что ничего не исследовано.
	if l.Explored == nil {
		l.Explored = make([][]bool, l.Height)
		for y := range l.Explored {
			l.Explored[y] = make([]bool, l.Width)
		}
	}

	l.Monsters = make([]*domain.Monster, 0, len(fl.Monsters))
	for _, fm := range fl.Monsters {
		m := &domain.Monster{
			ID:       fm.ID,
			Letter:   fm.Letter,
			Name:     fm.Name,
			Position: fm.Position,
			HP:       fm.HP,
			MaxHP:    fm.MaxHP,
			AC:       fm.AC,
			Damage:   fm.Damage,
			Speed:    fm.Speed,
			Behavior: fm.Behavior,
			State:    fm.State,
			IsMean:   fm.IsMean,

			// Коллекции каждого монстра собираются заново, по одной
			// на монстра.
			VisibleCells: rebuildSet(fm.VisibleCells),
			CurrentPath:  fm.CurrentPath,
		}
		if m.CurrentPath == nil {
			m.CurrentPath = []domain.Position{}
		}
		l.Monsters = append(l.Monsters, m)
	}

	return l, nil
}

// --- Множества и таблица имён ---

func flattenSet(set map[string]bool) []string {
	members := make([]string, 0, len(set))
	for k, ok := range set {
		if ok {
			members = append(members, k)
		}
	}
	sort.Strings(members)
	return members
}

func rebuildSet(members []string) map[string]bool {
	set := make(map[string]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return set
}

func flattenIntSet(set map[int]bool) []int {
	members := make([]int, 0, len(set))
	for k, ok := range set {
		if ok {
			members = append(members, k)
		}
	}
	sort.Ints(members)
	return members
}

func rebuildIntSet(members []int) map[int]bool {
	set := make(map[int]bool, len(members))
	for _, m := range members {
		set[m] = true
	}
	return set
}

func flattenItemNames(names map[string]map[string]string) []CategoryNames {
	categories := make([]string, 0, len(names))
	for c := range names {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := make([]CategoryNames, 0, len(categories))
	for _, c := range categories {
		sub := names[c]
		flavors := make([]string, 0, len(sub))
		for f := range sub {
			flavors = append(flavors, f)
		}
		sort.Strings(flavors)

		entry := CategoryNames{Category: c, Names: make([]NameEntry, 0, len(flavors))}
		for _, f := range flavors {
			entry.Names = append(entry.Names, NameEntry{Flavor: f, Real: sub[f]})
		}
		out = append(out, entry)
	}
	return out
}

func rebuildItemNames(entries []CategoryNames) map[string]map[string]string {
	names := make(map[string]map[string]string, len(entries))
	for _, cat := range entries {
		sub := make(map[string]string, len(cat.Names))
		for _, n := range cat.Names {
			sub[n.Flavor] = n.Real
		}
		names[cat.Category] = sub
	}
	return names
}
