// Package codec переводит граф GameState в плоское представление,
// пригодное для JSON и текстового компрессора, и обратно.
//
// Проблема, которую решает пакет: граф состояния полон map-коллекций
// и множеств, в том числе вложенных (у каждого монстра свои VisibleCells
// и CurrentPath). Наивная сериализация теряет числовые ключи и форму
// коллекций, поэтому каждая keyed-коллекция разворачивается в
// упорядоченный список пар ключ/значение, а каждое множество — в список
// его элементов. Порядок пар и элементов НЕ несёт смысла: восстановление
// обязано давать одинаковый результат при любой перестановке.
package codec

import (
	"encoding/json"

	"github.com/dirkkok101/roguelike-sub001/internal/domain"
)

// FlatState — плоское представление GameState.
//
// Это промежуточная форма: именно к ней применяются миграции старых
// сохранений, поэтому поля, появившиеся в поздних ревизиях схемы,
// объявлены указателями (или RawMessage) — отсутствие поля в JSON
// отличимо от присутствующего "ложного" значения.
type FlatState struct {
	GameID        string  `json:"gameId"`
	CharacterName *string `json:"characterName,omitempty"`
	Seed          string  `json:"seed"`

	Player       *FlatPlayer  `json:"player,omitempty"`
	CurrentLevel int          `json:"currentLevel"`
	Levels       []LevelEntry `json:"levels,omitempty"`

	VisibleCells       []string `json:"visibleCells,omitempty"`
	IdentifiedItems    []string `json:"identifiedItems,omitempty"`
	DetectedMonsters   []string `json:"detectedMonsters,omitempty"`
	DetectedMagicItems []string `json:"detectedMagicItems,omitempty"`
	// AmuletLevelsVisited — ключи-глубины. Числа, не строки: поиск по
	// глубине числовой.
	AmuletLevelsVisited []int `json:"amuletLevelsVisited,omitempty"`

	ItemNameMap []CategoryNames  `json:"itemNameMap,omitempty"`
	Messages    []domain.Message `json:"messages,omitempty"`

	TurnCount      int `json:"turnCount"`
	MonstersKilled int `json:"monstersKilled"`
	GoldCollected  int `json:"goldCollected"`
	ItemsFound     int `json:"itemsFound"`
	ItemsUsed      int `json:"itemsUsed"`

	// Поздние ревизии схемы. Миграция заполняет их по умолчанию,
	// только если поле отсутствует целиком.
	LevelsExplored *int `json:"levelsExplored,omitempty"`
	DeepestLevel   *int `json:"deepestLevel,omitempty"`

	IsGameOver bool `json:"isGameOver"`
	HasWon     bool `json:"hasWon"`
}

// LevelEntry — пара (глубина, уровень) из keyed-коллекции Levels.
type LevelEntry struct {
	Depth int       `json:"depth"`
	Level FlatLevel `json:"level"`
}

// FlatLevel — уровень с развёрнутыми коллекциями монстров.
type FlatLevel struct {
	Depth  int `json:"depth"`
	Width  int `json:"width"`
	Height int `json:"height"`

	Tiles [][]domain.Tile `json:"tiles"`

	Monsters []FlatMonster     `json:"monsters,omitempty"`
	Items    []domain.Item     `json:"items,omitempty"`
	Gold     []domain.GoldPile `json:"gold,omitempty"`
	Doors    []domain.Door     `json:"doors,omitempty"`
	Traps    []domain.Trap     `json:"traps,omitempty"`

	StairsUp   *domain.Position `json:"stairsUp,omitempty"`
	StairsDown *domain.Position `json:"stairsDown,omitempty"`

	Explored [][]bool `json:"explored,omitempty"`
}

// FlatMonster — монстр с развёрнутым множеством видимости и маршрутом.
//
// Это главный вложенный случай: у КАЖДОГО монстра своё множество
// VisibleCells, и оно восстанавливается независимо от остальных.
type FlatMonster struct {
	ID       string          `json:"id"`
	Letter   string          `json:"letter"`
	Name     string          `json:"name"`
	Position domain.Position `json:"position"`

	HP     int    `json:"hp"`
	MaxHP  int    `json:"maxHp"`
	AC     int    `json:"ac"`
	Damage string `json:"damage"`
	Speed  int    `json:"speed"`

	Behavior string `json:"behavior"`
	State    string `json:"state"`
	IsMean   bool   `json:"isMean"`

	VisibleCells []string          `json:"visibleCells,omitempty"`
	CurrentPath  []domain.Position `json:"currentPath,omitempty"`
}

// FlatPlayer — игрок в плоской форме.
type FlatPlayer struct {
	Position    domain.Position `json:"position"`
	HP          int             `json:"hp"`
	MaxHP       int             `json:"maxHp"`
	Strength    int             `json:"strength"`
	MaxStrength int             `json:"maxStrength"`
	AC          int             `json:"ac"`
	Level       int             `json:"level"`
	XP          int             `json:"xp"`
	Gold        int             `json:"gold"`
	Hunger      int             `json:"hunger"`

	// Поля поздних ревизий (см. saves.Migrate).
	Energy    *int  `json:"energy,omitempty"`
	IsRunning *bool `json:"isRunning,omitempty"`
	// RunState хранится сырым JSON: явный null ("игрок не бежит") —
	// осмысленное значение, которое миграция обязана отличать от
	// отсутствующего поля.
	RunState      json.RawMessage       `json:"runState,omitempty"`
	StatusEffects []domain.StatusEffect `json:"statusEffects,omitempty"`

	Inventory []domain.Item    `json:"inventory,omitempty"`
	Equipment []EquipmentEntry `json:"equipment,omitempty"`
}

// EquipmentEntry — пара (слот, ID предмета) из keyed-коллекции Equipment.
type EquipmentEntry struct {
	Slot   string `json:"slot"`
	ItemID string `json:"itemId"`
}

// CategoryNames — одна категория таблицы опознания: вложенная
// keyed-коллекция (флейвор -> истинное имя), развёрнутая в пары.
type CategoryNames struct {
	Category string      `json:"category"`
	Names    []NameEntry `json:"names"`
}

// NameEntry — пара (флейвор-имя, истинное имя).
type NameEntry struct {
	Flavor string `json:"flavor"`
	Real   string `json:"real"`
}
