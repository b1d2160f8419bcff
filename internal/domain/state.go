package domain

import "fmt"

// Position — координата клетки на уровне.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Key возвращает строковый ключ позиции вида "x,y".
//
// Такие ключи используются во всех коллекциях видимости
// (GameState.VisibleCells, Monster.VisibleCells): проверка
// "видна ли клетка" — это один lookup по ключу.
func (p Position) Key() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// ParsePositionKey разбирает ключ "x,y" обратно в Position.
func ParsePositionKey(key string) (Position, error) {
	var p Position
	if _, err := fmt.Sscanf(key, "%d,%d", &p.X, &p.Y); err != nil {
		return Position{}, fmt.Errorf("bad position key %q: %w", key, err)
	}
	return p, nil
}

// GameState — корневой агрегат одного забега.
//
// Живёт в памяти на время сессии, мутируется игровыми системами каждый ход
// и периодически сериализуется сервисом сохранений. Все вложенные уровни
// принадлежат ЭТОМУ состоянию и не разделяются между забегами.
//
// Инвариант: пока забег активен (IsGameOver == false),
// Levels[CurrentLevel] обязан существовать.
type GameState struct {
	GameID        GameID
	CharacterName string
	// Seed — зерно генерации. Хранится строкой: клиент оперирует
	// seed-фразами, а не числами.
	Seed string

	Player       *Player
	CurrentLevel int

	// Levels — уровни подземелья по номеру глубины.
	// Порядок обхода не важен, важна только уникальность ключей.
	Levels map[int]*Level

	// Коллекции-множества. Ключи — Position.Key() либо ID сущностей.
	VisibleCells       map[string]bool // клетки, освещённые в данный момент
	IdentifiedItems    map[string]bool // опознанные виды предметов
	DetectedMonsters   map[string]bool // монстры, найденные магией
	DetectedMagicItems map[string]bool // магические предметы, найденные магией

	// AmuletLevelsVisited — глубины, посещённые с амулетом в инвентаре.
	// Нужно для подсчёта финального счёта при победе.
	AmuletLevelsVisited map[int]bool

	// ItemNameMap — таблица опознания: категория предмета ->
	// (флейвор-имя -> истинное имя). Например
	// "potion" -> {"blue potion": "potion of healing"}.
	ItemNameMap map[string]map[string]string

	Messages []Message

	TurnCount      int
	MonstersKilled int
	GoldCollected  int
	ItemsFound     int
	ItemsUsed      int
	LevelsExplored int
	DeepestLevel   int

	IsGameOver bool
	HasWon     bool
}

// Message — одна строка игрового лога.
type Message struct {
	Text string `json:"text"`
	Type string `json:"type"` // info, combat, warning, critical
	Turn int    `json:"turn"`
}

// Player — состояние персонажа игрока.
type Player struct {
	Position    Position
	HP          int
	MaxHP       int
	Strength    int
	MaxStrength int
	AC          int
	Level       int
	XP          int
	Gold        int
	Hunger      int

	// Energy — накопленная энергия хода (система скорости).
	Energy int
	// IsRunning — зажат ли "бег" (shift-движение).
	IsRunning bool
	// RunState — параметры текущего бега. nil, когда игрок не бежит;
	// это осмысленное значение, а не отсутствие поля.
	RunState *RunState

	StatusEffects []StatusEffect
	Inventory     []Item
	// Equipment — слот экипировки -> ID предмета из Inventory.
	Equipment map[string]string
}

// RunState — параметры непрерывного бега.
type RunState struct {
	Direction  string `json:"direction"` // north, south, east, west
	StepsTaken int    `json:"stepsTaken"`
}

// StatusEffect — активный статус-эффект на игроке (яд, слепота, спешка...).
type StatusEffect struct {
	Type      string `json:"type"`
	TurnsLeft int    `json:"turnsLeft"`
	Intensity int    `json:"intensity,omitempty"`
}

// Item — предмет: на полу уровня либо в инвентаре.
type Item struct {
	ID       string    `json:"id"`
	Category string    `json:"category"` // weapon, armor, potion, scroll, ring, wand, food, amulet
	Name     string    `json:"name"`
	// Position заполняется только для предметов, лежащих на уровне.
	Position    *Position `json:"position,omitempty"`
	Enchantment int       `json:"enchantment,omitempty"`
	Cursed      bool      `json:"cursed,omitempty"`
	Identified  bool      `json:"identified,omitempty"`
}
