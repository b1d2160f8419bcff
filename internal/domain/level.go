package domain

// Tile — одна клетка карты уровня.
type Tile struct {
	Type        string `json:"type"` // floor, wall, corridor, door
	Walkable    bool   `json:"walkable"`
	Transparent bool   `json:"transparent"`
}

// Level — один уровень подземелья.
//
// Уровень принадлежит ровно одному GameState и не переиспользуется
// между забегами. Карта и матрица Explored всегда имеют размер
// Height x Width.
type Level struct {
	Depth  int
	Width  int
	Height int

	Tiles [][]Tile

	Monsters []*Monster
	Items    []Item
	Gold     []GoldPile
	Doors    []Door
	Traps    []Trap

	StairsUp   *Position
	StairsDown *Position

	// Explored — "туман войны": какие клетки игрок уже видел.
	Explored [][]bool
}

// MonsterAt возвращает живого монстра на позиции или nil.
func (l *Level) MonsterAt(pos Position) *Monster {
	for _, m := range l.Monsters {
		if m.Position == pos && m.HP > 0 {
			return m
		}
	}
	return nil
}

// InBounds проверяет, что позиция лежит внутри карты уровня.
func (l *Level) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.Y >= 0 && pos.X < l.Width && pos.Y < l.Height
}

// Monster — монстр на уровне.
//
// Помимо скалярных характеристик монстр несёт две собственные коллекции:
// VisibleCells (что видит ОН, независимо от игрока) и CurrentPath
// (очередь точек, по которым он идёт). Обе восстанавливаются из
// сохранения отдельно для каждого монстра.
type Monster struct {
	ID       string
	Letter   string // A-Z, классический символ на карте
	Name     string
	Position Position

	HP    int
	MaxHP int
	AC    int
	// Damage — кость урона в нотации "XdY".
	Damage string
	Speed  int

	// AI-профиль.
	Behavior string // smart, simple, erratic, greedy, stationary
	State    string // sleeping, wandering, hunting, fleeing
	IsMean   bool   // атакует без провокации

	// VisibleCells — клетки, которые монстр видит сейчас (ключи "x,y").
	VisibleCells map[string]bool
	// CurrentPath — невыполненный маршрут поиска пути. Может быть пустым.
	CurrentPath []Position
}

// GoldPile — куча золота на полу.
type GoldPile struct {
	Position Position `json:"position"`
	Amount   int      `json:"amount"`
}

// Door — дверь между комнатой и коридором.
type Door struct {
	Position    Position `json:"position"`
	State       string   `json:"state"` // open, closed, locked, broken, secret
	Orientation string   `json:"orientation,omitempty"`
}

// Trap — ловушка. Discovered=true после обнаружения игроком.
type Trap struct {
	Position   Position `json:"position"`
	Type       string   `json:"type"` // dart, pit, teleport, sleep
	Discovered bool     `json:"discovered"`
}
