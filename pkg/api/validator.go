package api

import "errors"

// Validator — интерфейс, который реализуют DTO с проверяемой нагрузкой.
type Validator interface {
	Validate() error
}

func (p SavePayload) Validate() error {
	if len(p.State) == 0 {
		return errors.New("state is required")
	}
	return nil
}

func (p GamePayload) Validate() error {
	if p.GameID == "" {
		return errors.New("gameId is required")
	}
	return nil
}

func (p RecordPayload) Validate() error {
	if p.CommandType == "" {
		return errors.New("commandType is required")
	}
	if p.TurnNumber < 0 {
		return errors.New("turnNumber cannot be negative")
	}
	switch p.ActorType {
	case "player", "world":
		return nil
	case "":
		return errors.New("actorType is required")
	default:
		return errors.New("actorType must be player or world")
	}
}
