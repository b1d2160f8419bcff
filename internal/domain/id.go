package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// GameID — идентификатор одного забега (run).
//
// GameID является value-type и предназначен для дешёвого копирования,
// сериализации и сравнения. Под капотом это UUID v4 в строковом виде:
// идентификатор генерируется на сервере и возвращается клиенту при
// первом сохранении.
type GameID string

// NilGameID — пустой идентификатор забега.
//
// Используется как аналог nil для случаев, когда забег отсутствует
// (например, указатель продолжения никуда не ссылается).
const NilGameID GameID = ""

// NewGameID генерирует новый уникальный идентификатор забега.
func NewGameID() GameID {
	return GameID(uuid.NewString())
}

// IsNil проверяет, является ли идентификатор пустым.
func (id GameID) IsNil() bool {
	return id == NilGameID
}

// Validate проверяет, что идентификатор имеет допустимый формат.
//
// Принимаются UUID и служебные ключи хранилища (см. ContinueKey).
// Любая другая строка отклоняется: ключ попадает в имя файла или в
// SQL-запрос, поэтому формат ограничен заранее.
func (id GameID) Validate() error {
	if id.IsNil() {
		return fmt.Errorf("game id is empty")
	}
	if id == ContinueKey {
		return nil
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("game id %q is not a valid uuid: %w", string(id), err)
	}
	return nil
}

func (id GameID) String() string {
	if id.IsNil() {
		return "<nil>"
	}
	return string(id)
}
