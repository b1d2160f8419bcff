package saves

import "github.com/dirkkok101/roguelike-sub001/internal/domain"

// CurrentSaveVersion — единственная поддерживаемая версия схемы
// сохранения. Поднимается вручную при каждом несовместимом изменении
// формата.
//
// Сравнение ВСЕГДА строгое: и более старые, и более новые неизвестные
// версии отклоняются. Диапазоны и ">=" здесь запрещены — "новее" не
// значит "читаемо".
const CurrentSaveVersion = 7

// CheckVersion сообщает, совместима ли запись с текущей схемой.
func CheckVersion(rec *domain.SaveRecord) bool {
	return rec.Version == CurrentSaveVersion
}
