// Package version — идентификация сборки сервиса сохранений.
//
// BuildID — это число суток между днём первого коммита проекта и днём
// сборки: монотонный человекочитаемый номер без отдельного счётчика
// релизов.
package version

import (
	"fmt"
	"time"
)

// Заполняются линкером при сборке (-ldflags -X ...).
var (
	BuildDate   string // YYYY-MM-DD (UTC)
	BuildCommit string
	BuildBranch string
	BuildCI     string
)

var buildEpoch = time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC)

// Info — метаданные сборки в структурном виде. Отдаётся эндпоинтом
// /version как есть.
type Info struct {
	BuildID    int    `json:"buildId"`
	BuildDate  string `json:"buildDate"`
	Commit     string `json:"commit"`
	Branch     string `json:"branch"`
	CI         string `json:"ci"`
	Calculated bool   `json:"calculated"`
	Error      string `json:"error,omitempty"`
}

// CalculateBuildID возвращает номер сборки по BuildDate.
func CalculateBuildID() (int, error) {
	if BuildDate == "" {
		return 0, fmt.Errorf("BuildDate is empty")
	}

	t, err := time.ParseInLocation("2006-01-02", BuildDate, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("invalid BuildDate %q: %w", BuildDate, err)
	}
	if t.Before(buildEpoch) {
		return 0, fmt.Errorf("BuildDate %s is before epoch", BuildDate)
	}

	// Часы вместо суток напрямую: обе даты в UTC, DST не мешает.
	return int(t.Sub(buildEpoch).Hours() / 24), nil
}

// Get собирает метаданные сборки. Безопасен в любой момент: при пустом
// или кривом BuildDate возвращает Info с заполненным Error.
func Get() Info {
	info := Info{
		BuildDate: BuildDate,
		Commit:    BuildCommit,
		Branch:    BuildBranch,
		CI:        BuildCI,
	}

	id, err := CalculateBuildID()
	if err != nil {
		info.Error = err.Error()
		return info
	}

	info.BuildID = id
	info.Calculated = true
	return info
}

// String — строка для стартового лога.
func String() string {
	info := Get()
	if !info.Calculated {
		return fmt.Sprintf("Build unknown (%s)", info.Error)
	}
	return fmt.Sprintf(
		"Build %d (%s) commit[%s] branch[%s] ci[%s]",
		info.BuildID,
		info.BuildDate,
		coalesce(info.Commit, "unknown"),
		coalesce(info.Branch, "unknown"),
		coalesce(info.CI, "local"),
	)
}

func coalesce(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
