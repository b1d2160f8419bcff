// schemagen печатает JSON Schema протокола сохранений.
//
// Схему забирает клиентская сборка, чтобы типы на стороне браузера
// не расходились с серверными.
//
// Использование:
//
//	go run ./tools/schemagen record   # схема записи в хранилище
//	go run ./tools/schemagen command  # схема команды клиента
//	go run ./tools/schemagen response # схема ответа сервера
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/dirkkok101/roguelike-sub001/internal/domain"
	"github.com/dirkkok101/roguelike-sub001/pkg/api"
)

func main() {
	target := "record"
	if len(os.Args) > 1 {
		target = os.Args[1]
	}

	var schema *jsonschema.Schema
	switch target {
	case "record":
		schema = jsonschema.Reflect(&domain.SaveRecord{})
	case "command":
		schema = jsonschema.Reflect(&api.ClientCommand{})
	case "response":
		schema = jsonschema.Reflect(&api.ServerResponse{})
	default:
		fmt.Fprintf(os.Stderr, "unknown target %q (want record, command or response)\n", target)
		os.Exit(2)
	}

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "marshal schema:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
