package api

import (
	"encoding/json"
	"testing"
)

func TestSavePayloadValidate(t *testing.T) {
	if err := (SavePayload{}).Validate(); err == nil {
		t.Error("empty state accepted")
	}
	if err := (SavePayload{State: json.RawMessage(`{"gameId":"g1"}`)}).Validate(); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}
}

func TestGamePayloadValidate(t *testing.T) {
	if err := (GamePayload{}).Validate(); err == nil {
		t.Error("empty gameId accepted")
	}
	if err := (GamePayload{GameID: "g1"}).Validate(); err != nil {
		t.Errorf("valid payload rejected: %v", err)
	}
}

func TestRecordPayloadValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload RecordPayload
		wantErr bool
	}{
		{"player command", RecordPayload{CommandType: "move", ActorType: "player"}, false},
		{"world command", RecordPayload{CommandType: "spawn", ActorType: "world", TurnNumber: 3}, false},
		{"missing commandType", RecordPayload{ActorType: "player"}, true},
		{"missing actorType", RecordPayload{CommandType: "move"}, true},
		{"bad actorType", RecordPayload{CommandType: "move", ActorType: "ghost"}, true},
		{"negative turn", RecordPayload{CommandType: "move", ActorType: "player", TurnNumber: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
