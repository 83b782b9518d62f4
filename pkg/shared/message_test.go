package shared

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    MessageType
		wantErr bool
	}{
		{name: "input", data: `{"type":"input","content":"PRINT 1"}`, want: MessageTypeInput},
		{name: "break", data: `{"type":"break"}`, want: MessageTypeBreak},
		{name: "server type rejected", data: `{"type":"ready"}`, wantErr: true},
		{name: "unknown type", data: `{"type":"keepalive"}`, wantErr: true},
		{name: "not json", data: `PRINT 1`, wantErr: true},
		{name: "too long", data: `{"type":"input","content":"` + strings.Repeat("A", 11) + `"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeClientMessage([]byte(tt.data), 10)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", msg)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if msg.Type != tt.want {
				t.Errorf("type = %q, want %q", msg.Type, tt.want)
			}
		})
	}
}

func TestColorMessageJSON(t *testing.T) {
	data, err := json.Marshal(Color(0, 6))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"type":"color","fg":0,"bg":6}` {
		t.Errorf("json = %s", got)
	}
	data, _ = json.Marshal(Border(2))
	if got := string(data); got != `{"type":"color","border":2}` {
		t.Errorf("json = %s", got)
	}
	data, _ = json.Marshal(Text("HI\n"))
	if got := string(data); got != `{"type":"text","content":"HI\n"}` {
		t.Errorf("json = %s", got)
	}
}
