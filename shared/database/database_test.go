package database

import "testing"

func TestPending(t *testing.T) {
	all := []Migration{
		{Version: 3, Name: "c"},
		{Version: 1, Name: "a"},
		{Version: 2, Name: "b"},
	}
	got := pending(all, map[int]bool{1: true})
	if len(got) != 2 || got[0].Version != 2 || got[1].Version != 3 {
		t.Errorf("pending = %+v, want versions [2 3]", got)
	}
	if got := pending(all, map[int]bool{1: true, 2: true, 3: true}); len(got) != 0 {
		t.Errorf("expected nothing pending, got %+v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      []Migration
		wantErr bool
	}{
		{"ok", []Migration{{Version: 1}, {Version: 2}}, false},
		{"zero version", []Migration{{Version: 0}}, true},
		{"duplicate", []Migration{{Version: 1}, {Version: 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.in); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
