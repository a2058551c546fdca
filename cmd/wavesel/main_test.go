package main

import (
	"testing"

	"github.com/gogpu/wavesel"
)

func TestPick(t *testing.T) {
	tests := []struct {
		names   []string
		want    []string
		wantErr bool
	}{
		{nil, []string{"divergent_if", "loop", "discard", "reduce", "texture"}, false},
		{[]string{"loop"}, []string{"loop"}, false},
		{[]string{" reduce ", "texture"}, []string{"reduce", "texture"}, false},
		{[]string{"loop", "nope"}, nil, true},
	}
	for _, tt := range tests {
		got, err := pick(tt.names)
		if tt.wantErr {
			if err == nil {
				t.Errorf("pick(%q) accepted an unknown shader", tt.names)
			}
			continue
		}
		if err != nil {
			t.Fatalf("pick(%q) failed: %v", tt.names, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("pick(%q) returned %d samples, want %d", tt.names, len(got), len(tt.want))
		}
		for i, s := range got {
			if s.name != tt.want[i] {
				t.Errorf("pick(%q)[%d] = %s, want %s", tt.names, i, s.name, tt.want[i])
			}
		}
	}
}

func TestSamplesValidate(t *testing.T) {
	for _, s := range samples {
		t.Run(s.name, func(t *testing.T) {
			fn := s.build()
			if fn.Name != s.name {
				t.Errorf("sample %s builds function %q", s.name, fn.Name)
			}
			if err := wavesel.Validate(fn); err != nil {
				t.Errorf("Validate failed: %v", err)
			}
		})
	}
}

func TestChips(t *testing.T) {
	for name, class := range chips {
		if class.String() != name {
			t.Errorf("chip %q maps to %v", name, class)
		}
	}
}
