package analysis

import (
	"testing"

	"github.com/OpenTraceLab/OpenTracePLD/pkg/pld"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"one round", &Config{MaxIterations: 1}, false},
		{"zero rounds", &Config{MaxIterations: 0}, true},
		{"negative rounds", &Config{MaxIterations: -3}, true},
		{"ignore all", DefaultConfig().WithIgnore(^pld.Mask(0)), true},
		{"explicit ignore", DefaultConfig().WithIgnore(pld.ReservedMask), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}

	cfg := &Config{}
	if _, err := NewSession(nil, cfg); err == nil {
		t.Error("NewSession accepted MaxIterations 0")
	}
	if cfg.MaxIterations != 0 {
		t.Errorf("Validate changed MaxIterations to %d", cfg.MaxIterations)
	}
}
