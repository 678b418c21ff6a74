package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	disabled := false
	enabled := true

	tests := []struct {
		name       string
		configured map[string]*Server
		connected  map[string]struct{}
		want       map[string]Status
	}{
		{
			name:       "connected",
			configured: map[string]*Server{"local": {}},
			connected:  map[string]struct{}{"local": {}},
			want:       map[string]Status{"local": StatusConnected},
		},
		{
			name:       "disabled",
			configured: map[string]*Server{"duckduckgo": {Enabled: &disabled}},
			connected:  map[string]struct{}{},
			want:       map[string]Status{"duckduckgo": StatusDisabled},
		},
		{
			name:       "failed",
			configured: map[string]*Server{"sequential": {}},
			connected:  map[string]struct{}{},
			want:       map[string]Status{"sequential": StatusFailed},
		},
		{
			name:       "disabled wins over connected",
			configured: map[string]*Server{"planner": {Enabled: &disabled}},
			connected:  map[string]struct{}{"planner": {}},
			want:       map[string]Status{"planner": StatusDisabled},
		},
		{
			name: "mixed with nil entry and explicit enable",
			configured: map[string]*Server{
				"websearch":  nil,
				"sequential": {Enabled: &enabled},
				"planner":    {Enabled: &disabled},
			},
			connected: map[string]struct{}{"websearch": {}, "unconfigured": {}},
			want: map[string]Status{
				"websearch":  StatusConnected,
				"sequential": StatusFailed,
				"planner":    StatusDisabled,
			},
		},
		{
			name:       "nothing configured",
			configured: nil,
			connected:  map[string]struct{}{"local": {}},
			want:       map[string]Status{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.configured, tt.connected))
		})
	}
}
