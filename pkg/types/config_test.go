package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "missing backend", config: Config{DataDir: "/var/lib/nasacl"}, wantErr: ErrBackendEmpty},
		{name: "unknown backend", config: Config{Backend: "redis", DataDir: "/var/lib/nasacl"}, wantErr: ErrBackendUnknown},
		{name: "sqlite", config: Config{Backend: BackendSQLite, DataDir: "/var/lib/nasacl"}},
		{name: "sqlite without data dir", config: Config{Backend: BackendSQLite}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
