package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 3, cfg.MaxTries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.True(t, cfg.IsEnabled())
}

func TestNoRetryConfig(t *testing.T) {
	cfg := NoRetryConfig()

	assert.Equal(t, 1, cfg.MaxTries)
	assert.Zero(t, cfg.RetryDelay)
	assert.False(t, cfg.IsEnabled())
}

func TestRetryConfig_Normalized(t *testing.T) {
	tests := []struct {
		name string
		cfg  RetryConfig
		want RetryConfig
	}{
		{
			name: "given valid config, then keeps it",
			cfg:  RetryConfig{MaxTries: 5, RetryDelay: 2 * time.Second},
			want: RetryConfig{MaxTries: 5, RetryDelay: 2 * time.Second},
		},
		{
			name: "given zero value, then makes a single attempt without delay",
			cfg:  RetryConfig{},
			want: RetryConfig{MaxTries: 1},
		},
		{
			name: "given negative values, then clamps them",
			cfg:  RetryConfig{MaxTries: -2, RetryDelay: -time.Second},
			want: RetryConfig{MaxTries: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.normalized())
		})
	}
}

func TestRetryConfig_RetryOptions(t *testing.T) {
	opts := RetryConfig{MaxTries: 3, RetryDelay: time.Second}.retryOptions(func(error, time.Duration) {})
	assert.Len(t, opts, 4)
}
