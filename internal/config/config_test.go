package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/orders")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "order-actions", cfg.KafkaActionsTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 10, cfg.DispatchBatchSize)
	assert.Equal(t, time.Second, cfg.DispatchInterval())
}

func TestLoad_KafkaBrokersAreSplit(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/orders")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing database url",
			env:  map[string]string{"JWT_SECRET": "secret"},
		},
		{
			name: "zero batch size",
			env: map[string]string{
				"DATABASE_URL":        "postgres://localhost/orders",
				"JWT_SECRET":          "secret",
				"DISPATCH_BATCH_SIZE": "0",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("JWT_SECRET", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
