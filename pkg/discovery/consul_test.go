package discovery

import (
	"testing"

	"membership-service/internal/config"

	"github.com/stretchr/testify/require"
)

func TestServiceRegistry_Registration(t *testing.T) {
	registry, err := NewServiceRegistry(&config.Config{
		Server: config.ServerConfig{
			Port:           "1616",
			ServiceName:    "membership-service",
			ServiceAddress: "membership-service",
			ServiceID:      "membership-service-1616",
		},
		Consul: config.ConsulConfig{Address: "127.0.0.1:8500"},
	})
	require.NoError(t, err)

	reg, err := registry.registration()
	require.NoError(t, err)
	require.Equal(t, "membership-service-1616-http", reg.ID)
	require.Equal(t, "membership-service", reg.Name)
	require.Equal(t, 1616, reg.Port)
	require.Equal(t, "http://membership-service:1616/health", reg.Check.HTTP)
}

func TestServiceRegistry_InvalidPort(t *testing.T) {
	registry, err := NewServiceRegistry(&config.Config{
		Server: config.ServerConfig{Port: "http"},
		Consul: config.ConsulConfig{Address: "127.0.0.1:8500"},
	})
	require.NoError(t, err)

	_, err = registry.registration()
	require.Error(t, err)
}
