package discovery

import (
	"fmt"
	"log"
	"membership-service/internal/config"
	"strconv"

	"github.com/hashicorp/consul/api"
)

type ServiceRegistry struct {
	client *api.Client
	server config.ServerConfig
}

func NewServiceRegistry(cfg *config.Config) (*ServiceRegistry, error) {
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.Consul.Address

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %v", err)
	}

	return &ServiceRegistry{
		client: client,
		server: cfg.Server,
	}, nil
}

func (sr *ServiceRegistry) registration() (*api.AgentServiceRegistration, error) {
	httpPort, err := strconv.Atoi(sr.server.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid service port %q: %v", sr.server.Port, err)
	}

	return &api.AgentServiceRegistration{
		ID:      sr.server.ServiceID + "-http",
		Name:    sr.server.ServiceName,
		Port:    httpPort,
		Address: sr.server.ServiceAddress,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s:%s/health", sr.server.ServiceAddress, sr.server.Port),
			Interval: "10s",
			Timeout:  "5s",
		},
		Tags: []string{"membership", "http"},
		Meta: map[string]string{
			"protocol": "http",
		},
	}, nil
}

func (sr *ServiceRegistry) Register() error {
	reg, err := sr.registration()
	if err != nil {
		return err
	}
	if err := sr.client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("failed to register HTTP service with Consul: %v", err)
	}

	log.Printf("Registered %s with Consul", reg.ID)
	return nil
}

func (sr *ServiceRegistry) Deregister() error {
	if err := sr.client.Agent().ServiceDeregister(sr.server.ServiceID + "-http"); err != nil {
		return fmt.Errorf("error deregistering HTTP service: %v", err)
	}
	return nil
}
