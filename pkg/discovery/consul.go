package discovery

import (
	"fmt"
	"strconv"

	"learnsphere/internal/config"

	"github.com/hashicorp/consul/api"
	log "github.com/sirupsen/logrus"
)

// ServiceRegistry registers the HTTP API with a Consul agent. A registry
// built from a config without a Consul address is a no-op.
type ServiceRegistry struct {
	client *api.Client
	config *config.Config
}

func NewServiceRegistry(cfg *config.Config) (*ServiceRegistry, error) {
	if cfg.Consul.ConsulAddress == "" {
		return &ServiceRegistry{config: cfg}, nil
	}
	consulConfig := api.DefaultConfig()
	consulConfig.Address = cfg.Consul.ConsulAddress

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %v", err)
	}
	return &ServiceRegistry{client: client, config: cfg}, nil
}

func (sr *ServiceRegistry) Enabled() bool {
	return sr.client != nil
}

func (sr *ServiceRegistry) serviceID() string {
	return sr.config.Server.ServiceID + "-http"
}

// Registration is the agent payload for this instance, with an HTTP check
// against /health.
func (sr *ServiceRegistry) Registration() (*api.AgentServiceRegistration, error) {
	server := sr.config.Server
	port, err := strconv.Atoi(server.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %v", server.Port, err)
	}
	return &api.AgentServiceRegistration{
		ID:      sr.serviceID(),
		Name:    server.ServiceName,
		Port:    port,
		Address: server.ServiceAddress,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%s/health", server.ServiceAddress, server.Port),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "1m",
		},
		Tags: []string{"courses", "quizzes", "http"},
		Meta: map[string]string{
			"protocol": "http",
		},
	}, nil
}

func (sr *ServiceRegistry) Register() error {
	if !sr.Enabled() {
		log.Info("Consul address not set, skipping service registration")
		return nil
	}
	reg, err := sr.Registration()
	if err != nil {
		return err
	}
	if err := sr.client.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("failed to register HTTP service with Consul: %v", err)
	}
	log.Printf("Registered %s with Consul at %s", reg.ID, sr.config.Consul.ConsulAddress)
	return nil
}

func (sr *ServiceRegistry) Deregister() error {
	if !sr.Enabled() {
		return nil
	}
	if err := sr.client.Agent().ServiceDeregister(sr.serviceID()); err != nil {
		return fmt.Errorf("failed to deregister %s: %v", sr.serviceID(), err)
	}
	log.Printf("Deregistered %s from Consul", sr.serviceID())
	return nil
}
