package config

import (
	"fmt"
	"net"
	"strings"
)

var (
	// DefaultMetricsConfig is the default value of Metrics
	DefaultMetricsConfig = Metrics{
		ListenAddress: ":8082",
		Path:          "/metrics",
	}
)

// Metrics is the configuration of the prometheus endpoint served by pushctl serve.
type Metrics struct {
	// ListenAddress is the bind address of the endpoint.
	// Format: [tcp|unix://][<host>]:<port>
	// e.g :
	// * unix:///var/run/pushstore.sock
	// * tcp://127.0.0.1:8082
	// * :8082 (equal to tcp://:8082)
	ListenAddress string `yaml:"listen_address"`
	// Path is the http path of the metrics handler.
	Path string `yaml:"path"`
}

// Network splits ListenAddress into the network and the address to listen on.
func (m Metrics) Network() (network, address string) {
	epParts := strings.SplitN(m.ListenAddress, "://", 2)
	if len(epParts) == 1 {
		return "tcp", epParts[0]
	}
	return epParts[0], epParts[1]
}

func (m Metrics) Validate() error {
	if m.ListenAddress == "" {
		return fmt.Errorf("metrics listen_address cannot be empty")
	}
	network, address := m.Network()
	switch network {
	case "tcp":
		_, _, err := net.SplitHostPort(address)
		if err != nil {
			return fmt.Errorf("invalid metrics listen_address: %s", err.Error())
		}
	case "unix":
		if address == "" {
			return fmt.Errorf("invalid metrics listen_address: empty socket path")
		}
	default:
		return fmt.Errorf("invalid metrics listen_address schema: %s", network)
	}
	if !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("invalid metrics path: %s", m.Path)
	}
	return nil
}
