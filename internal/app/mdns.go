package app

import (
	"fmt"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"
)

const (
	mdnsInstance = "WardTrack Server"
	mdnsService  = "_wardtrack._tcp"
	mdnsDomain   = "local."
)

// startMDNS advertises the gateway MQTT endpoint so gateways on the ward
// network can discover the server without static configuration.
func (a *App) startMDNS() error {
	port, err := bindPort(a.cfg.MQTTBindAddress)
	if err != nil {
		return fmt.Errorf("resolve mqtt port: %w", err)
	}

	txt := []string{
		fmt.Sprintf("http_port=%d", a.cfg.HTTPPort),
		"proto=mqtt",
	}

	server, err := zeroconf.Register(mdnsInstance, mdnsService, mdnsDomain, port, txt, nil)
	if err != nil {
		return fmt.Errorf("register mdns: %w", err)
	}
	a.mdns = server

	a.logger.Info("mDNS advertisement started", "service", mdnsService, "port", port)
	return nil
}

func (a *App) stopMDNS() {
	if a.mdns == nil {
		return
	}
	a.mdns.Shutdown()
	a.mdns = nil
}

func bindPort(bind string) (int, error) {
	_, portStr, err := net.SplitHostPort(bind)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", portStr)
	}
	return port, nil
}
