// Package discovery advertises bridges on the local network with mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/golang/glog"
)

const (
	// ServiceType of the bridge monitor.
	ServiceType = "_canlink._tcp"
	// Domain to register in.
	Domain = "local"
)

// TXT record keys.
const (
	TxtID       = "id"
	TxtFirmware = "fw"
	TxtMQTT     = "mqtt"
)

// Service describes an advertised bridge.
type Service struct {
	Instance  string
	ID        string
	Firmware  string
	MQTT      string
	Host      string
	Port      int
	Addresses []string
}

// TXT encodes the TXT records of the service.
func (s *Service) TXT() []string {
	txt := []string{TxtID + "=" + s.ID}
	if s.Firmware != "" {
		txt = append(txt, TxtFirmware+"="+s.Firmware)
	}
	if s.MQTT != "" {
		txt = append(txt, TxtMQTT+"="+s.MQTT)
	}
	return txt
}

// ParseTXT fills fields from TXT records. Unknown keys are ignored.
func (s *Service) ParseTXT(txt []string) {
	for _, rec := range txt {
		key, val, ok := strings.Cut(rec, "=")
		if !ok {
			continue
		}
		switch key {
		case TxtID:
			s.ID = val
		case TxtFirmware:
			s.Firmware = val
		case TxtMQTT:
			s.MQTT = val
		}
	}
}

func serviceFromEntry(entry *zeroconf.ServiceEntry) *Service {
	s := &Service{Instance: entry.Instance, Host: entry.HostName, Port: entry.Port}
	s.ParseTXT(entry.Text)
	if s.ID == "" {
		return nil
	}
	for _, ip := range entry.AddrIPv4 {
		s.Addresses = append(s.Addresses, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		s.Addresses = append(s.Addresses, ip.String())
	}
	return s
}

// Advertiser registers the service while running.
type Advertiser struct {
	Service Service
	// Iface limits advertisement to one interface, all if empty.
	Iface string
}

// Name implements framework.Named.
func (a *Advertiser) Name() string {
	return "mdns"
}

// Run implements Runnable.
func (a *Advertiser) Run(ctx context.Context) error {
	var ifaces []net.Interface
	if a.Iface != "" {
		iface, err := net.InterfaceByName(a.Iface)
		if err != nil {
			return fmt.Errorf("if %q: %w", a.Iface, err)
		}
		ifaces = append(ifaces, *iface)
	}
	instance := a.Service.Instance
	if instance == "" {
		instance = "canlink-" + a.Service.ID
	}
	server, err := zeroconf.Register(instance, ServiceType, Domain, a.Service.Port, a.Service.TXT(), ifaces)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", ServiceType, err)
	}
	glog.Infof("advertising %s on port %d", instance, a.Service.Port)
	<-ctx.Done()
	server.Shutdown()
	return ctx.Err()
}

// Browse collects advertised bridges for the duration.
func Browse(ctx context.Context, duration time.Duration) ([]*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	errCh := make(chan error, 1)
	go func() {
		errCh <- zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	found := make(map[string]*Service)
	var res []*Service
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return res, nil
			}
			s := serviceFromEntry(entry)
			if s == nil {
				continue
			}
			if existing, ok := found[s.Instance]; ok {
				existing.Addresses = append(existing.Addresses, s.Addresses...)
				continue
			}
			found[s.Instance] = s
			res = append(res, s)
		case <-removed:
		case err := <-errCh:
			if err != nil {
				return res, err
			}
			errCh = nil
		case <-ctx.Done():
			return res, nil
		}
	}
}
