package network

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/onkernel/autorun/lib/bootconfig"
	"github.com/onkernel/autorun/lib/logger"
	"github.com/vishvananda/netlink"
)

// Configurator applies a static network configuration to the host.
type Configurator interface {
	// Configure binds address/netmask to the interface and brings it up when
	// both are set, and installs the default route when a gateway is set.
	// The two actions are independent; failures of either are joined.
	Configure(ctx context.Context, cfg bootconfig.NetworkConfig) error
}

// linkOps is the subset of netlink used here.
type linkOps interface {
	LinkByName(name string) (netlink.Link, error)
	AddrReplace(link netlink.Link, addr *netlink.Addr) error
	LinkSetUp(link netlink.Link) error
	RouteReplace(route *netlink.Route) error
}

type netlinkOps struct{}

func (netlinkOps) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

func (netlinkOps) AddrReplace(link netlink.Link, addr *netlink.Addr) error {
	return netlink.AddrReplace(link, addr)
}

func (netlinkOps) LinkSetUp(link netlink.Link) error {
	return netlink.LinkSetUp(link)
}

func (netlinkOps) RouteReplace(route *netlink.Route) error {
	return netlink.RouteReplace(route)
}

type configurator struct {
	ops     linkOps
	metrics *Metrics
}

// NewConfigurator creates a Configurator backed by netlink. metrics may be nil.
func NewConfigurator(metrics *Metrics) Configurator {
	return &configurator{ops: netlinkOps{}, metrics: metrics}
}

func (c *configurator) Configure(ctx context.Context, cfg bootconfig.NetworkConfig) error {
	log := logger.FromContext(ctx)

	if cfg.Interface == "" {
		return ErrNoInterface
	}

	link, err := c.ops.LinkByName(cfg.Interface)
	if err != nil {
		return fmt.Errorf("find interface %s: %w", cfg.Interface, err)
	}

	var errs []error

	if cfg.HasAddress() {
		if err := c.configureAddress(ctx, link, cfg); err != nil {
			errs = append(errs, err)
		} else {
			log.InfoContext(ctx, "configured interface address",
				"interface", cfg.Interface,
				"address", cfg.Address,
				"netmask", cfg.Netmask)
		}
	} else if cfg.Address != "" || cfg.Netmask != "" {
		log.WarnContext(ctx, "skipping address: both address and netmask are required",
			"interface", cfg.Interface,
			"address", cfg.Address,
			"netmask", cfg.Netmask)
	}

	if cfg.HasGateway() {
		if err := c.configureGateway(ctx, link, cfg); err != nil {
			errs = append(errs, err)
		} else {
			log.InfoContext(ctx, "configured default route",
				"interface", cfg.Interface,
				"gateway", cfg.Gateway)
		}
	}

	return errors.Join(errs...)
}

func (c *configurator) configureAddress(ctx context.Context, link netlink.Link, cfg bootconfig.NetworkConfig) error {
	ipNet, err := ParseAddress(cfg.Address, cfg.Netmask)
	if err != nil {
		return err
	}

	err = c.ops.AddrReplace(link, &netlink.Addr{IPNet: ipNet})
	c.recordLinkOperation(ctx, "addr_replace", err)
	if err != nil {
		return fmt.Errorf("add address %s to %s: %w", ipNet, cfg.Interface, err)
	}

	err = c.ops.LinkSetUp(link)
	c.recordLinkOperation(ctx, "link_up", err)
	if err != nil {
		return fmt.Errorf("bring up %s: %w", cfg.Interface, err)
	}
	return nil
}

func (c *configurator) configureGateway(ctx context.Context, link netlink.Link, cfg bootconfig.NetworkConfig) error {
	gw := net.ParseIP(cfg.Gateway)
	if gw == nil {
		return fmt.Errorf("%w: gateway %q", ErrInvalidAddress, cfg.Gateway)
	}

	// Nil Dst is the default route
	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Gw:        gw,
	}
	err := c.ops.RouteReplace(route)
	c.recordLinkOperation(ctx, "route_replace", err)
	if err != nil {
		return fmt.Errorf("add default route via %s on %s: %w", cfg.Gateway, cfg.Interface, err)
	}
	return nil
}
