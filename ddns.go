package ddns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

// ErrNoAddress is returned by Run when neither an IPv4 nor an IPv6 address
// could be determined. With no addresses there is nothing to reconcile.
var ErrNoAddress = errors.New("could not determine any public IP address")

// ErrNoRecords aborts a single domain when it has neither an A nor an AAAA
// record. This program updates existing records; it never creates them.
var ErrNoRecords = errors.New("no A or AAAA records to update")

// ZoneNotFoundError aborts a single domain whose registrable domain is not
// among the account's zones.
type ZoneNotFoundError struct {
	Domain string
	Zone   string
}

func (e *ZoneNotFoundError) Error() string {
	return fmt.Sprintf("no zone named %q in this account", e.Zone)
}

// Resolver determines one public IP address for the current run.
type Resolver interface {
	Resolve(context.Context) (netip.Addr, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context) (netip.Addr, error)

func (f ResolverFunc) Resolve(ctx context.Context) (netip.Addr, error) { return f(ctx) }

// Provider is the subset of the DNS provider API the driver needs.
// *API implements it.
type Provider interface {
	Zones(ctx context.Context) (map[string]string, error)
	Records(ctx context.Context, zoneID, name string) (a, aaaa *Record, err error)
	UpdateRecord(ctx context.Context, zoneID, recordID, content string) error
}

type logf interface {
	Debugf(string, ...any)
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Client performs one reconciliation pass over the configured domains.
type Client struct {
	provider Provider
	ipv4     Resolver
	ipv6     Resolver
	domains  []string
	logger   *logrus.Logger
	out      io.Writer
}

// New builds a Client from cfg.
// By default the IPv4 address comes from the public echo services and the
// IPv6 address from the local interfaces;
// a static_ipv4 or static_ipv6 key overrides discovery for that family.
func New(cfg Config, options ...Option) (*Client, error) {
	if len(cfg.Domains) == 0 {
		return nil, errors.New("ddns.New: at least one domain is required")
	}
	c := &Client{
		domains: cfg.Domains,
		ipv4:    WebResolver(),
		ipv6:    LocalIPv6Resolver(),
		logger:  discardLogger(),
		out:     os.Stdout,
	}
	if cfg.StaticIPv4 != "" {
		c.ipv4 = StaticResolver(cfg.StaticIPv4)
	}
	if cfg.StaticIPv6 != "" {
		c.ipv6 = StaticResolver(cfg.StaticIPv6)
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("ddns.New: option %d returned an error: %w", i, err)
		}
	}
	if c.provider == nil {
		c.provider = NewAPI(cfg.Credentials())
	}

	// propagate the logger to dependencies that accept one, regardless of
	// the order WithLogger appeared in options
	if api, ok := c.provider.(*API); ok {
		api.logger = c.logger
	}
	if wr, ok := c.ipv4.(*webResolver); ok {
		wr.logger = c.logger
	}
	return c, nil
}

// Option configures a Client created by New.
type Option func(*Client) error

// UsingProvider replaces the default Cloudflare API client.
func UsingProvider(p Provider) Option {
	return func(c *Client) error {
		if p == nil {
			return errors.New("provider cannot be nil")
		}
		c.provider = p
		return nil
	}
}

// UsingIPv4Resolver replaces the IPv4 discovery method.
func UsingIPv4Resolver(r Resolver) Option {
	return func(c *Client) error {
		c.ipv4 = r
		return nil
	}
}

// UsingIPv6Resolver replaces the IPv6 discovery method.
func UsingIPv6Resolver(r Resolver) Option {
	return func(c *Client) error {
		c.ipv6 = r
		return nil
	}
}

// WithLogger sets the diagnostics logger. Status lines are unaffected.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = discardLogger()
		}
		c.logger = logger
		return nil
	}
}

// WithOutput redirects the human-readable status lines, which go to stdout
// by default.
func WithOutput(w io.Writer) Option {
	return func(c *Client) error {
		if w == nil {
			w = os.Stdout
		}
		c.out = w
		return nil
	}
}

// Run performs one reconciliation pass.
//
// A failure to resolve one address family is tolerated as long as the other
// succeeded. Configuration, total address-resolution, and zone-list failures
// are fatal; everything after that aborts only the domain it belongs to and
// the pass continues with the next one.
func (c *Client) Run(ctx context.Context) error {
	ipv4 := c.resolve(ctx, c.ipv4, "IPv4")
	ipv6 := c.resolve(ctx, c.ipv6, "IPv6")
	if !ipv4.IsValid() && !ipv6.IsValid() {
		return ErrNoAddress
	}

	zones, err := c.provider.Zones(ctx)
	if err != nil {
		return fmt.Errorf("error listing zones: %w", err)
	}
	c.logger.Debugf("account has %d zones", len(zones))

	for _, domain := range c.domains {
		if err := c.reconcile(ctx, zones, domain, ipv4, ipv6); err != nil {
			fmt.Fprintf(c.out, "%s: %s\n", domain, err)
		}
	}
	return nil
}

func (c *Client) resolve(ctx context.Context, r Resolver, family string) netip.Addr {
	addr, err := r.Resolve(ctx)
	if err != nil {
		c.logger.Debugf("%s discovery: %s", family, err)
		fmt.Fprintf(c.out, "could not determine public %s address\n", family)
		return netip.Addr{}
	}
	fmt.Fprintf(c.out, "public %s address: %s\n", family, addr)
	return addr
}

func (c *Client) reconcile(ctx context.Context, zones map[string]string, domain string, ipv4, ipv6 netip.Addr) error {
	zone, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return fmt.Errorf("error deriving registrable domain: %w", err)
	}
	zoneID, ok := zones[zone]
	if !ok {
		return &ZoneNotFoundError{Domain: domain, Zone: zone}
	}
	c.logger.Debugf("zone %s has ID %s", zone, zoneID)

	a, aaaa, err := c.provider.Records(ctx, zoneID, domain)
	if err != nil {
		return fmt.Errorf("error listing records: %w", err)
	}
	if a == nil && aaaa == nil {
		return ErrNoRecords
	}

	c.update(ctx, domain, zoneID, a, ipv4)
	c.update(ctx, domain, zoneID, aaaa, ipv6)
	return nil
}

// update patches one record to addr.
// It is a strict no-op when the record or the address is absent,
// and a logged no-op when the record content already matches.
func (c *Client) update(ctx context.Context, domain, zoneID string, record *Record, addr netip.Addr) {
	if record == nil || !addr.IsValid() {
		return
	}
	ip := addr.String()
	if record.Content == ip {
		fmt.Fprintf(c.out, "%s: %s record already up-to-date (%s)\n", domain, record.Type, ip)
		return
	}
	if err := c.provider.UpdateRecord(ctx, zoneID, record.ID, ip); err != nil {
		fmt.Fprintf(c.out, "%s: failed to update %s record: %s\n", domain, record.Type, err)
		return
	}
	fmt.Fprintf(c.out, "%s: updated %s record %s -> %s\n", domain, record.Type, record.Content, ip)
}
