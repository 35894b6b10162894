package ddns

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultIPv4Services are the public echo endpoints tried, in order, when no
// service URLs are supplied to WebResolver.
var DefaultIPv4Services = []string{
	"https://api.ipify.org",
	"https://ipv4.icanhazip.com",
	"https://checkip.amazonaws.com",
	"https://ifconfig.me/ip",
	"https://ipinfo.io/ip",
}

// WebResolver constructs a resolver which uses external web services to look
// up a "public" IP address.
//
// Each serviceURL must speak http and return status "200 OK",
// with a valid IPv4 or IPv6 address as the first line of the response body.
// Services are tried strictly in the order given,
// each with its own bounded timeout,
// and the first usable response wins.
// The resolver fails only when every service has failed.
func WebResolver(serviceURL ...string) Resolver {
	if len(serviceURL) == 0 {
		serviceURL = DefaultIPv4Services
	}
	return &webResolver{serviceURLs: serviceURL}
}

type webResolver struct {
	httpClient  *http.Client
	serviceURLs []string
	logger      logf
}

// Resolve implements ddns.Resolver.
func (wr *webResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	var errs []error
	for _, u := range wr.serviceURLs {
		addr, err := wr.lookup(ctx, u)
		if err != nil {
			if wr.logger != nil {
				wr.logger.Debugf("echo service %s: %s", u, err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			continue
		}
		return addr, nil
	}
	return netip.Addr{}, fmt.Errorf("all echo services failed: %w", errors.Join(errs...))
}

func (wr *webResolver) lookup(ctx context.Context, serviceURL string) (netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL, nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("http request returned %s", resp.Status)
	}

	scanner := bufio.NewReader(resp.Body)
	ipstring, _ := scanner.ReadString('\n')
	ip, err := netip.ParseAddr(strings.TrimSpace(ipstring))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing IP address from response body: %w", err)
	}
	return ip, nil
}
