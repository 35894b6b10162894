package ddns_test

import (
	"context"
	"log"
	"os"

	ddns "github.com/ali-hazime/cloudflare-ddns-client"
)

func ExampleNew() {
	cfg := ddns.Config{
		AuthType: ddns.AuthToken,
		APIToken: os.Getenv(ddns.EnvToken),
		Domains:  []string{"dynamic-ip.example.com"},
	}
	client, err := ddns.New(cfg)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	// run once:
	if err := client.Run(context.Background()); err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}

func ExampleWebResolver() {
	// Endpoints are tried in order; the first usable answer wins.
	resolver := ddns.WebResolver(
		"https://checkip.amazonaws.com/",
		"https://ipv4.icanhazip.com/",
	)
	cfg := ddns.Config{
		AuthType: ddns.AuthToken,
		APIToken: os.Getenv(ddns.EnvToken),
		Domains:  []string{"dynamic-ip.example.com"},
	}
	client, err := ddns.New(cfg, ddns.UsingIPv4Resolver(resolver))
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	if err := client.Run(context.Background()); err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}
