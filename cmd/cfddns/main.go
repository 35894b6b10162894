package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	ddns "github.com/ali-hazime/cloudflare-ddns-client"
	"github.com/cloudflare/cloudflare-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var config = struct {
	ConfigFile string
	Configure  bool
	UpdateNow  bool
	Debug      bool
}{}

var logger = logrus.New()

func init() {
	flag.StringVar(&config.ConfigFile, "config", filepath.Join(os.Getenv("HOME"), ".cfddns.ini"), "Path to the configuration file")
	flag.BoolVar(&config.Configure, "configure", false, "Run interactive configuration")
	flag.BoolVar(&config.UpdateNow, "update-now", false, "Resolve public addresses and update DNS records once")
	flag.BoolVar(&config.Debug, "debug", false, "Enable verbose diagnostics, including raw API responses on failure")
	flag.Parse()

	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.WarnLevel)
	if config.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
}

func main() {
	// optional; lets API_TOKEN come from a .env file next to the binary
	_ = godotenv.Load()

	switch {
	case config.Configure:
		if err := runSetup(); err != nil {
			logger.Fatal(err)
		}
	case config.UpdateNow:
		if err := runUpdate(); err != nil {
			logger.Fatal(err)
		}
	default:
		fmt.Println("nothing to do: pass --configure to set up credentials, or --update-now to update DNS records")
	}
}

func runUpdate() error {
	cfg, err := ddns.LoadConfig(config.ConfigFile)
	if errors.Is(err, ddns.ErrNotConfigured) {
		logger.Debugf("config: %s", err)
		fmt.Printf("%q is missing or incomplete: run %s --configure first\n", config.ConfigFile, filepath.Base(os.Args[0]))
		os.Exit(1)
	}
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := verifyPermissions(config.ConfigFile); err != nil {
		return err
	}
	logger.Debugf("updating %d domain(s)", len(cfg.Domains))

	client, err := ddns.New(cfg, ddns.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("error creating ddns client: %w", err)
	}
	return client.Run(context.Background())
}

func runSetup() error {
	in := bufio.NewReader(os.Stdin)

	var cfg ddns.Config
	for cfg.AuthType == "" {
		fmt.Print("Authenticate with an API token or a global API key? [token/key]: ")
		answer, err := in.ReadString('\n')
		if err != nil {
			return fmt.Errorf("error reading from stdin: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "token":
			cfg.AuthType = ddns.AuthToken
		case "key":
			cfg.AuthType = ddns.AuthKey
		default:
			fmt.Println(`please answer "token" or "key"`)
		}
	}

	switch cfg.AuthType {
	case ddns.AuthToken:
		fmt.Printf("Enter Cloudflare API token (empty to use the %s environment variable): \n", ddns.EnvToken)
		bytekey, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("error reading from stdin: %w", err)
		}
		cfg.APIToken = strings.TrimSpace(string(bytekey))
		if cfg.APIToken == "" {
			cfg.APIToken = os.Getenv(ddns.EnvToken)
		}
		if cfg.APIToken == "" {
			return errors.New("no API token provided")
		}
	case ddns.AuthKey:
		fmt.Print("Enter Cloudflare account email: ")
		email, err := in.ReadString('\n')
		if err != nil {
			return fmt.Errorf("error reading from stdin: %w", err)
		}
		cfg.Email = strings.TrimSpace(email)
		fmt.Println("Enter Cloudflare global API key: ")
		bytekey, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("error reading from stdin: %w", err)
		}
		cfg.APIKey = strings.TrimSpace(string(bytekey))
	}

	fmt.Print("Domains to keep updated (comma-separated): ")
	domains, err := in.ReadString('\n')
	if err != nil {
		return fmt.Errorf("error reading from stdin: %w", err)
	}
	for _, d := range strings.Split(domains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			cfg.Domains = append(cfg.Domains, d)
		}
	}

	logger.Debug("verifying credentials...")
	if err := verifyCredentials(cfg); err != nil {
		return err
	}
	logger.Debug("credentials verified successfully")

	if err := cfg.Save(config.ConfigFile); err != nil {
		return err
	}
	fmt.Printf("configuration written to %q\n", config.ConfigFile)
	return nil
}

// verifyCredentials checks the entered credentials against the live API
// before they are persisted.
func verifyCredentials(cfg ddns.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch cfg.AuthType {
	case ddns.AuthKey:
		api, err := cloudflare.New(cfg.APIKey, cfg.Email)
		if err != nil {
			return fmt.Errorf("error creating api client: %w", err)
		}
		if _, err := api.UserDetails(ctx); err != nil {
			return fmt.Errorf("unable to verify api key: %w", err)
		}
	default:
		api, err := cloudflare.NewWithAPIToken(cfg.APIToken)
		if err != nil {
			return fmt.Errorf("error creating api client: %w", err)
		}
		result, err := api.VerifyAPIToken(ctx)
		if err != nil {
			return fmt.Errorf("unable to verify api token: %w", err)
		}
		if result.Status != "active" {
			return fmt.Errorf("expected api token status to be \"active\"; got %q", result.Status)
		}
	}
	return nil
}

func verifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking config file permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for %q: expected file permissions \"-rw-------\"; found %q", path, fs.FileMode(perms))
	}

	return nil
}
