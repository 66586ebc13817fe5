// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables, and
// an optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string

	// Config is the path to the JSON config file.
	Config string

	// CORSOrigin is the allowed browser origin for the frontend.
	CORSOrigin string

	// PlaidEnv selects the bank aggregator environment ("sandbox" or "production").
	PlaidEnv string

	// PlaidClientID is the aggregator API client id.
	PlaidClientID string

	// PlaidSecret is the aggregator API secret for the selected environment.
	PlaidSecret string

	// CognitoRegion is the AWS region of the identity provider user pool.
	CognitoRegion string

	// CognitoClientID is the identity provider app client id.
	CognitoClientID string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.CORSOrigin, "o", "*", "allowed CORS origin")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags, the optional .env file, the optional
// JSON config file, and environment variables to set configuration values.
// It returns a pointer to the Options struct containing the parsed values.
// Environment variables take precedence over the config file and flags.
func Parse() *Options {
	flag.Parse()

	// Load .env if present; missing files are not an error.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		options.CORSOrigin = origin
	}
	if env := os.Getenv("PLAID_ENV"); env != "" {
		options.PlaidEnv = env
	}
	if id := os.Getenv("PLAID_CLIENT_ID"); id != "" {
		options.PlaidClientID = id
	}
	if secret := os.Getenv("PLAID_SECRET"); secret != "" {
		options.PlaidSecret = secret
	}
	if region := os.Getenv("COGNITO_REGION"); region != "" {
		options.CognitoRegion = region
	}
	if id := os.Getenv("COGNITO_CLIENT_ID"); id != "" {
		options.CognitoClientID = id
	}

	if options.PlaidEnv == "" {
		options.PlaidEnv = "sandbox"
	}

	return options
}
