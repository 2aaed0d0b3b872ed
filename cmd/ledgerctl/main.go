package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/dvloznov/saldo/internal/api/client"
	"github.com/dvloznov/saldo/internal/config"
	"github.com/google/subcommands"
)

var (
	serverURL = flag.String("url", "", "API base URL (defaults to LEDGERCTL_URL)")
	apiToken  = flag.String("token", "", "API bearer token (defaults to API_TOKEN)")
	envFile   = flag.String("env", "", "Env file to read settings from")
)

// Commands is the list of ledgerctl subcommands.
var Commands = []subcommands.Command{
	&statusCmd{},
	&snapshotCmd{},
	&refreshCmd{},
	&parityCmd{},
	&addCmd{},
	&transferCmd{},
	&balancesCmd{},
	&summaryCmd{},
	&runsCmd{},
	&checksumCmd{},
	&recomputeCmd{},
	&normalizeCmd{},
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range Commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// loadConfig reads the env file given with -env, or .env and the process
// environment.
func loadConfig() (*config.Config, error) {
	if *envFile != "" {
		return config.LoadFile(*envFile)
	}
	return config.Load()
}

// newClient builds an API client from flags, falling back to configuration.
func newClient() (*client.Client, error) {
	url, token := *serverURL, *apiToken
	if url == "" || token == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		if url == "" {
			url = cfg.LedgerctlURL
		}
		if token == "" {
			token = cfg.APIToken
		}
	}
	return client.New(url, token), nil
}
