package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	clicfg "github.com/yndnr/shopmate-go/internal/cli/config"
	"github.com/yndnr/shopmate-go/internal/infra/confloader"
	"github.com/yndnr/shopmate-go/internal/server/config"
)

// ConfigCommand returns the config subcommand group. Server config files
// are checked locally with the same loader and rules shopmate-server uses.
func ConfigCommand() *cli.Command {
	sourceFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Server config file (YAML)",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Load variables from a .env file first",
		},
	}

	return &cli.Command{
		Name:  "config",
		Usage: "Inspect configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Validate a server config (file, .env and SHOPMATE_* variables)",
				Flags:  sourceFlags,
				Action: configValidate,
			},
			{
				Name:   "show",
				Usage:  "Show the effective server config with secrets masked",
				Flags:  sourceFlags,
				Action: configShow,
			},
			{
				Name:   "cli",
				Usage:  "Show the CLI's own settings",
				Action: configCLIShow,
			},
		},
	}
}

// loadServerConfig merges defaults, file and environment. ssm: references
// are left unresolved.
func loadServerConfig(c *cli.Context) (*config.ServerConfig, error) {
	cfg := config.Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(c.String("config")),
		confloader.WithDotEnv(c.String("env-file")),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configValidate(c *cli.Context) error {
	cfg, err := loadServerConfig(c)
	if err != nil {
		return err
	}

	source := c.String("config")
	if source == "" {
		source = "defaults and environment"
	}

	if err := config.Verify(cfg); err != nil {
		fmt.Fprintf(c.App.Writer, "Configuration is invalid (%s):\n", source)
		for _, line := range joinedErrors(err) {
			fmt.Fprintf(c.App.Writer, "  - %s\n", line)
		}
		return errors.New("validation failed")
	}

	fmt.Fprintf(c.App.Writer, "Configuration is valid (%s).\n", source)
	if config.HasSecretRefs(cfg) {
		fmt.Fprintln(c.App.Writer, "  Note: ssm: references are resolved by the server at startup.")
	}
	return nil
}

// joinedErrors splits an errors.Join result into its messages.
func joinedErrors(err error) []string {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range j.Unwrap() {
			out = append(out, joinedErrors(e)...)
		}
		return out
	}
	return strings.Split(err.Error(), "\n")
}

func configShow(c *cli.Context) error {
	cfg, err := loadServerConfig(c)
	if err != nil {
		return err
	}
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}
	return render(c, flags, config.ToMap(config.Sanitize(cfg)))
}

func configCLIShow(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}

	path := c.String("cli-config")
	if path == "" {
		path = clicfg.DefaultConfigPath()
	}

	return render(c, flags, map[string]any{
		"file":    path,
		"server":  flags.Server,
		"profile": flags.Profile,
		"output":  string(flags.Output),
		"timeout": flags.Timeout.String(),
	})
}
