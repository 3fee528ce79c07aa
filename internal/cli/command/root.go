package command

import (
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	clicfg "github.com/yndnr/shopmate-go/internal/cli/config"
	"github.com/yndnr/shopmate-go/internal/cli/connection"
	"github.com/yndnr/shopmate-go/internal/cli/output"
	"github.com/yndnr/shopmate-go/internal/infra/buildinfo"
)

const metaCLIConfig = "cliConfig"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "shopmate-cli",
		Usage:   "Manage shopmate sessions and the persistence worker",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SessionCommand(),
			SystemCommand(),
			ConfigCommand(),
		},
		Before: loadCLIConfig,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "shopmate-server address (e.g. localhost:8080)",
			EnvVars: []string{"SHOPMATE_SERVER"},
			Value:   "localhost:8080",
		},
		&cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "Named server profile from the CLI config file",
			EnvVars: []string{"SHOPMATE_PROFILE"},
		},
		&cli.StringFlag{
			Name:    "cli-config",
			Usage:   "CLI config file (default ~/.shopmate/cli.yaml)",
			EnvVars: []string{"SHOPMATE_CLI_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			EnvVars: []string{"SHOPMATE_OUTPUT"},
			Value:   "table",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: connection.DefaultTimeout,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Print request details to stderr",
		},
	}
}

func loadCLIConfig(c *cli.Context) error {
	cfg, err := clicfg.Load(c.String("cli-config"))
	if err != nil {
		return err
	}
	c.App.Metadata[metaCLIConfig] = cfg
	return nil
}

// GlobalFlags holds the resolved global settings. Flags and environment
// variables win over the CLI config file.
type GlobalFlags struct {
	Server  string
	Profile string
	Output  output.Format
	Timeout time.Duration
	Verbose bool
}

// ParseGlobalFlags resolves the global settings for a command.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	flags := &GlobalFlags{
		Server:  c.String("server"),
		Profile: c.String("profile"),
		Timeout: c.Duration("timeout"),
		Verbose: c.Bool("verbose"),
	}
	out := c.String("output")

	if cfg, ok := c.App.Metadata[metaCLIConfig].(*clicfg.CLIConfig); ok {
		if !c.IsSet("server") {
			server, found := cfg.ServerFor(flags.Profile)
			if !found {
				return nil, fmt.Errorf("unknown profile %q", flags.Profile)
			}
			flags.Server = server
		}
		if !c.IsSet("output") && cfg.Output != "" {
			out = cfg.Output
		}
		if !c.IsSet("timeout") && cfg.Timeout > 0 {
			flags.Timeout = cfg.Timeout
		}
	}

	format, err := output.ParseFormat(out)
	if err != nil {
		return nil, err
	}
	flags.Output = format
	return flags, nil
}

// newClient resolves the global flags and builds the HTTP client.
func newClient(c *cli.Context) (*connection.HTTPClient, *GlobalFlags, error) {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return nil, nil, err
	}

	client := connection.NewHTTPClient(flags.Server,
		connection.WithTimeout(flags.Timeout),
		connection.WithUserAgent("shopmate-cli/"+buildinfo.Version),
	)
	if flags.Verbose {
		fmt.Fprintf(c.App.ErrWriter, "server: %s\n", client.BaseURL())
	}
	return client, flags, nil
}

// render writes data in the selected format.
func render(c *cli.Context, flags *GlobalFlags, data any) error {
	return output.NewFormatter(flags.Output).Format(c.App.Writer, data)
}

// PrintError prints an error message to w.
func PrintError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
}
