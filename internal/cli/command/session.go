package command

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/shopmate-go/internal/cli/connection"
	"github.com/yndnr/shopmate-go/internal/cli/output"
)

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	payloadFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Session payload as inline JSON",
		},
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Read the payload from a file (- for stdin)",
		},
	}

	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Session store operations",
		Subcommands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Create a session with a payload (default {})",
				Flags:  payloadFlags,
				Action: sessionCreate,
			},
			{
				Name:      "get",
				Usage:     "Show a session payload ({} when the session is absent)",
				ArgsUsage: "SESSION_ID",
				Action:    sessionGet,
			},
			{
				Name:      "update",
				Usage:     "Replace a session payload and refresh its TTL",
				ArgsUsage: "SESSION_ID",
				Flags:     payloadFlags,
				Action:    sessionUpdate,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a live session (its archive copy is still written)",
				ArgsUsage: "SESSION_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Skip confirmation",
					},
				},
				Action: sessionDelete,
			},
			{
				Name:      "ttl",
				Usage:     "Show the remaining TTL of a session",
				ArgsUsage: "SESSION_ID",
				Action:    sessionTTL,
			},
			{
				Name:      "archive",
				Usage:     "List archived records of a session",
				ArgsUsage: "SESSION_ID",
				Action:    sessionArchive,
			},
		},
	}
}

func sessionPath(id string, suffix ...string) string {
	return "/sessions/" + url.PathEscape(id) + strings.Join(suffix, "")
}

func requireSessionID(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", errors.New("session ID required")
	}
	return id, nil
}

// readPayload returns the payload from --data or --file. It falls back to
// the empty object when allowEmpty is set.
func readPayload(c *cli.Context, allowEmpty bool) (json.RawMessage, error) {
	data, file := c.String("data"), c.String("file")
	if data != "" && file != "" {
		return nil, errors.New("use either --data or --file, not both")
	}

	var raw []byte
	switch {
	case data != "":
		raw = []byte(data)
	case file == "-":
		b, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		raw = b
	case allowEmpty:
		return json.RawMessage(`{}`), nil
	default:
		return nil, errors.New("payload required (--data or --file)")
	}

	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func sessionCreate(c *cli.Context) error {
	payload, err := readPayload(c, true)
	if err != nil {
		return err
	}

	client, flags, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	resp, err := client.Post(ctx, "/sessions", payload)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		SessionID string    `json:"session_id"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if flags.Output != output.FormatTable {
		return render(c, flags, result)
	}
	fmt.Fprintf(c.App.Writer, "Session created: %s\n", result.SessionID)
	fmt.Fprintf(c.App.Writer, "  Expires at: %s\n", result.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func sessionGet(c *cli.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}

	client, flags, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	resp, err := client.Get(ctx, sessionPath(id))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	found := resp.Header.Get("X-Session-Found")

	var payload json.RawMessage
	if err := connection.ParseResponse(resp, &payload); err != nil {
		return err
	}
	if flags.Verbose {
		fmt.Fprintf(c.App.ErrWriter, "found: %s\n", found)
	}

	// Payloads are free-form, so the table view falls back to JSON.
	if flags.Output == output.FormatTable {
		return (&output.JSONFormatter{}).Format(c.App.Writer, payload)
	}
	return render(c, flags, payload)
}

func sessionUpdate(c *cli.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	payload, err := readPayload(c, false)
	if err != nil {
		return err
	}

	client, flags, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	resp, err := client.Put(ctx, sessionPath(id), payload)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Session %s updated.\n", id)
	return nil
}

func sessionDelete(c *cli.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		fmt.Fprintf(c.App.Writer, "Delete session '%s'? [y/N]: ", id)
		answer, _ := bufio.NewReader(c.App.Reader).ReadString('\n')
		if a := strings.TrimSpace(answer); a != "y" && a != "Y" {
			fmt.Fprintln(c.App.Writer, "Cancelled.")
			return nil
		}
	}

	client, flags, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	resp, err := client.Delete(ctx, sessionPath(id))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if err := connection.ParseResponse(resp, nil); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Session %s deleted.\n", id)
	return nil
}

func sessionTTL(c *cli.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}

	client, flags, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	resp, err := client.Get(ctx, sessionPath(id, "/ttl"))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		SessionID  string `json:"session_id"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if flags.Output != output.FormatTable {
		return render(c, flags, result)
	}
	fmt.Fprintf(c.App.Writer, "%s expires in %s\n", result.SessionID, time.Duration(result.TTLSeconds)*time.Second)
	return nil
}

type archivedRecord struct {
	ID                string           `json:"id"`
	SessionID         string           `json:"session_id"`
	ConversationTurns []map[string]any `json:"conversation_turns"`
	Metadata          map[string]any   `json:"metadata"`
	PersistedAt       time.Time        `json:"persisted_at"`
}

func sessionArchive(c *cli.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}

	client, flags, err := newClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
	defer cancel()

	resp, err := client.Get(ctx, sessionPath(id, "/archive"))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		SessionID string           `json:"session_id"`
		Records   []archivedRecord `json:"records"`
		Total     int              `json:"total"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	if flags.Output != output.FormatTable {
		return render(c, flags, result)
	}

	table := &output.Table{Headers: []string{"RECORD ID", "PERSISTED", "TURNS", "METADATA KEYS"}}
	for _, r := range result.Records {
		table.AddRow(
			r.ID,
			r.PersistedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", len(r.ConversationTurns)),
			fmt.Sprintf("%d", len(r.Metadata)),
		)
	}
	if err := table.Render(c.App.Writer); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "\nTotal: %d records\n", result.Total)
	return nil
}
