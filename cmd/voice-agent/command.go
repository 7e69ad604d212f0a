package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"voice-agent/internal/models"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var outputFormat string

var commandFlags struct {
	sessionID  string
	employeeID string
	role       string
}

var commandCmd = &cobra.Command{
	Use:   "command <transcript>",
	Short: "Interpret one transcript as a voice command and print the outcome",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCommand,
}

var searchFlags struct {
	agents []string
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run the multi-agent document search and print the agent results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	f := commandCmd.Flags()
	f.StringVar(&commandFlags.sessionID, "session", "", "Session ID to attach to the command")
	f.StringVar(&commandFlags.employeeID, "employee", "", "Employee ID used when submitting work entries")
	f.StringVar(&commandFlags.role, "role", string(models.RoleTechnician), "Role of the speaker (Admin, Officer, Engineer, Technician)")
	addOutputFlag(f)

	sf := searchCmd.Flags()
	sf.StringSliceVar(&searchFlags.agents, "agents", nil, "Agents to run: document, fault, recommendation (default: all)")
	addOutputFlag(sf)
}

func addOutputFlag(f *pflag.FlagSet) {
	f.StringVarP(&outputFormat, "output", "o", formatJSON, "Output format: json or yaml")
}

func runCommand(cmd *cobra.Command, args []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	zapLog := newZapLogger(cfg)
	defer zapLog.Sync()

	ctx := contextOrBackground(cmd)
	a, err := newApp(ctx, cfg, zapLog, 1)
	if err != nil {
		return err
	}
	defer a.Close()

	if commandFlags.sessionID != "" || commandFlags.employeeID != "" {
		ctx = models.WithSession(ctx, &models.Session{
			ID:         commandFlags.sessionID,
			EmployeeID: commandFlags.employeeID,
			Role:       models.Role(commandFlags.role),
		})
	}

	outcome := a.newDispatcher(nil).ProcessCommand(ctx, strings.Join(args, " "))
	return writeOutput(cmd.OutOrStdout(), outputFormat, outcome)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := checkFormat(outputFormat); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	zapLog := newZapLogger(cfg)
	defer zapLog.Sync()

	ctx := contextOrBackground(cmd)
	a, err := newApp(ctx, cfg, zapLog, 1)
	if err != nil {
		return err
	}
	defer a.Close()

	// Unset means every agent; an explicit empty list is rejected by the pipeline.
	agents := searchFlags.agents
	if !cmd.Flags().Changed("agents") {
		agents = nil
	}

	res := a.pipeline.Run(ctx, strings.Join(args, " "), agents)
	if err := writeOutput(cmd.OutOrStdout(), outputFormat, res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("search failed: %s", res.Error)
	}
	return nil
}

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

// writeOutput renders v in the requested format. YAML goes through a JSON
// round trip so field names match the API's JSON tags.
func writeOutput(w io.Writer, format string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	if format == formatYAML {
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
