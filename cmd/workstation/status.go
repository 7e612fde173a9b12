package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/config"
)

// StatusReport holds the resolved configuration and migration state.
type StatusReport struct {
	ConfigFile       string `json:"config_file"`
	DatabaseURL      string `json:"database_url,omitempty"`
	AutoMigrate      bool   `json:"automigrate"`
	LogLevel         string `json:"log_level"`
	LogFormat        string `json:"log_format"`
	MetricsAddr      string `json:"metrics_addr,omitempty"`
	Reachable        bool   `json:"reachable"`
	MigrationVersion uint   `json:"migration_version,omitempty"`
	Dirty            bool   `json:"dirty,omitempty"`
	PendingCount     int    `json:"pending_migrations"`
	Error            string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the effective configuration and migration status",
		Long: `Show the effective configuration after merging defaults, the config file,
and the environment, plus the health of the database schema.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	// Register flags
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	fileCfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	report := buildStatusReport(fileCfg)

	var output string
	if cfg.jsonOutput {
		output, err = formatStatusJSON(report)
		if err != nil {
			return err
		}
	} else {
		output = formatStatusTable(report)
	}

	cmd.Println(output)
	return nil
}

// buildStatusReport resolves the migration state for the configured database.
func buildStatusReport(cfg config.Config) StatusReport {
	report := StatusReport{
		ConfigFile:  configFile,
		AutoMigrate: cfg.Database.AutoMigrate,
		LogLevel:    cfg.Log.Level,
		LogFormat:   cfg.Log.Format,
		MetricsAddr: cfg.Metrics.Addr,
	}
	if report.ConfigFile == "" {
		report.ConfigFile = config.DefaultPath()
	}

	if cfg.Database.URL == "" {
		report.Error = "database URL not configured"
		return report
	}
	report.DatabaseURL = redactURL(cfg.Database.URL)

	m, err := newMigrator(cfg.Database.URL)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	defer closeMigrator(m)

	version, dirty, err := m.Version()
	if err != nil {
		report.Error = err.Error()
		return report
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		report.Error = err.Error()
		return report
	}

	report.Reachable = true
	report.MigrationVersion = version
	report.Dirty = dirty
	report.PendingCount = len(pending)
	return report
}

// redactURL masks the password portion of a database URL for display.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	return u.Redacted()
}

// formatStatusTable formats the report as a human-readable table.
func formatStatusTable(report StatusReport) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "SETTING\tVALUE")
	_, _ = fmt.Fprintln(w, "-------\t-----")
	_, _ = fmt.Fprintf(w, "config file\t%s\n", report.ConfigFile)

	db := report.DatabaseURL
	if db == "" {
		db = "(not set)"
	}
	_, _ = fmt.Fprintf(w, "database url\t%s\n", db)
	_, _ = fmt.Fprintf(w, "automigrate\t%t\n", report.AutoMigrate)
	_, _ = fmt.Fprintf(w, "log level\t%s\n", report.LogLevel)
	_, _ = fmt.Fprintf(w, "log format\t%s\n", report.LogFormat)

	metrics := report.MetricsAddr
	if metrics == "" {
		metrics = "(disabled)"
	}
	_, _ = fmt.Fprintf(w, "metrics addr\t%s\n", metrics)

	if report.Reachable {
		_, _ = fmt.Fprintln(w, "database\treachable")
		_, _ = fmt.Fprintf(w, "migrations\t%s\n", migrationSummary(report))
	} else {
		reason := "unreachable"
		if report.Error != "" {
			reason = report.Error
		}
		_, _ = fmt.Fprintf(w, "database\t%s\n", reason)
	}

	_ = w.Flush()
	return string(buf)
}

// migrationSummary renders the migration state in one line.
func migrationSummary(report StatusReport) string {
	var s string
	if report.MigrationVersion == 0 {
		s = "none applied"
	} else {
		s = fmt.Sprintf("version %d", report.MigrationVersion)
	}
	if report.PendingCount > 0 {
		s += fmt.Sprintf(", %d pending", report.PendingCount)
	}
	if report.Dirty {
		s += " (dirty)"
	}
	return s
}

// formatStatusJSON formats the report as JSON.
func formatStatusJSON(report StatusReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_FORMAT_FAILED").Wrap(err)
	}
	return string(data), nil
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
