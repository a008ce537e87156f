// Package consoleinfo implements the process-wide configuration store (C6):
// root directories, client identity, and the CLI/environment boundary
// consumed by the core. Flags bind to viper keys and are read back
// through typed accessors.
package consoleinfo

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag and env names for the OLC server integration.
const (
	FlagOlcServerPort                  = "olc_server_port"
	FlagAlwaysRestartOlcServer         = "ats_console_always_restart_olc_server"
	FlagEnableOlcServer                = "enable_ats_console_olc_server"
	FlagEnableOlcServerLog             = "enable_ats_console_olc_server_log"
	FlagOlcServerMinLogRecordImportance = "ats_console_olc_server_min_log_record_importance"
	FlagOlcServerPath                  = "ats_console_olc_server_path"

	EnvUseNewOlcServer = "USE_NEW_OLC_SERVER"
	EnvUseTfRetry      = "USE_TF_RETRY"
)

// RegisterFlags binds the OLC server flags to cmd/v. Call once per
// process, before Execute().
func RegisterFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()

	flags.Int(FlagOlcServerPort, 0, "port to connect to the OLC server on")
	flags.Bool(FlagAlwaysRestartOlcServer, false, "force a server restart even if a healthy one is already reachable")
	flags.Bool(FlagEnableOlcServer, false, "master switch for server-dependent operations")
	flags.Bool(FlagEnableOlcServerLog, false, "auto-enable log streaming at startup")
	flags.Int(FlagOlcServerMinLogRecordImportance, 0, "minimum importance for streamed log records")
	flags.String(FlagOlcServerPath, "", "path to the OLC server executable")

	_ = v.BindPFlag(FlagOlcServerPort, flags.Lookup(FlagOlcServerPort))
	_ = v.BindPFlag(FlagAlwaysRestartOlcServer, flags.Lookup(FlagAlwaysRestartOlcServer))
	_ = v.BindPFlag(FlagEnableOlcServer, flags.Lookup(FlagEnableOlcServer))
	_ = v.BindPFlag(FlagEnableOlcServerLog, flags.Lookup(FlagEnableOlcServerLog))
	_ = v.BindPFlag(FlagOlcServerMinLogRecordImportance, flags.Lookup(FlagOlcServerMinLogRecordImportance))
	_ = v.BindPFlag(FlagOlcServerPath, flags.Lookup(FlagOlcServerPath))
}

// CommandRecord is the monotonic "last command" the REPL records.
type CommandRecord struct {
	Name string
	At   time.Time
}

// ConsoleInfo is the process-wide key-value store seeded from flags and
// environment. The flag/env-derived fields are fixed at construction and
// safe for concurrent reads; the REPL-mutable fields below them go
// through a single RWMutex so concurrent reads never race with writes.
type ConsoleInfo struct {
	clientID string

	// UseNewOlcServer holds the USE_NEW_OLC_SERVER environment setting.
	// No component in this module acts on it: the server port always
	// comes from olc_server_port, no per-process working directory is
	// created, and an already-running server is reused as usual.
	UseNewOlcServer bool
	UseTfRetry      bool

	OlcServerPort                   int
	AlwaysRestartOlcServer           bool
	EnableOlcServer                  bool
	EnableOlcServerLog               bool
	OlcServerMinLogRecordImportance int32
	OlcServerPath                    string

	mu               sync.RWMutex
	xtsRootDirectory string
	packageIndexURL  string
	lastCommand      *CommandRecord
	shouldExit       bool
}

// New builds a ConsoleInfo snapshot from v (already populated by
// RegisterFlags + cobra parsing) and the process environment. ClientId is
// generated fresh every process.
func New(v *viper.Viper) *ConsoleInfo {
	return &ConsoleInfo{
		clientID: uuid.NewString(),

		UseNewOlcServer: parseBoolEnv(EnvUseNewOlcServer),
		UseTfRetry:      parseBoolEnv(EnvUseTfRetry),

		OlcServerPort:                    v.GetInt(FlagOlcServerPort),
		AlwaysRestartOlcServer:           v.GetBool(FlagAlwaysRestartOlcServer),
		EnableOlcServer:                  v.GetBool(FlagEnableOlcServer),
		EnableOlcServerLog:               v.GetBool(FlagEnableOlcServerLog),
		OlcServerMinLogRecordImportance: int32(v.GetInt(FlagOlcServerMinLogRecordImportance)),
		OlcServerPath:                    v.GetString(FlagOlcServerPath),
	}
}

func parseBoolEnv(name string) bool {
	b, _ := strconv.ParseBool(os.Getenv(name))
	return b
}

// ClientId returns the process-wide client identity.
func (c *ConsoleInfo) ClientId() string { return c.clientID }

// XtsRootDirectory returns the configured xTS root, and whether one was
// ever set. Whether a root is required is left to the REPL wiring that
// consumes it; this layer treats it as optional.
func (c *ConsoleInfo) XtsRootDirectory() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.xtsRootDirectory, c.xtsRootDirectory != ""
}

// SetXtsRootDirectory records the xTS root directory.
func (c *ConsoleInfo) SetXtsRootDirectory(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.xtsRootDirectory = dir
}

// PackageIndexURL returns the optional package-index URL.
func (c *ConsoleInfo) PackageIndexURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.packageIndexURL
}

// SetPackageIndexURL records the package-index URL.
func (c *ConsoleInfo) SetPackageIndexURL(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packageIndexURL = url
}

// LastCommand returns the most recently recorded command, or nil if none
// has been recorded yet.
func (c *ConsoleInfo) LastCommand() *CommandRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCommand
}

// RecordCommand records name as the last command run, at the given time.
func (c *ConsoleInfo) RecordCommand(name string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCommand = &CommandRecord{Name: name, At: at}
}

// ShouldExit reports whether the REPL loop should exit.
func (c *ConsoleInfo) ShouldExit() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shouldExit
}

// SetShouldExit requests that the REPL loop exit.
func (c *ConsoleInfo) SetShouldExit(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldExit = v
}
