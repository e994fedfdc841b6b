package config

import (
	"fmt"
	"os"
	"strings"
)

// History store config keys
const (
	KeyHistoryMode           = "history.mode"
	KeyHistoryDatabase       = "history.database"
	KeyHistoryServerHost     = "history.server_host"
	KeyHistoryServerPort     = "history.server_port"
	KeyHistoryServerUser     = "history.server_user"
	KeyHistoryServerPassword = "history.server_password"
	KeyHistoryServerTLS      = "history.server_tls"
)

// HistoryMode selects how the velocity history store is opened.
type HistoryMode string

const (
	// HistoryModeEmbedded runs Dolt in-process against a local directory (default)
	HistoryModeEmbedded HistoryMode = "embedded"
	// HistoryModeServer connects to a running dolt sql-server
	HistoryModeServer HistoryMode = "server"
)

// validHistoryModes is the set of allowed history mode values
var validHistoryModes = map[HistoryMode]bool{
	HistoryModeEmbedded: true,
	HistoryModeServer:   true,
}

// HistorySettings is the resolved history store configuration. The server
// fields only matter when Mode is HistoryModeServer.
type HistorySettings struct {
	Mode           HistoryMode
	Database       string
	ServerHost     string
	ServerPort     int
	ServerUser     string
	ServerPassword string
	ServerTLS      bool
}

// RegisterHistoryDefaults registers defaults and environment bindings for
// the history store configuration. Called from Initialize() in config.go.
func RegisterHistoryDefaults() {
	if v == nil {
		return
	}

	v.SetDefault(KeyHistoryMode, string(HistoryModeEmbedded))
	v.SetDefault(KeyHistoryDatabase, "abacus")
	v.SetDefault(KeyHistoryServerHost, "127.0.0.1")
	v.SetDefault(KeyHistoryServerPort, 3307)
	v.SetDefault(KeyHistoryServerUser, "root")
	v.SetDefault(KeyHistoryServerPassword, "")
	v.SetDefault(KeyHistoryServerTLS, false)

	_ = v.BindEnv(KeyHistoryMode, "ABACUS_HISTORY_MODE")
	_ = v.BindEnv(KeyHistoryDatabase, "ABACUS_HISTORY_DATABASE")
	_ = v.BindEnv(KeyHistoryServerHost, "ABACUS_HISTORY_HOST")
	_ = v.BindEnv(KeyHistoryServerPort, "ABACUS_HISTORY_PORT")
	_ = v.BindEnv(KeyHistoryServerUser, "ABACUS_HISTORY_USER")
	_ = v.BindEnv(KeyHistoryServerPassword, "ABACUS_HISTORY_PASSWORD")
	_ = v.BindEnv(KeyHistoryServerTLS, "ABACUS_HISTORY_TLS")
}

// GetHistoryMode retrieves the history mode configuration.
// Returns the configured mode, or HistoryModeEmbedded (default) if not set
// or invalid. Logs a warning to stderr if an invalid value is configured.
//
// Config key: history.mode
// Valid values: embedded, server
func GetHistoryMode() HistoryMode {
	value := GetString(KeyHistoryMode)
	if value == "" {
		return HistoryModeEmbedded // Default
	}

	mode := HistoryMode(strings.ToLower(strings.TrimSpace(value)))
	if !validHistoryModes[mode] {
		fmt.Fprintf(os.Stderr, "Warning: invalid history.mode %q in config (valid: embedded, server), using default 'embedded'\n", value)
		return HistoryModeEmbedded
	}

	return mode
}

// GetHistorySettings returns the current history store configuration.
func GetHistorySettings() HistorySettings {
	return HistorySettings{
		Mode:           GetHistoryMode(),
		Database:       GetString(KeyHistoryDatabase),
		ServerHost:     GetString(KeyHistoryServerHost),
		ServerPort:     GetInt(KeyHistoryServerPort),
		ServerUser:     GetString(KeyHistoryServerUser),
		ServerPassword: GetString(KeyHistoryServerPassword),
		ServerTLS:      GetBool(KeyHistoryServerTLS),
	}
}
