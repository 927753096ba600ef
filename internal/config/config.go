package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Default configuration values
const (
	DefaultServerURL  = "ws://localhost:8080/ws"
	DefaultListenAddr = ":8080"
	DefaultDBPath     = "videodesk.db"
	DefaultSTUN       = "stun:stun.l.google.com:19302"
	DefaultTURN       = "" // Optional, empty by default
)

// Config holds application configuration for both the coordinator and the
// desk client.
type Config struct {
	// ServerURL is the coordinator websocket endpoint the client dials.
	ServerURL string

	// ListenAddr is the address the coordinator binds.
	ListenAddr string

	// DBPath is the sqlite file backing study-time accounting.
	DBPath string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Options for loading config with CLI flag overrides
type Options struct {
	ServerURL  string
	ListenAddr string
	DBPath     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (a local .env file is honored)
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	// A missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	serverURL := firstOf(opts.ServerURL, os.Getenv("VIDEODESK_SERVER_URL"), DefaultServerURL)
	listenAddr := firstOf(opts.ListenAddr, os.Getenv("VIDEODESK_LISTEN_ADDR"), DefaultListenAddr)
	dbPath := firstOf(opts.DBPath, os.Getenv("VIDEODESK_DB_PATH"), DefaultDBPath)
	stunServer := firstOf(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstOf(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN)
	turnUser := firstOf(opts.TURNUser, os.Getenv("TURN_USERNAME"), "")
	turnPass := firstOf(opts.TURNPass, os.Getenv("TURN_PASSWORD"), "")

	return &Config{
		ServerURL:  serverURL,
		ListenAddr: listenAddr,
		DBPath:     dbPath,
		STUNServer: stunServer,
		TURNServer: turnServer,
		TURNUser:   turnUser,
		TURNPass:   turnPass,
	}, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
