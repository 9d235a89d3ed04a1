package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// serverInfo advertises a running server to the other subcommands.
type serverInfo struct {
	Port        int    `json:"port"`
	PID         int    `json:"pid"`
	SessionFile string `json:"sessionFile"`
}

func serverInfoPath() string {
	return filepath.Join(stateDir(), "server.json")
}

func writeServerInfo(info serverInfo) error {
	if err := os.MkdirAll(stateDir(), 0o755); err != nil {
		return fmt.Errorf("writeServerInfo: %w", err)
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("writeServerInfo: %w", err)
	}
	if err := os.WriteFile(serverInfoPath(), data, 0o644); err != nil {
		return fmt.Errorf("writeServerInfo: %w", err)
	}
	return nil
}

func readServerInfo() (*serverInfo, error) {
	data, err := os.ReadFile(serverInfoPath())
	if err != nil {
		return nil, fmt.Errorf("readServerInfo: %w", err)
	}
	var info serverInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("readServerInfo: %w", err)
	}
	return &info, nil
}

func removeServerInfo() {
	_ = os.Remove(serverInfoPath())
}

// resolveAddr picks the server address: an explicit flag wins, then the
// discovery file, then the default port on localhost.
func resolveAddr(flagAddr string) string {
	if flagAddr != "" {
		return flagAddr
	}
	if info, err := readServerInfo(); err == nil && info.Port > 0 {
		return fmt.Sprintf("127.0.0.1:%d", info.Port)
	}
	return "127.0.0.1:4777"
}
