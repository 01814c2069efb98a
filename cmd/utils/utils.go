package utils

import (
	"fmt"
	"net"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// ParseAddr parses a user@host:port string. Any component may be absent.
func ParseAddr(input string) (user, host string, port uint16) {
	if idx := strings.Index(input, ":"); idx != -1 {
		port = ParsePort(input[idx+1:])
		input = input[:idx]
	}
	if idx := strings.Index(input, "@"); idx != -1 {
		user = strings.TrimSpace(input[:idx])
		input = input[idx+1:]
	}
	host = strings.TrimSpace(input)
	return user, host, port
}

// ParsePort parses a port string, returning 0 for an empty or invalid input.
func ParsePort(input string) uint16 {
	if input == "" {
		return 0
	}
	port64, err := strconv.ParseUint(input, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(port64)
}

// GetCurrentUser returns the OS-reported current username, or "" on error.
func GetCurrentUser() string {
	currentUser, err := user.Current()
	if err != nil {
		return ""
	}
	return currentUser.Username
}

// GetConfigFilePath returns the path to the alias registry YAML file,
// ~/.hostpilot/config.yaml.
func GetConfigFilePath() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return filepath.Join(u.HomeDir, ".hostpilot", "config.yaml")
}

// GetFailureLogPath returns the path to the default failure-record sink,
// ~/.hostpilot/logs/failures.jsonl.
func GetFailureLogPath() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return filepath.Join(u.HomeDir, ".hostpilot", "logs", "failures.jsonl")
}

// ReadPasswordFromTerminal prompts and securely reads a password with echo
// disabled.
func ReadPasswordFromTerminal(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// IsValidIP reports whether ipStr is a valid IPv4 or IPv6 address.
func IsValidIP(ipStr string) bool {
	return net.ParseIP(ipStr) != nil
}
