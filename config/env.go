// Package config loads process configuration from environment variables:
// typed readers with defaults, plus a `_FILE`-suffix indirection so a
// secret can be mounted as a file instead of passed inline.
package config

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"
)

var errNoEnvArg = errors.New("no env arg")

// loadEnvFile reads the first line of a file named by an env var's `_FILE`
// suffix.
func loadEnvFile(nm string) (string, error) {
	fin, err := os.Open(nm)
	if err != nil {
		return "", err
	}
	defer fin.Close()
	s := bufio.NewScanner(fin)
	s.Scan()
	if err := s.Err(); err != nil {
		return "", err
	}
	return s.Text(), nil
}

func loadEnv(name string) (string, error) {
	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}
	if fp, ok := os.LookupEnv(name + "_FILE"); ok {
		return loadEnvFile(fp)
	}
	return "", errNoEnvArg
}

// String returns the env var's value, or def if unset.
func String(name, def string) string {
	v, err := loadEnv(name)
	if err != nil {
		return def
	}
	return v
}

// Bool returns the env var's value parsed as a bool, or def if unset/unparsable.
func Bool(name string, def bool) bool {
	v, err := loadEnv(name)
	if err != nil {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// Int returns the env var's value parsed as an int, or def if unset/unparsable.
func Int(name string, def int) int {
	v, err := loadEnv(name)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// Uint16 returns the env var's value parsed as a uint16, or def if unset/unparsable/overflowing.
func Uint16(name string, def uint16) uint16 {
	v, err := loadEnv(name)
	if err != nil {
		return def
	}
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 16)
	if err != nil {
		return def
	}
	return uint16(n)
}
