// Package config reads dashboard settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultCodeFile is the classification workbook looked up in the data
// directory when UNIDASH_CODE_FILE is unset.
const DefaultCodeFile = "대학코드.xlsx"

// Config holds the settings shared by every subcommand.
type Config struct {
	DataDir   string
	CodeFile  string
	RulesFile string
	Addr      string
	LogLevel  string
	FontFile  string
}

// Load reads .env (if present) and the UNIDASH_* variables. A missing .env
// is not an error; an unreadable or malformed one is.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		DataDir:   getEnv("UNIDASH_DATA_DIR", "."),
		CodeFile:  getEnv("UNIDASH_CODE_FILE", ""),
		RulesFile: getEnv("UNIDASH_RULES_FILE", ""),
		Addr:      getEnv("UNIDASH_ADDR", ":8080"),
		LogLevel:  strings.ToLower(getEnv("UNIDASH_LOG_LEVEL", "info")),
		FontFile:  getEnv("UNIDASH_FONT_FILE", ""),
	}
	return cfg, nil
}

// CodePath returns the classification workbook path, defaulting to
// DefaultCodeFile inside DataDir.
func (c Config) CodePath() string {
	if strings.TrimSpace(c.CodeFile) != "" {
		return c.CodeFile
	}
	return filepath.Join(c.DataDir, DefaultCodeFile)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
