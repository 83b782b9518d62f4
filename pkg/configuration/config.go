// Package configuration reads the INI-style basic.cfg file.
package configuration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config verwaltet die Anwendungskonfiguration
type Config struct {
	settings map[string]map[string]string
	filePath string
	mu       sync.RWMutex
}

var (
	globalConfig *Config
	once         sync.Once
)

// sectionOrder is the order sections are written in.
var sectionOrder = []string{"Interpreter", "Storage", "Network", "Session", "JWT", "TLS", "Console", "Debug"}

// Initialize loads configPath, creating it with defaults when missing, and
// applies <name>.local<ext> from the same directory on top.
func Initialize(configPath string) error {
	var err error
	once.Do(func() {
		globalConfig, err = loadConfig(configPath)
		if err != nil {
			return
		}
		local := LocalPath(configPath)
		if _, statErr := os.Stat(local); statErr == nil {
			// lokale Datei ist optional, Fehler darin werden ignoriert
			globalConfig.mergeFile(local)
		}
	})
	return err
}

// LocalPath returns the override file for configPath: basic.cfg -> basic.local.cfg.
func LocalPath(configPath string) string {
	ext := filepath.Ext(configPath)
	return strings.TrimSuffix(configPath, ext) + ".local" + ext
}

// LoadString replaces the global configuration with text. Used by tests.
func LoadString(text string) error {
	c := &Config{settings: make(map[string]map[string]string)}
	if err := c.parse(strings.NewReader(text)); err != nil {
		return err
	}
	globalConfig = c
	return nil
}

func loadConfig(filePath string) (*Config, error) {
	c := &Config{
		settings: make(map[string]map[string]string),
		filePath: filePath,
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.createDefaultConfig()
		if err := c.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %v", err)
		}
		return c, nil
	}
	if err := c.mergeFile(filePath); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) mergeFile(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	return c.parse(file)
}

// parse reads sections and key = value pairs; later values win.
func (c *Config) parse(r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	scanner := bufio.NewScanner(r)
	section := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			if c.settings[section] == nil {
				c.settings[section] = make(map[string]string)
			}
			continue
		}
		if section == "" {
			continue
		}
		if key, value, ok := strings.Cut(line, "="); ok {
			c.settings[section][strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return scanner.Err()
}

// createDefaultConfig erstellt die Standard-Konfiguration
func (c *Config) createDefaultConfig() {
	c.settings["Interpreter"] = map[string]string{
		"print_zone_width": "16",
		"max_gosub_depth":  "100",
		"max_for_depth":    "200",
		"max_wait":         "60s",
		"token_cache_size": "512",
		"random_seed":      "0",
	}
	c.settings["Storage"] = map[string]string{
		"backend":           "sqlite",
		"database_file":     "c64basic.db",
		"program_dir":       "programs",
		"default_extension": ".bas",
		"max_program_lines": "10000",
	}
	c.settings["Network"] = map[string]string{
		"listen_port":                "8080",
		"pong_timeout":               "60s",
		"write_wait_timeout":         "10s",
		"max_message_size_kb":        "16",
		"max_channel_buffer":         "256",
		"max_input_length":           "255",
		"max_connections_per_minute": "30",
		"allowed_origins":            "",
	}
	c.settings["Session"] = map[string]string{
		"max_sessions":             "50",
		"max_execution_time":       "5m",
		"max_inactive_time":        "30m",
		"session_cleanup_interval": "1m",
	}
	c.settings["JWT"] = map[string]string{
		"secret_key":             "",
		"token_expiration_hours": "24",
	}
	c.settings["TLS"] = map[string]string{
		"enable_tls":           "false",
		"enable_letsencrypt":   "false",
		"domain":               "",
		"letsencrypt_email":    "",
		"cert_cache_dir":       "certs",
		"cert_file":            "",
		"key_file":             "",
		"https_port":           "8443",
		"force_https_redirect": "false",
	}
	c.settings["Console"] = map[string]string{
		"enable_colors": "true",
		"banner":        "true",
	}
	c.settings["Debug"] = map[string]string{
		"enable_debug_logging": "false",
		"log_level":            "INFO",
		"log_file":             "c64basic.log",
		"max_log_size_mb":      "10",
		"log_rotation_count":   "3",
		"log_interpreter":      "false",
		"log_storage":          "false",
		"log_websocket":        "false",
		"log_session":          "true",
		"log_auth":             "true",
		"log_security":         "true",
		"log_console":          "false",
		"log_tls":              "true",
		"log_config":           "true",
		"log_general":          "true",
	}
}

func (c *Config) saveToFile() error {
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}
	file, err := os.Create(c.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	w.WriteString("; c64basic configuration\n")
	w.WriteString("; Generated automatically - modify with care\n\n")
	for _, section := range sectionOrder {
		settings, ok := c.settings[section]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "[%s]\n", section)
		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(w, "%s = %s\n", key, settings[key])
		}
		w.WriteString("\n")
	}
	return w.Flush()
}

// GetString gibt einen String-Wert aus der Konfiguration zurück
func GetString(section, key, defaultValue string) string {
	if globalConfig == nil {
		return defaultValue
	}
	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()

	if values, ok := globalConfig.settings[section]; ok {
		if value, ok := values[key]; ok {
			return value
		}
	}
	return defaultValue
}

// GetInt gibt einen Integer-Wert aus der Konfiguration zurück
func GetInt(section, key string, defaultValue int) int {
	if value, err := strconv.Atoi(GetString(section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetFloat gibt einen Float-Wert aus der Konfiguration zurück
func GetFloat(section, key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(GetString(section, key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

// GetBool gibt einen Boolean-Wert aus der Konfiguration zurück
func GetBool(section, key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(GetString(section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetDuration gibt einen Duration-Wert aus der Konfiguration zurück
func GetDuration(section, key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(GetString(section, key, "")); err == nil {
		return value
	}
	return defaultValue
}

// GetSection returns a copy of one section.
func GetSection(sectionName string) map[string]string {
	result := make(map[string]string)
	if globalConfig == nil {
		return result
	}
	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()
	for key, value := range globalConfig.settings[sectionName] {
		result[key] = value
	}
	return result
}

// SetString setzt einen String-Wert in der Konfiguration
func SetString(section, key, value string) {
	if globalConfig == nil {
		return
	}
	globalConfig.mu.Lock()
	defer globalConfig.mu.Unlock()
	if globalConfig.settings[section] == nil {
		globalConfig.settings[section] = make(map[string]string)
	}
	globalConfig.settings[section][key] = value
}

// Save writes the configuration back to the file it was loaded from.
func Save() error {
	if globalConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}
	if globalConfig.filePath == "" {
		return fmt.Errorf("configuration has no file")
	}
	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()
	return globalConfig.saveToFile()
}
