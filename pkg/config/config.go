// Package config provides panel settings and the named profile store
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"quietude/pkg/history"
	"quietude/pkg/input"
	"quietude/pkg/serial"
)

const (
	InputGPIO = "gpio"
	InputKeys = "keys"

	storageVersion = "1.0"
)

// SerialSection is the device link part of a profile
type SerialSection struct {
	Port      string `toml:"port"`
	BaudRate  int    `toml:"baud_rate"`
	DataBits  int    `toml:"data_bits"`
	StopBits  int    `toml:"stop_bits"`
	Parity    string `toml:"parity"`
	TimeoutMs int    `toml:"timeout_ms"`
	Retries   int    `toml:"retries"`
}

// ButtonSection selects the button panel and its GPIO pins
type ButtonSection struct {
	Input      string `toml:"input"`
	GPIORoot   string `toml:"gpio_root"`
	Up         int    `toml:"up"`
	Down       int    `toml:"down"`
	Left       int    `toml:"left"`
	Right      int    `toml:"right"`
	Select     int    `toml:"select"`
	DebounceMs int    `toml:"debounce_ms"`
}

// TranscriptSection configures the optional session transcript
type TranscriptSection struct {
	Path   string `toml:"path,omitempty"`
	Format string `toml:"format"`
}

// PanelConfig is everything the run command needs to bring the panel up
type PanelConfig struct {
	Serial     SerialSection     `toml:"serial"`
	Buttons    ButtonSection     `toml:"buttons"`
	Transcript TranscriptSection `toml:"transcript"`
}

// DefaultPanelConfig returns the BeagleBone wiring: buttons on P9_14,
// P9_15, P9_16, P9_23 and P9_25, the device on /dev/ttyACM0
func DefaultPanelConfig() PanelConfig {
	sc := serial.DefaultConfig()
	return PanelConfig{
		Serial: SerialSection{
			Port:      sc.Port,
			BaudRate:  sc.BaudRate,
			DataBits:  sc.DataBits,
			StopBits:  sc.StopBits,
			Parity:    sc.Parity,
			TimeoutMs: int(sc.Timeout / time.Millisecond),
			Retries:   0,
		},
		Buttons: ButtonSection{
			Input:      InputGPIO,
			GPIORoot:   input.DefaultGPIORoot,
			Up:         50,
			Down:       48,
			Left:       49,
			Right:      51,
			Select:     117,
			DebounceMs: int(input.DefaultDebounceDelay / time.Millisecond),
		},
		Transcript: TranscriptSection{
			Format: history.FormatTimestamped.String(),
		},
	}
}

// SerialConfig returns the serial link settings
func (c PanelConfig) SerialConfig() serial.SerialConfig {
	return serial.SerialConfig{
		Port:     c.Serial.Port,
		BaudRate: c.Serial.BaudRate,
		DataBits: c.Serial.DataBits,
		StopBits: c.Serial.StopBits,
		Parity:   c.Serial.Parity,
		Timeout:  time.Duration(c.Serial.TimeoutMs) * time.Millisecond,
	}
}

// SetSerialConfig stores the serial link settings
func (c *PanelConfig) SetSerialConfig(sc serial.SerialConfig) {
	c.Serial.Port = sc.Port
	c.Serial.BaudRate = sc.BaudRate
	c.Serial.DataBits = sc.DataBits
	c.Serial.StopBits = sc.StopBits
	c.Serial.Parity = sc.Parity
	c.Serial.TimeoutMs = int(sc.Timeout / time.Millisecond)
}

// Pins returns the GPIO number of each button
func (c PanelConfig) Pins() map[input.Source]int {
	return map[input.Source]int{
		input.Up:     c.Buttons.Up,
		input.Down:   c.Buttons.Down,
		input.Left:   c.Buttons.Left,
		input.Right:  c.Buttons.Right,
		input.Select: c.Buttons.Select,
	}
}

// SetPins stores the GPIO number of each button present in pins
func (c *PanelConfig) SetPins(pins map[input.Source]int) {
	for src, pin := range pins {
		switch src {
		case input.Up:
			c.Buttons.Up = pin
		case input.Down:
			c.Buttons.Down = pin
		case input.Left:
			c.Buttons.Left = pin
		case input.Right:
			c.Buttons.Right = pin
		case input.Select:
			c.Buttons.Select = pin
		}
	}
}

// Debounce returns the button settle delay
func (c PanelConfig) Debounce() time.Duration {
	return time.Duration(c.Buttons.DebounceMs) * time.Millisecond
}

// TranscriptFormat returns the parsed transcript format
func (c PanelConfig) TranscriptFormat() (history.FileFormat, error) {
	if c.Transcript.Format == "" {
		return history.FormatTimestamped, nil
	}
	return history.ParseFileFormat(c.Transcript.Format)
}

// Validate checks if the panel configuration is valid
func (c PanelConfig) Validate() error {
	if err := c.SerialConfig().Validate(); err != nil {
		return fmt.Errorf("invalid serial config: %w", err)
	}

	if c.Serial.Retries < 0 {
		return fmt.Errorf("retries cannot be negative, got: %d", c.Serial.Retries)
	}

	switch c.Buttons.Input {
	case InputGPIO:
		if c.Buttons.GPIORoot == "" {
			return fmt.Errorf("gpio root cannot be empty")
		}
		seen := make(map[int]input.Source)
		for _, src := range input.Buttons {
			pin := c.Pins()[src]
			if pin < 0 {
				return fmt.Errorf("invalid pin for %s button: %d", src, pin)
			}
			if other, dup := seen[pin]; dup {
				return fmt.Errorf("pin %d used by both %s and %s buttons", pin, other, src)
			}
			seen[pin] = src
		}
	case InputKeys:
	default:
		return fmt.Errorf("invalid input: %s", c.Buttons.Input)
	}

	if c.Buttons.DebounceMs < 1 {
		return fmt.Errorf("debounce must be at least 1ms, got: %dms", c.Buttons.DebounceMs)
	}

	if _, err := c.TranscriptFormat(); err != nil {
		return err
	}

	return nil
}

// ProfileInfo is a saved profile with its metadata
type ProfileInfo struct {
	Name        string      `toml:"name"`
	Config      PanelConfig `toml:"config"`
	CreatedAt   time.Time   `toml:"created_at"`
	LastUsedAt  time.Time   `toml:"last_used_at"`
	Description string      `toml:"description,omitempty"`
}

// Validate checks if the profile is valid
func (p ProfileInfo) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}

	if err := p.Config.Validate(); err != nil {
		return fmt.Errorf("invalid panel config: %w", err)
	}

	if p.CreatedAt.IsZero() {
		return fmt.Errorf("created_at timestamp cannot be zero")
	}

	return nil
}

// ProfileStorage is the on-disk layout of the profile file
type ProfileStorage struct {
	Version  string                 `toml:"version"`
	Profiles map[string]ProfileInfo `toml:"profiles"`
}

// FileConfigManager implements ConfigManager on a TOML file
type FileConfigManager struct {
	configDir  string
	configFile string
	now        func() time.Time
}

// NewFileConfigManager creates a profile store in configDir
func NewFileConfigManager(configDir string) *FileConfigManager {
	return &FileConfigManager{
		configDir:  configDir,
		configFile: "profiles.toml",
		now:        time.Now,
	}
}

// DefaultConfigDir returns the per-user profile directory
func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "quietude"), nil
}

// Initialize creates the configuration directory
func (fcm *FileConfigManager) Initialize() error {
	if err := os.MkdirAll(fcm.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// SaveConfig saves a profile under name, keeping the creation time and
// description of an existing one
func (fcm *FileConfigManager) SaveConfig(name string, config PanelConfig) error {
	if name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := fcm.Initialize(); err != nil {
		return err
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load existing configurations: %w", err)
	}

	now := fcm.now()
	info := ProfileInfo{
		Name:       name,
		Config:     config,
		CreatedAt:  now,
		LastUsedAt: now,
	}

	if existing, exists := storage.Profiles[name]; exists {
		info.CreatedAt = existing.CreatedAt
		info.Description = existing.Description
	}

	storage.Profiles[name] = info

	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	return nil
}

// LoadConfig loads a profile by name and marks it used
func (fcm *FileConfigManager) LoadConfig(name string) (PanelConfig, error) {
	info, err := fcm.GetConfig(name)
	if err != nil {
		return PanelConfig{}, err
	}

	if err := fcm.UpdateLastUsed(name); err != nil {
		log.Warn().Err(err).Str("profile", name).Msg("failed to update last used time")
	}

	return info.Config, nil
}

// GetConfig returns a profile with its metadata, without marking it used
func (fcm *FileConfigManager) GetConfig(name string) (ProfileInfo, error) {
	if name == "" {
		return ProfileInfo{}, fmt.Errorf("configuration name cannot be empty")
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return ProfileInfo{}, fmt.Errorf("failed to load configurations: %w", err)
	}

	info, exists := storage.Profiles[name]
	if !exists {
		return ProfileInfo{}, fmt.Errorf("configuration '%s' not found", name)
	}

	return info, nil
}

// UpdateLastUsed sets the last-used time of a profile to now
func (fcm *FileConfigManager) UpdateLastUsed(name string) error {
	storage, err := fcm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load configurations: %w", err)
	}

	info, exists := storage.Profiles[name]
	if !exists {
		return fmt.Errorf("configuration '%s' not found", name)
	}

	info.LastUsedAt = fcm.now()
	storage.Profiles[name] = info

	return fcm.saveStorage(storage)
}

// ListConfigs returns all saved profiles sorted by name
func (fcm *FileConfigManager) ListConfigs() ([]ProfileInfo, error) {
	storage, err := fcm.loadStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to load configurations: %w", err)
	}

	profiles := make([]ProfileInfo, 0, len(storage.Profiles))
	for _, info := range storage.Profiles {
		profiles = append(profiles, info)
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})

	return profiles, nil
}

// DeleteConfig deletes a profile by name
func (fcm *FileConfigManager) DeleteConfig(name string) error {
	if name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load configurations: %w", err)
	}

	if _, exists := storage.Profiles[name]; !exists {
		return fmt.Errorf("configuration '%s' not found", name)
	}

	delete(storage.Profiles, name)

	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save configurations after deletion: %w", err)
	}

	return nil
}

// ConfigExists checks if a profile with the given name exists
func (fcm *FileConfigManager) ConfigExists(name string) bool {
	if name == "" {
		return false
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return false
	}

	_, exists := storage.Profiles[name]
	return exists
}

// SetConfigDescription sets the description for a profile
func (fcm *FileConfigManager) SetConfigDescription(name, description string) error {
	if name == "" {
		return fmt.Errorf("configuration name cannot be empty")
	}

	storage, err := fcm.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load configurations: %w", err)
	}

	info, exists := storage.Profiles[name]
	if !exists {
		return fmt.Errorf("configuration '%s' not found", name)
	}

	info.Description = description
	storage.Profiles[name] = info

	if err := fcm.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save configuration description: %w", err)
	}

	return nil
}

// ExportConfig writes one profile to a standalone TOML file
func (fcm *FileConfigManager) ExportConfig(name, filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	info, err := fcm.GetConfig(name)
	if err != nil {
		return err
	}

	data, err := toml.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// ImportConfig saves the profile read from a TOML file written by
// ExportConfig
func (fcm *FileConfigManager) ImportConfig(filePath string) (string, error) {
	if filePath == "" {
		return "", fmt.Errorf("file path cannot be empty")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read configuration file: %w", err)
	}

	var info ProfileInfo
	if err := toml.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("failed to parse configuration file: %w", err)
	}

	if err := info.Validate(); err != nil {
		return "", fmt.Errorf("invalid configuration in file: %w", err)
	}

	if err := fcm.SaveConfig(info.Name, info.Config); err != nil {
		return "", err
	}

	if info.Description != "" {
		if err := fcm.SetConfigDescription(info.Name, info.Description); err != nil {
			return "", err
		}
	}

	return info.Name, nil
}

// GetConfigPath returns the full path to the profile file
func (fcm *FileConfigManager) GetConfigPath() string {
	return filepath.Join(fcm.configDir, fcm.configFile)
}

func (fcm *FileConfigManager) loadStorage() (ProfileStorage, error) {
	data, err := os.ReadFile(fcm.GetConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return ProfileStorage{
				Version:  storageVersion,
				Profiles: make(map[string]ProfileInfo),
			}, nil
		}
		return ProfileStorage{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var storage ProfileStorage
	if err := toml.Unmarshal(data, &storage); err != nil {
		return ProfileStorage{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if storage.Profiles == nil {
		storage.Profiles = make(map[string]ProfileInfo)
	}

	return storage, nil
}

// saveStorage writes the profile file through a temporary file and a
// rename so readers never see a partial file
func (fcm *FileConfigManager) saveStorage(storage ProfileStorage) error {
	configPath := fcm.GetConfigPath()

	data, err := toml.Marshal(storage)
	if err != nil {
		return fmt.Errorf("failed to marshal config data: %w", err)
	}

	tempPath := configPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary config file: %w", err)
	}

	return nil
}
