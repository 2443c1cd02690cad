package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quietude/pkg/history"
	"quietude/pkg/input"
	"quietude/pkg/serial"
)

func newTestManager(t *testing.T) *FileConfigManager {
	t.Helper()
	fcm := NewFileConfigManager(filepath.Join(t.TempDir(), "quietude"))
	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	fcm.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return fcm
}

func TestDefaultPanelConfig(t *testing.T) {
	cfg := DefaultPanelConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}

	if cfg.Serial.Port != "/dev/ttyACM0" || cfg.Serial.BaudRate != 115200 {
		t.Errorf("serial = %+v", cfg.Serial)
	}

	want := map[input.Source]int{
		input.Up: 50, input.Down: 48, input.Right: 51, input.Left: 49, input.Select: 117,
	}
	for src, pin := range want {
		if got := cfg.Pins()[src]; got != pin {
			t.Errorf("pin for %v = %d, want %d", src, got, pin)
		}
	}

	if cfg.Debounce() != 150*time.Millisecond {
		t.Errorf("Debounce() = %v, want 150ms", cfg.Debounce())
	}
}

func TestPanelConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*PanelConfig)
		wantErr string
	}{
		{"valid", func(c *PanelConfig) {}, ""},
		{"bad baud", func(c *PanelConfig) { c.Serial.BaudRate = 1234 }, "baud rate"},
		{"empty port", func(c *PanelConfig) { c.Serial.Port = "" }, "port"},
		{"negative retries", func(c *PanelConfig) { c.Serial.Retries = -1 }, "retries"},
		{"negative pin", func(c *PanelConfig) { c.Buttons.Select = -3 }, "invalid pin"},
		{"duplicate pin", func(c *PanelConfig) { c.Buttons.Down = c.Buttons.Up }, "used by both"},
		{"unknown input", func(c *PanelConfig) { c.Buttons.Input = "touch" }, "invalid input"},
		{"empty gpio root", func(c *PanelConfig) { c.Buttons.GPIORoot = "" }, "gpio root"},
		{"keys ignore pins", func(c *PanelConfig) {
			c.Buttons.Input = InputKeys
			c.Buttons.Down = c.Buttons.Up
		}, ""},
		{"negative debounce", func(c *PanelConfig) { c.Buttons.DebounceMs = -1 }, "debounce"},
		{"zero debounce", func(c *PanelConfig) { c.Buttons.DebounceMs = 0 }, "at least 1ms"},
		{"shortest debounce", func(c *PanelConfig) { c.Buttons.DebounceMs = 1 }, ""},
		{"bad transcript format", func(c *PanelConfig) { c.Transcript.Format = "xml" }, "transcript format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPanelConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPanelConfig_SerialRoundTrip(t *testing.T) {
	cfg := DefaultPanelConfig()
	sc := serial.SerialConfig{
		Port:     "/dev/ttyUSB1",
		BaudRate: 250000,
		DataBits: 7,
		StopBits: 2,
		Parity:   "even",
		Timeout:  500 * time.Millisecond,
	}

	cfg.SetSerialConfig(sc)

	if got := cfg.SerialConfig(); got != sc {
		t.Errorf("SerialConfig() = %+v, want %+v", got, sc)
	}
}

func TestPanelConfig_SetPins(t *testing.T) {
	cfg := DefaultPanelConfig()
	cfg.SetPins(map[input.Source]int{input.Up: 10, input.Select: 11})

	pins := cfg.Pins()
	if pins[input.Up] != 10 || pins[input.Select] != 11 || pins[input.Down] != 48 {
		t.Errorf("Pins() = %v", pins)
	}
}

func TestPanelConfig_TranscriptFormat(t *testing.T) {
	cfg := DefaultPanelConfig()
	cfg.Transcript.Format = ""

	format, err := cfg.TranscriptFormat()
	if err != nil || format != history.FormatTimestamped {
		t.Errorf("TranscriptFormat() = %v, %v, want timestamped", format, err)
	}

	cfg.Transcript.Format = "json"
	if format, _ := cfg.TranscriptFormat(); format != history.FormatJSON {
		t.Errorf("TranscriptFormat() = %v, want json", format)
	}
}

func TestProfileInfo_Validate(t *testing.T) {
	tests := []struct {
		name    string
		info    ProfileInfo
		wantErr bool
	}{
		{"valid", ProfileInfo{Name: "bench", Config: DefaultPanelConfig(), CreatedAt: time.Now()}, false},
		{"empty name", ProfileInfo{Config: DefaultPanelConfig(), CreatedAt: time.Now()}, true},
		{"zero created at", ProfileInfo{Name: "bench", Config: DefaultPanelConfig()}, true},
		{"invalid config", ProfileInfo{Name: "bench", CreatedAt: time.Now()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.info.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("ProfileInfo.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFileConfigManager_SaveLoad(t *testing.T) {
	fcm := newTestManager(t)

	cfg := DefaultPanelConfig()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.Buttons.Input = InputKeys
	cfg.Transcript.Path = "/tmp/session.log"

	if err := fcm.SaveConfig("bench", cfg); err != nil {
		t.Fatalf("SaveConfig() failed: %v", err)
	}

	if _, err := os.Stat(fcm.GetConfigPath()); err != nil {
		t.Fatalf("profile file not written: %v", err)
	}

	loaded, err := fcm.LoadConfig("bench")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if loaded != cfg {
		t.Errorf("LoadConfig() = %+v, want %+v", loaded, cfg)
	}

	data, _ := os.ReadFile(fcm.GetConfigPath())
	if !strings.Contains(string(data), "/dev/ttyUSB0") || !strings.Contains(string(data), "[profiles.bench") {
		t.Errorf("profile file is not the expected TOML:\n%s", data)
	}
}

func TestFileConfigManager_SaveInvalid(t *testing.T) {
	fcm := newTestManager(t)

	cfg := DefaultPanelConfig()
	cfg.Serial.BaudRate = 42

	if err := fcm.SaveConfig("bad", cfg); err == nil {
		t.Error("SaveConfig() should reject an invalid config")
	}
	if err := fcm.SaveConfig("", DefaultPanelConfig()); err == nil {
		t.Error("SaveConfig() should reject an empty name")
	}
}

func TestFileConfigManager_OverwriteKeepsMetadata(t *testing.T) {
	fcm := newTestManager(t)

	fcm.SaveConfig("bench", DefaultPanelConfig())
	fcm.SetConfigDescription("bench", "workshop printer")
	first, _ := fcm.GetConfig("bench")

	cfg := DefaultPanelConfig()
	cfg.Serial.BaudRate = 250000
	if err := fcm.SaveConfig("bench", cfg); err != nil {
		t.Fatalf("SaveConfig() failed: %v", err)
	}

	second, err := fcm.GetConfig("bench")
	if err != nil {
		t.Fatalf("GetConfig() failed: %v", err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", second.CreatedAt, first.CreatedAt)
	}
	if second.Description != "workshop printer" {
		t.Errorf("Description = %q", second.Description)
	}
	if second.Config.Serial.BaudRate != 250000 {
		t.Errorf("BaudRate = %d, want 250000", second.Config.Serial.BaudRate)
	}
}

func TestFileConfigManager_LoadUpdatesLastUsed(t *testing.T) {
	fcm := newTestManager(t)
	fcm.SaveConfig("bench", DefaultPanelConfig())
	before, _ := fcm.GetConfig("bench")

	if _, err := fcm.LoadConfig("bench"); err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	after, _ := fcm.GetConfig("bench")
	if !after.LastUsedAt.After(before.LastUsedAt) {
		t.Errorf("LastUsedAt = %v, want after %v", after.LastUsedAt, before.LastUsedAt)
	}
}

func TestFileConfigManager_ListDelete(t *testing.T) {
	fcm := newTestManager(t)

	profiles, err := fcm.ListConfigs()
	if err != nil || len(profiles) != 0 {
		t.Fatalf("ListConfigs() on empty store = %v, %v", profiles, err)
	}

	for _, name := range []string{"printer-b", "printer-a", "printer-c"} {
		if err := fcm.SaveConfig(name, DefaultPanelConfig()); err != nil {
			t.Fatalf("SaveConfig(%s) failed: %v", name, err)
		}
	}

	profiles, _ = fcm.ListConfigs()
	if len(profiles) != 3 || profiles[0].Name != "printer-a" || profiles[2].Name != "printer-c" {
		t.Errorf("ListConfigs() not sorted: %v", profiles)
	}

	if err := fcm.DeleteConfig("printer-b"); err != nil {
		t.Fatalf("DeleteConfig() failed: %v", err)
	}
	if fcm.ConfigExists("printer-b") {
		t.Error("deleted profile still exists")
	}
	if !fcm.ConfigExists("printer-a") {
		t.Error("other profiles should survive a delete")
	}

	if err := fcm.DeleteConfig("printer-b"); err == nil {
		t.Error("DeleteConfig() of a missing profile should fail")
	}
	if _, err := fcm.LoadConfig("missing"); err == nil {
		t.Error("LoadConfig() of a missing profile should fail")
	}
	if fcm.ConfigExists("") {
		t.Error("ConfigExists(\"\") should be false")
	}
}

func TestFileConfigManager_ExportImport(t *testing.T) {
	src := newTestManager(t)
	cfg := DefaultPanelConfig()
	cfg.Buttons.Up = 7
	src.SaveConfig("bench", cfg)
	src.SetConfigDescription("bench", "exported")

	exportPath := filepath.Join(t.TempDir(), "bench.toml")
	if err := src.ExportConfig("bench", exportPath); err != nil {
		t.Fatalf("ExportConfig() failed: %v", err)
	}

	dst := newTestManager(t)
	name, err := dst.ImportConfig(exportPath)
	if err != nil {
		t.Fatalf("ImportConfig() failed: %v", err)
	}
	if name != "bench" {
		t.Errorf("ImportConfig() name = %q, want bench", name)
	}

	info, err := dst.GetConfig("bench")
	if err != nil {
		t.Fatalf("GetConfig() failed: %v", err)
	}
	if info.Config != cfg || info.Description != "exported" {
		t.Errorf("imported = %+v", info)
	}
}

func TestFileConfigManager_CorruptFile(t *testing.T) {
	fcm := newTestManager(t)
	fcm.Initialize()

	if err := os.WriteFile(fcm.GetConfigPath(), []byte("profiles = [not toml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := fcm.ListConfigs(); err == nil {
		t.Error("ListConfigs() should fail on a corrupt file")
	}
	if err := fcm.SaveConfig("bench", DefaultPanelConfig()); err == nil {
		t.Error("SaveConfig() should not overwrite a corrupt file")
	}
}

func TestFileConfigManager_ImportInvalid(t *testing.T) {
	fcm := newTestManager(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(path, []byte("name = \"x\"\n"), 0644)

	if _, err := fcm.ImportConfig(path); err == nil {
		t.Error("ImportConfig() should reject a profile without a valid config")
	}
	if _, err := fcm.ImportConfig(""); err == nil {
		t.Error("ImportConfig() should reject an empty path")
	}
}
