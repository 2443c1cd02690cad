package serial

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func validTestConfig() SerialConfig {
	return SerialConfig{
		Port:     "/dev/ttyACM0",
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
	}
}

func TestSerialConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *SerialConfig)
		wantErr bool
	}{
		{"valid config", func(c *SerialConfig) {}, false},
		{"printer baud rate", func(c *SerialConfig) { c.BaudRate = 250000 }, false},
		{"with timeout", func(c *SerialConfig) { c.Timeout = time.Second }, false},
		{"empty port", func(c *SerialConfig) { c.Port = "" }, true},
		{"invalid baud rate", func(c *SerialConfig) { c.BaudRate = 12345 }, true},
		{"invalid data bits", func(c *SerialConfig) { c.DataBits = 9 }, true},
		{"invalid stop bits", func(c *SerialConfig) { c.StopBits = 3 }, true},
		{"invalid parity", func(c *SerialConfig) { c.Parity = "invalid" }, true},
		{"negative timeout", func(c *SerialConfig) { c.Timeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validTestConfig()
			tt.modify(&config)

			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("SerialConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig() returned invalid config: %v", err)
	}

	if config.Port != DefaultPort {
		t.Errorf("DefaultConfig() Port = %s, want %s", config.Port, DefaultPort)
	}

	if config.BaudRate != 115200 {
		t.Errorf("DefaultConfig() BaudRate = %d, want 115200", config.BaudRate)
	}

	if config.Timeout != 0 {
		t.Errorf("DefaultConfig() Timeout = %v, want blocking reads", config.Timeout)
	}
}

func TestCrossPlatformSerialPort_NotOpen(t *testing.T) {
	port := NewCrossPlatformSerialPort()

	if port.IsOpen() {
		t.Error("New serial port should not be open")
	}

	if err := port.Close(); err == nil {
		t.Error("Closing not open port should return error")
	}

	if _, err := port.Read(make([]byte, 10)); err == nil {
		t.Error("Reading from not open port should return error")
	}

	if _, err := port.Write([]byte("G28\n")); err == nil {
		t.Error("Writing to not open port should return error")
	}
}

func TestCrossPlatformSerialPort_OpenInvalidConfig(t *testing.T) {
	port := NewCrossPlatformSerialPort()

	config := validTestConfig()
	config.Port = ""

	if err := port.Open(config); err == nil {
		t.Error("Opening with invalid config should return error")
	}

	if port.IsOpen() {
		t.Error("Port should not be open after failed open")
	}
}

func TestCrossPlatformSerialPort_DoubleOpen(t *testing.T) {
	port := NewCrossPlatformSerialPort()
	port.isOpen = true
	defer func() { port.isOpen = false }()

	if err := port.Open(validTestConfig()); err == nil {
		t.Error("Opening already open port should return error")
	}
}

func TestSerialError(t *testing.T) {
	cause := fmt.Errorf("device not found")

	tests := []struct {
		name     string
		err      *SerialError
		expected string
	}{
		{
			name:     "error with cause",
			err:      NewSerialError("open", "/dev/ttyACM0", cause),
			expected: "serial open operation failed on port /dev/ttyACM0: device not found",
		},
		{
			name:     "error without cause",
			err:      NewSerialError("read", "/dev/ttyUSB1", nil),
			expected: "serial read operation failed on port /dev/ttyUSB1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("SerialError.Error() = %v, want %v", got, tt.expected)
			}
		})
	}

	wrapped := fmt.Errorf("startup: %w", NewSerialError("open", "/dev/ttyACM0", cause))
	if !errors.Is(wrapped, cause) {
		t.Error("SerialError should unwrap to its cause")
	}

	var serialErr *SerialError
	if !errors.As(wrapped, &serialErr) || serialErr.Operation != "open" {
		t.Error("errors.As should find the SerialError")
	}
}

func TestRetryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  RetryConfig
		wantErr bool
	}{
		{"default", DefaultRetryConfig(), false},
		{"no retries", RetryConfig{MaxRetries: 0, BackoffFactor: 1}, false},
		{"negative retries", RetryConfig{MaxRetries: -1, BackoffFactor: 1}, true},
		{"negative interval", RetryConfig{RetryInterval: -time.Second, BackoffFactor: 1}, true},
		{"small backoff", RetryConfig{BackoffFactor: 0.5}, true},
		{
			name:    "max below interval",
			config:  RetryConfig{RetryInterval: time.Second, MaxInterval: time.Millisecond, BackoffFactor: 2},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("RetryConfig.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResilientSerialPort_InvalidConfig(t *testing.T) {
	rsp := NewResilientSerialPort(DefaultRetryConfig())

	var slept []time.Duration
	rsp.sleep = func(d time.Duration) { slept = append(slept, d) }

	config := validTestConfig()
	config.BaudRate = 1

	if err := rsp.OpenWithRetry(config); err == nil {
		t.Error("OpenWithRetry() with invalid config should fail")
	}

	if len(slept) != 0 {
		t.Errorf("OpenWithRetry() slept %v before validating", slept)
	}
}

func TestIsRecoverableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("open /dev/ttyACM0: no such file or directory"), true},
		{fmt.Errorf("Device Busy"), true},
		{fmt.Errorf("permission denied"), false},
		{NewSerialError("open", "/dev/ttyACM0", fmt.Errorf("resource temporarily unavailable")), true},
	}

	for _, tt := range tests {
		if got := isRecoverableError(tt.err); got != tt.want {
			t.Errorf("isRecoverableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
