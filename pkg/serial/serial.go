// Package serial provides the serial link to the firmware device
package serial

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// DefaultPort is the device node a USB-attached printer controller shows up as
const DefaultPort = "/dev/ttyACM0"

// SerialConfig defines the configuration for serial port communication
type SerialConfig struct {
	Port     string        `json:"port"`
	BaudRate int           `json:"baud_rate"`
	DataBits int           `json:"data_bits"`
	StopBits int           `json:"stop_bits"`
	Parity   string        `json:"parity"`
	Timeout  time.Duration `json:"timeout"`
}

var validBaudRates = []int{9600, 19200, 38400, 57600, 115200, 230400, 250000, 460800, 921600}

var validParities = []string{"none", "odd", "even", "mark", "space"}

// Validate checks if the serial configuration is valid
func (c SerialConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}

	validBaud := false
	for _, rate := range validBaudRates {
		if c.BaudRate == rate {
			validBaud = true
			break
		}
	}
	if !validBaud {
		return fmt.Errorf("invalid baud rate: %d", c.BaudRate)
	}

	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("data bits must be between 5 and 8, got: %d", c.DataBits)
	}

	if c.StopBits < 1 || c.StopBits > 2 {
		return fmt.Errorf("stop bits must be 1 or 2, got: %d", c.StopBits)
	}

	validParity := false
	for _, p := range validParities {
		if c.Parity == p {
			validParity = true
			break
		}
	}
	if !validParity {
		return fmt.Errorf("invalid parity: %s", c.Parity)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	return nil
}

// DefaultConfig returns the 115200 8N1 link the printer firmware expects.
// A zero Timeout keeps reads blocking, which the line reader relies on to
// tell an idle link from a closed one.
func DefaultConfig() SerialConfig {
	return SerialConfig{
		Port:     DefaultPort,
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
		Timeout:  0,
	}
}

// SerialPort interface defines the contract for serial port operations
type SerialPort interface {
	Open(config SerialConfig) error
	Close() error
	Read(buffer []byte) (int, error)
	Write(data []byte) (int, error)
	IsOpen() bool
	GetConfig() SerialConfig
}

// CrossPlatformSerialPort implements SerialPort using go.bug.st/serial
type CrossPlatformSerialPort struct {
	port   serial.Port
	config SerialConfig
	isOpen bool
}

// NewCrossPlatformSerialPort creates a new cross-platform serial port instance
func NewCrossPlatformSerialPort() *CrossPlatformSerialPort {
	return &CrossPlatformSerialPort{}
}

// Open opens the serial port and discards anything the device sent before
// we were listening
func (sp *CrossPlatformSerialPort) Open(config SerialConfig) error {
	if sp.isOpen {
		return fmt.Errorf("serial port is already open")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		StopBits: convertStopBits(config.StopBits),
		Parity:   convertParity(config.Parity),
	}

	port, err := serial.Open(config.Port, mode)
	if err != nil {
		return NewSerialError("open", config.Port, err)
	}

	if config.Timeout > 0 {
		if err := port.SetReadTimeout(config.Timeout); err != nil {
			port.Close()
			return NewSerialError("set read timeout", config.Port, err)
		}
	}

	if err := port.ResetInputBuffer(); err != nil {
		log.Warn().Err(err).Str("port", config.Port).Msg("failed to flush input buffer")
	}

	sp.port = port
	sp.config = config
	sp.isOpen = true

	log.Info().Str("port", config.Port).Int("baud", config.BaudRate).Msg("serial port opened")
	return nil
}

// Close closes the serial port
func (sp *CrossPlatformSerialPort) Close() error {
	if !sp.isOpen {
		return fmt.Errorf("serial port is not open")
	}

	err := sp.port.Close()
	sp.port = nil
	sp.isOpen = false

	if err != nil {
		return NewSerialError("close", sp.config.Port, err)
	}

	return nil
}

// Read reads data from the serial port
func (sp *CrossPlatformSerialPort) Read(buffer []byte) (int, error) {
	if !sp.isOpen {
		return 0, fmt.Errorf("serial port is not open")
	}

	n, err := sp.port.Read(buffer)
	if err != nil {
		return n, NewSerialError("read", sp.config.Port, err)
	}

	return n, nil
}

// Write writes data to the serial port
func (sp *CrossPlatformSerialPort) Write(data []byte) (int, error) {
	if !sp.isOpen {
		return 0, fmt.Errorf("serial port is not open")
	}

	n, err := sp.port.Write(data)
	if err != nil {
		return n, NewSerialError("write", sp.config.Port, err)
	}

	return n, nil
}

// IsOpen returns true if the serial port is open
func (sp *CrossPlatformSerialPort) IsOpen() bool {
	return sp.isOpen
}

// GetConfig returns the current serial port configuration
func (sp *CrossPlatformSerialPort) GetConfig() SerialConfig {
	return sp.config
}

func convertStopBits(stopBits int) serial.StopBits {
	switch stopBits {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

func convertParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

// PortInfo contains information about a serial port
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// GetDetailedPortsList returns the available ports with USB details where
// the platform exposes them
func GetDetailedPortsList() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get ports list: %w", err)
	}

	portInfos := make([]PortInfo, 0, len(details))
	for _, d := range details {
		portInfos = append(portInfos, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}

	return portInfos, nil
}

// ListPorts returns the names of the serial ports on the system
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// SerialError represents a serial port specific error
type SerialError struct {
	Operation string
	Port      string
	Cause     error
}

// Error implements the error interface
func (e *SerialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("serial %s operation failed on port %s: %v", e.Operation, e.Port, e.Cause)
	}
	return fmt.Sprintf("serial %s operation failed on port %s", e.Operation, e.Port)
}

// Unwrap returns the underlying cause
func (e *SerialError) Unwrap() error {
	return e.Cause
}

// NewSerialError creates a new serial error
func NewSerialError(operation, port string, cause error) *SerialError {
	return &SerialError{
		Operation: operation,
		Port:      port,
		Cause:     cause,
	}
}

// RetryConfig defines how opening the port is retried at startup
type RetryConfig struct {
	MaxRetries    int           `json:"max_retries"`
	RetryInterval time.Duration `json:"retry_interval"`
	BackoffFactor float64       `json:"backoff_factor"`
	MaxInterval   time.Duration `json:"max_interval"`
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		RetryInterval: time.Second,
		BackoffFactor: 2.0,
		MaxInterval:   time.Second * 10,
	}
}

// Validate checks if the retry configuration is valid
func (r RetryConfig) Validate() error {
	if r.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if r.RetryInterval < 0 {
		return fmt.Errorf("retry interval cannot be negative")
	}

	if r.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff factor must be >= 1.0")
	}

	if r.MaxInterval < r.RetryInterval {
		return fmt.Errorf("max interval cannot be less than retry interval")
	}

	return nil
}

// ResilientSerialPort opens the underlying port with retry and backoff.
// A controller that is still enumerating on USB after power-up is the
// common reason for a first open to fail.
type ResilientSerialPort struct {
	*CrossPlatformSerialPort
	retryConfig RetryConfig
	sleep       func(time.Duration)
}

// NewResilientSerialPort creates a new resilient serial port
func NewResilientSerialPort(retryConfig RetryConfig) *ResilientSerialPort {
	return &ResilientSerialPort{
		CrossPlatformSerialPort: NewCrossPlatformSerialPort(),
		retryConfig:             retryConfig,
		sleep:                   time.Sleep,
	}
}

// OpenWithRetry opens the serial port, retrying recoverable failures
func (rsp *ResilientSerialPort) OpenWithRetry(config SerialConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := rsp.retryConfig.Validate(); err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}

	var lastErr error
	interval := rsp.retryConfig.RetryInterval

	for attempt := 0; attempt <= rsp.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Debug().Int("attempt", attempt).Dur("wait", interval).Str("port", config.Port).Msg("retrying serial open")
			rsp.sleep(interval)
			interval = time.Duration(float64(interval) * rsp.retryConfig.BackoffFactor)
			if interval > rsp.retryConfig.MaxInterval {
				interval = rsp.retryConfig.MaxInterval
			}
		}

		err := rsp.CrossPlatformSerialPort.Open(config)
		if err == nil {
			return nil
		}

		lastErr = err
		if !isRecoverableError(err) {
			break
		}
	}

	return fmt.Errorf("failed to open serial port after %d attempts: %w", rsp.retryConfig.MaxRetries+1, lastErr)
}

// isRecoverableError reports whether an open failure may go away on its own
func isRecoverableError(err error) bool {
	if err == nil {
		return false
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy, serial.PortNotFound:
			return true
		}
	}

	errorStr := strings.ToLower(err.Error())
	recoverablePatterns := []string{
		"device busy",
		"resource temporarily unavailable",
		"timeout",
		"no such device",
		"no such file",
	}

	for _, pattern := range recoverablePatterns {
		if strings.Contains(errorStr, pattern) {
			return true
		}
	}

	return false
}
