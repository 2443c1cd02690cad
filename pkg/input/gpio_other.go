//go:build !linux

package input

import (
	"context"
	"fmt"
)

// DefaultGPIORoot is where the kernel exposes the sysfs GPIO interface
const DefaultGPIORoot = "/sys/class/gpio"

// GPIOPanel is unavailable outside Linux
type GPIOPanel struct{}

// OpenGPIOPanel always fails outside Linux
func OpenGPIOPanel(root string, pins map[Source]int) (*GPIOPanel, error) {
	return nil, fmt.Errorf("sysfs gpio buttons are only supported on linux")
}

// Lines returns no lines
func (p *GPIOPanel) Lines() map[Source]EdgeLine { return nil }

// Watch returns immediately
func (p *GPIOPanel) Watch(ctx context.Context, out chan<- Edge) {}

// Close does nothing
func (p *GPIOPanel) Close() error { return nil }
