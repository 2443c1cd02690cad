//go:build linux

package input

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// DefaultGPIORoot is where the kernel exposes the sysfs GPIO interface
const DefaultGPIORoot = "/sys/class/gpio"

// GPIOLine is a sysfs GPIO input configured for rising-edge interrupts
type GPIOLine struct {
	source   Source
	pin      int
	root     string
	file     *os.File
	exported bool
}

// OpenGPIOLine exports pin if needed, configures it as a rising-edge input
// and opens its value file
func OpenGPIOLine(root string, pin int, source Source) (*GPIOLine, error) {
	if root == "" {
		root = DefaultGPIORoot
	}

	line := &GPIOLine{
		source: source,
		pin:    pin,
		root:   root,
	}

	if _, err := os.Stat(line.path("")); os.IsNotExist(err) {
		if err := writeSysfs(filepath.Join(root, "export"), strconv.Itoa(pin)); err != nil {
			return nil, fmt.Errorf("failed to export gpio %d: %w", pin, err)
		}
		line.exported = true

		if err := line.waitReady(time.Second); err != nil {
			line.unexport()
			return nil, err
		}
	}

	if err := writeSysfs(line.path("direction"), "in"); err != nil {
		line.unexport()
		return nil, fmt.Errorf("failed to set gpio %d direction: %w", pin, err)
	}

	if err := writeSysfs(line.path("edge"), "rising"); err != nil {
		line.unexport()
		return nil, fmt.Errorf("failed to set gpio %d edge: %w", pin, err)
	}

	file, err := os.Open(line.path("value"))
	if err != nil {
		line.unexport()
		return nil, fmt.Errorf("failed to open gpio %d value: %w", pin, err)
	}
	line.file = file

	// clear any edge latched before we started listening
	if _, err := line.ReadLevel(); err != nil {
		line.Close()
		return nil, err
	}

	log.Debug().Int("pin", pin).Stringer("source", source).Bool("exported", line.exported).Msg("gpio line opened")
	return line, nil
}

// Source returns the button this line drives
func (l *GPIOLine) Source() Source {
	return l.source
}

// Pin returns the kernel GPIO number
func (l *GPIOLine) Pin() int {
	return l.pin
}

// ReadLevel reads the current level, which also rearms the edge
// notification. It uses pread so the watcher and the debouncer never
// share a file offset.
func (l *GPIOLine) ReadLevel() (int, error) {
	if l.file == nil {
		return -1, fmt.Errorf("gpio %d is not open", l.pin)
	}

	buf := make([]byte, 2)
	n, err := unix.Pread(int(l.file.Fd()), buf, 0)
	if err != nil {
		return -1, fmt.Errorf("failed to read gpio %d: %w", l.pin, err)
	}

	level, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return -1, fmt.Errorf("unexpected gpio %d value %q", l.pin, buf[:n])
	}

	return level, nil
}

// Watch polls the value file for edge interrupts and reports each one
func (l *GPIOLine) Watch(ctx context.Context, out chan<- Edge) {
	fd := int32(l.file.Fd())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fds := []unix.PollFd{
			{Fd: fd, Events: unix.POLLPRI | unix.POLLERR},
		}

		// 100ms timeout so cancellation is noticed
		n, err := unix.Poll(fds, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			log.Error().Err(err).Int("pin", l.pin).Msg("gpio poll failed")
			return
		}

		if n == 0 || fds[0].Revents&unix.POLLPRI == 0 {
			continue
		}

		if _, err := l.ReadLevel(); err != nil {
			log.Warn().Err(err).Int("pin", l.pin).Msg("failed to rearm gpio")
		}

		select {
		case out <- Edge{Source: l.source, At: time.Now()}:
		case <-ctx.Done():
			return
		}
	}
}

// Close closes the value file and unexports the pin if we exported it
func (l *GPIOLine) Close() error {
	var err error
	if l.file != nil {
		err = l.file.Close()
		l.file = nil
	}
	l.unexport()
	return err
}

func (l *GPIOLine) path(attr string) string {
	dir := filepath.Join(l.root, fmt.Sprintf("gpio%d", l.pin))
	if attr == "" {
		return dir
	}
	return filepath.Join(dir, attr)
}

// waitReady waits for udev to hand over a freshly exported pin
func (l *GPIOLine) waitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(l.path("direction"), os.O_WRONLY, 0)
		if err == nil {
			f.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("gpio %d not ready after export: %w", l.pin, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (l *GPIOLine) unexport() {
	if !l.exported {
		return
	}
	if err := writeSysfs(filepath.Join(l.root, "unexport"), strconv.Itoa(l.pin)); err != nil {
		log.Warn().Err(err).Int("pin", l.pin).Msg("failed to unexport gpio")
	}
	l.exported = false
}

func writeSysfs(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(value)
	return err
}

// GPIOPanel is the five-button panel wired to sysfs GPIO lines
type GPIOPanel struct {
	lines map[Source]*GPIOLine
	wg    sync.WaitGroup
}

// OpenGPIOPanel opens one line per button. pins maps each button to its
// kernel GPIO number.
func OpenGPIOPanel(root string, pins map[Source]int) (*GPIOPanel, error) {
	panel := &GPIOPanel{lines: make(map[Source]*GPIOLine)}

	for _, src := range Buttons {
		pin, ok := pins[src]
		if !ok {
			panel.Close()
			return nil, fmt.Errorf("no gpio pin configured for %s", src)
		}

		line, err := OpenGPIOLine(root, pin, src)
		if err != nil {
			panel.Close()
			return nil, err
		}
		panel.lines[src] = line
	}

	return panel, nil
}

// Lines returns the button lines keyed by source
func (p *GPIOPanel) Lines() map[Source]EdgeLine {
	lines := make(map[Source]EdgeLine, len(p.lines))
	for src, line := range p.lines {
		lines[src] = line
	}
	return lines
}

// Watch starts one poller per line and returns once all have stopped
func (p *GPIOPanel) Watch(ctx context.Context, out chan<- Edge) {
	for _, line := range p.lines {
		p.wg.Add(1)
		go func(l *GPIOLine) {
			defer p.wg.Done()
			l.Watch(ctx, out)
		}(line)
	}
	p.wg.Wait()
}

// Close closes every line. Watch must have returned first.
func (p *GPIOPanel) Close() error {
	var firstErr error
	for _, line := range p.lines {
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
