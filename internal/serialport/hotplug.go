package serialport

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"glovecap/internal/logging"
)

// PortEvent reports a serial device appearing or disappearing.
type PortEvent struct {
	Action string // "add" or "remove"
	Port   string
}

// HotplugMonitor listens for tty uevents and reports glove-like ports.
type HotplugMonitor struct {
	logger  *slog.Logger
	handler func(PortEvent)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewHotplugMonitor returns a monitor that calls handler for each matching
// add or remove event.
func NewHotplugMonitor(logger *slog.Logger, handler func(PortEvent)) *HotplugMonitor {
	return &HotplugMonitor{
		logger:  logging.NewComponentLogger(logger, "hotplug"),
		handler: handler,
	}
}

// Start connects to the kernel uevent socket. Failure is logged and
// non-fatal: explicit port configuration and discovery still work.
func (m *HotplugMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; hotplug detection disabled", "hotplug_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "plug the glove in before starting, or set serial.port"),
			logging.String(logging.FieldImpact, "glove arrival will not be noticed automatically"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, quit)

	m.logger.Debug("hotplug monitor started",
		logging.String(logging.FieldEventType, "hotplug_monitor_started"),
	)
	return nil
}

// Stop shuts the monitor down.
func (m *HotplugMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
}

// Running reports whether the monitor is active.
func (m *HotplugMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *HotplugMonitor) monitorLoop(ctx context.Context, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}

	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Debug("netlink monitor error", logging.Error(err))
		}
	}
}

// buildMatcher matches SUBSYSTEM=tty with ACTION=add|remove.
func buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "tty",
		},
	})
	return rules
}

func (m *HotplugMonitor) handleEvent(uevent netlink.UEvent) {
	port := deviceName(uevent)
	if port == "" || !MatchesPattern(port) {
		return
	}
	ev := PortEvent{Action: string(uevent.Action), Port: port}
	m.logger.Info("serial device "+ev.Action,
		logging.String(logging.FieldEventType, "hotplug_"+ev.Action),
		logging.String(logging.FieldPort, port),
	)
	if m.handler != nil {
		m.handler(ev)
	}
}

// deviceName resolves the /dev path of a uevent.
func deviceName(uevent netlink.UEvent) string {
	name := uevent.Env["DEVNAME"]
	if name == "" {
		devpath := uevent.Env["DEVPATH"]
		if devpath == "" {
			return ""
		}
		parts := strings.Split(devpath, "/")
		name = parts[len(parts)-1]
	}
	if name == "" {
		return ""
	}
	if !strings.HasPrefix(name, "/") {
		name = "/dev/" + name
	}
	return name
}

// WaitForPort blocks until a matching port is added or ctx is done.
func WaitForPort(ctx context.Context, logger *slog.Logger) (string, error) {
	if port, err := Discover(); err == nil {
		return port, nil
	}
	arrivals := make(chan string, 1)
	mon := NewHotplugMonitor(logger, func(ev PortEvent) {
		if ev.Action != "add" {
			return
		}
		select {
		case arrivals <- ev.Port:
		default:
		}
	})
	if err := mon.Start(ctx); err != nil {
		return "", err
	}
	defer mon.Stop()
	if !mon.Running() {
		return "", &ConnectionError{Op: "discover", Err: ErrPortNotFound}
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case port := <-arrivals:
		return port, nil
	}
}
