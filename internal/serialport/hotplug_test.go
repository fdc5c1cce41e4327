package serialport

import (
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestDeviceName(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"devname absolute", map[string]string{"DEVNAME": "/dev/ttyACM0"}, "/dev/ttyACM0"},
		{"devname bare", map[string]string{"DEVNAME": "ttyUSB1"}, "/dev/ttyUSB1"},
		{"devpath fallback", map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/1-1/tty/ttyACM2"}, "/dev/ttyACM2"},
		{"nothing", map[string]string{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := deviceName(netlink.UEvent{Env: tc.env}); got != tc.want {
				t.Fatalf("deviceName = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHandleEventFiltersNonGlovePorts(t *testing.T) {
	var got []PortEvent
	m := NewHotplugMonitor(nil, func(ev PortEvent) { got = append(got, ev) })

	m.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"DEVNAME": "/dev/tty5"}})
	m.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"DEVNAME": "/dev/ttyACM0"}})
	m.handleEvent(netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"DEVNAME": "/dev/ttyACM0"}})

	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %+v", got)
	}
	if got[0].Action != "add" || got[1].Action != "remove" || got[0].Port != "/dev/ttyACM0" {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestHotplugMonitorNilSafety(t *testing.T) {
	var m *HotplugMonitor
	m.Stop()
	if m.Running() {
		t.Fatal("nil monitor should not be running")
	}
	if err := m.Start(t.Context()); err != nil {
		t.Fatalf("Start on nil monitor: %v", err)
	}
}

func TestBuildMatcherAcceptsTTYEvents(t *testing.T) {
	matcher := buildMatcher()
	if matcher == nil {
		t.Fatal("expected non-nil matcher")
	}
	add := netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "tty", "DEVNAME": "ttyACM0"}}
	if !matcher.Evaluate(add) {
		t.Fatal("expected tty add event to match")
	}
	block := netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "block"}}
	if matcher.Evaluate(block) {
		t.Fatal("block events must not match")
	}
}
