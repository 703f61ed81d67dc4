// Package midiout mirrors the instrument's note events to an external MIDI
// output so the clock can drive hardware or a DAW alongside its own synths.
// Each layer gets its own MIDI channel. The mirror is optional: a nil or
// unopened Mirror swallows every call, so callers wire it unconditionally.
package midiout

import (
	"fmt"
	"log"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/cbegin/toneclock-go/internal/theory"
)

// Layer channel assignment (0-based MIDI channels).
const (
	ChannelHour   = 0
	ChannelMinute = 1
	ChannelSecond = 2
	ChannelArp    = 3
)

// LayerChannel maps a layer id to its MIDI channel. Unknown layers land on
// the arp channel.
func LayerChannel(layer string) uint8 {
	switch layer {
	case "hour":
		return ChannelHour
	case "minute":
		return ChannelMinute
	case "second":
		return ChannelSecond
	default:
		return ChannelArp
	}
}

// Mirror forwards note on/off events to one MIDI output port.
type Mirror struct {
	mu   sync.Mutex
	send func(gomidi.Message) error
	held map[[2]uint8]bool // channel,key pairs with an outstanding note-on
}

// New returns a closed mirror; calls are no-ops until Open succeeds.
func New() *Mirror {
	return &Mirror{held: make(map[[2]uint8]bool)}
}

// Open connects to the named output port, or to the first available port
// when name is empty.
func (m *Mirror) Open(name string) error {
	var (
		out drivers.Out
		err error
	)
	if name == "" {
		ports := gomidi.GetOutPorts()
		if len(ports) == 0 {
			return fmt.Errorf("midiout: no output ports available")
		}
		out = ports[0]
	} else {
		out, err = gomidi.FindOutPort(name)
		if err != nil {
			return fmt.Errorf("midiout: find port %q: %w", name, err)
		}
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return fmt.Errorf("midiout: open port %q: %w", out.String(), err)
	}
	m.mu.Lock()
	m.send = send
	m.mu.Unlock()
	log.Printf("midiout: mirroring to %q", out.String())
	return nil
}

// Opened reports whether a port is connected.
func (m *Mirror) Opened() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.send != nil
}

// NoteOn mirrors a note-on for the layer. Unparseable notes are dropped.
func (m *Mirror) NoteOn(layer, note string, velocity uint8) {
	if m == nil {
		return
	}
	key, ok := theory.ParseNote(note)
	if !ok {
		return
	}
	ch := LayerChannel(layer)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.send == nil {
		return
	}
	if err := m.send(gomidi.NoteOn(ch, uint8(key), velocity)); err != nil {
		log.Printf("midiout: note on: %v", err)
		return
	}
	m.held[[2]uint8{ch, uint8(key)}] = true
}

// NoteOff mirrors a note-off for the layer.
func (m *Mirror) NoteOff(layer, note string) {
	if m == nil {
		return
	}
	key, ok := theory.ParseNote(note)
	if !ok {
		return
	}
	ch := LayerChannel(layer)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.send == nil {
		return
	}
	if err := m.send(gomidi.NoteOff(ch, uint8(key))); err != nil {
		log.Printf("midiout: note off: %v", err)
		return
	}
	delete(m.held, [2]uint8{ch, uint8(key)})
}

// ChordOn mirrors a set of simultaneous note-ons.
func (m *Mirror) ChordOn(layer string, notes []string, velocity uint8) {
	for _, n := range notes {
		m.NoteOn(layer, n, velocity)
	}
}

// ChordOff mirrors the matching note-offs.
func (m *Mirror) ChordOff(layer string, notes []string) {
	for _, n := range notes {
		m.NoteOff(layer, n)
	}
}

// Close silences anything still held, disconnects, and releases the driver.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.send != nil {
		for hk := range m.held {
			if err := m.send(gomidi.NoteOff(hk[0], hk[1])); err != nil {
				log.Printf("midiout: flush note off: %v", err)
			}
		}
		m.held = make(map[[2]uint8]bool)
		m.send = nil
		m.mu.Unlock()
		gomidi.CloseDriver()
		return
	}
	m.mu.Unlock()
}
