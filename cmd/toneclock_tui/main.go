// Command toneclock_tui is a terminal front end for the instrument: a live
// clock readout, the active trichord, and a pitch-class activity row, with
// key bindings for speed, direction, presets, and the arpeggiator.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/toneclock-go"
	"github.com/cbegin/toneclock-go/internal/arp"
	"github.com/cbegin/toneclock-go/internal/preset"
	"github.com/cbegin/toneclock-go/internal/visual"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	chordStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	pulseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

var pitchRow = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

type engineEventMsg toneclock.Event

type frameMsg time.Time

type model struct {
	in       *toneclock.Instrument
	scene    *visual.Scene
	events   <-chan toneclock.Event
	lastDraw time.Time

	hourPresets []preset.Preset
	hourIdx     int
	arpOn       bool
	lastEvent   string
	quitting    bool
}

func listenForEvents(events <-chan toneclock.Event) tea.Cmd {
	return func() tea.Msg {
		return engineEventMsg(<-events)
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func newModel(in *toneclock.Instrument, scene *visual.Scene) model {
	var hourPresets []preset.Preset
	for _, p := range preset.All() {
		if strings.HasPrefix(p.ID, "H") {
			hourPresets = append(hourPresets, p)
		}
	}
	return model{
		in:          in,
		scene:       scene,
		events:      in.Watch(),
		lastDraw:    time.Now(),
		hourPresets: hourPresets,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(listenForEvents(m.events), frameTick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.in.Stop()
			return m, tea.Quit

		case " ", "p":
			if m.in.Playing() {
				m.in.Stop()
			} else if err := m.in.Play(); err != nil {
				m.lastEvent = "audio: " + err.Error()
			}

		case "+", "=":
			m.in.SetSpeed(m.in.Speed() * 2)
		case "-", "_":
			m.in.SetSpeed(m.in.Speed() / 2)
		case "1":
			m.in.SetSpeed(1)

		case "r":
			m.in.SetReverse(!m.in.Reversed())

		case "a":
			m.arpOn = !m.arpOn
			enabled := m.arpOn
			m.in.SetArp(arp.Change{Enabled: &enabled})

		case "h":
			if len(m.hourPresets) > 0 {
				m.hourIdx = (m.hourIdx + 1) % len(m.hourPresets)
				m.in.ApplyPreset(toneclock.LayerHour, m.hourPresets[m.hourIdx])
			}
		}

	case engineEventMsg:
		ev := toneclock.Event(msg)
		switch ev.Kind {
		case toneclock.EventHourChange:
			m.lastEvent = fmt.Sprintf("hour %d  chord %s", ev.HourPosition, strings.Join(ev.Notes, " "))
		case toneclock.EventMinuteTick:
			m.lastEvent = "minute " + ev.Note
		case toneclock.EventArpNote:
			m.lastEvent = "arp " + ev.Note
		}
		return m, listenForEvents(m.events)

	case frameMsg:
		now := time.Time(msg)
		m.scene.Advance(now.Sub(m.lastDraw).Seconds())
		m.lastDraw = now
		return m, frameTick()
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	now := m.in.Now()
	state := m.in.State()
	frame := m.scene.Snapshot()

	playState := "STOP"
	if m.in.Playing() {
		playState = "PLAY"
	}
	dir := ""
	if m.in.Reversed() {
		dir = "  <<"
	}
	header := accentStyle.Render(fmt.Sprintf("toneclock  %s  %02d:%02d:%02d  x%.2g%s",
		playState, now.Hour, now.Minute, now.Second, m.in.Speed(), dir))

	chord := make([]string, 0, 3)
	for _, pc := range state.Trichord {
		chord = append(chord, pitchRow[pc])
	}
	hourLine := chordStyle.Render(fmt.Sprintf("hour %2d  %-22s  chord %s  (Q%d)",
		state.Hour.Position, state.Hour.Name, strings.Join(chord, " "), state.Transposition+1))

	var row strings.Builder
	for pc := 0; pc < 12; pc++ {
		glow := frame.Second[pc] + frame.Minute[pc] + frame.Arp[pc]
		cell := fmt.Sprintf(" %-2s", pitchRow[pc])
		switch {
		case frame.HourChord[pc]:
			row.WriteString(chordStyle.Render(cell))
		case glow > 0.1:
			row.WriteString(pulseStyle.Render(cell))
		default:
			row.WriteString(dimStyle.Render(cell))
		}
	}

	hp := m.hourPresets[m.hourIdx]
	status := dimStyle.Render(fmt.Sprintf("hour preset: %s %s   %s", hp.ID, hp.Name, m.lastEvent))
	help := dimStyle.Render("space:play/stop  +/-:speed  1:realtime  r:reverse  a:arp  h:hour preset  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(hourLine)
	out.WriteString("\n\n")
	out.WriteString(row.String())
	out.WriteString("\n\n")
	out.WriteString(status)
	out.WriteString("\n")
	out.WriteString(help)
	return out.String()
}

func main() {
	scene := visual.NewScene()
	in, err := toneclock.New(48000, toneclock.WithVisualEngine(scene))
	if err != nil {
		log.Fatal(err)
	}
	p := tea.NewProgram(newModel(in, scene))
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
