// Command toneclock_ui is the graphical front end: a twelve-position clock
// face whose positions flare as the layers play, an oscilloscope fed from
// the master bus, and mouse controls for playback, speed, and presets.
package main

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/cbegin/toneclock-go"
	"github.com/cbegin/toneclock-go/internal/arp"
	"github.com/cbegin/toneclock-go/internal/preset"
	"github.com/cbegin/toneclock-go/internal/visual"
)

const (
	windowW      = 900
	windowH      = 640
	uiSampleRate = 48000

	ringBufLen = 65536
	scopeLen   = 1024
)

var (
	bgColor     = color.RGBA{12, 12, 20, 255}
	faceColor   = color.RGBA{40, 40, 60, 255}
	chordColor  = color.RGBA{90, 200, 250, 255}
	secondColor = color.RGBA{250, 220, 90, 255}
	minuteColor = color.RGBA{160, 120, 250, 255}
	arpColor    = color.RGBA{120, 250, 160, 255}
	scopeColor  = color.RGBA{90, 200, 250, 255}
	buttonColor = color.RGBA{40, 40, 60, 255}
	borderColor = color.RGBA{90, 90, 120, 255}
)

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// analyzer copies the master bus into a ring buffer on the audio thread so
// the draw loop can read a recent window without blocking audio.
type analyzer struct {
	mu       sync.Mutex
	ring     []float32
	writePos int
}

func newAnalyzer() *analyzer {
	return &analyzer{ring: make([]float32, ringBufLen)}
}

// Tap is called from the audio thread. Keep it minimal: just copy into ring.
func (a *analyzer) Tap(samples []float32) {
	a.mu.Lock()
	for i := 0; i+1 < len(samples); i += 2 {
		mono := (samples[i] + samples[i+1]) * 0.5
		a.ring[a.writePos] = mono
		a.writePos = (a.writePos + 1) % ringBufLen
	}
	a.mu.Unlock()
}

// Snapshot copies the most recent n samples.
func (a *analyzer) Snapshot(n int) []float32 {
	if n > ringBufLen {
		n = ringBufLen
	}
	out := make([]float32, n)
	a.mu.Lock()
	start := (a.writePos - n + ringBufLen) % ringBufLen
	for i := 0; i < n; i++ {
		out[i] = a.ring[(start+i)%ringBufLen]
	}
	a.mu.Unlock()
	return out
}

type game struct {
	in       *toneclock.Instrument
	scene    *visual.Scene
	analyzer *analyzer
	events   <-chan toneclock.Event

	hourPresets []preset.Preset
	hourIdx     int
	arpOn       bool
	speedNotch  int // -3..3, speed = 2^notch
	status      string

	lastFrame time.Time
}

func newGame() (*game, error) {
	scene := visual.NewScene()
	a := newAnalyzer()
	in, err := toneclock.New(uiSampleRate,
		toneclock.WithVisualEngine(scene),
		toneclock.WithSampleTap(a.Tap))
	if err != nil {
		return nil, err
	}
	var hourPresets []preset.Preset
	for _, p := range preset.All() {
		if strings.HasPrefix(p.ID, "H") {
			hourPresets = append(hourPresets, p)
		}
	}
	in.SetVirtual(time.Now())
	return &game{
		in:          in,
		scene:       scene,
		analyzer:    a,
		events:      in.Watch(),
		hourPresets: hourPresets,
		status:      "Press Play",
		lastFrame:   time.Now(),
	}, nil
}

func (g *game) Update() error {
	now := time.Now()
	g.scene.Advance(now.Sub(g.lastFrame).Seconds())
	g.lastFrame = now
	g.pollEvents()
	g.handleMouse()
	return nil
}

func (g *game) pollEvents() {
	for {
		select {
		case ev := <-g.events:
			switch ev.Kind {
			case toneclock.EventHourChange:
				g.status = fmt.Sprintf("hour %d: %s", ev.HourPosition, strings.Join(ev.Notes, " "))
			case toneclock.EventStopped:
				g.status = "Stopped"
			}
		default:
			return
		}
	}
}

func (g *game) handleMouse() {
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	switch {
	case pointInRect(mx, my, playRect()):
		g.togglePlay()
	case pointInRect(mx, my, reverseRect()):
		g.in.SetReverse(!g.in.Reversed())
	case pointInRect(mx, my, arpRect()):
		g.arpOn = !g.arpOn
		enabled := g.arpOn
		g.in.SetArp(arp.Change{Enabled: &enabled})
	case pointInRect(mx, my, presetRect()):
		g.hourIdx = (g.hourIdx + 1) % len(g.hourPresets)
		g.in.ApplyPreset(toneclock.LayerHour, g.hourPresets[g.hourIdx])
	case pointInRect(mx, my, slowerRect()):
		if g.speedNotch > -3 {
			g.speedNotch--
			g.in.SetSpeed(math.Pow(2, float64(g.speedNotch)))
		}
	case pointInRect(mx, my, fasterRect()):
		if g.speedNotch < 3 {
			g.speedNotch++
			g.in.SetSpeed(math.Pow(2, float64(g.speedNotch)))
		}
	}
}

func (g *game) togglePlay() {
	if g.in.Playing() {
		g.in.Stop()
		return
	}
	// Audio starts here, inside a click handler.
	if err := g.in.Play(); err != nil {
		g.status = "audio: " + err.Error()
		return
	}
	g.status = "Playing"
}

func playRect() image.Rectangle    { return image.Rect(20, windowH-60, 120, windowH-20) }
func reverseRect() image.Rectangle { return image.Rect(130, windowH-60, 230, windowH-20) }
func arpRect() image.Rectangle     { return image.Rect(240, windowH-60, 340, windowH-20) }
func presetRect() image.Rectangle  { return image.Rect(350, windowH-60, 510, windowH-20) }
func slowerRect() image.Rectangle  { return image.Rect(520, windowH-60, 570, windowH-20) }
func fasterRect() image.Rectangle  { return image.Rect(580, windowH-60, 630, windowH-20) }

func pointInRect(x, y int, r image.Rectangle) bool {
	return x >= r.Min.X && x < r.Max.X && y >= r.Min.Y && y < r.Max.Y
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	g.drawFace(screen)
	g.drawScope(screen)
	g.drawControls(screen)

	now := g.in.Now()
	state := g.in.State()
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%02d:%02d:%02d", now.Hour, now.Minute, now.Second), 20, 20)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("hour %d  %s  Q%d", state.Hour.Position, state.Hour.Name, state.Transposition+1), 20, 40)
	ebitenutil.DebugPrintAt(screen, g.status, 20, 60)
}

// drawFace renders the twelve pitch classes on a clock face; the standing
// chord is ringed, and layer pulses scale each dot.
func (g *game) drawFace(screen *ebiten.Image) {
	frame := g.scene.Snapshot()
	cx, cy := float32(windowW/2), float32(260)
	radius := float32(180)

	vector.StrokeCircle(screen, cx, cy, radius, 1, faceColor, true)
	for pc := 0; pc < 12; pc++ {
		angle := float64(pc)/12*2*math.Pi - math.Pi/2
		x := cx + radius*float32(math.Cos(angle))
		y := cy + radius*float32(math.Sin(angle))

		base := float32(6)
		vector.DrawFilledCircle(screen, x, y, base, faceColor, true)
		if frame.HourChord[pc] {
			vector.StrokeCircle(screen, x, y, base+4, 2, chordColor, true)
		}
		if v := frame.Second[pc]; v > 0 {
			vector.DrawFilledCircle(screen, x, y, base+10*float32(v), fade(secondColor, v), true)
		}
		if v := frame.Minute[pc]; v > 0 {
			vector.DrawFilledCircle(screen, x, y, base+14*float32(v), fade(minuteColor, v*0.7), true)
		}
		if v := frame.Arp[pc]; v > 0 {
			vector.DrawFilledCircle(screen, x, y, base+6*float32(v), fade(arpColor, v), true)
		}
		ebitenutil.DebugPrintAt(screen, pitchNames[pc], int(x)-6, int(y)-28)
	}
}

func (g *game) drawScope(screen *ebiten.Image) {
	samples := g.analyzer.Snapshot(scopeLen)
	top := float32(470)
	height := float32(80)
	mid := top + height/2
	vector.StrokeLine(screen, 20, mid, windowW-20, mid, 1, faceColor, true)
	w := float32(windowW - 40)
	step := float32(len(samples)) / w
	prevY := mid
	for x := 1; x < int(w); x++ {
		s := samples[int(float32(x)*step)]
		y := mid - s*height/2
		vector.StrokeLine(screen, 20+float32(x-1), prevY, 20+float32(x), y, 1, scopeColor, true)
		prevY = y
	}
}

func (g *game) drawControls(screen *ebiten.Image) {
	playLabel := "Play"
	if g.in.Playing() {
		playLabel = "Stop"
	}
	revLabel := "Fwd"
	if g.in.Reversed() {
		revLabel = "Rev"
	}
	arpLabel := "Arp off"
	if g.arpOn {
		arpLabel = "Arp on"
	}
	drawButton(screen, playRect(), playLabel)
	drawButton(screen, reverseRect(), revLabel)
	drawButton(screen, arpRect(), arpLabel)
	drawButton(screen, presetRect(), g.hourPresets[g.hourIdx].Name)
	drawButton(screen, slowerRect(), "<<")
	drawButton(screen, fasterRect(), ">>")
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("x%.3g", math.Pow(2, float64(g.speedNotch))), 640, windowH-48)
}

func drawButton(screen *ebiten.Image, r image.Rectangle, label string) {
	vector.DrawFilledRect(screen, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), buttonColor, false)
	vector.StrokeRect(screen, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), 1, borderColor, false)
	ebitenutil.DebugPrintAt(screen, label, r.Min.X+10, r.Min.Y+r.Dy()/2-6)
}

// fade scales a color by v. Ebiten treats RGBA as premultiplied, so every
// component is scaled, not just alpha.
func fade(c color.RGBA, v float64) color.RGBA {
	if v > 1 {
		v = 1
	}
	c.R = uint8(float64(c.R) * v)
	c.G = uint8(float64(c.G) * v)
	c.B = uint8(float64(c.B) * v)
	c.A = uint8(float64(c.A) * v)
	return c
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	return windowW, windowH
}

func main() {
	g, err := newGame()
	if err != nil {
		log.Fatal(err)
	}
	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowTitle("toneclock")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
