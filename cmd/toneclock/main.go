// Command toneclock plays the time of day as sound, logging each musical
// event. It can also render a span of virtual time to a WAV file or mirror
// its notes to a MIDI output.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/cbegin/toneclock-go"
	"github.com/cbegin/toneclock-go/internal/arp"
	"github.com/cbegin/toneclock-go/internal/midiout"
	"github.com/cbegin/toneclock-go/internal/preset"
)

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		speed      = flag.Float64("speed", 1.0, "clock speed multiplier (0.1..10)")
		reverse    = flag.Bool("reverse", false, "run the clock backwards")
		startAt    = flag.String("start", "", "virtual start time HH:MM:SS (default: now)")
		volume     = flag.Float64("volume", 0, "master volume in dB (-60 mutes)")
		hourID     = flag.String("hour-preset", "H01", "hour layer preset id")
		minuteID   = flag.String("minute-preset", "M01", "minute layer preset id")
		secondID   = flag.String("second-preset", "S01", "second layer preset id")
		arpOn      = flag.Bool("arp", false, "enable the arpeggiator")
		arpPattern = flag.String("arp-pattern", "up", "arp pattern: up|down|updown|downup|random")
		arpBPM     = flag.Float64("arp-bpm", 120, "arp tempo")
		arpRate    = flag.String("arp-rate", "8n", "arp subdivision: 1n..16n, 8t, 16t")
		renderPath = flag.String("render", "", "render to a WAV file instead of playing live")
		renderSec  = flag.Float64("render-seconds", 60, "seconds of virtual time to render")
		midiPort   = flag.String("midi", "", "mirror notes to a MIDI output port (\"default\" = first)")
		listPreset = flag.Bool("list-presets", false, "print the preset library and exit")
	)
	flag.Parse()

	if *listPreset {
		for _, p := range preset.All() {
			fmt.Printf("%-4s %s\n", p.ID, p.Name)
		}
		return
	}

	start := time.Now()
	if *startAt != "" {
		parsed, err := time.Parse("15:04:05", *startAt)
		if err != nil {
			log.Fatalf("invalid -start %q: %v", *startAt, err)
		}
		start = time.Date(start.Year(), start.Month(), start.Day(),
			parsed.Hour(), parsed.Minute(), parsed.Second(), 0, start.Location())
	}

	if *renderPath != "" {
		samples, err := toneclock.RenderSeconds(*sampleRate, start, *renderSec)
		if err != nil {
			log.Fatal(err)
		}
		wav := toneclock.EncodeWAVFloat32LE(samples, *sampleRate, 2)
		if err := os.WriteFile(*renderPath, wav, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%.1fs at %d Hz)\n", *renderPath, *renderSec, *sampleRate)
		return
	}

	var opts []toneclock.Option
	mirror := midiout.New()
	if *midiPort != "" {
		name := *midiPort
		if name == "default" {
			name = ""
		}
		if err := mirror.Open(name); err != nil {
			log.Fatal(err)
		}
		defer mirror.Close()
		opts = append(opts, toneclock.WithMIDIMirror(mirror))
	}

	in, err := toneclock.New(*sampleRate, opts...)
	if err != nil {
		log.Fatal(err)
	}
	for layer, id := range map[string]string{
		toneclock.LayerHour:   *hourID,
		toneclock.LayerMinute: *minuteID,
		toneclock.LayerSecond: *secondID,
	} {
		p, ok := preset.Get(id)
		if !ok {
			log.Fatalf("unknown preset %q (see -list-presets)", id)
		}
		in.ApplyPreset(layer, p)
	}
	in.SetVirtual(start)
	in.SetSpeed(*speed)
	in.SetReverse(*reverse)
	in.SetMasterVolume(*volume)
	if *arpOn {
		enabled := true
		pattern := arp.Pattern(*arpPattern)
		in.SetArp(arp.Change{Enabled: &enabled, Pattern: &pattern, BPM: arpBPM, Rate: arpRate})
	}

	events := in.Watch()
	if err := in.Play(); err != nil {
		log.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case toneclock.EventSecondTick:
				fmt.Printf("%02d:%02d:%02d  second %s (hour %d)\n", ev.Time.Hour, ev.Time.Minute, ev.Time.Second, ev.Note, ev.HourPosition)
			case toneclock.EventMinuteTick:
				fmt.Printf("%02d:%02d:%02d  minute %s\n", ev.Time.Hour, ev.Time.Minute, ev.Time.Second, ev.Note)
			case toneclock.EventHourChange:
				fmt.Printf("%02d:%02d:%02d  hour %d chord %v\n", ev.Time.Hour, ev.Time.Minute, ev.Time.Second, ev.HourPosition, ev.Notes)
			case toneclock.EventArpNote:
				fmt.Printf("          arp %s\n", ev.Note)
			}
		case <-sig:
			in.Stop()
			return
		}
	}
}
