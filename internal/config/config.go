// Package config loads and validates downbeat configuration files.
//
// A file is YAML (JSON is accepted as a subset) decoded over Default(), so
// it only needs to name the values it changes. Unknown keys are rejected.
// The decoded result is validated against the embedded CUE schema.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roach88/downbeat/internal/audio"
	"github.com/roach88/downbeat/internal/engine"
)

// Display modes.
const (
	DisplayScreen = "screen"
	DisplayLine   = "line"
)

// DefaultLineTemplate renders one line per fired beat.
const DefaultLineTemplate = `{{ .Glyph }} {{ add .Beat 1 }}/{{ .BeatsPerMeasure }}  {{ .BPM }} bpm  t={{ printf "%.3f" .Time }}`

// Config is the complete runtime configuration.
type Config struct {
	BPM             int           `yaml:"bpm" json:"bpm"`
	BeatsPerMeasure int           `yaml:"beats_per_measure" json:"beats_per_measure"`
	Timing          TimingConfig  `yaml:"timing" json:"timing"`
	Voice           VoiceConfig   `yaml:"voice" json:"voice"`
	Sink            SinkConfig    `yaml:"sink" json:"sink"`
	Display         DisplayConfig `yaml:"display" json:"display"`
}

// TimingConfig mirrors engine.Timing with file-friendly units.
type TimingConfig struct {
	LookaheadMS     float64 `yaml:"lookahead_ms" json:"lookahead_ms"`
	ScheduleAhead   float64 `yaml:"schedule_ahead" json:"schedule_ahead"`
	StartOffset     float64 `yaml:"start_offset" json:"start_offset"`
	FrameIntervalMS float64 `yaml:"frame_interval_ms" json:"frame_interval_ms"`
}

type VoiceConfig struct {
	Duration   float64 `yaml:"duration" json:"duration"`
	DownbeatHz float64 `yaml:"downbeat_hz" json:"downbeat_hz"`
	BeatHz     float64 `yaml:"beat_hz" json:"beat_hz"`
}

type SinkConfig struct {
	Kind     string     `yaml:"kind" json:"kind"`
	Volume   float64    `yaml:"volume" json:"volume"`
	BufferMS float64    `yaml:"buffer_ms" json:"buffer_ms"`
	MIDI     MIDIConfig `yaml:"midi" json:"midi"`
}

type MIDIConfig struct {
	Port        string `yaml:"port" json:"port"`
	Channel     uint8  `yaml:"channel" json:"channel"`
	DownbeatKey uint8  `yaml:"downbeat_key" json:"downbeat_key"`
	BeatKey     uint8  `yaml:"beat_key" json:"beat_key"`
	Velocity    uint8  `yaml:"velocity" json:"velocity"`
}

type DisplayConfig struct {
	Mode     string `yaml:"mode" json:"mode"`
	Template string `yaml:"template" json:"template"`
}

// Default returns the built-in configuration: 120 bpm in 4/4, the standard
// lookahead timing, oto output and the full-screen display.
func Default() Config {
	t := engine.DefaultTiming()
	v := engine.DefaultVoice()
	m := audio.DefaultMIDIOptions()
	return Config{
		BPM:             engine.DefaultBPM,
		BeatsPerMeasure: engine.DefaultBeatsPerMeasure,
		Timing: TimingConfig{
			LookaheadMS:     durationToMS(t.Lookahead),
			ScheduleAhead:   t.ScheduleAhead,
			StartOffset:     t.StartOffset,
			FrameIntervalMS: durationToMS(t.FrameInterval),
		},
		Voice: VoiceConfig{
			Duration:   v.Duration,
			DownbeatHz: v.DownbeatHz,
			BeatHz:     v.BeatHz,
		},
		Sink: SinkConfig{
			Kind:   audio.KindOto,
			Volume: 1,
			MIDI: MIDIConfig{
				Channel:     m.Channel,
				DownbeatKey: m.DownbeatKey,
				BeatKey:     m.BeatKey,
				Velocity:    m.Velocity,
			},
		},
		Display: DisplayConfig{
			Mode:     DisplayScreen,
			Template: DefaultLineTemplate,
		},
	}
}

// Load reads path from fs, decodes it over Default() and validates it.
// An empty file yields the defaults.
func Load(fs afero.Fs, path string) (Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over Default(), clamps tempo and meter, and validates
// the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Clamp()

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Clamp pulls tempo and meter into the engine's ranges. Out-of-range
// values are corrected, never rejected.
func (c *Config) Clamp() {
	c.BPM = engine.ClampBPM(c.BPM)
	c.BeatsPerMeasure = engine.ClampMeter(c.BeatsPerMeasure)
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// EngineTiming converts the timing section.
func (c Config) EngineTiming() engine.Timing {
	return engine.Timing{
		Lookahead:     msToDuration(c.Timing.LookaheadMS),
		ScheduleAhead: c.Timing.ScheduleAhead,
		StartOffset:   c.Timing.StartOffset,
		FrameInterval: msToDuration(c.Timing.FrameIntervalMS),
	}
}

// EngineOptions returns the engine options for tempo, timing and voice.
func (c Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithTempo(c.BPM, c.BeatsPerMeasure),
		engine.WithTiming(c.EngineTiming()),
		engine.WithVoice(engine.Voice{
			Duration:   c.Voice.Duration,
			DownbeatHz: c.Voice.DownbeatHz,
			BeatHz:     c.Voice.BeatHz,
		}),
	}
}

// AudioOptions returns the sink selection.
func (c Config) AudioOptions() audio.Options {
	return audio.Options{
		Kind: c.Sink.Kind,
		Oto: audio.OtoOptions{
			Volume:     c.Sink.Volume,
			BufferSize: msToDuration(c.Sink.BufferMS),
		},
		MIDI: audio.MIDIOptions{
			Port:        c.Sink.MIDI.Port,
			Channel:     c.Sink.MIDI.Channel,
			DownbeatKey: c.Sink.MIDI.DownbeatKey,
			BeatKey:     c.Sink.MIDI.BeatKey,
			Velocity:    c.Sink.MIDI.Velocity,
		},
	}
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}

func durationToMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
