package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultPath is read when no --config flag is given
const DefaultPath = "looper.conf"

// PortsConfig names the MIDI ports
type PortsConfig struct {
	InputDevice  string
	OutputDevice string
}

// MidiConfig holds clock and MIDI file settings
type MidiConfig struct {
	BPM          float64 // 0 takes the tempo from FileToLoad
	TicksPerBeat int
	FileToLoad   string
	SaveDir      string
}

// AudioConfig holds capture and WAV settings
type AudioConfig struct {
	InputDevice     string
	SampleRate      int
	Channels        int
	FramesPerBuffer int
	SaveDir         string
	FilesToLoad     []string
}

// AppConfig holds driver and UI settings
type AppConfig struct {
	PollInterval time.Duration
	Debug        bool
	Palette      string
}

// Config is the session configuration; it does not change once loaded.
type Config struct {
	Ports PortsConfig
	Midi  MidiConfig
	Audio AudioConfig
	App   AppConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("midi.bpm", 0)
	v.SetDefault("midi.ticks_per_beat", 192)
	v.SetDefault("midi.save_dir", "midi")
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.frames_per_buffer", 512)
	v.SetDefault("audio.save_dir", "audio")
	v.SetDefault("app.poll_interval", "500us")
	v.SetDefault("app.debug", false)
}

// Load reads an INI file. A missing file is an error: the session cannot
// start without a clock resolution.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{
		Ports: PortsConfig{
			InputDevice:  v.GetString("ports.input_device"),
			OutputDevice: v.GetString("ports.output_device"),
		},
		Midi: MidiConfig{
			BPM:          v.GetFloat64("midi.bpm"),
			TicksPerBeat: v.GetInt("midi.ticks_per_beat"),
			FileToLoad:   v.GetString("midi.file_to_load"),
			SaveDir:      v.GetString("midi.save_dir"),
		},
		Audio: AudioConfig{
			InputDevice:     v.GetString("audio.input_device"),
			SampleRate:      v.GetInt("audio.sample_rate"),
			Channels:        v.GetInt("audio.channels"),
			FramesPerBuffer: v.GetInt("audio.frames_per_buffer"),
			SaveDir:         v.GetString("audio.save_dir"),
			FilesToLoad:     splitList(v.GetString("audio.files_to_load")),
		},
		App: AppConfig{
			PollInterval: v.GetDuration("app.poll_interval"),
			Debug:        v.GetBool("app.debug"),
			Palette:      v.GetString("app.palette"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Validate rejects values the clock or the devices cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Midi.TicksPerBeat <= 0 {
		errs = append(errs, fmt.Errorf("midi.ticks_per_beat must be positive, got %d", c.Midi.TicksPerBeat))
	}
	if c.Midi.BPM < 0 {
		errs = append(errs, fmt.Errorf("midi.bpm must not be negative, got %v", c.Midi.BPM))
	}
	if c.Midi.BPM == 0 && c.Midi.FileToLoad == "" {
		errs = append(errs, errors.New("midi.bpm is 0 but no midi.file_to_load to take the tempo from"))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.Channels <= 0 {
		errs = append(errs, fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels))
	}
	if c.App.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("app.poll_interval must be positive, got %v", c.App.PollInterval))
	}
	return errors.Join(errs...)
}

// Dir returns ~/.config/go-looper
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-looper"), nil
}

// DebugLogPath returns the default debug log location
func DebugLogPath() string {
	dir, err := Dir()
	if err != nil {
		return "debug.log"
	}
	return filepath.Join(dir, "debug.log")
}
