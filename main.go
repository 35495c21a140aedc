package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-looper/audio"
	"go-looper/config"
	"go-looper/debug"
	"go-looper/midi"
	"go-looper/sequencer"
	"go-looper/theme"
	"go-looper/tui"
)

var (
	configPath string
	debugPath  string
)

func main() {
	root := &cobra.Command{
		Use:          "go-looper",
		Short:        "Bar-quantized MIDI and audio live looper",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "INI configuration file")
	root.Flags().StringVarP(&debugPath, "debug", "d", "", "write a debug log to this path")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if debugPath == "" && cfg.App.Debug {
		debugPath = config.DebugLogPath()
	}
	if debugPath != "" {
		if err := debug.Enable(debugPath); err != nil {
			return fmt.Errorf("debug log: %w", err)
		}
		defer debug.Disable()
	}

	// Load theme
	var palette *theme.Palette
	if cfg.App.Palette != "" {
		if palette, err = theme.LoadGPL(cfg.App.Palette); err != nil {
			return fmt.Errorf("palette: %w", err)
		}
	}
	th := theme.New(palette)

	// Loaded song sets the tempo when bpm = 0
	var song *midi.Song
	tempo := cfg.Midi.BPM
	if cfg.Midi.FileToLoad != "" {
		if song, err = midi.ReadFile(cfg.Midi.FileToLoad); err != nil {
			return err
		}
		if tempo == 0 {
			tempo = song.Tempo
		}
	}
	if tempo <= 0 {
		return fmt.Errorf("%w: no tempo configured and none in %s", sequencer.ErrInvalidClock, cfg.Midi.FileToLoad)
	}

	format := audio.Format{SampleRate: cfg.Audio.SampleRate, Channels: cfg.Audio.Channels}

	voices := newVoiceLoader(format)
	inputs := &audioInputs{format: format, framesPerBuffer: cfg.Audio.FramesPerBuffer}
	defer inputs.Close()

	var out sequencer.MIDIOutput
	if cfg.Ports.OutputDevice != "" {
		port, err := midi.OpenOutput(cfg.Ports.OutputDevice)
		if err != nil {
			return fmt.Errorf("%w: midi output: %w", sequencer.ErrDeviceUnavailable, err)
		}
		defer port.Close()
		out = port
	}

	session, err := sequencer.NewSession(sequencer.Options{
		Tempo:        tempo,
		TicksPerBeat: cfg.Midi.TicksPerBeat,
		MIDIOut:      out,
		Recorders: []sequencer.Recorder{
			sequencer.NewMidiRecorder(cfg.Ports.InputDevice, openMIDIInput),
			sequencer.NewAudioRecorder(cfg.Audio.InputDevice, inputs.Open, voices),
		},
	})
	if err != nil {
		return err
	}

	if song != nil {
		tracks, err := sequencer.LoadMIDITracks(song, cfg.Midi.TicksPerBeat)
		if err != nil {
			return fmt.Errorf("load %s: %w", cfg.Midi.FileToLoad, err)
		}
		for _, t := range tracks {
			session.AddTrack(t)
		}
	}
	for _, path := range cfg.Audio.FilesToLoad {
		samples, wavFormat, err := audio.ReadWAV(path)
		if err != nil {
			return err
		}
		if wavFormat != format {
			debug.Log("audio", "%s is %+v, converting to %+v", path, wavFormat, format)
			samples = audio.Convert(samples, wavFormat, format)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t, err := sequencer.LoadAudioTrack(name, samples, format, tempo, cfg.Midi.TicksPerBeat, voices)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		session.AddTrack(t)
	}

	debug.Log("main", "session ready: %.2f bpm, %d tpb, %d tracks", tempo, cfg.Midi.TicksPerBeat, len(session.Tracks()))

	// Create sequencer manager
	store := sequencer.NewTakeStore(cfg.Midi.SaveDir, cfg.Audio.SaveDir)
	manager := sequencer.NewManager(session, store, song, cfg.App.PollInterval)
	manager.Start()
	defer manager.Stop()

	// Create MIDI device manager (handles hot-plug)
	deviceMgr := midi.NewDeviceManager()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go deviceMgr.Run(ctx)

	// Create and run TUI
	m := tui.NewModel(manager, deviceMgr, th)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
