// Command devices lists and probes the MIDI and audio devices go-looper can
// use, so the names can be copied into looper.conf.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-looper/audio/capture"
	"go-looper/midi"
	"go-looper/sequencer"
)

func main() {
	root := &cobra.Command{
		Use:          "devices",
		Short:        "List and probe MIDI and audio devices",
		SilenceUsage: true,
	}
	root.AddCommand(listCmd(), monitorCmd(), watchCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List MIDI ports and audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ins, outs, err := listPorts(3 * time.Second)
			if err != nil {
				return err
			}
			fmt.Println("=== MIDI Input Ports ===")
			printNames(ins)
			fmt.Println("\n=== MIDI Output Ports ===")
			printNames(outs)

			if err := capture.Init(); err != nil {
				return fmt.Errorf("portaudio: %w", err)
			}
			defer capture.Terminate()
			devs, err := capture.Devices()
			if err != nil {
				return fmt.Errorf("audio devices: %w", err)
			}
			fmt.Println("\n=== Audio Input Devices ===")
			printNames(devs)
			return nil
		},
	}
}

// listPorts bounds the port scan; some MIDI backends hang while enumerating.
func listPorts(timeout time.Duration) (ins, outs []string, err error) {
	type result struct{ ins, outs []string }
	ch := make(chan result, 1)
	go func() {
		ch <- result{ins: midi.InPorts(), outs: midi.OutPorts()}
	}()
	select {
	case r := <-ch:
		return r.ins, r.outs, nil
	case <-time.After(timeout):
		return nil, nil, fmt.Errorf("midi port scan timed out after %v", timeout)
	}
}

func printNames(names []string) {
	if len(names) == 0 {
		fmt.Println("  (none)")
	}
	for i, n := range names {
		fmt.Printf("  %d: %s\n", i, n)
	}
}

func monitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor <input>",
		Short: "Print messages arriving on a MIDI input",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := midi.OpenInput(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", sequencer.ErrDeviceUnavailable, err)
			}
			defer in.Close()
			fmt.Printf("Listening on %s. Ctrl+C to exit.\n", in.Name())

			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
					for _, msg := range in.Pending() {
						fmt.Printf("[%s] % X\n", time.Now().Format("15:04:05.000"), msg)
					}
					if err := in.Err(); err != nil {
						return fmt.Errorf("%w: %w", sequencer.ErrCaptureInterrupted, err)
					}
				}
			}
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Report control surfaces as they connect and light their pads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Connect/disconnect a Launchpad to test. Ctrl+C to exit.")
			dm := midi.NewDeviceManager()
			go dm.Run(cmd.Context())

			for ev := range dm.Events() {
				stamp := time.Now().Format("15:04:05")
				switch ev.Type {
				case midi.DeviceConnected:
					fmt.Printf("[%s] connected: %s (%s)\n", stamp, ev.ID, ev.Controller.Type())
					if err := ev.Controller.SetLEDBatch(demoLEDs()); err != nil {
						fmt.Printf("  led test failed: %v\n", err)
					}
				case midi.DeviceDisconnected:
					fmt.Printf("[%s] disconnected: %s\n", stamp, ev.ID)
				}
			}
			return nil
		},
	}
}

// demoLEDs renders a session with every slot state on the first row, the
// same way the looper lights the grid.
func demoLEDs() []midi.LEDUpdate {
	st := sequencer.State{
		Playing: true,
		Beat:    1,
		Tracks: []sequencer.TrackState{
			{ID: 1, Enabled: true},
			{ID: 2, ChangeArmed: true},
			{ID: 3, Enabled: true, ChangeArmed: true},
			{ID: 4},
		},
	}
	var out []midi.LEDUpdate
	for _, led := range sequencer.RenderLEDs(st) {
		out = append(out, midi.LEDUpdate{Row: led.Row, Col: led.Col, Color: led.Color, Channel: led.Channel})
	}
	return out
}
