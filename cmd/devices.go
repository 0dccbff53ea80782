package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"

	"github.com/0xlemi/eartrain/internal/audio"
	"github.com/0xlemi/eartrain/internal/midiin"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio and MIDI inputs",
	RunE: func(_ *cobra.Command, _ []string) error {
		defer midi.CloseDriver()

		devs, err := audio.InputDevices()
		if err != nil {
			return fmt.Errorf("query audio devices: %w", err)
		}
		fmt.Println("Audio inputs:")
		if len(devs) == 0 {
			fmt.Println("   (none)")
		}
		for _, d := range devs {
			mark := " "
			if d.Default {
				mark = "*"
			}
			fmt.Printf(" %s [%d] %s (%s)  %d ch, %.0f Hz\n", mark, d.Index, d.Name, d.HostAPI, d.Channels, d.SampleRate)
		}

		fmt.Println("MIDI inputs:")
		ports := midiin.ListPorts()
		if len(ports) == 0 {
			fmt.Println("   (none)")
		}
		for i, name := range ports {
			fmt.Printf("   [%d] %s\n", i, name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
