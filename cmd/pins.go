package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/smazurov/pinnode/internal/pins"
	"github.com/spf13/cobra"
)

// CreatePinsCmd creates the pins command.
func CreatePinsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pins",
		Short: "Print the pin allow-list",
		Long:  `Prints the pins the device port will actuate and the joystick pins that are only ever sampled.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				return enc.Encode(map[string][]int{
					"allowed":  pins.Allowed(),
					"reserved": pins.Reserved(),
				})
			}
			fmt.Fprintf(out, "allowed:  %v\n", pins.Allowed())
			fmt.Fprintf(out, "reserved: %v (stick X, stick Y, button)\n", pins.Reserved())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
