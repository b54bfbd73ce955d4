package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/synthread/go-dbfu/flash"
)

var portsVID string

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List USB serial ports a device may be attached to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := flash.FindPorts(portsVID)
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			return flash.ErrNoPorts
		}
		for _, p := range ports {
			fmt.Printf("%s\t%s:%s\t%s\n", p.Name, p.VID, p.PID, p.Serial)
		}
		return nil
	},
}
