package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/synthread/go-dbfu/flash"
)

var rootCmd = &cobra.Command{
	Use:   "dbfu",
	Short: "dbfu updates dual-bank microcontrollers over a serial link",
	Long: `Sends application images to a device running the dual-bank firmware update
bootloader. The device programs the image into its inactive flash bank and
boots from it once the whole image has been received and verified.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseLog {
			logrus.SetLevel(logrus.DebugLevel)
		}
		if traceLog {
			logrus.SetLevel(logrus.TraceLevel)
		}
	},
}

var (
	verboseLog bool
	traceLog   bool

	flagTTY  string
	flagBaud int
)

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verboseLog, "verbose", "v", false, "Enable verbose debug logging")
	rootCmd.PersistentFlags().BoolVar(&traceLog, "trace", false, "Log every flash word and serial byte")
	rootCmd.PersistentFlags().StringVarP(&flagTTY, "tty", "t", flash.DefaultTTY, "Serial port to use ('auto' picks the first ST-LINK port)")
	rootCmd.PersistentFlags().IntVarP(&flagBaud, "baud", "b", flash.DefaultBaud, "Baud rate")

	uploadCmd.Flags().IntVar(&uploadPowerGPIO, "power-gpio", 0, "GPIO that powers the device, cycled to enter the bootloader (0 disables)")
	uploadCmd.Flags().DurationVar(&uploadStartTimeout, "start-timeout", flash.DefaultStartTimeout, "How long to wait for the device to request an update")
	uploadCmd.Flags().DurationVar(&uploadAckTimeout, "ack-timeout", flash.DefaultAckTimeout, "How long to wait for each chunk to be acknowledged")

	simulateCmd.Flags().StringVar(&simulateBank, "bank", "1", "Bank the emulated device boots from (1 or 2)")
	simulateCmd.Flags().DurationVar(&simulateEraseLatency, "erase-latency", 0, "Emulated erase latency per request")
	simulateCmd.Flags().DurationVar(&simulateProgramLatency, "program-latency", 0, "Emulated program latency per word")
	simulateCmd.Flags().IntVar(&simulateSessions, "sessions", 0, "Stop after this many successful updates (0 runs forever)")

	portsCmd.Flags().StringVar(&portsVID, "vid", flash.DefaultVID, "USB vendor ID to match (empty matches all)")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(portsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
}

func parseBank(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(s), "bank"))
	if err != nil || (n != 1 && n != 2) {
		return 0, fmt.Errorf("invalid bank %q", s)
	}
	return n, nil
}
