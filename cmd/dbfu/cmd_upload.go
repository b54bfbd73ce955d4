package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synthread/go-dbfu/flash"
)

var (
	uploadPowerGPIO    int
	uploadStartTimeout time.Duration
	uploadAckTimeout   time.Duration
)

var uploadCmd = &cobra.Command{
	Use:   "upload [image]",
	Short: "Upload an application image (raw binary, optionally .xz compressed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		image, err := flash.ReadImage(path)
		if err != nil {
			return err
		}

		l := flash.NewLoader(&flash.Config{
			TTY:          flagTTY,
			BaudRate:     flagBaud,
			PowerGPIO:    uploadPowerGPIO,
			StartTimeout: uploadStartTimeout,
			AckTimeout:   uploadAckTimeout,
		})
		if err := l.Open(); err != nil {
			return err
		}
		defer l.Close()

		logrus.Infof("Uploading %s (%d bytes), waiting for device to initiate update...", path, len(image))
		err = l.Upload(image, func(p flash.Progress) {
			logrus.Infof("%.2f%% (%d/%d chunks)", float64(p.Sent)*100/float64(p.Total), p.Chunk, p.Chunks)
		})
		if err != nil {
			return err
		}

		logrus.Infof("Transfer complete, device is switching banks.")
		return nil
	},
}
