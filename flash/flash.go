package flash

import (
	"github.com/pkg/errors"

	"github.com/synthread/go-dbfu/protocol"
)

// UploadFile will upload the image at filePath to the device
func (l *Loader) UploadFile(filePath string, progress ProgressFunc) error {
	bs, err := ReadImage(filePath)
	if err != nil {
		return err
	}
	return l.Upload(bs, progress)
}

// Upload will send the image to the device, which programs it into its
// inactive bank and boots from it once the transfer is complete
func (l *Loader) Upload(image []byte, progress ProgressFunc) error {
	if len(image) > protocol.MaxImageSize {
		return errors.Wrapf(protocol.ErrImageTooLarge, "%d bytes", len(image))
	}

	if !l.IsOpen() {
		if err := l.Open(); err != nil {
			return err
		}
		defer l.Close()
	}

	l.powerCycle()

	return l.dbfuUpload(image, progress)
}
