package flash

import (
	"time"

	"github.com/piotrjaromin/gpio"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var DefaultBaud = 115200
var DefaultTTY = "/dev/ttyACM0"

// DefaultVID is the USB vendor ID of ST-LINK virtual COM ports
var DefaultVID = "0483"

var DefaultStartTimeout = 30 * time.Second

// DefaultAckTimeout has to cover erasing a whole bank, as the device does not
// acknowledge the first chunk until it has been programmed
var DefaultAckTimeout = 10 * time.Second

// AutoTTY makes the loader pick the first matching USB serial port
const AutoTTY = "auto"

// Config defines configuration for communicating with the bootloader
type Config struct {
	// PowerGPIO, if set, is power cycled before an upload so the device
	// enters its bootloader
	PowerGPIO int

	BaudRate int
	TTY      string
	VID      string

	StartTimeout time.Duration
	AckTimeout   time.Duration
}

// Loader uploads firmware images to a device running the update engine
type Loader struct {
	config *Config

	pinPower gpio.Pin
	hasPower bool

	port *Port
	// attached ports are owned by the caller
	attached bool
}

// NewLoader will create a new loader with defaults filled in
func NewLoader(c *Config) *Loader {
	if c == nil {
		c = &Config{}
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = DefaultAckTimeout
	}
	if c.VID == "" {
		c.VID = DefaultVID
	}

	return &Loader{config: c}
}

// TTY will return the TTY that will be used
func (l *Loader) TTY() string {
	if l.config.TTY != "" {
		return l.config.TTY
	}
	return DefaultTTY
}

// BaudRate will return the baud rate used to connect to the TTY
func (l *Loader) BaudRate() int {
	if l.config.BaudRate > 0 {
		return l.config.BaudRate
	}
	return DefaultBaud
}

// Attach makes the loader use an already open port
func (l *Loader) Attach(p *Port) {
	l.port = p
	l.attached = true
}

// Open opens the serial port and claims the power pin
func (l *Loader) Open() (err error) {
	if l.config.PowerGPIO > 0 {
		l.pinPower, err = gpio.NewOutput(uint(l.config.PowerGPIO), true)
		if err != nil {
			return errors.Wrap(err, "could not setup power pin")
		}
		l.hasPower = true
	}

	tty := l.TTY()
	if tty == AutoTTY {
		ports, err := FindPorts(l.config.VID)
		if err != nil {
			l.Close()
			return err
		}
		l.port, tty, err = OpenFirst(ports, l.BaudRate())
		if err != nil {
			l.Close()
			return err
		}
	} else {
		l.port, err = OpenPort(tty, l.BaudRate())
		if err != nil {
			l.Close()
			return err
		}
	}
	l.attached = false

	logrus.Debugf("loader open on %s", tty)
	return nil
}

// Close will close the port and release the power pin
func (l *Loader) Close() error {
	var err error
	if l.port != nil && !l.attached {
		err = l.port.Close()
	}
	l.port = nil

	if l.hasPower {
		// leave the device powered
		l.pinPower.High()
		l.pinPower.Cleanup()
		l.hasPower = false
	}

	logrus.Debug("loader close")
	return err
}

// IsOpen reports whether the loader has a usable port
func (l *Loader) IsOpen() bool {
	return l.port != nil && l.port.IsOpen()
}

// powerCycle will drop power to the device so it restarts in its bootloader
func (l *Loader) powerCycle() {
	if !l.hasPower {
		return
	}
	l.pinPower.Low()
	time.Sleep(10 * time.Millisecond)
	l.pinPower.High()
}
