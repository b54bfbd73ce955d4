package flash

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.bug.st/serial/enumerator"
)

var ErrNoPorts = errors.New("no matching serial ports found")

// PortInfo describes a serial port that might have a device behind it
type PortInfo struct {
	Name   string
	VID    string
	PID    string
	Serial string
}

// FindPorts lists USB serial ports whose vendor ID matches vid. An empty vid
// matches every USB port.
func FindPorts(vid string) ([]PortInfo, error) {
	list, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "could not enumerate serial ports")
	}

	var ports []PortInfo
	for _, p := range list {
		if !p.IsUSB {
			continue
		}
		if vid != "" && !strings.EqualFold(p.VID, vid) {
			continue
		}
		ports = append(ports, PortInfo{
			Name:   p.Name,
			VID:    p.VID,
			PID:    p.PID,
			Serial: p.SerialNumber,
		})
	}

	return ports, nil
}

// OpenFirst opens the first of ports that can be opened and returns it along
// with its name
func OpenFirst(ports []PortInfo, baud int) (*Port, string, error) {
	if len(ports) == 0 {
		return nil, "", ErrNoPorts
	}

	var errs error
	for _, pi := range ports {
		p, err := OpenPort(pi.Name, baud)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		return p, pi.Name, nil
	}
	return nil, "", errs
}
