//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the switches through the Linux GPIO character device.
type RealReader struct {
	chip     *gpiocdev.Chip
	display  *gpiocdev.Line
	lowPower *gpiocdev.Line
}

// NewRealReader requests both lines as pulled-down inputs on chip.
func NewRealReader(chipName string, pinDisplay, pinLowPower int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	display, err := chip.RequestLine(pinDisplay, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request display pin %d: %w", pinDisplay, err)
	}

	lowPower, err := chip.RequestLine(pinLowPower, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		display.Close()
		chip.Close()
		return nil, fmt.Errorf("request low-power pin %d: %w", pinLowPower, err)
	}

	return &RealReader{chip: chip, display: display, lowPower: lowPower}, nil
}

// Read returns the line levels. Both switches are active high.
func (r *RealReader) Read() (bool, bool, error) {
	displayRaw, err := r.display.Value()
	if err != nil {
		return false, false, fmt.Errorf("read display pin: %w", err)
	}
	lowRaw, err := r.lowPower.Value()
	if err != nil {
		return false, false, fmt.Errorf("read low-power pin: %w", err)
	}
	return displayRaw == 1, lowRaw == 1, nil
}

// Close returns the lines to pulled-down inputs and releases them.
func (r *RealReader) Close() error {
	var errs []error
	for name, line := range map[string]*gpiocdev.Line{"display": r.display, "low-power": r.lowPower} {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
