// Package gpio reads the companion display's host switches: the display
// power line and the low-power (ambient) switch.
package gpio

// Reader reads the host switch levels.
type Reader interface {
	// Read returns whether the display is powered and whether the
	// low-power switch is engaged. Values are already in logical form.
	Read() (displayOn, lowPower bool, err error)

	// Close releases GPIO resources.
	Close() error
}

// Default pins (BCM numbering).
const (
	PinDisplay  = 26
	PinLowPower = 16
)

// Fixed reports the same levels forever. Used when no switches are wired.
type Fixed struct {
	DisplayOn bool
	LowPower  bool
}

// Read returns the fixed levels.
func (f Fixed) Read() (bool, bool, error) {
	return f.DisplayOn, f.LowPower, nil
}

// Close is a no-op.
func (Fixed) Close() error { return nil }
