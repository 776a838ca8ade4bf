package gpio

import "errors"

// FakeReader is a test double that returns scripted samples.
type FakeReader struct {
	// Samples are returned in order; the last one repeats.
	Samples []Sample

	index int

	Closed bool

	// ReadError, if set, is returned by Read.
	ReadError error
}

// Sample is one scripted reading.
type Sample struct {
	DisplayOn bool
	LowPower  bool
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() (bool, bool, error) {
	if f.ReadError != nil {
		return false, false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample.DisplayOn, sample.LowPower, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the first sample.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}
