package input

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Event types and codes from linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport = 0x00

	btnTouch = 0x14a

	absX           = 0x00
	absY           = 0x01
	absMTPositionX = 0x35
	absMTPositionY = 0x36
)

// timevalSize is the size of struct timeval: two C longs, which match Go's int on Linux.
const timevalSize = 2 * strconv.IntSize / 8

// EventSize is the size of struct input_event on this platform.
const EventSize = timevalSize + 8

// RawEvent is a decoded struct input_event.
type RawEvent struct {
	Time  time.Time
	Type  uint16
	Code  uint16
	Value int32
}

// ParseEvent decodes one input_event record in native (little-endian) order.
func ParseEvent(b []byte) (RawEvent, error) {
	if len(b) < EventSize {
		return RawEvent{}, fmt.Errorf("short input event: %d bytes", len(b))
	}
	var sec, usec int64
	if timevalSize == 16 {
		sec = int64(binary.LittleEndian.Uint64(b[0:8]))
		usec = int64(binary.LittleEndian.Uint64(b[8:16]))
	} else {
		sec = int64(int32(binary.LittleEndian.Uint32(b[0:4])))
		usec = int64(int32(binary.LittleEndian.Uint32(b[4:8])))
	}
	o := timevalSize
	return RawEvent{
		Time:  time.Unix(sec, usec*int64(time.Microsecond)),
		Type:  binary.LittleEndian.Uint16(b[o : o+2]),
		Code:  binary.LittleEndian.Uint16(b[o+2 : o+4]),
		Value: int32(binary.LittleEndian.Uint32(b[o+4 : o+8])),
	}, nil
}

// Decoder assembles evdev events into taps. A tap is reported at the
// SYN_REPORT that closes the frame containing BTN_TOUCH down, using the
// latest absolute position.
type Decoder struct {
	x, y    int32
	touched bool
}

// Feed consumes one event and returns a tap when one completes.
func (d *Decoder) Feed(ev RawEvent) (Tap, bool) {
	switch ev.Type {
	case evAbs:
		switch ev.Code {
		case absX, absMTPositionX:
			d.x = ev.Value
		case absY, absMTPositionY:
			d.y = ev.Value
		}
	case evKey:
		if ev.Code == btnTouch && ev.Value == 1 {
			d.touched = true
		}
	case evSyn:
		if ev.Code == synReport && d.touched {
			d.touched = false
			return Tap{X: float64(d.x), Y: float64(d.y), Time: ev.Time}, true
		}
	}
	return Tap{}, false
}

// EvdevReader reads taps from a /dev/input/eventN device.
type EvdevReader struct {
	r io.ReadCloser
}

// OpenEvdev opens a touch input device.
func OpenEvdev(path string) (*EvdevReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input device: %w", err)
	}
	return &EvdevReader{r: f}, nil
}

// NewEvdevReader reads events from r, e.g. a pipe in tests.
func NewEvdevReader(r io.ReadCloser) *EvdevReader {
	return &EvdevReader{r: r}
}

// Run decodes events until ctx is done, the device is closed, or a read fails.
func (e *EvdevReader) Run(ctx context.Context, out chan<- Tap) error {
	var dec Decoder
	buf := make([]byte, EventSize)
	for {
		if _, err := io.ReadFull(e.r, buf); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read input event: %w", err)
		}
		ev, err := ParseEvent(buf)
		if err != nil {
			return err
		}
		tap, ok := dec.Feed(ev)
		if !ok {
			continue
		}
		select {
		case out <- tap:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close releases the device, unblocking Run.
func (e *EvdevReader) Close() error {
	return e.r.Close()
}
