// Package cc1200 provides a driver for the TI CC1200/CC1201 sub-GHz transceivers.
//
// Datasheet:
// https://www.ti.com/lit/ug/swru346b/swru346b.pdf
//
// The driver talks to the chip over SPI with a manually driven chip select. Every
// transaction returns a status byte which is decoded into the cached chip State,
// so callers never need a separate status poll after a register operation.
//
// Bulk transfers can optionally go through a DMA-capable bus (see subghz.DMA).
// Exactly one DMA transfer may be in flight per Device; the host must route the
// bus peripheral's completion and error interrupts to DMAComplete and DMAError.
//
// The Device performs no internal locking. Callers serialize their own access;
// the only state shared with interrupt context is the DMA transfer flags.
package cc1200 // import "tinygo.org/x/subghz/cc1200"

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"tinygo.org/x/subghz"
)

const (
	// OscFreq is the crystal oscillator frequency in Hz.
	OscFreq = 40000000

	// FIFOSize is the capacity of each of the TX and RX FIFOs.
	FIFOSize = 128

	// MaxPacketLength is the largest packet we handle, length byte included.
	// Longer packets would need streaming into the FIFO during transmission.
	MaxPacketLength = 128

	// PacketStatusLen is the number of status bytes the chip can append to
	// received packets (RSSI, then CRC_OK|LQI).
	PacketStatusLen = 2

	resetPulse   = time.Millisecond
	readyTimeout = 10 * time.Millisecond
)

var (
	// ErrPartNumber is recorded by Begin when the chip identifies as something
	// other than the expected CC1200/CC1201.
	ErrPartNumber = errors.New("cc1200: unexpected part number")

	// ErrNotReady is recorded by Begin when the chip did not report ready after reset.
	ErrNotReady = errors.New("cc1200: timeout waiting for chip ready")
)

// State is the chip state reported in bits 6-4 of every status byte.
type State uint8

const (
	StateIdle State = iota
	StateRX
	StateTX
	StateFastOn
	StateCalibrate
	StateSettling
	StateRXFIFOError
	StateTXFIFOError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRX:
		return "RX"
	case StateTX:
		return "TX"
	case StateFastOn:
		return "FAST_ON"
	case StateCalibrate:
		return "CALIBRATE"
	case StateSettling:
		return "SETTLING"
	case StateRXFIFOError:
		return "RX_FIFO_ERROR"
	case StateTXFIFOError:
		return "TX_FIFO_ERROR"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// DecodeStatus splits a status byte into the ready flag and the chip state.
func DecodeStatus(status uint8) (ready bool, state State) {
	return status&STATUS_NOT_RDY == 0, State((status & STATUS_STATE) >> 4)
}

// PacketMode selects how packets are framed in the FIFOs.
type PacketMode uint8

const (
	FixedLength PacketMode = iota
	VariableLength
)

// Config holds the driver options.
type Config struct {
	IsCC1201 bool         // expect the CC1201 part number instead of the CC1200's
	Logger   *slog.Logger // diagnostic channel, nil discards
	Debug    bool         // trace every SPI byte and streaming progress
}

// Device wraps an SPI connection to a CC1200 device.
type Device struct {
	spi    subghz.SPI
	dma    subghz.DMA
	csPin  subghz.Pin
	rstPin subghz.Pin
	log    *slog.Logger
	cc1201 bool
	debug  bool

	lastStatus  uint8
	state       State
	chipReady   bool
	partVersion uint8
	err         error

	packetMode   PacketMode
	appendStatus bool
	lastPktStat  PacketStatus

	frequency   float64
	symbolRate  float64
	rxBandwidth float64

	xfer     transfer
	txStream txSession
	rxStream rxSession
}

// New creates a new CC1200 device. The SPI bus must already be configured
// (mode 0, at most 5 MHz so that extended register reads are reliable). dma may
// be nil, in which case every DMA-backed operation reports failure.
func New(bus subghz.SPI, dma subghz.DMA, csPin, rstPin subghz.Pin, cfg Config) *Device {
	d := &Device{
		spi:        bus,
		dma:        dma,
		csPin:      csPin,
		rstPin:     rstPin,
		log:        cfg.Logger,
		cc1201:     cfg.IsCC1201,
		debug:      cfg.Debug,
		packetMode: VariableLength,
	}
	if d.log != nil {
		d.log = d.log.With("dev", "cc1200")
	}
	csPin.High()
	rstPin.High()
	return d
}

// SetDebug turns per-byte SPI tracing on or off.
func (d *Device) SetDebug(on bool) { d.debug = on }

// Reset pulses the reset line low for 1ms.
func (d *Device) Reset() {
	d.rstPin.Low()
	time.Sleep(resetPulse)
	d.rstPin.High()
}

// Begin resets the chip, waits for it to report ready and checks its part
// number. A ready timeout is reported but not fatal. On success the packet
// engine is put in the driver's default configuration: CRC checked, status
// bytes not appended.
func (d *Device) Begin() bool {
	d.chipReady = false
	d.err = nil
	d.Reset()

	deadline := time.Now().Add(readyTimeout)
	for !d.chipReady {
		// datasheet specifies 240us reset time
		time.Sleep(time.Millisecond)
		d.UpdateState()
		if !d.chipReady && time.Now().After(deadline) {
			d.err = ErrNotReady
			d.warn("timeout waiting for ready response")
			break
		}
	}

	part := d.ReadRegister(REG_PARTNUMBER)
	d.partVersion = d.ReadRegister(REG_PARTVERSION)

	expected := uint8(PART_NUMBER_1200)
	if d.cc1201 {
		expected = PART_NUMBER_1201
	}
	if part != expected {
		d.err = fmt.Errorf("%w: read 0x%02x, expected 0x%02x", ErrPartNumber, part, expected)
		d.warn("incorrect part number", "read", part, "expected", expected)
		return false
	}
	d.info("detected chip", "part", part, "version", d.partVersion)

	d.WriteRegister(REG_PKT_CFG1, 0b01<<PKT_CFG1_CRC_CFG)
	d.appendStatus = false
	return true
}

// Err returns the problem recorded by the last Begin, if any.
func (d *Device) Err() error { return d.err }

// PartVersion returns the hardware version read by Begin.
func (d *Device) PartVersion() uint8 { return d.partVersion }

// UpdateState issues a no-op strobe to refresh the cached status.
func (d *Device) UpdateState() {
	d.SendCommand(SNOP)
}

// State returns the chip state decoded from the last status byte.
func (d *Device) State() State { return d.state }

// ChipReady reports whether the last status byte had CHIP_RDYn cleared.
func (d *Device) ChipReady() bool { return d.chipReady }

// LastStatus returns the last raw status byte.
func (d *Device) LastStatus() uint8 { return d.lastStatus }

// Frequency returns the last programmed (achieved) RF frequency in Hz.
func (d *Device) Frequency() float64 { return d.frequency }

// SymbolRate returns the last programmed (achieved) symbol rate in Hz.
func (d *Device) SymbolRate() float64 { return d.symbolRate }

// RXBandwidth returns the last programmed (achieved) RX filter bandwidth in Hz.
func (d *Device) RXBandwidth() float64 { return d.rxBandwidth }

// -------------------
// Bus transactions
// -------------------

func (d *Device) selectChip() { d.csPin.Low() }

// deselect is also called from interrupt context by the DMA callbacks.
func (d *Device) deselect() { d.csPin.High() }

// exchange clocks one byte out and returns the byte clocked in. Bus errors
// are not reported to callers: like a chip refusal they only show up in
// subsequent register values.
func (d *Device) exchange(b byte) byte {
	r, err := d.spi.Transfer(b)
	if d.debug {
		if err != nil {
			d.dbg("spi", "tx", hex.EncodeToString([]byte{b}), "err", err)
		} else {
			d.dbg("spi", "tx", hex.EncodeToString([]byte{b}), "rx", hex.EncodeToString([]byte{r}))
		}
	}
	return r
}

func (d *Device) loadStatus(status uint8) {
	d.lastStatus = status
	d.chipReady, d.state = DecodeStatus(status)
}

// -------------------
// Diagnostics
// -------------------

func (d *Device) info(msg string, args ...any) {
	if d.log != nil {
		d.log.Info(msg, args...)
	}
}

func (d *Device) warn(msg string, args ...any) {
	if d.log != nil {
		d.log.Warn(msg, args...)
	}
}

func (d *Device) dbg(msg string, args ...any) {
	if d.log != nil {
		d.log.Debug(msg, args...)
	}
}
