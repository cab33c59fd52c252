// Package periphbus adapts periph.io SPI ports and GPIO pins to the subghz
// bus contracts, so the drivers can run on a Linux host such as a Raspberry Pi.
//
// Linux has no callback driven SPI DMA. StartTx runs the transfer on a
// goroutine and reports the outcome through the handlers registered with
// HandleDMA, which is the same contract a microcontroller DMA interrupt
// fulfils.
package periphbus // import "tinygo.org/x/subghz/periphbus"

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"tinygo.org/x/subghz"
)

var (
	errShortRead = errors.New("periphbus: read buffer shorter than write buffer")
	errNoHandler = errors.New("periphbus: no DMA handlers registered")
)

// DefaultSpeed is the SPI clock used when Config.Speed is zero.
const DefaultSpeed = 4 * physic.MegaHertz

// Bus serializes access to a periph connection and emulates DMA on top of it.
type Bus struct {
	mu   sync.Mutex // guards conn
	conn conn.Conn

	hmu        sync.Mutex
	onComplete func()
	onError    func()

	wg sync.WaitGroup
}

// New wraps an established connection. The connection must not drive the
// chip select line itself (see spi.NoCS).
func New(c conn.Conn) *Bus {
	return &Bus{conn: c}
}

// Transfer exchanges a single byte.
func (b *Bus) Transfer(w byte) (byte, error) {
	var r [1]byte
	err := b.Tx([]byte{w}, r[:])
	return r[0], err
}

// Tx exchanges len(w) bytes.
func (b *Bus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.Tx(w, r)
}

// HandleDMA registers the functions StartTx reports to. They are usually a
// driver's DMAComplete and DMAError methods.
func (b *Bus) HandleDMA(complete, fail func()) {
	b.hmu.Lock()
	b.onComplete, b.onError = complete, fail
	b.hmu.Unlock()
}

// StartTx begins an asynchronous exchange and returns immediately. w and r
// must stay untouched until a handler has been called.
func (b *Bus) StartTx(w, r []byte) error {
	if len(r) < len(w) {
		return errShortRead
	}
	b.hmu.Lock()
	complete, fail := b.onComplete, b.onError
	b.hmu.Unlock()
	if complete == nil || fail == nil {
		return errNoHandler
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.Tx(w, r[:len(w)]); err != nil {
			fail()
			return
		}
		complete()
	}()
	return nil
}

// Wait blocks until every transfer started by StartTx has reported.
func (b *Bus) Wait() {
	b.wg.Wait()
}

func (b *Bus) String() string {
	return fmt.Sprintf("periphbus(%s)", b.conn)
}

// Pin drives a periph output as a subghz.Pin. Output errors are dropped: the
// drivers have no way to act on them.
type Pin struct {
	gpio.PinOut
}

func (p Pin) High() { p.Out(gpio.High) }
func (p Pin) Low()  { p.Out(gpio.Low) }

// Config names the host resources a transceiver is wired to.
type Config struct {
	Port  string           // spireg name, empty for the first port
	Speed physic.Frequency // SPI clock, DefaultSpeed if zero
	CS    string           // gpioreg name of the chip select line
	Reset string           // gpioreg name of the reset line, empty if not wired
}

// Board is an opened transceiver wiring.
type Board struct {
	Bus   *Bus
	CS    subghz.Pin
	Reset subghz.Pin

	port spi.PortCloser
}

// Open initializes the host drivers and opens the SPI port and pins named
// by cfg.
func Open(cfg Config) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periphbus: host init: %w", err)
	}
	if cfg.Speed == 0 {
		cfg.Speed = DefaultSpeed
	}

	port, err := spireg.Open(cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("periphbus: open SPI port %q: %w", cfg.Port, err)
	}
	c, err := port.Connect(cfg.Speed, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("periphbus: connect %s: %w", cfg.Speed, err)
	}

	cs := gpioreg.ByName(cfg.CS)
	if cs == nil {
		port.Close()
		return nil, fmt.Errorf("periphbus: unknown chip select pin %q", cfg.CS)
	}
	brd := &Board{Bus: New(c), CS: Pin{cs}, Reset: subghz.NoPin, port: port}
	brd.CS.High()

	if cfg.Reset != "" {
		rst := gpioreg.ByName(cfg.Reset)
		if rst == nil {
			port.Close()
			return nil, fmt.Errorf("periphbus: unknown reset pin %q", cfg.Reset)
		}
		brd.Reset = Pin{rst}
		brd.Reset.High()
	}
	return brd, nil
}

// Close waits for outstanding transfers and releases the SPI port.
func (b *Board) Close() error {
	b.Bus.Wait()
	return b.port.Close()
}
