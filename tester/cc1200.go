// Package tester contains an in-memory CC1200 transceiver for testing code
// that drives the chip over SPI, without hardware.
//
// The fake decodes the SPI protocol byte by byte: single and burst register
// access in both register spaces, FIFO enqueue and dequeue, FIFO memory
// access, and command strobes. It also implements an asynchronous transfer
// so DMA code paths can be exercised, with completion delivered either
// immediately or when the test decides.
package tester

import (
	"errors"
	"sync"
)

// Failer is implemented by *testing.T and *quicktest.C.
type Failer interface {
	Helper()
	Fatalf(format string, args ...interface{})
}

// Default identification register values.
const (
	PartNumberCC1200 = 0x20
	PartNumberCC1201 = 0x21
	DefaultVersion   = 0x11
)

const (
	fifoSize = 128

	hdrRead  = 0x80
	hdrBurst = 0x40

	addrExt      = 0x2f
	addrMem      = 0x3e
	addrFIFO     = 0x3f
	strobeFirst  = 0x30
	strobeLast   = 0x3d
	memRXFIFO    = 0x80
	numDirect    = 0x2f
	statusNotRdy = 0x80

	extPartNumber  = 0x8f
	extPartVersion = 0x90
	extRXFirst     = 0xd2
	extTXFirst     = 0xd3
	extRXLast      = 0xd4
	extTXLast      = 0xd5
	extNumTXBytes  = 0xd6
	extNumRXBytes  = 0xd7
)

// Chip states as reported in the status byte.
const (
	StateIdle = iota
	StateRX
	StateTX
	StateFastOn
	StateCalibrate
	StateSettling
	StateRXFIFOError
	StateTXFIFOError
)

// Strobe command values.
const (
	SRES  = 0x30
	SFSTX = 0x31
	SCAL  = 0x33
	SRX   = 0x34
	STX   = 0x35
	SIDLE = 0x36
	SFRX  = 0x3a
	SFTX  = 0x3b
	SNOP  = 0x3d
)

// ErrDMA is returned by StartTx when a start failure was requested with FailDMAStart.
var ErrDMA = errors.New("tester: DMA start refused")

type fifo struct {
	mem   [fifoSize]byte
	first int
	n     int
}

func (f *fifo) push(b byte) bool {
	if f.n == fifoSize {
		return false
	}
	f.mem[(f.first+f.n)%fifoSize] = b
	f.n++
	return true
}

func (f *fifo) pop() (byte, bool) {
	if f.n == 0 {
		return 0, false
	}
	b := f.mem[f.first]
	f.first = (f.first + 1) % fifoSize
	f.n--
	return b, true
}

func (f *fifo) bytes() []byte {
	out := make([]byte, f.n)
	for i := range out {
		out[i] = f.mem[(f.first+i)%fifoSize]
	}
	return out
}

func (f *fifo) flush() {
	f.first = 0
	f.n = 0
}

type kind uint8

const (
	kindHeader kind = iota
	kindDirect
	kindExt
	kindMem
	kindFIFO
)

// transaction is the decoding state of the SPI transaction in progress.
type transaction struct {
	kind     kind
	read     bool
	burst    bool
	haveAddr bool
	addr     uint8
	data     int
}

// CC1200 is a fake CC1200 transceiver. Its methods are safe for concurrent use.
type CC1200 struct {
	c  Failer
	mu sync.Mutex

	regs [numDirect]byte
	ext  [256]byte
	tx   fifo
	rx   fifo

	part      byte
	version   byte
	state     uint8
	notReady  int // status bytes still reporting not ready
	readyWait int // not-ready status bytes after each reset
	selected  bool
	inReset   bool
	resets    int

	cur     transaction
	mosi    []byte
	log     [][]byte
	strobes []byte

	dmaDefer     bool
	dmaFailStart bool
	dmaFailNext  bool
	dmaPending   bool
	onComplete   func()
	onError      func()
}

// NewCC1200 returns a fake CC1200 in IDLE state, ready, with empty FIFOs.
func NewCC1200(c Failer) *CC1200 {
	d := &CC1200{c: c, part: PartNumberCC1200, version: DefaultVersion}
	d.powerOn()
	return d
}

func (d *CC1200) powerOn() {
	d.regs = [numDirect]byte{}
	d.ext = [256]byte{}
	d.ext[extPartNumber] = d.part
	d.ext[extPartVersion] = d.version
	d.tx.flush()
	d.rx.flush()
	d.state = StateIdle
	d.notReady = d.readyWait
}

// Pin is a chip select or reset line of the fake.
type Pin struct {
	set func(high bool)
}

func (p Pin) High() { p.set(true) }

func (p Pin) Low() { p.set(false) }

// CSPin returns the chip select line. Driving it low starts a transaction.
func (d *CC1200) CSPin() Pin {
	return Pin{set: func(high bool) { d.setSelected(!high) }}
}

// ResetPin returns the reset line. A low pulse resets the chip.
func (d *CC1200) ResetPin() Pin {
	return Pin{set: func(high bool) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if !high {
			d.inReset = true
			return
		}
		if d.inReset {
			d.inReset = false
			d.resets++
			d.powerOn()
		}
	}}
}

func (d *CC1200) setSelected(sel bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sel == d.selected {
		return
	}
	d.selected = sel
	if sel {
		d.cur = transaction{}
		d.mosi = nil
		return
	}
	d.log = append(d.log, d.mosi)
	d.mosi = nil
}

// Transfer implements subghz.SPI.
func (d *CC1200) Transfer(b byte) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exchange(b), nil
}

// Tx implements subghz.SPI.
func (d *CC1200) Tx(w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, b := range w {
		v := d.exchange(b)
		if i < len(r) {
			r[i] = v
		}
	}
	return nil
}

func (d *CC1200) status() byte {
	s := d.state << 4
	if d.notReady > 0 {
		s |= statusNotRdy
	}
	return s
}

func (d *CC1200) exchange(b byte) byte {
	if !d.selected {
		d.c.Helper()
		d.c.Fatalf("SPI byte 0x%02x sent with chip select high", b)
		return 0
	}
	if d.inReset {
		return 0xff
	}
	d.mosi = append(d.mosi, b)

	t := &d.cur
	if t.kind == kindHeader {
		return d.header(b)
	}
	if !t.haveAddr {
		t.addr = b
		t.haveAddr = true
		return 0
	}

	var out byte
	switch t.kind {
	case kindDirect:
		if t.read {
			out = d.regs[t.addr%numDirect]
		} else {
			d.regs[t.addr%numDirect] = b
			out = d.status()
		}
	case kindExt:
		if t.read {
			out = d.readExt(t.addr)
		} else {
			d.ext[t.addr] = b
			out = d.status()
		}
	case kindMem:
		f := &d.tx
		if t.addr&memRXFIFO != 0 {
			f = &d.rx
		}
		if t.read {
			out = f.mem[t.addr%fifoSize]
		} else {
			f.mem[t.addr%fifoSize] = b
			out = d.status()
		}
	case kindFIFO:
		if t.read {
			v, ok := d.rx.pop()
			if !ok {
				d.state = StateRXFIFOError
			}
			out = v
		} else {
			if !d.tx.push(b) {
				d.state = StateTXFIFOError
			}
			out = d.status()
		}
		return out
	}
	t.data++
	if t.burst {
		t.addr++
	} else {
		// a single access is done; the next byte is a new header
		d.cur = transaction{}
	}
	return out
}

func (d *CC1200) header(b byte) byte {
	st := d.status()
	if d.notReady > 0 {
		d.notReady--
	}
	t := &d.cur
	t.read = b&hdrRead != 0
	t.burst = b&hdrBurst != 0
	addr := b &^ (hdrRead | hdrBurst)
	switch {
	case addr == addrExt:
		t.kind = kindExt
	case addr == addrMem:
		t.kind = kindMem
	case addr == addrFIFO:
		t.kind = kindFIFO
		t.haveAddr = true
	case addr >= strobeFirst && addr <= strobeLast:
		d.strobe(addr)
	default:
		t.kind = kindDirect
		t.addr = addr
		t.haveAddr = true
	}
	return st
}

func (d *CC1200) strobe(cmd byte) {
	d.strobes = append(d.strobes, cmd)
	switch cmd {
	case SRES:
		d.powerOn()
	case SFSTX:
		d.state = StateFastOn
	case SRX:
		d.state = StateRX
	case STX:
		d.state = StateTX
	case SIDLE, SCAL:
		d.state = StateIdle
	case SFRX:
		d.rx.flush()
		if d.state == StateRXFIFOError {
			d.state = StateIdle
		}
	case SFTX:
		d.tx.flush()
		if d.state == StateTXFIFOError {
			d.state = StateIdle
		}
	}
}

func (d *CC1200) readExt(addr uint8) byte {
	switch addr {
	case extNumTXBytes:
		return byte(d.tx.n)
	case extNumRXBytes:
		return byte(d.rx.n)
	case extTXFirst:
		return byte(d.tx.first)
	case extRXFirst:
		return byte(d.rx.first)
	case extTXLast:
		return byte((d.tx.first + d.tx.n) % fifoSize)
	case extRXLast:
		return byte((d.rx.first + d.rx.n) % fifoSize)
	}
	return d.ext[addr]
}

// StartTx implements subghz.DMA. The exchange happens at once; completion is
// signalled immediately unless DeferDMA was called.
func (d *CC1200) StartTx(w, r []byte) error {
	deferred, err := d.startTx(w, r)
	if err != nil {
		return err
	}
	if !deferred {
		d.FinishDMA()
	}
	return nil
}

func (d *CC1200) startTx(w, r []byte) (deferred bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dmaFailStart {
		return false, ErrDMA
	}
	if d.dmaPending {
		d.c.Helper()
		d.c.Fatalf("DMA started while another transfer is pending")
	}
	for i, b := range w {
		v := d.exchange(b)
		if i < len(r) {
			r[i] = v
		}
	}
	d.dmaPending = true
	return d.dmaDefer, nil
}

// HandleDMA sets the functions called when a DMA transfer completes or fails,
// normally the driver's interrupt entry points.
func (d *CC1200) HandleDMA(complete, fail func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onComplete = complete
	d.onError = fail
}

// DeferDMA makes DMA transfers stay pending until FinishDMA is called.
func (d *CC1200) DeferDMA(deferred bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dmaDefer = deferred
}

// FailDMAStart makes StartTx refuse to start transfers.
func (d *CC1200) FailDMAStart(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dmaFailStart = fail
}

// FailNextDMA makes the next transfer signal an error instead of completion.
func (d *CC1200) FailNextDMA() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dmaFailNext = true
}

// DMAPending reports whether a transfer waits for FinishDMA.
func (d *CC1200) DMAPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dmaPending
}

// FinishDMA signals the end of the pending transfer, as the bus interrupt would.
func (d *CC1200) FinishDMA() {
	d.mu.Lock()
	if !d.dmaPending {
		d.mu.Unlock()
		return
	}
	d.dmaPending = false
	cb := d.onComplete
	if d.dmaFailNext {
		d.dmaFailNext = false
		cb = d.onError
	}
	d.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// SetReadyWait sets how many status bytes report "not ready" after a reset.
func (d *CC1200) SetReadyWait(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readyWait = n
	d.notReady = n
}

// SetPartNumber overrides the identification registers.
func (d *CC1200) SetPartNumber(part, version byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.part = part
	d.version = version
	d.ext[extPartNumber] = part
	d.ext[extPartVersion] = version
}

// SetState forces the state reported in status bytes.
func (d *CC1200) SetState(s uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s & 0x07
}

// State returns the current chip state.
func (d *CC1200) State() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Reg returns a direct register.
func (d *CC1200) Reg(addr uint8) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[addr%numDirect]
}

// SetReg sets a direct register.
func (d *CC1200) SetReg(addr uint8, v byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs[addr%numDirect] = v
}

// ExtReg returns an extended register.
func (d *CC1200) ExtReg(addr uint8) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readExt(addr)
}

// SetExtReg sets an extended register.
func (d *CC1200) SetExtReg(addr uint8, v byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ext[addr] = v
}

// QueueRX appends bytes to the RX FIFO as if they had been received.
func (d *CC1200) QueueRX(data ...byte) {
	d.c.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range data {
		if !d.rx.push(b) {
			d.c.Fatalf("RX FIFO overflow")
		}
	}
}

// QueueTX appends bytes to the TX FIFO.
func (d *CC1200) QueueTX(data ...byte) {
	d.c.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range data {
		if !d.tx.push(b) {
			d.c.Fatalf("TX FIFO overflow")
		}
	}
}

// TXFIFO returns the bytes waiting in the TX FIFO.
func (d *CC1200) TXFIFO() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tx.bytes()
}

// RXFIFO returns the bytes waiting in the RX FIFO.
func (d *CC1200) RXFIFO() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rx.bytes()
}

// DrainTX removes n bytes from the TX FIFO, as transmission would.
func (d *CC1200) DrainTX(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < n; i++ {
		d.tx.pop()
	}
}

// Strobes returns every command strobe received so far.
func (d *CC1200) Strobes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.strobes...)
}

// Transactions returns the bytes sent in every finished transaction.
func (d *CC1200) Transactions() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.log...)
}

// LastTransaction returns the bytes sent in the last finished transaction.
func (d *CC1200) LastTransaction() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.log) == 0 {
		return nil
	}
	return d.log[len(d.log)-1]
}

// ClearLog forgets recorded transactions and strobes.
func (d *CC1200) ClearLog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = nil
	d.strobes = nil
}

// Selected reports whether chip select is asserted.
func (d *CC1200) Selected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Resets returns how many reset pulses the chip has seen.
func (d *CC1200) Resets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}
