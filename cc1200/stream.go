package cc1200

import "encoding/hex"

const (
	// StreamPatternCap is the largest repeating TX streaming pattern.
	StreamPatternCap = FIFOSize

	streamTxMargin   = 10 // free TX FIFO bytes required beyond the pattern
	streamRxChunk    = 64 // most bytes drained per tick
	streamTxLogEvery = 100
	streamRxLogEvery = 50
)

type txSession struct {
	enabled bool
	pattern [StreamPatternCap]byte
	n       int
	count   uint32
	errors  uint32
}

type rxSession struct {
	enabled bool
	verbose bool
	count   uint32
	errors  uint32
	pending int // bytes of a launched drain not yet harvested
	sink    func([]byte)
}

// StreamingStats are the counters of the current or last streaming sessions.
type StreamingStats struct {
	TxCount  uint32
	RxCount  uint32
	TxErrors uint32
	RxErrors uint32
}

// StartContinuousStreamingTx starts writing pattern into the TX FIFO over and
// over from ProcessContinuousStreaming. A running TX session is stopped first.
func (d *Device) StartContinuousStreamingTx(pattern []byte) bool {
	if len(pattern) == 0 || len(pattern) > StreamPatternCap {
		d.warn("invalid streaming pattern", "len", len(pattern), "max", StreamPatternCap)
		return false
	}
	if d.txStream.enabled {
		d.StopContinuousStreamingTx()
	}
	s := &d.txStream
	s.n = copy(s.pattern[:], pattern)
	s.count = 0
	s.errors = 0
	s.enabled = true
	d.info("continuous TX streaming started", "pattern", len(pattern))
	return true
}

// StartContinuousStreamingRx starts draining the RX FIFO from
// ProcessContinuousStreaming. With verbose set every drained chunk is logged.
func (d *Device) StartContinuousStreamingRx(verbose bool) bool {
	if d.rxStream.enabled {
		d.StopContinuousStreamingRx()
	}
	s := &d.rxStream
	s.count = 0
	s.errors = 0
	s.verbose = verbose
	s.enabled = true
	d.info("continuous RX streaming started", "verbose", verbose)
	return true
}

// StopContinuousStreamingTx stops the TX session. Its counters stay readable.
func (d *Device) StopContinuousStreamingTx() {
	d.txStream.enabled = false
	d.info("continuous TX streaming stopped", "transfers", d.txStream.count, "errors", d.txStream.errors)
}

// StopContinuousStreamingRx stops the RX session. Its counters stay readable.
func (d *Device) StopContinuousStreamingRx() {
	d.rxStream.enabled = false
	d.info("continuous RX streaming stopped", "transfers", d.rxStream.count, "errors", d.rxStream.errors)
}

// ContinuousStreamingStats returns the streaming counters.
func (d *Device) ContinuousStreamingStats() StreamingStats {
	return StreamingStats{
		TxCount:  d.txStream.count,
		RxCount:  d.rxStream.count,
		TxErrors: d.txStream.errors,
		RxErrors: d.rxStream.errors,
	}
}

// SetStreamingRxSink sets a function receiving every chunk drained by RX
// streaming. The slice is only valid during the call.
func (d *Device) SetStreamingRxSink(sink func([]byte)) {
	d.rxStream.sink = sink
}

// ProcessContinuousStreaming services the streaming sessions and must be called
// periodically by the host. It never blocks: while a DMA transfer is in flight
// it does nothing, and it starts at most one transfer per direction per call.
func (d *Device) ProcessContinuousStreaming() {
	if !d.IsDMAComplete() {
		return
	}
	d.harvestStreamingRx()

	if tx := &d.txStream; tx.enabled && d.txFree() >= tx.n+streamTxMargin {
		if d.startStreamingTx() {
			tx.count++
			if d.debug && tx.count%streamTxLogEvery == 0 {
				d.dbg("TX streaming", "transfers", tx.count, "errors", tx.errors)
			}
		} else {
			tx.errors++
		}
	}

	if rx := &d.rxStream; rx.enabled && d.IsDMAComplete() {
		if n := d.RXFIFOLen(); n > 0 {
			if d.startStreamingRx(min(n, streamRxChunk)) {
				rx.count++
				if d.debug && rx.count%streamRxLogEvery == 0 {
					d.dbg("RX streaming", "transfers", rx.count, "errors", rx.errors)
				}
			} else {
				rx.errors++
			}
		}
	}
}

func (d *Device) startStreamingTx() bool {
	if !d.claim() {
		return false
	}
	tx, rx := &d.xfer.tx, &d.xfer.rx
	tx.reset(ENQUEUE_TX | SPI_BURST)
	tx.add(d.txStream.pattern[:d.txStream.n]...)
	w := tx.bytes()
	return d.launch(w, rx.window(len(w)))
}

func (d *Device) startStreamingRx(n int) bool {
	if !d.claim() {
		return false
	}
	tx, rx := &d.xfer.tx, &d.xfer.rx
	tx.reset(DEQUEUE_RX | SPI_BURST)
	tx.pad(n)
	w := tx.bytes()
	d.rxStream.pending = n
	if !d.launch(w, rx.window(len(w))) {
		d.rxStream.pending = 0
		return false
	}
	return true
}

// harvestStreamingRx delivers the data of a finished streaming RX drain. It
// must run before the transfer buffers are reused.
func (d *Device) harvestStreamingRx() {
	rx := &d.rxStream
	if rx.pending == 0 {
		return
	}
	n := rx.pending
	rx.pending = 0
	if !d.xfer.complete.Load() {
		return
	}
	buf := &d.xfer.rx
	d.loadStatus(buf.b[0])
	data := buf.b[1 : 1+n]
	if rx.verbose {
		d.info("RX stream data", "len", n, "data", hex.EncodeToString(data))
	}
	if rx.sink != nil {
		rx.sink(data)
	}
}
