package subghz

// SPI is a synchronous serial bus. Chip select is not part of the contract:
// drivers assert it themselves around each transaction.
type SPI interface {
	Tx(w, r []byte) error
	Transfer(b byte) (byte, error)
}

// Pin is an output line such as a chip select or a reset.
type Pin interface {
	High()
	Low()
}

// DMA starts an asynchronous full-duplex exchange of len(w) bytes. r must be at
// least as long as w. StartTx returns as soon as the transfer has been accepted;
// the owner of the bus must later report completion or failure to the driver
// that started it, from whatever context the hardware signals in.
type DMA interface {
	StartTx(w, r []byte) error
}

// NoPin is a Pin that does nothing, for boards where a line is hardwired.
var NoPin Pin = noPin{}

type noPin struct{}

func (noPin) High() {}
func (noPin) Low()  {}
