// Package subghz contains the bus contracts shared by the sub-GHz transceiver
// drivers in this module.
//
// The contracts are deliberately small so that the TinyGo machine package
// (machine.SPI, machine.Pin), a Linux host adapter (see periphbus) or an
// in-memory simulator (see tester) can all drive the same chip code.
package subghz // import "tinygo.org/x/subghz"
