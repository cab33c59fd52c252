package cc1200

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestEncodeFrequency(t *testing.T) {
	c := qt.New(t)

	s, ok := EncodeFrequency(Band820To960MHz, 915e6)
	c.Assert(ok, qt.Equals, true)
	c.Assert(s.Word, qt.Equals, uint32(math.Round(915e6*65536/40e6)))
	c.Assert(s.Word, qt.Equals, uint32(0x16e000))
	c.Assert(s.Regs(), qt.Equals, [3]uint8{0x00, 0xe0, 0x16})
	c.Assert(math.Abs(s.Actual-915e6) <= OscFreq/65536.0, qt.Equals, true)

	s, ok = EncodeFrequency(Band410To480MHz, 433.92e6)
	c.Assert(ok, qt.Equals, true)
	step := OscFreq / 131072.0
	c.Assert(math.Abs(s.Actual-433.92e6) <= step/2, qt.Equals, true)
	c.Assert(s.Actual, qt.Equals, float64(s.Word)*step)

	// clamped to 24 bits
	s, _ = EncodeFrequency(Band136To160MHz, 1e9)
	c.Assert(s.Word, qt.Equals, uint32(0xffffff))
	c.Assert(s.Actual < 1e9, qt.Equals, true)

	_, ok = EncodeFrequency(Band(7), 915e6)
	c.Assert(ok, qt.Equals, false)
}

func TestBandFor(t *testing.T) {
	c := qt.New(t)
	for hz, want := range map[float64]Band{
		868e6:    Band820To960MHz,
		433.92e6: Band410To480MHz,
		144e6:    Band136To160MHz,
	} {
		b, ok := BandFor(hz)
		c.Assert(ok, qt.Equals, true)
		c.Assert(b, qt.Equals, want)
	}
	_, ok := BandFor(2.4e9)
	c.Assert(ok, qt.Equals, false)
}

func TestEncodeSymbolRate(t *testing.T) {
	c := qt.New(t)

	s := EncodeSymbolRate(50000)
	c.Assert(EncodeSymbolRate(50000), qt.Equals, s)
	c.Assert(s.Exponent, qt.Equals, uint8(9))
	c.Assert(s.Actual, qt.Equals, SymbolRateFromRegs(s.Mantissa, s.Exponent))
	c.Assert(math.Abs(s.Actual-50000) <= s.Step()/2, qt.Equals, true)

	regs := s.Regs()
	c.Assert(regs[0]>>4, qt.Equals, s.Exponent)
	c.Assert(uint32(regs[0]&0x0f)<<16|uint32(regs[1])<<8|uint32(regs[2]), qt.Equals, s.Mantissa)

	for _, hz := range []float64{1200, 9600, 38400, 100e3, 500e3} {
		s := EncodeSymbolRate(hz)
		c.Assert(s.Mantissa <= maxSymbolRateMantissa, qt.Equals, true)
		c.Assert(math.Abs(s.Actual-hz) <= s.Step()/2, qt.Equals, true, qt.Commentf("%v Hz", hz))
	}

	// tiny rates use the exponent 0 format
	s = EncodeSymbolRate(0.01)
	c.Assert(s.Exponent, qt.Equals, uint8(0))
	c.Assert(math.Abs(s.Actual-0.01) <= s.Step()/2, qt.Equals, true)
}

func TestEncodeDeviation(t *testing.T) {
	c := qt.New(t)

	s := EncodeDeviation(20e3)
	c.Assert(s.Exponent, qt.Equals, uint8(1))
	c.Assert(s.Mantissa, qt.Equals, uint8(131))
	c.Assert(s.Actual, qt.Equals, 131*2*OscFreq/math.Ldexp(1, 19))

	s = EncodeDeviation(5e3)
	c.Assert(s.Exponent, qt.Equals, uint8(0))
	c.Assert(s.Mantissa, qt.Equals, uint8(66))

	// exponent exhausted, mantissa clamped
	s = EncodeDeviation(10e6)
	c.Assert(s.Exponent, qt.Equals, uint8(7))
	c.Assert(s.Mantissa, qt.Equals, uint8(255))
}

func TestEncodeRXBandwidth(t *testing.T) {
	c := qt.New(t)

	s := EncodeRXBandwidth(312500, false)
	c.Assert(s.ADCDecimation, qt.Equals, 16)
	c.Assert(s.CICDecimation, qt.Equals, 1)
	c.Assert(s.Actual, qt.Equals, 312500.0)
	c.Assert(s.Reg(), qt.Equals, uint8(0x00))

	// 16*4 and 32*2 give the same 78125 Hz
	s = EncodeRXBandwidth(78125, false)
	c.Assert(s.Actual, qt.Equals, 78125.0)
	c.Assert(s.ADCDecimation, qt.Equals, 32)
	c.Assert(s.CICDecimation, qt.Equals, 2)
	c.Assert(s.Reg(), qt.Equals, uint8(2<<6|1))

	s = EncodeRXBandwidth(78125, true)
	c.Assert(s.ADCDecimation, qt.Equals, 16)
	c.Assert(s.CICDecimation, qt.Equals, 4)
	c.Assert(s.Reg(), qt.Equals, uint8(0<<6|2))

	s = EncodeRXBandwidth(1e6, false)
	c.Assert(s.Actual, qt.Equals, 312500.0)

	s = EncodeRXBandwidth(100, false)
	c.Assert(s.ADCDecimation, qt.Equals, 40)
	c.Assert(s.CICDecimation, qt.Equals, 64)
}

func TestEncodePower(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		dbm    float64
		reg    uint8
		actual float64
	}{
		{0, 32, 0},
		{14, 60, 14},
		{20, 60, 14},
		{-16, 0, -16},
		{-30, 0, -16},
		{0.3, 33, 0.5},
		{-3.2, 26, -3},
	}
	for _, tc := range tests {
		s := EncodePower(tc.dbm)
		c.Assert(s.Reg, qt.Equals, tc.reg, qt.Commentf("%v dBm", tc.dbm))
		c.Assert(s.Actual, qt.Equals, tc.actual)
		c.Assert(s.Requested, qt.Equals, tc.dbm)
	}
}
