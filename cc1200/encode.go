package cc1200

import (
	"math"

	"golang.org/x/exp/constraints"
)

// The encoders below are pure: they turn a physical quantity into register
// values and report the value the chip will actually produce.

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundHalfUp matches the chip vendor's "add one half and truncate" rounding
// for the non-negative values the encoders produce.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// Band is one of the frequency synthesizer's band settings.
type Band uint8

const (
	Band820To960MHz Band = iota
	Band410To480MHz
	Band136To160MHz
	Band410To480MHzHighIF
)

// scaleBits is the power-of-two scale of the FREQ word for the band.
// Frequency = word * fxosc / 2^scaleBits.
func (b Band) scaleBits() (uint, bool) {
	switch b {
	case Band820To960MHz:
		return 16, true
	case Band410To480MHz, Band410To480MHzHighIF:
		return 17, true
	case Band136To160MHz:
		return 21, true
	}
	return 0, false
}

// bandSelect is the 2-bit FSD_BANDSELECT field value for the band.
func (b Band) bandSelect() uint8 { return uint8(b) & FS_CFG_FSD_BANDSELECT_MSK }

func (b Band) String() string {
	switch b {
	case Band820To960MHz:
		return "820-960MHz"
	case Band410To480MHz:
		return "410-480MHz"
	case Band136To160MHz:
		return "136-160MHz"
	case Band410To480MHzHighIF:
		return "410-480MHz-highIF"
	}
	return "invalid"
}

// BandFor returns the band covering hz. The high-IF variant of the 410-480MHz
// band is never chosen automatically.
func BandFor(hz float64) (Band, bool) {
	switch {
	case hz >= 820e6 && hz <= 960e6:
		return Band820To960MHz, true
	case hz >= 410e6 && hz <= 480e6:
		return Band410To480MHz, true
	case hz >= 136e6 && hz <= 160e6:
		return Band136To160MHz, true
	}
	return 0, false
}

const maxFreqWord = 1<<24 - 1

// FrequencySetting is the encoded form of an RF frequency.
type FrequencySetting struct {
	Band      Band
	Word      uint32 // 24-bit FREQ2..FREQ0 value
	Requested float64
	Actual    float64
}

// Regs returns FREQ0, FREQ1 and FREQ2, in that order.
func (s FrequencySetting) Regs() [3]uint8 {
	return [3]uint8{uint8(s.Word), uint8(s.Word >> 8), uint8(s.Word >> 16)}
}

// EncodeFrequency computes the FREQ word for hz in band. It fails only for an
// unknown band; out-of-band frequencies are encoded as asked.
func EncodeFrequency(band Band, hz float64) (FrequencySetting, bool) {
	bits, ok := band.scaleBits()
	if !ok {
		return FrequencySetting{}, false
	}
	scale := math.Ldexp(1, int(bits))
	word := clamp(roundHalfUp(hz*scale/OscFreq), 0, maxFreqWord)
	return FrequencySetting{
		Band:      band,
		Word:      uint32(word),
		Requested: hz,
		Actual:    word * OscFreq / scale,
	}, true
}

const (
	maxSymbolRateExp      = 15
	maxSymbolRateMantissa = 1<<20 - 1
)

// SymbolRateSetting is the encoded form of a symbol rate.
//
// For Exponent > 0 the rate is (2^20 + Mantissa) * 2^Exponent * fxosc / 2^39,
// for Exponent == 0 it is Mantissa * fxosc / 2^38.
type SymbolRateSetting struct {
	Mantissa  uint32 // 20 bits
	Exponent  uint8  // 4 bits
	Requested float64
	Actual    float64
}

// Regs returns SYMBOL_RATE2, SYMBOL_RATE1 and SYMBOL_RATE0, in that order.
func (s SymbolRateSetting) Regs() [3]uint8 {
	return [3]uint8{
		s.Exponent<<SYMBOL_RATE2_SRATE_E | uint8(s.Mantissa>>16)&0x0f,
		uint8(s.Mantissa >> 8),
		uint8(s.Mantissa),
	}
}

// Step is the rate difference between adjacent mantissa values at the
// setting's exponent.
func (s SymbolRateSetting) Step() float64 {
	if s.Exponent == 0 {
		return OscFreq / math.Ldexp(1, 38)
	}
	return math.Ldexp(OscFreq, int(s.Exponent)-39)
}

// SymbolRateFromRegs decodes a mantissa and exponent back to Hz.
func SymbolRateFromRegs(mantissa uint32, exponent uint8) float64 {
	if exponent == 0 {
		return float64(mantissa) * OscFreq / math.Ldexp(1, 38)
	}
	return math.Ldexp(float64(1<<20+mantissa)*OscFreq, int(exponent)-39)
}

// EncodeSymbolRate picks the smallest exponent that keeps the mantissa in
// range, then rounds the mantissa to the nearest step.
//
// The mantissa is the chip's full 20-bit SRATE_M, not an 8-bit value: the
// setting occupies all three of SYMBOL_RATE2..0, with the exponent in the
// upper nibble of SYMBOL_RATE2. An 8-bit mantissa would leave steps of
// several hundred Hz at common rates.
func EncodeSymbolRate(hz float64) SymbolRateSetting {
	scaled := math.Max(hz, 0) * math.Ldexp(1, 39) / OscFreq

	var e uint8
	for e < maxSymbolRateExp && scaled >= math.Ldexp(1, 21+int(e)) {
		e++
	}

	var m float64
	if e == 0 {
		m = roundHalfUp(scaled / 2)
	} else {
		m = roundHalfUp(math.Ldexp(scaled, -int(e))) - 1<<20
	}
	mantissa := uint32(clamp(m, 0, maxSymbolRateMantissa))
	return SymbolRateSetting{
		Mantissa:  mantissa,
		Exponent:  e,
		Requested: hz,
		Actual:    SymbolRateFromRegs(mantissa, e),
	}
}

const maxDeviationExp = 7

// DeviationSetting is the encoded form of an FSK frequency deviation.
type DeviationSetting struct {
	Mantissa  uint8 // DEVIATION_M
	Exponent  uint8 // MODCFG_DEV_E.DEV_E
	Requested float64
	Actual    float64
}

// EncodeDeviation halves the mantissa until it fits in 8 bits or the exponent
// runs out, then rounds and clamps it.
func EncodeDeviation(hz float64) DeviationSetting {
	m := math.Max(hz, 0) / OscFreq * math.Ldexp(1, 19)
	var e uint8
	for m > 255 && e < maxDeviationExp {
		m /= 2
		e++
	}
	mantissa := clamp(roundHalfUp(m), 0, 255)
	return DeviationSetting{
		Mantissa:  uint8(mantissa),
		Exponent:  e,
		Requested: hz,
		Actual:    math.Ldexp(mantissa*OscFreq, int(e)-19),
	}
}

var (
	adcDecimations = [...]int{16, 24, 32, 40}
	cicDecimations = [...]int{1, 2, 4, 8, 16, 32, 64}
)

// BandwidthSetting is the encoded form of an RX filter bandwidth.
type BandwidthSetting struct {
	ADCIndex      uint8
	CICIndex      uint8
	ADCDecimation int
	CICDecimation int
	Requested     float64
	Actual        float64
}

// Reg returns the CHAN_BW register value.
func (s BandwidthSetting) Reg() uint8 {
	return s.ADCIndex<<CHAN_BW_ADC_CIC_DECFACT | s.CICIndex
}

// EncodeRXBandwidth searches every ADC and CIC decimation pair for the one
// closest to hz. Pairs with the same product give identical bandwidths; among
// those the smallest CIC decimation wins unless preferHigherCIC is set.
func EncodeRXBandwidth(hz float64, preferHigherCIC bool) BandwidthSetting {
	best := BandwidthSetting{Requested: hz}
	bestErr := math.Inf(1)
	for ai, adc := range adcDecimations {
		for ci, cic := range cicDecimations {
			bw := float64(OscFreq) / float64(8*adc*cic)
			diff := math.Abs(bw - hz)
			better := diff < bestErr
			if diff == bestErr {
				if preferHigherCIC {
					better = cic > best.CICDecimation
				} else {
					better = cic < best.CICDecimation
				}
			}
			if better {
				bestErr = diff
				best.ADCIndex = uint8(ai)
				best.CICIndex = uint8(ci)
				best.ADCDecimation = adc
				best.CICDecimation = cic
				best.Actual = bw
			}
		}
	}
	return best
}

const (
	MinPower = -16.0 // dBm
	MaxPower = 14.0  // dBm
)

// PowerSetting is the encoded form of a PA output level.
type PowerSetting struct {
	Reg       uint8 // 6-bit PA_POWER_RAMP value
	Requested float64
	Actual    float64
}

// EncodePower maps dBm onto the PA's half-dB steps.
func EncodePower(dbm float64) PowerSetting {
	reg := roundHalfUp((clamp(dbm, MinPower, MaxPower) + 16) * 2)
	return PowerSetting{
		Reg:       uint8(reg),
		Requested: dbm,
		Actual:    reg/2 - 16,
	}
}
