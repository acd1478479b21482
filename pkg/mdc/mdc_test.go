package mdc

import "testing"

func TestConvertUnitID_AllDecimalDigitsParsedAsDecimal(t *testing.T) {
	// 0x1234 -> "1234", all decimal digits -> parsed as decimal 1234
	got := ConvertUnitID(0x1234)
	if got != 1234 {
		t.Errorf("expected 1234, got %d", got)
	}
}

func TestConvertUnitID_NonDecimalHexKeptRaw(t *testing.T) {
	// 0xabcd -> "abcd", contains non-decimal characters -> raw value kept
	got := ConvertUnitID(0xabcd)
	if got != 0xabcd {
		t.Errorf("expected raw value %d, got %d", uint32(0xabcd), got)
	}
}

func TestConvertUnitID_ZeroRoundsTrips(t *testing.T) {
	if ConvertUnitID(0) != 0 {
		t.Errorf("expected 0 to convert to 0")
	}
}
