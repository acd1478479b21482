package frame

import (
	"testing"

	"github.com/dbehnke/voicebridge/pkg/crypto25"
)

func imbeCodeword(fill byte) []byte {
	cw := make([]byte, 11)
	for i := range cw {
		cw[i] = fill
	}
	return cw
}

func TestP25Assembler_EmitsOneLDU1PerNineImbe(t *testing.T) {
	a := NewP25Assembler(1, 2, false, nil)

	var ldu1Count int
	for i := 0; i < 9; i++ {
		events, err := a.PushCodeword(imbeCodeword(byte(i)))
		if err != nil {
			t.Fatalf("PushCodeword: %v", err)
		}
		for _, ev := range events {
			if ev.DUID == P25DUIDLDU1 {
				ldu1Count++
			}
		}
	}
	if ldu1Count != 1 {
		t.Errorf("expected exactly one LDU1 after 9 IMBEs, got %d", ldu1Count)
	}
}

func TestP25Assembler_EncryptedCallEmitsHDUAndAdvancesMIPerLDU2(t *testing.T) {
	eng := crypto25.New()
	eng.SetTEKAlgo(crypto25.AlgoAES256)
	eng.SetKey(make([]byte, 32))

	a := NewP25Assembler(1, 2, false, eng)

	var hduCount, ldu2Count int
	var miAfterFirstLDU2 [9]byte
	for i := 0; i < 18; i++ {
		events, err := a.PushCodeword(imbeCodeword(byte(i)))
		if err != nil {
			t.Fatalf("PushCodeword: %v", err)
		}
		for _, ev := range events {
			switch ev.DUID {
			case P25DUIDHDU:
				hduCount++
			case P25DUIDLDU2:
				ldu2Count++
				miAfterFirstLDU2 = eng.GetMI()
			}
		}
	}
	if hduCount != 1 {
		t.Errorf("expected exactly one HDU before the first LDU1 of an encrypted call, got %d", hduCount)
	}
	if ldu2Count != 1 {
		t.Errorf("expected exactly one LDU2 after 18 IMBEs, got %d", ldu2Count)
	}
	if miAfterFirstLDU2 == ([9]byte{}) {
		t.Errorf("expected MI to be non-zero after first LDU2 advance")
	}
}

func TestP25Assembler_UnencryptedCallEmitsNoHDU(t *testing.T) {
	a := NewP25Assembler(1, 2, false, nil)
	for i := 0; i < 18; i++ {
		events, err := a.PushCodeword(imbeCodeword(byte(i)))
		if err != nil {
			t.Fatalf("PushCodeword: %v", err)
		}
		for _, ev := range events {
			if ev.DUID == P25DUIDHDU {
				t.Fatalf("did not expect HDU for an unencrypted call")
			}
		}
	}
}

func TestP25Assembler_EmitTDUResetsState(t *testing.T) {
	a := NewP25Assembler(1, 2, true, nil)
	a.grantEncrypt = true
	for i := 0; i < 5; i++ {
		a.PushCodeword(imbeCodeword(byte(i)))
	}
	tdu := a.EmitTDU()
	if tdu.DUID != P25DUIDTDU {
		t.Fatalf("expected TDU event")
	}
	if tdu.Data[0]&0x80 == 0 || tdu.Data[0]&0x40 == 0 {
		t.Errorf("expected GRANT_DEMAND and GRANT_ENCRYPT bits set, got %#02x", tdu.Data[0])
	}
	if a.p25N != 0 {
		t.Errorf("expected p25N reset to 0 after TDU, got %d", a.p25N)
	}
}
