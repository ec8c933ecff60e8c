package image

import (
	"encoding/binary"
	"testing"
)

// fakeArea is a minimal trailerReader backed by an in-memory buffer,
// used only to exercise the trailer codec in isolation from the flash
// package.
type fakeArea struct {
	data     []byte
	erasedAt byte
}

func newFakeArea(size int, erasedVal byte) *fakeArea {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = erasedVal
	}
	return &fakeArea{data: buf, erasedAt: erasedVal}
}

func (a *fakeArea) Read(offset, length int) ([]byte, error) {
	out := make([]byte, length)
	copy(out, a.data[offset:offset+length])
	return out, nil
}

func (a *fakeArea) write(offset int, b []byte) {
	copy(a.data[offset:offset+len(b)], b)
}

// Write satisfies trailerWriter, so fakeArea can exercise the writer
// helpers the same way a real flash.Area would.
func (a *fakeArea) Write(offset int, b []byte) error {
	a.write(offset, b)
	return nil
}

func TestTrailerLayoutNoEncryption(t *testing.T) {
	layout, err := NewTrailerLayout(4096, 8, 4, false, 0)
	if err != nil {
		t.Fatalf("NewTrailerLayout: %v", err)
	}
	if layout.End != 4096 {
		t.Fatalf("End = %d, want 4096", layout.End)
	}
	if layout.MagicOff != 4096-MagicSize {
		t.Fatalf("MagicOff = %d, want %d", layout.MagicOff, 4096-MagicSize)
	}
	if layout.StatusOff >= layout.SwapSizeOff {
		t.Fatalf("status region must precede swap-size field")
	}
	if layout.StatusOff%8 != 0 {
		t.Fatalf("StatusOff not write-block aligned: %d", layout.StatusOff)
	}
}

func TestTrailerLayoutTooSmall(t *testing.T) {
	if _, err := NewTrailerLayout(64, 8, 100, false, 0); err == nil {
		t.Fatal("expected error for undersized area")
	}
}

func TestSwapStateRoundTripAllErased(t *testing.T) {
	layout, err := NewTrailerLayout(4096, 8, 4, false, 0)
	if err != nil {
		t.Fatalf("NewTrailerLayout: %v", err)
	}
	area := newFakeArea(4096, 0xff)

	st, err := DecodeSwapState(area, layout, 0xff)
	if err != nil {
		t.Fatalf("DecodeSwapState: %v", err)
	}
	if st.Magic != FlagUnset || st.CopyDone != FlagUnset || st.ImageOk != FlagUnset {
		t.Fatalf("expected all-unset state on erased area, got %+v", st)
	}
	if st.SwapType != SwapTypeNone {
		t.Fatalf("expected SwapTypeNone on erased area, got %v", st.SwapType)
	}
}

func TestSwapStateRoundTripPopulated(t *testing.T) {
	layout, err := NewTrailerLayout(4096, 8, 4, false, 0)
	if err != nil {
		t.Fatalf("NewTrailerLayout: %v", err)
	}
	area := newFakeArea(4096, 0xff)

	magic := CanonicalMagic(8)
	area.write(layout.MagicOff, magic[:])
	area.write(layout.ImageOkOff, []byte{1})
	area.write(layout.CopyDoneOff, []byte{1})
	area.write(layout.SwapInfoOff, []byte{EncodeSwapInfo(SwapTypeTest, 0)})
	swapSize := make([]byte, 4)
	binary.LittleEndian.PutUint32(swapSize, 8192)
	area.write(layout.SwapSizeOff, swapSize)

	st, err := DecodeSwapState(area, layout, 0xff)
	if err != nil {
		t.Fatalf("DecodeSwapState: %v", err)
	}
	if st.Magic != FlagSet {
		t.Fatalf("Magic = %v, want FlagSet", st.Magic)
	}
	if st.CopyDone != FlagSet || st.ImageOk != FlagSet {
		t.Fatalf("flags mismatch: %+v", st)
	}
	if st.SwapType != SwapTypeTest {
		t.Fatalf("SwapType = %v, want SwapTypeTest", st.SwapType)
	}
	if !st.HasSwapSize || st.SwapSize != 8192 {
		t.Fatalf("SwapSize mismatch: %+v", st)
	}
}

func TestSwapStateBadFlagByte(t *testing.T) {
	layout, err := NewTrailerLayout(4096, 8, 4, false, 0)
	if err != nil {
		t.Fatalf("NewTrailerLayout: %v", err)
	}
	area := newFakeArea(4096, 0xff)
	area.write(layout.ImageOkOff, []byte{0x42})

	st, err := DecodeSwapState(area, layout, 0xff)
	if err != nil {
		t.Fatalf("DecodeSwapState: %v", err)
	}
	if st.ImageOk != FlagBad {
		t.Fatalf("ImageOk = %v, want FlagBad for corrupted flag byte", st.ImageOk)
	}
}

func TestSwapStateOutOfRangeSwapTypeForcesNone(t *testing.T) {
	layout, err := NewTrailerLayout(4096, 8, 4, false, 0)
	if err != nil {
		t.Fatalf("NewTrailerLayout: %v", err)
	}
	area := newFakeArea(4096, 0xff)
	area.write(layout.SwapInfoOff, []byte{0x09}) // swap_type nibble = 9, out of range

	st, err := DecodeSwapState(area, layout, 0xff)
	if err != nil {
		t.Fatalf("DecodeSwapState: %v", err)
	}
	if st.SwapType != SwapTypeNone {
		t.Fatalf("SwapType = %v, want SwapTypeNone for out-of-range nibble", st.SwapType)
	}
}

func TestDecodeMagicVariants(t *testing.T) {
	m16 := CanonicalMagic(8)
	if DecodeMagic(m16[:], 0xff) != FlagSet {
		t.Fatal("expected 8-byte-aligned canonical magic to decode as set")
	}

	m4 := CanonicalMagic(4)
	if DecodeMagic(m4[:], 0xff) != FlagSet {
		t.Fatal("expected 4-byte-aligned canonical magic to decode as set")
	}

	erased := make([]byte, MagicSize)
	for i := range erased {
		erased[i] = 0xff
	}
	if DecodeMagic(erased, 0xff) != FlagUnset {
		t.Fatal("expected erased bytes to decode as unset")
	}

	garbage := make([]byte, MagicSize)
	if DecodeMagic(garbage, 0xff) != FlagBad {
		t.Fatal("expected all-zero bytes to decode as bad")
	}
}

func TestWriteHelpersRoundTripThroughDecodeSwapState(t *testing.T) {
	layout, err := NewTrailerLayout(4096, 8, 4, false, 0)
	if err != nil {
		t.Fatalf("NewTrailerLayout: %v", err)
	}
	area := newFakeArea(4096, 0xff)

	if err := WriteSwapInfo(area, layout, 0xff, SwapTypeTest, 2); err != nil {
		t.Fatalf("WriteSwapInfo: %v", err)
	}
	if err := WriteCopyDone(area, layout, 0xff); err != nil {
		t.Fatalf("WriteCopyDone: %v", err)
	}
	if err := WriteSwapSize(area, layout, 0xff, 0x1234); err != nil {
		t.Fatalf("WriteSwapSize: %v", err)
	}
	if err := WriteMagic(area, layout); err != nil {
		t.Fatalf("WriteMagic: %v", err)
	}

	st, err := DecodeSwapState(area, layout, 0xff)
	if err != nil {
		t.Fatalf("DecodeSwapState: %v", err)
	}
	if st.Magic != FlagSet {
		t.Error("expected magic to decode as set after WriteMagic")
	}
	if st.SwapType != SwapTypeTest || st.ImageNum != 2 {
		t.Errorf("swap info: got type=%v imageNum=%d, want TEST/2", st.SwapType, st.ImageNum)
	}
	if st.CopyDone != FlagSet {
		t.Error("expected copy_done to decode as set after WriteCopyDone")
	}
	if st.ImageOk != FlagUnset {
		t.Error("expected image_ok to remain unset (WriteImageOk was not called)")
	}
	if !st.HasSwapSize || st.SwapSize != 0x1234 {
		t.Errorf("swap size: got %#x (has=%v), want 0x1234", st.SwapSize, st.HasSwapSize)
	}

	if err := WriteImageOk(area, layout, 0xff); err != nil {
		t.Fatalf("WriteImageOk: %v", err)
	}
	st, err = DecodeSwapState(area, layout, 0xff)
	if err != nil {
		t.Fatalf("DecodeSwapState: %v", err)
	}
	if st.ImageOk != FlagSet {
		t.Error("expected image_ok to decode as set after WriteImageOk")
	}
}

func TestEncodeFlagPanicsOnUnsupportedFlag(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected EncodeFlag(FlagUnset) to panic")
		}
	}()
	EncodeFlag(FlagUnset)
}
