package flash

import "testing"

func testDescriptor() Descriptor {
	return Descriptor{
		Name:       AreaNameImage0Pri,
		ID:         1,
		Device:     0,
		Offset:     0,
		Size:       4096,
		SectorSize: 1024,
		EraseVal:   0xff,
	}
}

func TestMemAreaReadWriteRoundTrip(t *testing.T) {
	a, err := NewMemArea(testDescriptor(), 8)
	if err != nil {
		t.Fatalf("NewMemArea: %v", err)
	}

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := a.Write(0, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := a.Read(0, len(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], data[i])
		}
	}
}

func TestMemAreaRejectsUnalignedWrite(t *testing.T) {
	a, err := NewMemArea(testDescriptor(), 8)
	if err != nil {
		t.Fatalf("NewMemArea: %v", err)
	}
	if err := a.Write(1, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err == nil {
		t.Fatal("expected alignment error")
	}
	if err := a.Write(0, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected alignment error for short write")
	}
}

func TestMemAreaRejectsWriteToNonErasedByte(t *testing.T) {
	a, err := NewMemArea(testDescriptor(), 8)
	if err != nil {
		t.Fatalf("NewMemArea: %v", err)
	}
	data := make([]byte, 8)
	for i := range data {
		data[i] = byte(i + 1)
	}
	if err := a.Write(0, data); err != nil {
		t.Fatalf("first write: %v", err)
	}
	changed := make([]byte, 8)
	for i := range changed {
		changed[i] = byte(i + 0x10)
	}
	if err := a.Write(0, changed); err == nil {
		t.Fatal("expected error writing over non-erased bytes")
	}
}

func TestMemAreaEraseRestoresErasedValue(t *testing.T) {
	a, err := NewMemArea(testDescriptor(), 8)
	if err != nil {
		t.Fatalf("NewMemArea: %v", err)
	}
	data := make([]byte, 1024)
	for i := range data {
		data[i] = 0x42
	}
	if err := a.Write(0, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := a.Erase(0, 1024); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	got, err := a.Read(0, 1024)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, b := range got {
		if b != 0xff {
			t.Fatalf("byte %d = %#x after erase, want 0xff", i, b)
		}
	}
}

func TestMemAreaEraseRequiresSectorAlignment(t *testing.T) {
	a, err := NewMemArea(testDescriptor(), 8)
	if err != nil {
		t.Fatalf("NewMemArea: %v", err)
	}
	if err := a.Erase(8, 1024); err == nil {
		t.Fatal("expected error for sector-misaligned erase offset")
	}
	if err := a.Erase(0, 512); err == nil {
		t.Fatal("expected error for erase length not a sector multiple")
	}
}

func TestMemAreaSnapshotIsIndependent(t *testing.T) {
	a, err := NewMemArea(testDescriptor(), 8)
	if err != nil {
		t.Fatalf("NewMemArea: %v", err)
	}
	snap := a.Snapshot()

	data := make([]byte, 8)
	for i := range data {
		data[i] = 0x11
	}
	if err := a.Write(0, data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := snap.Read(0, 8)
	if err != nil {
		t.Fatalf("snapshot Read: %v", err)
	}
	for _, b := range got {
		if b != 0xff {
			t.Fatal("snapshot observed a write made after it was taken")
		}
	}
}

func TestSortByDevOff(t *testing.T) {
	a := Descriptor{Device: 0, Offset: 4096}
	b := Descriptor{Device: 0, Offset: 0}
	c := Descriptor{Device: 1, Offset: 0}

	sorted := SortByDevOff([]Descriptor{a, b, c})
	if sorted[0] != b || sorted[1] != a || sorted[2] != c {
		t.Fatalf("unexpected order: %+v", sorted)
	}
}

func TestDetectOverlaps(t *testing.T) {
	a := Descriptor{Device: 0, Offset: 0, Size: 100}
	b := Descriptor{Device: 0, Offset: 50, Size: 100}
	c := Descriptor{Device: 0, Offset: 200, Size: 100}

	overlaps := DetectOverlaps([]Descriptor{a, b, c})
	if len(overlaps) != 1 {
		t.Fatalf("got %d overlaps, want 1", len(overlaps))
	}
	if overlaps[0][0] != a || overlaps[0][1] != b {
		t.Fatalf("unexpected overlap pair: %+v", overlaps[0])
	}
}

func TestSectorAt(t *testing.T) {
	a, err := NewMemArea(testDescriptor(), 8)
	if err != nil {
		t.Fatalf("NewMemArea: %v", err)
	}
	s, err := a.SectorAt(1100)
	if err != nil {
		t.Fatalf("SectorAt: %v", err)
	}
	if s.Offset != 1024 || s.Size != 1024 {
		t.Fatalf("got sector %+v, want offset 1024 size 1024", s)
	}

	if _, err := a.SectorAt(-1); err == nil {
		t.Fatal("expected error for out-of-range offset")
	}
}
