package rvm

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

// TestBasicCommit is spec.md §8 scenario 1: write, commit, restart, verify.
func TestBasicCommit(t *testing.T) {
	rv, dir := setupTempRVM(t)

	base, err := rv.Map("seg1", 1000)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	tid, err := rv.BeginTrans([][]byte{base})
	if err != nil {
		t.Fatalf("BeginTrans failed: %v", err)
	}

	if err := rv.AboutToModify(tid, base, 100, 6); err != nil {
		t.Fatalf("AboutToModify failed: %v", err)
	}
	copy(base[100:106], []byte("AAAAA\x00"))

	if err := rv.CommitTrans(tid); err != nil {
		t.Fatalf("CommitTrans failed: %v", err)
	}

	if err := rv.Unmap(base); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}

	// Restart: fresh RVM handle over the same directory.
	rv2, err := Init(dir)
	if err != nil {
		t.Fatalf("reinit failed: %v", err)
	}
	base2, err := rv2.Map("seg1", 1000)
	if err != nil {
		t.Fatalf("remap failed: %v", err)
	}
	defer rv2.Unmap(base2) // nolint:errcheck

	if !bytes.Equal(base2[100:106], []byte("AAAAA\x00")) {
		t.Errorf("expected %q at [100:106], got %q", "AAAAA\x00", base2[100:106])
	}
}

// TestOverlappingDeclarationsThenAbort is spec.md §8 scenario 2.
func TestOverlappingDeclarationsThenAbort(t *testing.T) {
	rv, dir := setupTempRVM(t)

	base, err := rv.Map("seg1", 1000)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	tid, err := rv.BeginTrans([][]byte{base})
	if err != nil {
		t.Fatalf("BeginTrans failed: %v", err)
	}

	if err := rv.AboutToModify(tid, base, 100, 6); err != nil {
		t.Fatalf("AboutToModify failed: %v", err)
	}
	copy(base[100:106], []byte("AAAAA\x00"))

	if err := rv.AboutToModify(tid, base, 103, 6); err != nil {
		t.Fatalf("AboutToModify failed: %v", err)
	}
	copy(base[103:109], []byte("BBBBB\x00"))

	if err := rv.CommitTrans(tid); err != nil {
		t.Fatalf("CommitTrans failed: %v", err)
	}

	tid2, err := rv.BeginTrans([][]byte{base})
	if err != nil {
		t.Fatalf("second BeginTrans failed: %v", err)
	}
	if err := rv.AboutToModify(tid2, base, 102, 4); err != nil {
		t.Fatalf("AboutToModify failed: %v", err)
	}
	copy(base[102:106], []byte("CCC\x00"))

	if err := rv.AbortTrans(tid2); err != nil {
		t.Fatalf("AbortTrans failed: %v", err)
	}

	if err := rv.Unmap(base); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}

	rv2, err := Init(dir)
	if err != nil {
		t.Fatalf("reinit failed: %v", err)
	}
	base2, err := rv2.Map("seg1", 1000)
	if err != nil {
		t.Fatalf("remap failed: %v", err)
	}
	defer rv2.Unmap(base2) // nolint:errcheck

	want := "AAABBBBB"
	if got := string(base2[100:108]); got != want {
		t.Errorf("expected %q at [100:108], got %q", want, got)
	}
}

// TestConflictingBegin is spec.md §8 scenario 3.
func TestConflictingBegin(t *testing.T) {
	rv, _ := setupTempRVM(t)

	baseA, err := rv.Map("A", 100)
	if err != nil {
		t.Fatalf("Map A failed: %v", err)
	}
	baseB, err := rv.Map("B", 100)
	if err != nil {
		t.Fatalf("Map B failed: %v", err)
	}

	tidA, err := rv.BeginTrans([][]byte{baseA})
	if err != nil {
		t.Fatalf("BeginTrans(A) failed: %v", err)
	}
	if tidA != 1 {
		t.Errorf("expected tidA == 1, got %d", tidA)
	}

	tidConflict, err := rv.BeginTrans([][]byte{baseA, baseB})
	if err == nil {
		t.Errorf("expected BeginTrans([A,B]) to fail while A has a live transaction")
	}
	if tidConflict != NoTransaction {
		t.Errorf("expected NoTransaction on conflict, got %d", tidConflict)
	}

	tidB, err := rv.BeginTrans([][]byte{baseB})
	if err != nil {
		t.Fatalf("BeginTrans(B) failed: %v", err)
	}
	if tidB != 2 {
		t.Errorf("expected tidB == 2, got %d", tidB)
	}

	if err := rv.AbortTrans(tidA); err != nil {
		t.Fatalf("AbortTrans(A) failed: %v", err)
	}
	if err := rv.AbortTrans(tidB); err != nil {
		t.Fatalf("AbortTrans(B) failed: %v", err)
	}
}

// TestReplayOnMap is spec.md §8 scenario 4.
func TestReplayOnMap(t *testing.T) {
	rv, dir := setupTempRVM(t)

	base, err := rv.Map("seg1", 1000)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	tid, err := rv.BeginTrans([][]byte{base})
	if err != nil {
		t.Fatalf("BeginTrans failed: %v", err)
	}
	if err := rv.AboutToModify(tid, base, 0, 4); err != nil {
		t.Fatalf("AboutToModify failed: %v", err)
	}
	copy(base[0:4], []byte{1, 2, 3, 4})
	if err := rv.CommitTrans(tid); err != nil {
		t.Fatalf("CommitTrans failed: %v", err)
	}
	if err := rv.Unmap(base); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}

	// The data file itself must still be untouched.
	raw, err := os.ReadFile(dataPath(dir, "seg1"))
	if err != nil {
		t.Fatalf("read data file failed: %v", err)
	}
	if !bytes.Equal(raw[0:4], []byte{0, 0, 0, 0}) {
		t.Errorf("expected data file to remain zero before truncate, got %v", raw[0:4])
	}

	rv2, err := Init(dir)
	if err != nil {
		t.Fatalf("reinit failed: %v", err)
	}
	base2, err := rv2.Map("seg1", 1000)
	if err != nil {
		t.Fatalf("remap failed: %v", err)
	}
	defer rv2.Unmap(base2) // nolint:errcheck

	if !bytes.Equal(base2[0:4], []byte{1, 2, 3, 4}) {
		t.Errorf("expected replayed bytes [1 2 3 4], got %v", base2[0:4])
	}
}

// TestTruncateFoldsLogIntoData is spec.md §8 scenario 5, continuing from
// scenario 4's on-disk state.
func TestTruncateFoldsLogIntoData(t *testing.T) {
	rv, dir := setupTempRVM(t)

	base, err := rv.Map("seg1", 1000)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	tid, err := rv.BeginTrans([][]byte{base})
	if err != nil {
		t.Fatalf("BeginTrans failed: %v", err)
	}
	if err := rv.AboutToModify(tid, base, 0, 4); err != nil {
		t.Fatalf("AboutToModify failed: %v", err)
	}
	copy(base[0:4], []byte{1, 2, 3, 4})
	if err := rv.CommitTrans(tid); err != nil {
		t.Fatalf("CommitTrans failed: %v", err)
	}

	if err := rv.TruncateLog(); err != nil {
		t.Fatalf("TruncateLog failed: %v", err)
	}

	logInfo, err := os.Stat(logPath(dir, "seg1"))
	if err != nil {
		t.Fatalf("stat log file failed: %v", err)
	}
	if logInfo.Size() != 0 {
		t.Errorf("expected log file to be empty after truncate, got size %d", logInfo.Size())
	}

	raw, err := os.ReadFile(dataPath(dir, "seg1"))
	if err != nil {
		t.Fatalf("read data file failed: %v", err)
	}
	if !bytes.Equal(raw[0:4], []byte{1, 2, 3, 4}) {
		t.Errorf("expected data file [1 2 3 4] after truncate, got %v", raw[0:4])
	}

	if err := rv.Unmap(base); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
}

// TestTruncateIdempotent is spec.md §8's truncate_log idempotence law.
func TestTruncateIdempotent(t *testing.T) {
	rv, _ := setupTempRVM(t)

	base, err := rv.Map("seg1", 100)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	tid, err := rv.BeginTrans([][]byte{base})
	if err != nil {
		t.Fatalf("BeginTrans failed: %v", err)
	}
	if err := rv.AboutToModify(tid, base, 0, 4); err != nil {
		t.Fatalf("AboutToModify failed: %v", err)
	}
	copy(base[0:4], []byte{9, 9, 9, 9})
	if err := rv.CommitTrans(tid); err != nil {
		t.Fatalf("CommitTrans failed: %v", err)
	}

	if err := rv.TruncateLog(); err != nil {
		t.Fatalf("first TruncateLog failed: %v", err)
	}
	if err := rv.TruncateLog(); err != nil {
		t.Fatalf("second TruncateLog failed: %v", err)
	}

	if err := rv.Unmap(base); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
}

// TestExtensionOnMap is spec.md §8 scenario 6, combined with replay (the
// prior contents come from a committed, un-truncated transaction).
func TestExtensionOnMap(t *testing.T) {
	rv, dir := setupTempRVM(t)

	base, err := rv.Map("seg1", 500)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	tid, err := rv.BeginTrans([][]byte{base})
	if err != nil {
		t.Fatalf("BeginTrans failed: %v", err)
	}
	if err := rv.AboutToModify(tid, base, 0, 4); err != nil {
		t.Fatalf("AboutToModify failed: %v", err)
	}
	copy(base[0:4], []byte{9, 9, 9, 9})
	if err := rv.CommitTrans(tid); err != nil {
		t.Fatalf("CommitTrans failed: %v", err)
	}
	if err := rv.Unmap(base); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}

	base2, err := rv.Map("seg1", 1000)
	if err != nil {
		t.Fatalf("remap with larger size failed: %v", err)
	}
	defer rv.Unmap(base2) // nolint:errcheck

	if len(base2) != 1000 {
		t.Fatalf("expected mapped length 1000, got %d", len(base2))
	}
	if !bytes.Equal(base2[0:4], []byte{9, 9, 9, 9}) {
		t.Errorf("expected prior contents [9 9 9 9], got %v", base2[0:4])
	}
	for i := 500; i < 1000; i++ {
		if base2[i] != 0 {
			t.Fatalf("expected zero-fill at byte %d, got %d", i, base2[i])
		}
	}

	info, err := os.Stat(dataPath(dir, "seg1"))
	if err != nil {
		t.Fatalf("stat data file failed: %v", err)
	}
	if info.Size() != 1000 {
		t.Errorf("expected data file length 1000, got %d", info.Size())
	}
}

func TestMapTwiceRejected(t *testing.T) {
	rv, _ := setupTempRVM(t)

	base, err := rv.Map("seg1", 100)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	defer rv.Unmap(base) // nolint:errcheck

	if _, err := rv.Map("seg1", 100); !errors.Is(err, ErrSegmentMapped) {
		t.Errorf("expected ErrSegmentMapped, got %v", err)
	}
}

func TestUnmapUnknownBase(t *testing.T) {
	rv, _ := setupTempRVM(t)

	if err := rv.Unmap(make([]byte, 4)); !errors.Is(err, ErrUnknownSegment) {
		t.Errorf("expected ErrUnknownSegment, got %v", err)
	}
}

func TestDestroyUnmapped(t *testing.T) {
	rv, dir := setupTempRVM(t)

	base, err := rv.Map("seg1", 100)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := rv.Unmap(base); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}

	if err := rv.Destroy("seg1"); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}

	if _, err := os.Stat(dataPath(dir, "seg1")); !os.IsNotExist(err) {
		t.Errorf("expected data file removed, stat err = %v", err)
	}
	if _, err := os.Stat(logPath(dir, "seg1")); !os.IsNotExist(err) {
		t.Errorf("expected log file removed, stat err = %v", err)
	}

	// Destroying an already-destroyed segment tolerates missing files.
	if err := rv.Destroy("seg1"); err != nil {
		t.Errorf("expected Destroy to tolerate missing files, got %v", err)
	}
}
