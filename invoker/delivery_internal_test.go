package invoker

import "testing"

func TestCopyPoolReusesReleasedBlocks(t *testing.T) {
	var p copyPool
	a, own, release := p.copyOut([]byte{1, 2, 3, 4})
	if own != Owned || len(a) != 4 {
		t.Fatalf("expected an owned 4 byte block got %v %d", own, len(a))
	}
	release()
	release()
	b, _, _ := p.copyOut([]byte{9, 9})
	if len(b) != 2 || b[0] != 9 {
		t.Errorf("expected [9 9] got %v", b)
	}
}

func TestInPlaceBorrows(t *testing.T) {
	src := []byte{1, 2}
	data, own, release := inPlace(src)
	if own != Borrowed || release != nil || &data[0] != &src[0] {
		t.Error("expected the source memory borrowed with nothing to release")
	}
}
