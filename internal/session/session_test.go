package session

import (
	"bytes"
	"testing"

	"github.com/nconklindev/tablegrab/internal/api"
)

func newTestSession() *Session {
	return New(api.New("http://localhost:8000", nil))
}

func pngCandidate(name string, size int) Candidate {
	return Candidate{Name: name, Data: bytes.Repeat([]byte{0xAB}, size)}
}

func TestAddValidation(t *testing.T) {
	tests := []struct {
		name       string
		candidate  Candidate
		wantStaged bool
		wantReason RejectReason
	}{
		{"PNG accepted", pngCandidate("scan.png", 100), true, RejectNone},
		{"JPEG accepted", pngCandidate("scan.jpg", 100), true, RejectNone},
		{"JPEG alt extension accepted", pngCandidate("scan.jpeg", 100), true, RejectNone},
		{"BMP accepted", pngCandidate("scan.bmp", 100), true, RejectNone},
		{"TIFF accepted", pngCandidate("scan.tiff", 100), true, RejectNone},
		{"GIF rejected", pngCandidate("scan.gif", 100), false, RejectBadType},
		{"PDF rejected", pngCandidate("scan.pdf", 100), false, RejectBadType},
		{"exactly 10 MiB accepted", pngCandidate("big.png", MaxFileSize), true, RejectNone},
		{"over 10 MiB rejected", pngCandidate("huge.png", MaxFileSize + 1), false, RejectTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession()
			outcomes := s.Add(tt.candidate)
			if len(outcomes) != 1 {
				t.Fatalf("got %d outcomes; want 1", len(outcomes))
			}
			out := outcomes[0]
			if out.Staged != tt.wantStaged {
				t.Errorf("Staged = %v; want %v", out.Staged, tt.wantStaged)
			}
			if out.Reason != tt.wantReason {
				t.Errorf("Reason = %v; want %v", out.Reason, tt.wantReason)
			}
			wantLen := 0
			if tt.wantStaged {
				wantLen = 1
			}
			if s.Len() != wantLen {
				t.Errorf("Len() = %d; want %d", s.Len(), wantLen)
			}
		})
	}
}

func TestAddRejectionLeavesListUnchanged(t *testing.T) {
	s := newTestSession()
	s.Add(pngCandidate("keep.png", 10))

	outcomes := s.Add(pngCandidate("bad.gif", 10), pngCandidate("huge.png", MaxFileSize+1))
	for _, out := range outcomes {
		if out.Staged {
			t.Errorf("%s was staged; want rejected", out.Name)
		}
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d; want 1", s.Len())
	}
}

func TestAddSniffsUnknownExtension(t *testing.T) {
	// A real PNG signature with a non-image extension must still be
	// recognised, and stageable.
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 64)...)
	s := newTestSession()
	outcomes := s.Add(Candidate{Name: "mislabeled.dat", Data: png})
	if !outcomes[0].Staged {
		t.Fatalf("sniffed PNG not staged, reason %v", outcomes[0].Reason)
	}
	if outcomes[0].MIME != "image/png" {
		t.Errorf("MIME = %q; want image/png", outcomes[0].MIME)
	}
}

func TestAddDuplicateSilentlyDropped(t *testing.T) {
	s := newTestSession()
	s.Add(pngCandidate("scan.png", 100))

	outcomes := s.Add(pngCandidate("scan.png", 100))
	if outcomes[0].Staged {
		t.Error("duplicate was staged")
	}
	if outcomes[0].Reason != RejectDuplicate {
		t.Errorf("Reason = %v; want RejectDuplicate", outcomes[0].Reason)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d; want 1", s.Len())
	}

	// Same name but different size is not a duplicate.
	outcomes = s.Add(pngCandidate("scan.png", 200))
	if !outcomes[0].Staged {
		t.Error("same-name different-size candidate was not staged")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d; want 2", s.Len())
	}
}

func TestRemove(t *testing.T) {
	s := newTestSession()
	s.Add(
		pngCandidate("a.png", 1),
		pngCandidate("b.png", 2),
		pngCandidate("c.png", 3),
	)

	if !s.Remove(1) {
		t.Fatal("Remove(1) = false; want true")
	}

	files := s.Files()
	if len(files) != 2 {
		t.Fatalf("Len() = %d; want 2", len(files))
	}
	if files[0].Name != "a.png" || files[1].Name != "c.png" {
		t.Errorf("remaining order = [%s %s]; want [a.png c.png]", files[0].Name, files[1].Name)
	}
}

func TestRemoveOutOfRange(t *testing.T) {
	s := newTestSession()
	s.Add(pngCandidate("a.png", 1))

	for _, i := range []int{-1, 1, 99} {
		if s.Remove(i) {
			t.Errorf("Remove(%d) = true; want false", i)
		}
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d after out-of-range removals; want 1", s.Len())
	}
}

func TestClear(t *testing.T) {
	s := newTestSession()
	s.Add(pngCandidate("a.png", 1), pngCandidate("b.png", 2))

	s.Clear()

	if s.Len() != 0 {
		t.Errorf("Len() = %d; want 0", s.Len())
	}
	if _, ok := s.First(); ok {
		t.Error("First() returned a file after Clear")
	}
	if len(s.uploads) != 0 {
		t.Errorf("upload cache has %d entries after Clear; want 0", len(s.uploads))
	}
}

func TestCanProcess(t *testing.T) {
	s := newTestSession()
	if s.CanProcess() {
		t.Error("CanProcess() = true with empty list")
	}

	s.Add(pngCandidate("a.png", 1))
	if !s.CanProcess() {
		t.Error("CanProcess() = false with staged file and no run in flight")
	}

	s.mu.Lock()
	s.processing = true
	s.mu.Unlock()
	if s.CanProcess() {
		t.Error("CanProcess() = true while processing")
	}
}

func TestFirst(t *testing.T) {
	s := newTestSession()
	if _, ok := s.First(); ok {
		t.Fatal("First() = ok on empty session")
	}

	s.Add(pngCandidate("first.png", 1), pngCandidate("second.png", 2))
	f, ok := s.First()
	if !ok || f.Name != "first.png" {
		t.Errorf("First() = %q, %v; want first.png, true", f.Name, ok)
	}
}

func TestDetectMIME(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"png extension", "x.PNG", []byte{1}, "image/png"},
		{"jpg extension", "x.jpg", []byte{1}, "image/jpeg"},
		{"tif extension", "x.tif", []byte{1}, "image/tiff"},
		{"bmp sniff", "x.bin", append([]byte("BM"), bytes.Repeat([]byte{0}, 32)...), "image/bmp"},
		{"plain text", "x.txt", []byte("hello world"), "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectMIME(tt.file, tt.data)
			if got != tt.want {
				t.Errorf("detectMIME(%q) = %q; want %q", tt.file, got, tt.want)
			}
		})
	}
}
