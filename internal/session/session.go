// Package session owns the client-side state of one extraction workflow:
// the staged files awaiting upload, the cached upload identifiers, and the
// in-flight flag that guards a batch run. It is deliberately free of any
// rendering concern so the same controller drives the TUI and the tests.
package session

import (
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/nconklindev/tablegrab/internal/api"
	"github.com/nconklindev/tablegrab/internal/types"
)

// MaxFileSize is the largest image the client will stage (10 MiB).
const MaxFileSize = 10 * 1024 * 1024

// allowedMIME is the image type allow-list accepted by the service.
var allowedMIME = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/bmp":  true,
	"image/tiff": true,
}

var extMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// Candidate is a file the user picked, before validation.
type Candidate struct {
	Name string
	Data []byte
}

// RejectReason says why a candidate was not staged.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectBadType
	RejectTooLarge
	RejectDuplicate
)

// Outcome reports what happened to one candidate passed to Add. Duplicates
// are dropped silently, so the UI only surfaces RejectBadType and
// RejectTooLarge.
type Outcome struct {
	Name   string
	MIME   string
	Staged bool
	Reason RejectReason
}

// Session is the single owner of staged files and in-flight status for one
// interactive run of the client.
type Session struct {
	mu         sync.Mutex
	client     *api.Client
	files      []types.StagedFile
	uploads    map[uuid.UUID]types.UploadResult
	processing bool
}

// New returns an empty Session bound to the given service client.
func New(client *api.Client) *Session {
	return &Session{
		client:  client,
		uploads: make(map[uuid.UUID]types.UploadResult),
	}
}

// Add validates and stages a batch of candidates, returning one Outcome per
// candidate in input order. Wrong type or oversize candidates are rejected
// with a reason; a candidate matching an already staged (name, size) pair is
// skipped without error. Order of accepted files is preserved.
func (s *Session) Add(candidates ...Candidate) []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := make([]Outcome, 0, len(candidates))
	for _, c := range candidates {
		mime := detectMIME(c.Name, c.Data)
		out := Outcome{Name: c.Name, MIME: mime}

		switch {
		case !allowedMIME[mime]:
			out.Reason = RejectBadType
		case int64(len(c.Data)) > MaxFileSize:
			out.Reason = RejectTooLarge
		case s.hasDuplicate(c.Name, int64(len(c.Data))):
			out.Reason = RejectDuplicate
		default:
			s.files = append(s.files, types.StagedFile{
				ID:   uuid.New(),
				Name: c.Name,
				Size: int64(len(c.Data)),
				MIME: mime,
				Data: c.Data,
			})
			out.Staged = true
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// hasDuplicate reports whether a staged entry already carries the same
// (name, size) pair. Caller holds the lock.
func (s *Session) hasDuplicate(name string, size int64) bool {
	for _, f := range s.files {
		if f.Name == name && f.Size == size {
			return true
		}
	}
	return false
}

// Remove drops the staged entry at index i together with its cached upload
// identifier. Out-of-range indices are a no-op returning false.
func (s *Session) Remove(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.files) {
		return false
	}
	delete(s.uploads, s.files[i].ID)
	s.files = append(s.files[:i], s.files[i+1:]...)
	return true
}

// Clear empties the staged list and the upload cache.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = nil
	s.uploads = make(map[uuid.UUID]types.UploadResult)
}

// Files returns a snapshot of the staged list in staging order.
func (s *Session) Files() []types.StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.StagedFile, len(s.files))
	copy(out, s.files)
	return out
}

// First returns the first staged file, which the preview pane shows.
func (s *Session) First() (types.StagedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.files) == 0 {
		return types.StagedFile{}, false
	}
	return s.files[0], true
}

// Len returns the number of staged files.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Processing reports whether a batch run is in flight.
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// CanProcess reports whether the process action is currently available:
// at least one staged file and no run in flight.
func (s *Session) CanProcess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files) > 0 && !s.processing
}

// detectMIME maps the filename extension to a MIME type, falling back to
// content sniffing for files with unknown or missing extensions.
func detectMIME(name string, data []byte) string {
	if mime, ok := extMIME[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	sniffed := http.DetectContentType(data)
	// DetectContentType appends parameters for text types; image types
	// come back bare.
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}
