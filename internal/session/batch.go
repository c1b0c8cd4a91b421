package session

import (
	"context"
	"errors"

	"github.com/nconklindev/tablegrab/internal/types"
)

var (
	// ErrNothingStaged is returned when Process is invoked on an empty list.
	ErrNothingStaged = errors.New("no files staged")
	// ErrBusy is returned when a batch run is already in flight.
	ErrBusy = errors.New("a batch is already being processed")
)

// Process runs the upload-then-process sequence for every staged file,
// strictly one request at a time in staging order. The first failure at any
// step aborts the remainder of the run; the in-flight flag is always cleared
// on the way out. Only the first file's extraction result is returned.
//
// progress, if non-nil, is called before each request with the running
// position. It must be safe to call from the goroutine running Process.
func (s *Session) Process(ctx context.Context, progress func(types.ProgressUpdate)) (*types.BatchResult, error) {
	s.mu.Lock()
	if len(s.files) == 0 {
		s.mu.Unlock()
		return nil, ErrNothingStaged
	}
	if s.processing {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.processing = true
	batch := make([]types.StagedFile, len(s.files))
	copy(batch, s.files)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
	}()

	total := len(batch)
	report := func(u types.ProgressUpdate) {
		if progress != nil {
			progress(u)
		}
	}

	// Phase one: upload each file. A non-2xx response or transport error
	// aborts the whole batch before the next file is touched.
	uploaded := make([]types.UploadResult, 0, total)
	for i, f := range batch {
		report(types.ProgressUpdate{
			Phase:    types.PhaseUpload,
			Index:    i,
			Total:    total,
			Filename: f.Name,
			Fraction: float64(i) / float64(total),
		})
		ur, err := s.client.Upload(ctx, f.Name, f.Data)
		if err != nil {
			return nil, err
		}
		uploaded = append(uploaded, ur)
		s.mu.Lock()
		s.uploads[f.ID] = ur
		s.mu.Unlock()
	}

	// Phase two: trigger extraction per uploaded file. Results after the
	// first are requested for their server-side effects only.
	var first *types.ProcessResult
	for i, ur := range uploaded {
		report(types.ProgressUpdate{
			Phase:    types.PhaseProcess,
			Index:    i,
			Total:    total,
			Filename: ur.Filename,
			Fraction: float64(i+1) / float64(total),
		})
		pr, err := s.client.Process(ctx, ur.FileID, ur.Filename)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = pr
		}
	}

	return &types.BatchResult{FilesProcessed: total, First: first}, nil
}
