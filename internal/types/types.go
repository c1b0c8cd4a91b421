package types

import "github.com/google/uuid"

// StagedFile is a validated, user-selected image held in memory until the
// batch is submitted.
type StagedFile struct {
	ID   uuid.UUID
	Name string
	Size int64
	MIME string
	Data []byte
}

// UploadResult is the server's acknowledgement of one uploaded file.
type UploadResult struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

// ProcessResult is the extraction outcome for one processed file.
// PreviewData is row-major; when it has more than one row the first row is
// treated as a header.
type ProcessResult struct {
	PreviewData [][]string `json:"preview_data"`
	RowCount    int        `json:"row_count"`
	ColCount    int        `json:"col_count"`
	ExcelURL    string     `json:"excel_url,omitempty"`
}

// CellCount returns RowCount x ColCount.
func (r *ProcessResult) CellCount() int {
	return r.RowCount * r.ColCount
}

// BatchResult summarises one completed upload-then-process run. Only the
// first file's extraction result is kept; later files are processed for
// their server-side effects but their results are discarded.
type BatchResult struct {
	FilesProcessed int
	First          *ProcessResult
}

// Phase identifies which half of a batch run a progress update belongs to.
type Phase int

const (
	PhaseUpload Phase = iota
	PhaseProcess
)

func (p Phase) String() string {
	if p == PhaseUpload {
		return "uploading"
	}
	return "processing"
}

// ProgressUpdate reports the position of a batch run. Index is zero-based
// within the phase; Fraction drives a single 0..1 progress bar across both
// phases (uploads fill the first half of the run, processing the rest).
type ProgressUpdate struct {
	Phase    Phase
	Index    int
	Total    int
	Filename string
	Fraction float64
}
