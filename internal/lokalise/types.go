package lokalise

import "slices"

// Language is one target language of a task.
type Language struct {
	LanguageISO string `json:"language_iso"`
	Status      string `json:"status,omitempty"`
}

// Task is the subset of the task detail the sync needs.
type Task struct {
	TaskID    int64      `json:"task_id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Languages []Language `json:"languages"`
}

type taskResponse struct {
	ProjectID string `json:"project_id"`
	Task      Task   `json:"task"`
}

// DownloadParams is the body of a file export request.
type DownloadParams struct {
	Format            string   `json:"format"`
	OriginalFilenames bool     `json:"original_filenames"`
	Indentation       string   `json:"indentation,omitempty"`
	FilterData        []string `json:"filter_data,omitempty"`
	FilterLangs       []string `json:"filter_langs,omitempty"`
	DirectoryPrefix   string   `json:"directory_prefix"`
}

// TranslatedJSON returns the export settings used for published resources.
func TranslatedJSON(languages []string) DownloadParams {
	return DownloadParams{
		Format:            "json",
		OriginalFilenames: true,
		Indentation:       "2sp",
		FilterData:        []string{"translated"},
		FilterLangs:       slices.Clone(languages),
		DirectoryPrefix:   "",
	}
}

type downloadResponse struct {
	ProjectID string `json:"project_id"`
	BundleURL string `json:"bundle_url"`
}

// UploadParams is the body of a file import request. Data is base64 encoded.
type UploadParams struct {
	Data            string   `json:"data"`
	Filename        string   `json:"filename"`
	LangISO         string   `json:"lang_iso"`
	ReplaceModified bool     `json:"replace_modified"`
	Tags            []string `json:"tags,omitempty"`
}

// Process states reported for asynchronous imports.
const (
	StatusQueued         = "queued"
	StatusPreProcessing  = "pre_processing"
	StatusRunning        = "running"
	StatusPostProcessing = "post_processing"
	StatusFinished       = "finished"
	StatusFailed         = "failed"
	StatusCancelled      = "cancelled"
)

// Process is a queued platform job such as a file import.
type Process struct {
	ProcessID string `json:"process_id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Done reports whether the process reached a terminal state.
func (p *Process) Done() bool {
	switch p.Status {
	case StatusFinished, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

type processResponse struct {
	ProjectID string  `json:"project_id"`
	Process   Process `json:"process"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}
