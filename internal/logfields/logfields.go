package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID      = "job_id"
	KeyPageID     = "page_id"
	KeyPageTitle  = "page_title"
	KeySpace      = "space"
	KeyVersion    = "page_version"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyURL        = "url"
	KeyAttachment = "attachment"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyWorker     = "worker"
	KeyStatus     = "status"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func PageID(id string) slog.Attr      { return slog.String(KeyPageID, id) }
func PageTitle(t string) slog.Attr    { return slog.String(KeyPageTitle, t) }
func Space(s string) slog.Attr        { return slog.String(KeySpace, s) }
func Version(v int) slog.Attr         { return slog.Int(KeyVersion, v) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Attachment(a string) slog.Attr   { return slog.String(KeyAttachment, a) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Worker(id int) slog.Attr         { return slog.Int(KeyWorker, id) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
