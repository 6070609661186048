package internal

import (
	"os"
	"strings"
	"sync"
	"time"

	exiftool "github.com/barasher/go-exiftool"
	"github.com/charmbracelet/log"
	"github.com/rwcarlsen/goexif/exif"
)

// Identifiers recorded as date_source in manifests. The order of the
// chains below is the extraction priority.
const (
	SourceExifDateTimeOriginal  = "exif_datetime_original"
	SourceExifDateTimeDigitized = "exif_datetime_digitized"
	SourceExifDateTime          = "exif_datetime"
	SourceQuickTimeCreationDate = "quicktime_creation_date"
	SourceQuickTimeMediaCreate  = "quicktime_media_create_date"
)

// CaptureMetadata is the extracted capture timestamp and the metadata
// field that supplied it. The zero value means no field matched.
type CaptureMetadata struct {
	TakenAt    time.Time
	DateSource string
}

// Found reports whether any date field parsed successfully.
func (m CaptureMetadata) Found() bool {
	return m.DateSource != ""
}

// dateLayouts are the known on-disk encodings of capture dates. Devices
// vary in separators, offsets and padding, so each field is tried against
// the whole list. Filesystem timestamps are deliberately never consulted:
// they do not survive copies and backups.
var dateLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006:01:02T15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006:01:02 15:04:05-07:00",
	"2006:01:02 15:04",
	"2006-01-02",
}

// parseDateString tries each known layout in order. The wall-clock value
// is kept exactly as written in the metadata; offsets are never applied,
// so month folders follow the camera's own calendar.
func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// exifDateChain is the still-image priority order.
var exifDateChain = []struct {
	tag    exif.FieldName
	source string
}{
	{exif.DateTimeOriginal, SourceExifDateTimeOriginal},
	{exif.DateTimeDigitized, SourceExifDateTimeDigitized},
	{exif.DateTime, SourceExifDateTime},
}

// quickTimeDateChain is the video-container priority order, served by the
// exiftool binary when available.
var quickTimeDateChain = []struct {
	field  string
	source string
}{
	{"CreationDate", SourceQuickTimeCreationDate},
	{"MediaCreateDate", SourceQuickTimeMediaCreate},
}

// Extractor resolves capture timestamps through the chain of metadata
// sources. A missing or unparseable container never fails the file; it
// simply yields empty CaptureMetadata.
type Extractor struct {
	mu  sync.Mutex // exiftool handles are not safe for concurrent use
	et  *exiftool.Exiftool
	log *log.Logger
}

// NewExtractor creates an Extractor. When useExifTool is set and the
// exiftool binary can be started, video container dates become available;
// otherwise only embedded EXIF is consulted.
func NewExtractor(useExifTool bool, logger *log.Logger) *Extractor {
	ex := &Extractor{log: logger}
	if useExifTool {
		et, err := exiftool.NewExiftool()
		if err != nil {
			logger.Warn("exiftool unavailable, video container dates disabled", "err", err)
		} else {
			ex.et = et
		}
	}
	return ex
}

// Close releases the exiftool process, if one was started.
func (e *Extractor) Close() {
	if e.et != nil {
		_ = e.et.Close()
	}
}

// Extract attempts every (field, layout) combination in priority order and
// returns the first match.
func (e *Extractor) Extract(path string) CaptureMetadata {
	if meta, ok := e.exifDates(path); ok {
		return meta
	}
	if meta, ok := e.quickTimeDates(path); ok {
		return meta
	}
	return CaptureMetadata{}
}

func (e *Extractor) exifDates(path string) (CaptureMetadata, bool) {
	f, err := os.Open(path)
	if err != nil {
		return CaptureMetadata{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// Lands here for both a missing EXIF segment and a malformed one.
		// Neither makes the file corrupt: only byte streams that failed
		// hashing are quarantined. The date simply stays unknown.
		return CaptureMetadata{}, false
	}

	for _, entry := range exifDateChain {
		tag, err := x.Get(entry.tag)
		if err != nil {
			continue
		}
		val, err := tag.StringVal()
		if err != nil {
			continue
		}
		if t, ok := parseDateString(val); ok {
			return CaptureMetadata{TakenAt: t, DateSource: entry.source}, true
		}
	}
	return CaptureMetadata{}, false
}

func (e *Extractor) quickTimeDates(path string) (CaptureMetadata, bool) {
	if e.et == nil {
		return CaptureMetadata{}, false
	}

	e.mu.Lock()
	metas := e.et.ExtractMetadata(path)
	e.mu.Unlock()

	if len(metas) == 0 || metas[0].Err != nil {
		return CaptureMetadata{}, false
	}
	for _, entry := range quickTimeDateChain {
		val, err := metas[0].GetString(entry.field)
		if err != nil {
			continue
		}
		if t, ok := parseDateString(val); ok {
			return CaptureMetadata{TakenAt: t, DateSource: entry.source}, true
		}
	}
	return CaptureMetadata{}, false
}
