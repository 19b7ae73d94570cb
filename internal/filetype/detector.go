package filetype

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/local/pdftools/internal/apperr"
)

// PDF is the only MIME type the tools accept.
const PDF = "application/pdf"

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType  string
	Extension string
	Supported bool
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect detects the actual file type using magic bytes, not filename
func (d *Detector) Detect(data []byte) *FileTypeInfo {
	mtype := mimetype.Detect(data)
	info := &FileTypeInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
		Supported: mtype.Is(PDF),
	}
	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Msg("detected file type")
	return info
}

// CheckPDF requires both the declared content type and the sniffed content
// to be PDF.
func (d *Detector) CheckPDF(name, declared string, data []byte) error {
	const op = "filetype.check"
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil || !strings.EqualFold(mt, PDF) {
		return apperr.Newf(apperr.KindInvalidInputType, op, "%s declared as %q", name, declared)
	}
	info := d.Detect(data)
	if !info.Supported {
		log.Warn().Str("file", name).Str("declared", declared).Str("detected", info.MIMEType).Msg("content does not match declared type")
		return apperr.Newf(apperr.KindInvalidInputType, op, "%s content is %s", name, info.MIMEType)
	}
	return nil
}
