package constants

// PDFSignature is the magic prefix every well-formed PDF starts with.
const PDFSignature = "%PDF-"

// MaxUploadBytes caps a single uploaded document.
const MaxUploadBytes = 25 << 20 // 25 MiB

// MIMEPDF is the content type recorded on stored attachments.
const MIMEPDF = "application/pdf"

// Attachment tags used when persisting the original files on a created case.
const (
	TagOriginalOrder       = "original order"
	TagOriginalCertificate = "original certificate"
)

// IsPDF reports whether the payload carries a PDF signature.
func IsPDF(data []byte) bool {
	return len(data) >= len(PDFSignature) && string(data[:len(PDFSignature)]) == PDFSignature
}
