package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// Answer-attachment upload constraints.
const (
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeText        = "text/"
	MimeOctetStream = "application/octet-stream"

	MaxAttachmentBytes = 20 << 20
)
