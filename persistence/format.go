package persistence

import "errors"

const (
	// MagicNumber identifies campie array blobs (ASCII: "CAM0").
	MagicNumber = 0x43414d30
	// Version is the current array format version (v1.0.0).
	Version = 0x00010000

	// FormatName is stored in every manifest.
	FormatName = "campie"
	// ManifestVersion is the current manifest schema version.
	ManifestVersion = 1
)

var (
	// ErrCorrupt is returned when a stored blob fails validation.
	ErrCorrupt = errors.New("persisted ensemble corrupt")
	// ErrIncompatibleFormat is returned for blobs written by an unknown
	// format or version.
	ErrIncompatibleFormat = errors.New("incompatible persistence format")
)

// FileHeader is the 32-byte header at the start of every array blob.
type FileHeader struct {
	Magic    uint32 // 0x43414d30 ("CAM0")
	Version  uint32 // Array format version
	DType    uint8  // cam.DType
	Flags    uint8  // reserved
	Padding  [2]byte
	Rows     uint32
	Features uint32
	Checksum uint32 // CRC32 of the payload following the header
	Reserved [8]byte
}

// headerSize is the encoded size of FileHeader.
const headerSize = 32

// Manifest describes a saved ensemble.
type Manifest struct {
	Format      string          `json:"format"`
	Version     int             `json:"version"`
	Name        string          `json:"name"`
	Task        string          `json:"task"`
	NumClasses  int             `json:"num_classes,omitempty"`
	Weights     []float64       `json:"weights,omitempty"`
	BaseScore   float64         `json:"base_score,omitempty"`
	DType       string          `json:"dtype"`
	Features    int             `json:"features"`
	Compression string          `json:"compression"`
	Arrays      []ArrayManifest `json:"arrays"`
}

// ArrayManifest describes one array blob.
type ArrayManifest struct {
	Blob     string `json:"blob"`
	Rows     int    `json:"rows"`
	Checksum uint32 `json:"checksum"`
	Size     int64  `json:"size"`
}
