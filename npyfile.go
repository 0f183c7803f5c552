package gonpy

const (
	npyMagicString = "\x93NUMPY"
	npySuffix      = ".npy"
)

// NpyFile is the parsed framing metadata of one .npy stream: everything
// between the first byte and the start of the payload.
type NpyFile struct {
	// Major and Minor are the format version; (1,0) and (2,0) are
	// accepted on read, (2,0) is always emitted on write.
	Major byte
	Minor byte

	// HeaderLenWidth is the byte width of the header-length field: 2 for
	// version 1.0, 4 for 2.0.
	HeaderLenWidth int

	// Header holds the raw ASCII header bytes, padding and trailing
	// newline included. HeaderLen is its declared length.
	Header    []byte
	HeaderLen int

	// DataOffset is the file offset of the first payload byte:
	// magic + version + header-length field + header.
	DataOffset int64

	// PayloadSize is the declared payload byte length, 0 when the source
	// is streaming and its total size is unknown.
	PayloadSize int64

	// Streaming is set when the source size is unknown ahead of time, in
	// which case PayloadSize is 0 and truncation is only detected at
	// iteration time.
	Streaming bool
}

// Version returns the parsed format version pair.
func (n *NpyFile) Version() (major, minor byte) { return n.Major, n.Minor }
