package dive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Decoder turns raw log file bytes into a Timeline. Implementations
// exist per source format; dispatch is by file extension only, never
// by content sniffing.
type Decoder interface {
	Decode(path string, data []byte) (*Timeline, error)
}

// decoders is the closed set of supported log formats.
var decoders = map[string]Decoder{
	".ssrf": subsurfaceDecoder{},
	".xml":  shearwaterDecoder{},
	".fit":  fitDecoder{},
}

// SupportedExtensions lists the registered log file extensions.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(decoders))
	for ext := range decoders {
		exts = append(exts, ext)
	}
	return exts
}

// DecodeFile reads and decodes a dive log file, dispatching on its
// extension.
func DecodeFile(path string) (*Timeline, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		return nil, &UnsupportedFormatError{Path: path, Supported: SupportedExtensions()}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dive log: %w", err)
	}
	return dec.Decode(path, data)
}
