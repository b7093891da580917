package recording

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"fieldscribe/internal/config"
	"fieldscribe/internal/storage"
)

// Fingerprinter derives the deduplication key for a source object.
type Fingerprinter interface {
	// NeedsContent reports whether Fingerprint reads the audio bytes. When
	// false the ledger can be consulted before downloading.
	NeedsContent() bool
	Fingerprint(obj storage.Object, data []byte) (string, error)
}

// NewFingerprinter returns the implementation for a ledger.fingerprint value.
func NewFingerprinter(scheme string) (Fingerprinter, error) {
	switch scheme {
	case config.FingerprintContent, "":
		return ContentFingerprinter{}, nil
	case config.FingerprintMetadata:
		return MetadataFingerprinter{}, nil
	default:
		return nil, fmt.Errorf("unsupported fingerprint scheme %q", scheme)
	}
}

// ContentFingerprinter hashes the audio bytes with MD5 (hex), the key format
// of existing "procesados" ledgers.
type ContentFingerprinter struct{}

func (ContentFingerprinter) NeedsContent() bool { return true }

func (ContentFingerprinter) Fingerprint(_ storage.Object, data []byte) (string, error) {
	if data == nil {
		return "", fmt.Errorf("content fingerprint requires audio bytes")
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// MetadataFingerprinter combines the backend object ID with its
// modification time: "<id>@<RFC3339 UTC>".
type MetadataFingerprinter struct{}

func (MetadataFingerprinter) NeedsContent() bool { return false }

func (MetadataFingerprinter) Fingerprint(obj storage.Object, _ []byte) (string, error) {
	if obj.ID == "" {
		return "", fmt.Errorf("metadata fingerprint requires an object id")
	}
	if obj.ModifiedTime.IsZero() {
		return "", fmt.Errorf("metadata fingerprint requires a modification time for %s", obj.ID)
	}
	return obj.ID + "@" + obj.ModifiedTime.UTC().Format(time.RFC3339), nil
}
