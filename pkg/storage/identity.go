package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
)

// Identity identifies the workspace a backing store belongs to.
// Two identities compare equal when both the normalized root path and the
// format version match; a version bump deliberately maps to a different
// working folder so that old and new formats never share a database.
type Identity struct {
	// Root is the normalized workspace root path. An empty root means the
	// workspace has no on-disk location and no backing store is attempted.
	Root string

	// Version is the storage format version marker.
	Version string
}

// NewIdentity creates an identity for the given workspace root, normalizing
// the path so that equivalent spellings compare equal.
func NewIdentity(root, version string) Identity {
	if root != "" {
		root = filepath.Clean(root)
	}
	return Identity{Root: root, Version: version}
}

// String returns a short human-readable form for logs.
func (id Identity) String() string {
	if id.Root == "" {
		return "<no-root>@" + id.Version
	}
	return id.Root + "@" + id.Version
}

// Scope selects which level of the workspace a stream belongs to.
type Scope string

const (
	// ScopeGlobal streams are keyed only by name.
	ScopeGlobal Scope = "global"

	// ScopeProject streams are keyed by project and name.
	ScopeProject Scope = "project"

	// ScopeDocument streams are keyed by project, document, and name.
	ScopeDocument Scope = "document"
)

// StreamKey names one stored stream within a workspace store.
type StreamKey struct {
	Scope    Scope
	Project  string
	Document string
	Name     string
}

// GlobalKey builds a key for a workspace-global stream.
func GlobalKey(name string) StreamKey {
	return StreamKey{Scope: ScopeGlobal, Name: name}
}

// ProjectKey builds a key for a per-project stream.
func ProjectKey(project, name string) StreamKey {
	return StreamKey{Scope: ScopeProject, Project: project, Name: name}
}

// DocumentKey builds a key for a per-document stream.
func DocumentKey(project, document, name string) StreamKey {
	return StreamKey{Scope: ScopeDocument, Project: project, Document: document, Name: name}
}

// Validate checks that the key carries the fields its scope requires.
func (k StreamKey) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("stream key requires a name")
	}
	switch k.Scope {
	case ScopeGlobal:
		if k.Project != "" || k.Document != "" {
			return fmt.Errorf("global stream key must not carry project or document")
		}
	case ScopeProject:
		if k.Project == "" {
			return fmt.Errorf("project stream key requires a project")
		}
		if k.Document != "" {
			return fmt.Errorf("project stream key must not carry a document")
		}
	case ScopeDocument:
		if k.Project == "" || k.Document == "" {
			return fmt.Errorf("document stream key requires a project and a document")
		}
	default:
		return fmt.Errorf("unknown stream scope: %q", k.Scope)
	}
	return nil
}

// String returns the slash-joined form used in logs and traces.
func (k StreamKey) String() string {
	switch k.Scope {
	case ScopeProject:
		return fmt.Sprintf("%s/%s/%s", k.Scope, k.Project, k.Name)
	case ScopeDocument:
		return fmt.Sprintf("%s/%s/%s/%s", k.Scope, k.Project, k.Document, k.Name)
	default:
		return fmt.Sprintf("%s/%s", k.Scope, k.Name)
	}
}

// ChecksumSize is the length of a Checksum in bytes.
const ChecksumSize = sha256.Size

// Checksum is a SHA-256 digest used to tag and validate stored streams.
type Checksum [ChecksumSize]byte

// ChecksumOf computes the checksum of the given data.
func ChecksumOf(data []byte) Checksum {
	return sha256.Sum256(data)
}

// ChecksumOfReader computes the checksum of everything readable from r.
func ChecksumOfReader(r io.Reader) (Checksum, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return Checksum{}, fmt.Errorf("failed to checksum stream: %w", err)
	}
	var sum Checksum
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// ParseChecksum decodes a hex-encoded checksum.
func ParseChecksum(s string) (Checksum, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Checksum{}, fmt.Errorf("invalid checksum encoding: %w", err)
	}
	if len(raw) != ChecksumSize {
		return Checksum{}, fmt.Errorf("invalid checksum length: %d", len(raw))
	}
	var sum Checksum
	copy(sum[:], raw)
	return sum, nil
}

// String returns the hex form of the checksum.
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}
