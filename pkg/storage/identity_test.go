package storage

import (
	"strings"
	"testing"
)

// TestNewIdentityNormalizesPath verifies that equivalent root spellings
// compare equal.
func TestNewIdentityNormalizesPath(t *testing.T) {
	a := NewIdentity("/workspaces/alpha", "v1")
	b := NewIdentity("/workspaces//alpha/", "v1")
	if a != b {
		t.Errorf("expected normalized identities to compare equal: %v vs %v", a, b)
	}

	c := NewIdentity("/workspaces/alpha", "v2")
	if a == c {
		t.Error("expected identities with different versions to differ")
	}

	empty := NewIdentity("", "v1")
	if empty.Root != "" {
		t.Errorf("expected empty root to stay empty, got %q", empty.Root)
	}
	if !strings.Contains(empty.String(), "no-root") {
		t.Errorf("expected the empty root to be visible in logs, got %q", empty.String())
	}
}

func TestStreamKeyValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     StreamKey
		wantErr bool
	}{
		{name: "global", key: GlobalKey("index"), wantErr: false},
		{name: "project", key: ProjectKey("api", "diagnostics"), wantErr: false},
		{name: "document", key: DocumentKey("api", "main.go", "outline"), wantErr: false},
		{name: "missing name", key: StreamKey{Scope: ScopeGlobal}, wantErr: true},
		{name: "global with project", key: StreamKey{Scope: ScopeGlobal, Project: "api", Name: "x"}, wantErr: true},
		{name: "project without project", key: StreamKey{Scope: ScopeProject, Name: "x"}, wantErr: true},
		{name: "project with document", key: StreamKey{Scope: ScopeProject, Project: "api", Document: "d", Name: "x"}, wantErr: true},
		{name: "document without document", key: StreamKey{Scope: ScopeDocument, Project: "api", Name: "x"}, wantErr: true},
		{name: "unknown scope", key: StreamKey{Scope: "galaxy", Name: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("expected validation error for %+v", tt.key)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error for %+v: %v", tt.key, err)
			}
		})
	}
}

func TestChecksumRoundTrip(t *testing.T) {
	data := []byte("the quick brown fox")
	sum := ChecksumOf(data)

	parsed, err := ParseChecksum(sum.String())
	if err != nil {
		t.Fatalf("failed to parse checksum: %v", err)
	}
	if parsed != sum {
		t.Errorf("expected parsed checksum to equal the original")
	}

	fromReader, err := ChecksumOfReader(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("failed to checksum reader: %v", err)
	}
	if fromReader != sum {
		t.Error("expected reader checksum to match byte checksum")
	}
}

func TestParseChecksumRejectsBadInput(t *testing.T) {
	if _, err := ParseChecksum("not-hex"); err == nil {
		t.Error("expected non-hex input to be rejected")
	}
	if _, err := ParseChecksum("abcd"); err == nil {
		t.Error("expected short input to be rejected")
	}
}
