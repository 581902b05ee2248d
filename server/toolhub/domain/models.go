package domain

import (
	"net/url"
	"strings"
	"time"
)

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
)

// CallerIdentity is the resolved principal for one request. It is derived
// once from the optional credential header and never persisted.
type CallerIdentity struct {
	ID   string
	Role Role
}

func Anonymous() CallerIdentity {
	return CallerIdentity{Role: RoleAnonymous}
}

func (c CallerIdentity) Authenticated() bool {
	return c.Role == RoleUser || c.Role == RoleAdmin
}

// UploadedFile is one multipart file parsed fully into memory. It lives only
// for the handler invocation that received it.
type UploadedFile struct {
	Name        string
	ContentType string
	SizeBytes   int64
	Content     []byte
}

// Upload carries everything the gate parsed out of one multipart body:
// the files and the plain form fields with tool parameters.
type Upload struct {
	Files  []UploadedFile
	Fields url.Values
}

// OutputFile is one transformation result waiting to be bundled or stored.
type OutputFile struct {
	Name        string
	ContentType string
	Content     []byte
}

// ActivityEntry is one immutable usage log record. Recording one also bumps
// the per-endpoint counter and the global total.
type ActivityEntry struct {
	ID         string
	Endpoint   string
	Method     string
	CallerID   string
	RemoteAddr string
	Status     int
	At         time.Time
}

const (
	AnonymousMaxBytes     = 10 << 20
	AuthenticatedMaxBytes = 50 << 20
)

// SizeLimitPolicy is the per-request upload budget. It is a pure function of
// the caller's role, computed fresh for every request.
type SizeLimitPolicy struct {
	MaxBytes         int64
	AllowedMIMETypes []string
}

var allowedMIMETypes = []string{
	"image/*",
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/csv",
	"text/plain",
}

func PolicyFor(role Role) SizeLimitPolicy {
	maxBytes := int64(AnonymousMaxBytes)
	if role == RoleUser || role == RoleAdmin {
		maxBytes = AuthenticatedMaxBytes
	}
	return SizeLimitPolicy{MaxBytes: maxBytes, AllowedMIMETypes: allowedMIMETypes}
}

// Allows matches a declared content type against the policy. Entries ending
// in "/*" match the whole major type; media type parameters are ignored.
func (p SizeLimitPolicy) Allows(contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	for _, allowed := range p.AllowedMIMETypes {
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok {
			if strings.HasPrefix(mediaType, prefix+"/") {
				return true
			}
			continue
		}
		if mediaType == allowed {
			return true
		}
	}
	return false
}
