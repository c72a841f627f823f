// Package ragerr defines the sentinel error taxonomy shared across ragdag's
// components, wrapped with github.com/pkg/errors so call sites can attach
// operation context while callers still match against the taxonomy with
// errors.Is/errors.As.
package ragerr

import "github.com/pkg/errors"

// Kind identifies a taxonomy member independent of its wrapped message.
type Kind string

const (
	KindNotAStore           Kind = "not_a_store"
	KindBadConfig           Kind = "bad_config"
	KindUnsupportedFileType Kind = "unsupported_file_type"
	KindParseUnavailable    Kind = "parse_unavailable"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindProviderFailure     Kind = "provider_failure"
	KindCorruptEmbeddings   Kind = "corrupt_embeddings"
	KindOrphan              Kind = "orphan"
	KindStale               Kind = "stale"
	KindTimeout             Kind = "timeout"
)

// Error is a taxonomy member. It supports errors.Is by Kind and carries a
// human-readable message independent of any wrapping applied by callers.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is reports whether target is an *Error with the same Kind, allowing
// errors.Is(err, ragerr.NotAStore) style checks against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels usable directly with errors.Is.
var (
	NotAStore           = &Error{Kind: KindNotAStore}
	BadConfig           = &Error{Kind: KindBadConfig}
	UnsupportedFileType = &Error{Kind: KindUnsupportedFileType}
	ParseUnavailable    = &Error{Kind: KindParseUnavailable}
	ProviderUnavailable = &Error{Kind: KindProviderUnavailable}
	ProviderFailure     = &Error{Kind: KindProviderFailure}
	CorruptEmbeddings   = &Error{Kind: KindCorruptEmbeddings}
	Orphan              = &Error{Kind: KindOrphan}
	Stale               = &Error{Kind: KindStale}
	Timeout             = &Error{Kind: KindTimeout}
)

// New builds a new taxonomy error of the given kind with a formatted message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches operation context to err via github.com/pkg/errors while
// preserving errors.Is/errors.As matchability against the taxonomy.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, context)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// KindOf extracts the taxonomy Kind from err, walking wrapped errors. The
// second return is false if err carries no taxonomy member.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
