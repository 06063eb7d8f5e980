package core

import (
	"fmt"
	"strings"
)

// Object tags read from a source file.
const (
	TagIdP       = "idp"
	TagUsername  = "username"
	TagTimeZone  = "timezone"
	TagDialect   = "dialect"
	TagHasHeader = "has_header"
)

// Dialects name the field delimiter of a file.
var dialects = map[string]rune{
	"excel":     ',',
	"excel-tab": '\t',
}

// importOptions are the per-file settings after tag overrides.
type importOptions struct {
	idpEntityID string
	userID      string
	normalizer  *TimestampNormalizer
	comma       rune
	hasHeader   bool
}

// resolveOptions applies tags over the service defaults.
func (s *Service) resolveOptions(bucket, key string, tags map[string]string) (importOptions, error) {
	metaErr := func(tag string, err error) error {
		return &MetadataError{Bucket: bucket, Key: key, Tag: tag, Err: err}
	}

	opts := importOptions{
		idpEntityID: tags[TagIdP],
		userID:      tags[TagUsername],
		normalizer:  s.normalizer,
		comma:       dialects[s.cfg.Dialect],
		hasHeader:   s.cfg.HasHeader,
	}
	if opts.comma == 0 {
		opts.comma = ','
	}

	if opts.idpEntityID == "" {
		return importOptions{}, metaErr(TagIdP, ErrMissingTag)
	}
	if opts.userID == "" {
		return importOptions{}, metaErr(TagUsername, ErrMissingTag)
	}

	if zone, ok := tags[TagTimeZone]; ok {
		n, err := NewTimestampNormalizer(zone)
		if err != nil {
			return importOptions{}, metaErr(TagTimeZone, fmt.Errorf("%w %q", ErrInvalidTag, zone))
		}
		opts.normalizer = n
	}

	if dialect, ok := tags[TagDialect]; ok {
		comma, known := dialects[dialect]
		if !known {
			return importOptions{}, metaErr(TagDialect, fmt.Errorf("%w %q", ErrInvalidTag, dialect))
		}
		opts.comma = comma
	}

	if v, ok := tags[TagHasHeader]; ok {
		opts.hasHeader = parseHasHeader(v)
	}

	return opts, nil
}

// parseHasHeader accepts true/1/y/yes in any case; anything else is false.
func parseHasHeader(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "y", "yes":
		return true
	}
	return false
}
