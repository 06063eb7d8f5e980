package core

import (
	"context"
	"path"
	"strings"
)

// DestinationKey places key's base name under prefix.
func DestinationKey(prefix, key string) string {
	return strings.Trim(prefix, "/") + "/" + path.Base(key)
}

// relocatedAlready reports whether key already sits in a destination folder.
// Importing such an object would move it onto itself.
func (s *Service) relocatedAlready(key string) bool {
	for _, prefix := range []string{s.cfg.SuccessPrefix, s.cfg.ErrorPrefix} {
		if strings.HasPrefix(key, strings.Trim(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// relocate moves the source object to the success or error folder.
func (s *Service) relocate(ctx context.Context, bucket, key string, passed bool) (string, error) {
	prefix := s.cfg.ErrorPrefix
	if passed {
		prefix = s.cfg.SuccessPrefix
	}
	dst := DestinationKey(prefix, key)

	if err := s.objects.Move(ctx, bucket, key, dst); err != nil {
		return "", &RelocationError{Bucket: bucket, Key: key, Destination: dst, Err: err}
	}
	return dst, nil
}
