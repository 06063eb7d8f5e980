package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// url2key reverses copySource for the mock client.
func url2key(source, bucket string) (string, error) {
	path, err := url.PathUnescape(source)
	if err != nil {
		return "", err
	}
	key, ok := strings.CutPrefix(path, bucket+"/")
	if !ok {
		return "", fmt.Errorf("copy source %q outside bucket %q", source, bucket)
	}
	return key, nil
}
