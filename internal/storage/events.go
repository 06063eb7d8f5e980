package storage

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
)

// ErrNoRecords is returned for a notification without records.
var ErrNoRecords = errors.New("notification has no records")

// ObjectRef names one object.
type ObjectRef struct {
	Bucket string
	Key    string
}

// FirstObject returns the object named by the first record of ev. Later
// records are ignored; S3 sends one record per notification.
func FirstObject(ev events.S3Event) (ObjectRef, error) {
	if len(ev.Records) == 0 {
		return ObjectRef{}, ErrNoRecords
	}
	return recordObject(ev.Records[0])
}

// Objects returns every object named by ev.
func Objects(ev events.S3Event) ([]ObjectRef, error) {
	refs := make([]ObjectRef, 0, len(ev.Records))
	for _, rec := range ev.Records {
		ref, err := recordObject(rec)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// recordObject decodes the form-encoded key ("+" is a space).
func recordObject(rec events.S3EventRecord) (ObjectRef, error) {
	key, err := url.QueryUnescape(rec.S3.Object.Key)
	if err != nil {
		return ObjectRef{}, fmt.Errorf("decoding object key %q: %w", rec.S3.Object.Key, err)
	}
	return ObjectRef{Bucket: rec.S3.Bucket.Name, Key: key}, nil
}
