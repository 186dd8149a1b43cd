package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MediaKind string

const (
	MediaNone   MediaKind = ""
	MediaLocal  MediaKind = "local"
	MediaObject MediaKind = "object"
	MediaURL    MediaKind = "url"
)

// MediaRef points at a post's video: a path on local disk, a key in the
// object store, or a remote URL.
type MediaRef struct {
	Kind  MediaKind `json:"kind"`
	Value string    `json:"value"`
}

func LocalMedia(path string) MediaRef {
	return MediaRef{Kind: MediaLocal, Value: path}
}

func ObjectMedia(key string) MediaRef {
	return MediaRef{Kind: MediaObject, Value: key}
}

func RemoteMedia(url string) MediaRef {
	return MediaRef{Kind: MediaURL, Value: url}
}

func (m MediaRef) IsZero() bool {
	return m.Kind == MediaNone || m.Value == ""
}

func (m MediaRef) String() string {
	return fmt.Sprintf("%s:%s", m.Kind, m.Value)
}

func (m MediaRef) Validate() error {
	switch m.Kind {
	case MediaNone:
		return nil
	case MediaLocal, MediaObject, MediaURL:
		if m.Value == "" {
			return errors.New("media reference is empty")
		}
		return nil
	default:
		return fmt.Errorf("unknown media kind %q", m.Kind)
	}
}

func (m MediaRef) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	type alias MediaRef
	return json.Marshal(alias(m))
}
