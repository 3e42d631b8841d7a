package vo

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// InputSource describes where the source media lives. Exactly one field is
// set: a remote URL to download, an object key in the artifact store, or a
// path already on local disk.
type InputSource struct {
	SourceURL string `json:"source_url,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
}

// Validate checks that exactly one location is given and that a URL, when
// present, is http(s).
func (in InputSource) Validate() error {
	set := 0
	if strings.TrimSpace(in.SourceURL) != "" {
		set++
	}
	if strings.TrimSpace(in.ObjectKey) != "" {
		set++
	}
	if strings.TrimSpace(in.LocalPath) != "" {
		set++
	}
	if set == 0 {
		return errors.New("input is required: one of source_url, object_key, local_path")
	}
	if set > 1 {
		return errors.New("input is ambiguous: set only one of source_url, object_key, local_path")
	}

	if in.SourceURL != "" {
		u, err := url.Parse(in.SourceURL)
		if err != nil {
			return fmt.Errorf("invalid source_url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("unsupported source_url scheme: %s", u.Scheme)
		}
	}
	return nil
}

// String renders the set location for logs.
func (in InputSource) String() string {
	switch {
	case in.SourceURL != "":
		return in.SourceURL
	case in.ObjectKey != "":
		return "object:" + in.ObjectKey
	default:
		return in.LocalPath
	}
}
