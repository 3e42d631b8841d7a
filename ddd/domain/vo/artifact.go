package vo

// ArtifactRef points at the output media of a succeeded job. ObjectKey is
// set when the artifact was uploaded to the object store, LocalPath when it
// stayed on local disk.
type ArtifactRef struct {
	ObjectKey   string `json:"object_key,omitempty"`
	LocalPath   string `json:"local_path,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// IsZero reports whether the reference points nowhere.
func (a ArtifactRef) IsZero() bool {
	return a.ObjectKey == "" && a.LocalPath == ""
}
