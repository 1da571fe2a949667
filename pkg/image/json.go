package image

import "encoding/json"

// jsonImage is the wire shape of an Image.
type jsonImage struct {
	Reference     string `json:"reference"`
	Registry      string `json:"registry"`
	Repository    string `json:"repository"`
	Tag           string `json:"tag"`
	CurrentDigest string `json:"current_digest,omitempty"`
	LatestDigest  string `json:"latest_digest,omitempty"`
	Status        Status `json:"status"`
	Error         string `json:"error,omitempty"`
}

// MarshalJSON renders the image together with its derived status.
func (i Image) MarshalJSON() ([]byte, error) {
	out := jsonImage{
		Reference:     i.Reference,
		Registry:      i.Registry,
		Repository:    i.Repository,
		Tag:           i.Tag,
		CurrentDigest: i.CurrentDigest,
		LatestDigest:  i.LatestDigest(),
		Status:        i.Status(),
	}

	if err := i.Err(); err != nil {
		out.Error = err.Error()
	}

	return json.Marshal(out)
}

// MarshalJSON renders a rejected reference.
func (e *ReferenceError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Reference string `json:"reference"`
		Error     string `json:"error"`
	}{e.Reference, e.Err.Error()})
}
