package content

import (
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"
)

// Fingerprint computes the content fingerprint of a document from its
// frontmatter fields and Markdown body. A stored fingerprint field is
// excluded so that recording the value does not change it.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	forHash := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == mdfp.FingerprintField {
			continue
		}
		forHash[k] = v
	}

	frontmatter := ""
	if len(forHash) > 0 {
		serialized, err := yaml.Marshal(forHash)
		if err != nil {
			return "", err
		}
		frontmatter = strings.TrimSuffix(string(serialized), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(frontmatter, string(body)), nil
}
