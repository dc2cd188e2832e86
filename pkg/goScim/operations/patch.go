package operations

import (
	"encoding/json"
	"fmt"
	"strings"
)

const SchemaPatchOp = "urn:ietf:params:scim:api:messages:2.0:PatchOp"

const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

type PatchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

type PatchRequest struct {
	Schemas    []string  `json:"schemas"`
	Operations []PatchOp `json:"Operations"`
}

// NewRemoveEmailRequest builds a PatchOp removing the email entry whose value equals email.
func NewRemoveEmailRequest(email string) *PatchRequest {
	return &PatchRequest{
		Schemas: []string{SchemaPatchOp},
		Operations: []PatchOp{
			{
				Op:   OpRemove,
				Path: EmailValuePath(email),
			},
		},
	}
}

// EmailValuePath returns the value-filtered path emails[value eq "<email>"].
func EmailValuePath(email string) string {
	return fmt.Sprintf(`emails[value eq "%s"]`, QuoteFilterValue(email))
}

// UserNameFilter returns the filter userName eq "<userName>".
func UserNameFilter(userName string) string {
	return fmt.Sprintf(`userName eq "%s"`, QuoteFilterValue(userName))
}

// QuoteFilterValue escapes backslashes and double quotes so the value can sit inside a
// quoted SCIM filter string.
func QuoteFilterValue(value string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(value)
}

// RemovedEmailValue extracts the email from a path produced by EmailValuePath.
func RemovedEmailValue(path string) (string, bool) {
	const prefix = `emails[value eq "`
	const suffix = `"]`
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	inner := path[len(prefix) : len(path)-len(suffix)]
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(inner), true
}
