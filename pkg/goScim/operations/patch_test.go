package operations

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRemoveEmailRequest(t *testing.T) {
	req := NewRemoveEmailRequest("alice.alt@example.com")

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"schemas": ["urn:ietf:params:scim:api:messages:2.0:PatchOp"],
		"Operations": [{"op": "remove", "path": "emails[value eq \"alice.alt@example.com\"]"}]
	}`, string(body))
}

func TestFilters(t *testing.T) {
	assert.Equal(t, `userName eq "bob@example.com"`, UserNameFilter("bob@example.com"))
	assert.Equal(t, `userName eq "odd\"name"`, UserNameFilter(`odd"name`))
}

func TestRemovedEmailValue(t *testing.T) {
	value, ok := RemovedEmailValue(EmailValuePath(`we"ird@example.com`))
	assert.True(t, ok)
	assert.Equal(t, `we"ird@example.com`, value)

	_, ok = RemovedEmailValue("phoneNumbers")
	assert.False(t, ok)
}
