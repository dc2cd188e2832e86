package resource

type Name struct {
	Formatted  string `json:"formatted,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
	MiddleName string `json:"middleName,omitempty"`
}

// MultiValuedAttribute is one entry of a SCIM multi-valued attribute such as emails.
type MultiValuedAttribute struct {
	Value   string `json:"value"`
	Type    string `json:"type,omitempty"`
	Display string `json:"display,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

type User struct {
	UserName    string                 `json:"userName,omitempty"`
	Name        *Name                  `json:"name,omitempty"`
	DisplayName string                 `json:"displayName,omitempty"`
	Emails      []MultiValuedAttribute `json:"emails,omitempty"`
	Active      bool                   `json:"active,omitempty"`
}

// HasEmail reports whether value is one of the user's email values.
func (u *User) HasEmail(value string) bool {
	for _, e := range u.Emails {
		if e.Value == value {
			return true
		}
	}
	return false
}

// RemoveEmail drops every email entry equal to value and returns how many were removed.
func (u *User) RemoveEmail(value string) int {
	kept := u.Emails[:0]
	removed := 0
	for _, e := range u.Emails {
		if e.Value == value {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	u.Emails = kept
	return removed
}
