package resource

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/segmentio/ksuid"
)

const (
	SchemaUser         = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaListResponse = "urn:ietf:params:scim:api:messages:2.0:ListResponse"
	SchemaError        = "urn:ietf:params:scim:api:messages:2.0:Error"
)

type Meta struct {
	ResourceType string    `json:"resourceType,omitempty"`
	Created      time.Time `json:"created,omitempty"`
	LastModified time.Time `json:"lastModified,omitempty"`
	Version      string    `json:"version,omitempty"`
	Location     string    `json:"location,omitempty"`
}

// ScimResource is a directory user as returned by /Users. Only the attributes
// the bulk tools touch are modelled; anything else the directory returns is ignored.
type ScimResource struct {
	Schemas    []string `json:"schemas,omitempty"`
	Id         string   `json:"id"`
	ExternalId string   `json:"externalId,omitempty"`
	Meta       *Meta    `json:"meta,omitempty"`
	User
}

// ListResponse is the body of a SCIM search (GET /Users?filter=...).
type ListResponse struct {
	Schemas      []string       `json:"schemas,omitempty"`
	TotalResults int            `json:"totalResults"`
	ItemsPerPage int            `json:"itemsPerPage,omitempty"`
	StartIndex   int            `json:"startIndex,omitempty"`
	Resources    []ScimResource `json:"Resources"`
}

// FirstId returns the id of the first returned resource, or "" when there is none.
func (l *ListResponse) FirstId() string {
	if l == nil || len(l.Resources) == 0 {
		return ""
	}
	return l.Resources[0].Id
}

// ErrorResponse is the SCIM error body (RFC7644 section 3.12).
type ErrorResponse struct {
	Schemas  []string `json:"schemas,omitempty"`
	Status   string   `json:"status,omitempty"`
	ScimType string   `json:"scimType,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

func NewErrorResponse(status string, scimType string, detail string) ErrorResponse {
	return ErrorResponse{
		Schemas:  []string{SchemaError},
		Status:   status,
		ScimType: scimType,
		Detail:   detail,
	}
}

// GenerateFakeUser builds a user with a primary work email and one alternate email.
func GenerateFakeUser(basePath string) ScimResource {
	person := gofakeit.Person()

	createdTime := time.Now()
	ident := ksuid.New().String()
	primary := gofakeit.Email()

	return ScimResource{
		Schemas: []string{SchemaUser},
		Id:      ident,
		Meta: &Meta{
			ResourceType: "User",
			Created:      createdTime,
			LastModified: createdTime,
			Location:     basePath + "/" + ident,
		},
		User: User{
			UserName: primary,
			Name: &Name{
				FamilyName: person.LastName,
				GivenName:  person.FirstName,
			},
			DisplayName: person.FirstName + " " + person.LastName,
			Emails: []MultiValuedAttribute{
				{Value: primary, Type: "work", Primary: true},
				{Value: gofakeit.Email(), Type: "other"},
			},
			Active: true,
		},
	}
}
