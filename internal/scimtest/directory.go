// Package scimtest provides an in-memory SCIM directory served over httptest for
// exercising the client and bulk processor.
package scimtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/i2-open/i2goScimBulk/pkg/goScim/operations"
	"github.com/i2-open/i2goScimBulk/pkg/goScim/resource"
)

const (
	TestOrgId = "test-org"
	TestToken = "test-token"
)

var userNameFilter = regexp.MustCompile(`^userName eq "((?:[^"\\]|\\.)*)"$`)

type Directory struct {
	Server *httptest.Server

	mu         sync.Mutex
	users      map[string]*resource.ScimResource
	order      []string
	throttles  []string
	failStatus map[string]int

	lookups  int
	patches  int
	statuses []int
}

func NewDirectory() *Directory {
	d := &Directory{
		users:      map[string]*resource.ScimResource{},
		failStatus: map[string]int{},
	}
	router := mux.NewRouter()
	api := router.PathPrefix("/identity/scim/{org}/v2").Subrouter()
	api.Use(d.authorize)
	api.HandleFunc("/Users", d.searchUsers).Methods(http.MethodGet)
	api.HandleFunc("/Users/{id}", d.patchUser).Methods(http.MethodPatch)
	api.HandleFunc("/Users/{id}", d.getUser).Methods(http.MethodGet)
	d.Server = httptest.NewServer(router)
	return d
}

func (d *Directory) Close() {
	d.Server.Close()
}

// BaseUrl is the SCIM base endpoint for TestOrgId.
func (d *Directory) BaseUrl() string {
	return d.Server.URL + "/identity/scim/" + TestOrgId + "/v2"
}

// AddUser stores a user with the given userName and email values and returns its id.
func (d *Directory) AddUser(userName string, emails ...string) string {
	user := resource.GenerateFakeUser(d.BaseUrl() + "/Users")
	user.UserName = userName
	user.Emails = []resource.MultiValuedAttribute{{Value: userName, Type: "work", Primary: true}}
	for _, e := range emails {
		user.Emails = append(user.Emails, resource.MultiValuedAttribute{Value: e, Type: "other"})
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.Id] = &user
	d.order = append(d.order, user.Id)
	return user.Id
}

// AddFakeUsers adds n generated users and returns them.
func (d *Directory) AddFakeUsers(n int) []resource.ScimResource {
	users := make([]resource.ScimResource, 0, n)
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < n; i++ {
		user := resource.GenerateFakeUser(d.BaseUrl() + "/Users")
		d.users[user.Id] = &user
		d.order = append(d.order, user.Id)
		users = append(users, user)
	}
	return users
}

func (d *Directory) User(id string) (resource.ScimResource, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return resource.ScimResource{}, false
	}
	return *user, true
}

// Counts returns how many searches and patches reached the handlers (throttled
// requests are not counted).
func (d *Directory) Counts() (lookups int, patches int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups, d.patches
}

// Statuses returns the status code of every response sent so far, in order.
func (d *Directory) Statuses() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.statuses...)
}

// Throttle makes the next len(retryAfter) requests answer 429 with the given
// Retry-After values ("" omits the header).
func (d *Directory) Throttle(retryAfter ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.throttles = append(d.throttles, retryAfter...)
}

// FailPatch makes every PATCH of user id answer status.
func (d *Directory) FailPatch(id string, status int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failStatus[id] = status
}

func (d *Directory) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+TestToken {
			d.writeError(w, http.StatusUnauthorized, "", "invalid bearer token")
			return
		}
		if mux.Vars(r)["org"] != TestOrgId {
			d.writeError(w, http.StatusNotFound, "", "unknown organization")
			return
		}
		d.mu.Lock()
		if len(d.throttles) > 0 {
			retryAfter := d.throttles[0]
			d.throttles = d.throttles[1:]
			d.statuses = append(d.statuses, http.StatusTooManyRequests)
			d.mu.Unlock()
			if retryAfter != "" {
				w.Header().Set("Retry-After", retryAfter)
			}
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		d.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (d *Directory) searchUsers(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.lookups++
	d.mu.Unlock()

	filter := r.URL.Query().Get("filter")
	match := userNameFilter.FindStringSubmatch(filter)
	if match == nil {
		d.writeError(w, http.StatusBadRequest, "invalidFilter", fmt.Sprintf("unsupported filter: %s", filter))
		return
	}
	userName := strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(match[1])

	list := resource.ListResponse{
		Schemas:   []string{resource.SchemaListResponse},
		Resources: []resource.ScimResource{},
	}
	d.mu.Lock()
	for _, id := range d.order {
		user := d.users[id]
		if strings.EqualFold(user.UserName, userName) {
			list.Resources = append(list.Resources, *user)
		}
	}
	d.mu.Unlock()
	list.TotalResults = len(list.Resources)
	list.ItemsPerPage = len(list.Resources)
	list.StartIndex = 1
	d.writeJson(w, http.StatusOK, list)
}

func (d *Directory) getUser(w http.ResponseWriter, r *http.Request) {
	user, ok := d.User(mux.Vars(r)["id"])
	if !ok {
		d.writeError(w, http.StatusNotFound, "", "user not found")
		return
	}
	d.writeJson(w, http.StatusOK, user)
}

func (d *Directory) patchUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	d.mu.Lock()
	d.patches++
	failStatus := d.failStatus[id]
	d.mu.Unlock()
	if failStatus != 0 {
		d.writeError(w, failStatus, "", "forced failure")
		return
	}

	body, _ := io.ReadAll(r.Body)
	var patch operations.PatchRequest
	if err := json.Unmarshal(body, &patch); err != nil || len(patch.Operations) == 0 {
		d.writeError(w, http.StatusBadRequest, "invalidSyntax", "malformed PatchOp request")
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		d.writeErrorLocked(w, http.StatusNotFound, "", "user not found")
		return
	}
	for _, op := range patch.Operations {
		email, ok := operations.RemovedEmailValue(op.Path)
		if op.Op != operations.OpRemove || !ok {
			d.writeErrorLocked(w, http.StatusBadRequest, "invalidPath", "unsupported operation")
			return
		}
		if user.RemoveEmail(email) == 0 {
			d.writeErrorLocked(w, http.StatusBadRequest, "noTarget", "email not found on user")
			return
		}
	}
	d.statuses = append(d.statuses, http.StatusNoContent)
	w.WriteHeader(http.StatusNoContent)
}

func (d *Directory) writeJson(w http.ResponseWriter, status int, body any) {
	d.mu.Lock()
	d.statuses = append(d.statuses, status)
	d.mu.Unlock()
	w.Header().Set("Content-Type", "application/scim+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (d *Directory) writeError(w http.ResponseWriter, status int, scimType string, detail string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeErrorLocked(w, status, scimType, detail)
}

func (d *Directory) writeErrorLocked(w http.ResponseWriter, status int, scimType string, detail string) {
	d.statuses = append(d.statuses, status)
	w.Header().Set("Content-Type", "application/scim+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resource.NewErrorResponse(strconv.Itoa(status), scimType, detail))
}
