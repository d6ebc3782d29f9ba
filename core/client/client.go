// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package client provides easy and fast in-process access to the search API

Instead of marshalling HTTP, the client talks directly to the mux router. The client
is the tool of choice for unit tests. With NewWithURL, the same calls go over the
network.
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/docfilter/core"
	"github.com/relabs-tech/docfilter/core/access"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
	auth       *access.Authorization
	ctx        context.Context

	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
//
// WithAuthorization() adds an authorization to the request context.
// WithContext() specifies a different base context all together.
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the backend
//
// WithToken adds an authorization token to the request header.
func NewWithURL(url string) Client {
	return Client{
		url:            url,
		httpClient:     &http.Client{Timeout: 20 * time.Second},
		defaultHeaders: map[string]string{},
	}
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	headers := make(map[string]string, len(c.defaultHeaders)+1)
	for k, v := range c.defaultHeaders {
		headers[k] = v
	}
	headers[key] = value
	c.defaultHeaders = headers
	return c
}

// WithToken returns a new client which sends token as bearer token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithRole returns a new client with role authorization
// (this works only directly against the mux router, for a normal client
//
//	use WithToken()))
func (c Client) WithRole(role string) Client {
	c.auth = &access.Authorization{
		Roles: []string{role},
	}
	return c
}

// WithAuthorization returns a new client with specific authorizations
// (this works only directly against the mux router, for a normal client
//
//	use WithToken())
func (c Client) WithAuthorization(auth *access.Authorization) Client {
	c.auth = auth
	return c
}

// WithContext returns a new client with specific request context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the request context including the authorization
func (c Client) Context() context.Context {
	ctx := c.ctx
	if c.ctx == nil {
		ctx = context.Background()
	}
	if c.auth != nil {
		ctx = access.ContextWithAuthorization(ctx, c.auth)
	}
	return ctx
}

// Collection represents a collection of particular resource
type Collection struct {
	client     *Client
	resource   string
	parameters []string
}

// Collection returns a collection for a resource
func (c Client) Collection(resource string) Collection {
	return Collection{
		client:   &c,
		resource: resource,
	}
}

// WithParameter returns a new collection with a query parameter added
func (r Collection) WithParameter(key string, value string) Collection {
	parameters := append([]string{}, r.parameters...)
	parameters = append(parameters, url.QueryEscape(key)+"="+url.QueryEscape(value))
	return Collection{
		client:     r.client,
		resource:   r.resource,
		parameters: parameters,
	}
}

// WithFilter adds an equals filter on a property. Value is compared as number or
// boolean if it reads as one.
func (r Collection) WithFilter(key string, value string) Collection {
	return r.WithParameter("filter", key+"="+value)
}

// WithContainsFilter adds a contains filter on a property
func (r Collection) WithContainsFilter(key string, value string) Collection {
	return r.WithParameter("filter", key+"~"+value)
}

// CollectionPath returns the collection path including query parameters
func (r Collection) CollectionPath() string {
	path := "/" + core.Plural(r.resource)
	if len(r.parameters) > 0 {
		path += "?" + strings.Join(r.parameters, "&")
	}
	return path
}

// SearchPath returns the path of the search route, including query parameters
func (r Collection) SearchPath() string {
	path := "/" + core.Plural(r.resource) + "/search"
	if len(r.parameters) > 0 {
		path += "?" + strings.Join(r.parameters, "&")
	}
	return path
}

// Create creates a new document. Returns the actual http status code.
//
// result can be nil.
func (r Collection) Create(body interface{}, result interface{}) (int, error) {
	return r.client.RawPost(r.CollectionPath(), body, result)
}

// List lists the collection with the query parameters of the collection.
// Returns the actual http status code and the response header, which contains the
// pagination headers.
func (r Collection) List(result interface{}) (int, http.Header, error) {
	return r.client.RawGetWithHeader(r.CollectionPath(), nil, result)
}

// SearchRequest is the body of a search
type SearchRequest struct {
	Filter   interface{} `json:"filter,omitempty"`
	Search   *string     `json:"search,omitempty"`
	Fields   []string    `json:"fields,omitempty"`
	Skip     interface{} `json:"skip,omitempty"`
	PageSize interface{} `json:"page_size,omitempty"`
	OrderBy  string      `json:"order_by,omitempty"`
	Order    string      `json:"order,omitempty"`
}

// Criterion is a single structured filter criterion
type Criterion struct {
	Key   string      `json:"key"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

// Search posts request to the search route. Returns the actual http status code and
// the response header.
//
// request can be a SearchRequest or anything that marshals into a search request.
func (r Collection) Search(request interface{}, result interface{}) (int, http.Header, error) {
	return r.client.do(http.MethodPost, r.SearchPath(), nil, request, http.StatusOK, result)
}

// Item is a single document of a collection
type Item struct {
	col Collection
	id  uuid.UUID
}

// Item returns a collection item
func (r Collection) Item(id uuid.UUID) Item {
	return Item{col: r, id: id}
}

// Path returns the item path
func (r Item) Path() string {
	return "/" + core.Plural(r.col.resource) + "/" + r.id.String()
}

// Read reads the document. Returns the actual http status code.
func (r Item) Read(result interface{}) (int, error) {
	return r.col.client.RawGet(r.Path(), result)
}

// RawGet gets a resource from path. Expects http.StatusOK as response, otherwise it will
// flag an error. Returns the actual http status code.
//
// The path can be extend with query strings.
//
// result can also be raw *[]byte.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	status, _, err := c.RawGetWithHeader(path, nil, result)
	return status, err
}

// RawGetWithHeader gets a resource from path. Expects http.StatusOK as response, otherwise it will
// flag an error.
//
// Returns the actual http status code and the return header
func (c Client) RawGetWithHeader(path string, header map[string]string, result interface{}) (int, http.Header, error) {
	return c.do(http.MethodGet, path, header, nil, http.StatusOK, result)
}

// RawPost posts a resource to path. Expects http.StatusCreated as response, otherwise it will
// flag an error. Returns the actual http status code.
//
// body can also be a []byte, result can also be raw *[]byte.
// result can be nil.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	status, _, err := c.do(http.MethodPost, path, nil, body, http.StatusCreated, result)
	return status, err
}

func (c Client) do(method, path string, header map[string]string, body interface{}, want int, result interface{}) (int, http.Header, error) {
	var reader io.Reader
	if body != nil {
		j, ok := body.([]byte)
		if !ok {
			var err error
			j, err = json.Marshal(body)
			if err != nil {
				return http.StatusBadRequest, nil, fmt.Errorf("%s to %s: %w", method, path, err)
			}
		}
		reader = bytes.NewBuffer(j)
	}

	r, err := http.NewRequestWithContext(c.Context(), method, c.url+path, reader)
	if err != nil {
		return http.StatusBadRequest, nil, err
	}
	for key, value := range c.defaultHeaders {
		r.Header.Add(key, value)
	}
	for key, value := range header {
		r.Header.Add(key, value)
	}
	if c.token != "" {
		r.Header.Add("Authorization", "Bearer "+c.token)
	}

	var res *http.Response
	var resBody []byte
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res = rec.Result()
		resBody = rec.Body.Bytes()
	} else {
		res, err = c.httpClient.Do(r)
		if err != nil {
			return http.StatusInternalServerError, nil, err
		}
		defer res.Body.Close()
		resBody, _ = io.ReadAll(res.Body)
	}
	status := res.StatusCode

	if status != want {
		return status, res.Header, fmt.Errorf("handler returned wrong status code: got %v want %v. Error: %s",
			status, want, strings.TrimSpace(string(resBody)))
	}

	if len(resBody) > 0 && result != nil {
		if raw, ok := result.(*[]byte); ok {
			*raw = resBody
		} else {
			err = json.Unmarshal(resBody, result)
		}
	}
	return status, res.Header, err
}
