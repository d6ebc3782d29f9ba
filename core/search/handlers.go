package search

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/docfilter/core/csql"
	"github.com/relabs-tech/docfilter/core/filter"
	"github.com/relabs-tech/docfilter/core/logger"
	"github.com/relabs-tech/docfilter/core/schema"
)

// maxBodySize limits search and create request bodies
const maxBodySize = 1 << 20

var errOrder = errors.New("order must be asc or desc")

// search handles POST /{plural}/search. The body is a search request envelope, the
// pagination and order parameters may also be passed as URL query parameters.
func (b *Backend) search(w http.ResponseWriter, r *http.Request, c *collection) {
	rlog := logger.FromContext(r.Context())
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "cannot read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := b.validator.ValidateBytes(body, schema.SearchRequestID); err != nil {
			rlog.WithError(err).Debugln("rejected search request")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	req, err := filter.DecodeRequest(body)
	if err != nil {
		rlog.WithError(err).Debugln("rejected search request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for key, array := range r.URL.Query() {
		if len(array) > 1 {
			http.Error(w, "illegal parameter array '"+key+"'", http.StatusBadRequest)
			return
		}
		value := array[0]
		switch key {
		case "skip":
			if req.Skip == nil {
				req.Skip = value
			}
		case "page_size":
			if req.PageSize == nil {
				req.PageSize = value
			}
		case "order_by":
			if req.OrderBy == "" {
				req.OrderBy = value
			}
		case "order":
			if req.Order == "" {
				req.Order = value
			}
		default:
			http.Error(w, "parameter '"+key+"': unknown query parameter", http.StatusBadRequest)
			return
		}
	}

	b.respondList(w, r, c, req)
}

// list handles GET /{plural}. It accepts a free-text search with optional fields, or
// filter parameters of the form key=value (equals) and key~value (contains).
func (b *Backend) list(w http.ResponseWriter, r *http.Request, c *collection) {
	req, err := listRequest(r.URL.Query())
	if err != nil {
		logger.FromContext(r.Context()).WithError(err).Debugln("rejected list request")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b.respondList(w, r, c, req)
}

func listRequest(query url.Values) (filter.Request, error) {
	var (
		req      filter.Request
		search   *string
		fields   []string
		criteria []filter.RawCriterion
	)
	for key, array := range query {
		if key != "filter" && key != "fields" && len(array) > 1 {
			return req, &filter.Error{Kind: filter.ErrInvalidPayload, Index: -1, Detail: "illegal parameter array '" + key + "'"}
		}
		value := array[0]
		switch key {
		case "search":
			search = &value
		case "fields":
			for _, v := range array {
				for _, f := range strings.Split(v, ",") {
					if f = strings.TrimSpace(f); f != "" {
						fields = append(fields, f)
					}
				}
			}
		case "filter":
			for _, v := range array {
				criteria = append(criteria, parseFilterParameter(v))
			}
		case "skip":
			req.Skip = value
		case "page_size":
			req.PageSize = value
		case "order_by":
			req.OrderBy = value
		case "order":
			req.Order = value
		default:
			return req, &filter.Error{Kind: filter.ErrInvalidPayload, Index: -1, Detail: "parameter '" + key + "': unknown query parameter"}
		}
	}

	switch {
	case len(criteria) > 0 && (search != nil || len(fields) > 0):
		return req, &filter.Error{Kind: filter.ErrInvalidPayload, Index: -1, Detail: "filter and search are mutually exclusive"}
	case len(criteria) > 0:
		req.Payload = filter.Structured{Criteria: criteria}
	case search != nil || len(fields) > 0:
		text := ""
		if search != nil {
			text = *search
		}
		req.Payload = filter.FreeText{Text: text, Fields: fields}
	default:
		req.Payload = filter.Structured{}
	}
	return req, nil
}

// parseFilterParameter splits key=value into an equals criterion and key~value into a
// contains criterion, whichever separator comes first. Values that read as JSON numbers
// or booleans are compared as such.
func parseFilterParameter(s string) filter.RawCriterion {
	i := strings.IndexAny(s, "=~")
	if i < 0 {
		return filter.RawCriterion{Key: s}
	}
	op := "=="
	if s[i] == '~' {
		op = "%"
	}
	return filter.RawCriterion{Key: s[:i], Op: op, Value: parameterValue(s[i+1:])}
}

var numberRegexp = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

func parameterValue(s string) any {
	switch {
	case s == "true":
		return true
	case s == "false":
		return false
	case numberRegexp.MatchString(s):
		return json.Number(s)
	}
	return s
}

func (b *Backend) respondList(w http.ResponseWriter, r *http.Request, c *collection, req filter.Request) {
	ctx := r.Context()
	rlog := logger.FromContext(ctx)

	result, err := c.builder.BuildRequest(req)
	if err != nil {
		rlog.WithError(err).Debugln("rejected filter")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	orderBy, ascending, err := c.order(req.OrderBy, req.Order)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	where, args, err := filter.Positional(result.Expression, result.Bindings)
	if err != nil {
		rlog.WithError(err).Errorf("Error 4722: cannot render filter `%s`", result.Expression)
		http.Error(w, "Error 4722", http.StatusInternalServerError)
		return
	}

	docs, totalCount, err := b.store.List(ctx, c.Resource, csql.Query{
		Where:     where,
		Args:      args,
		Skip:      result.Page.Skip,
		Limit:     result.Page.PageSize,
		OrderBy:   orderBy,
		Ascending: ascending,
	})
	if err != nil {
		rlog.WithError(err).Errorf("Error 4721: cannot list %s where `%s`", c.Resource, where)
		http.Error(w, "Error 4721", http.StatusInternalServerError)
		return
	}

	response := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		object, err := c.object(doc)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4725: cannot decode properties of %s", doc.ID)
			http.Error(w, "Error 4725", http.StatusInternalServerError)
			return
		}
		response = append(response, object)
	}

	w.Header().Set("Pagination-Skip", strconv.Itoa(result.Page.Skip))
	w.Header().Set("Pagination-Page-Size", strconv.Itoa(result.Page.PageSize))
	w.Header().Set("Pagination-Total-Count", strconv.Itoa(totalCount))
	if result.Page.PageSize > 0 {
		w.Header().Set("Pagination-Page-Count", strconv.Itoa((totalCount+result.Page.PageSize-1)/result.Page.PageSize))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

// order maps order_by and order to a sort expression. An empty order_by or timestamp
// sorts by creation time, everything else must be a sortable field. Order defaults to
// descending.
func (c *collection) order(orderBy, order string) (string, bool, error) {
	var ascending bool
	switch order {
	case "", "desc":
	case "asc":
		ascending = true
	default:
		return "", false, errOrder
	}
	if orderBy == "" || orderBy == "timestamp" {
		return "", ascending, nil
	}
	if !c.sortable[orderBy] {
		return "", false, &filter.Error{Kind: filter.ErrInvalidField, Index: -1, Field: orderBy, Detail: "not sortable"}
	}
	return filter.PostgresPath(orderBy), ascending, nil
}

// object merges the document properties with its id and timestamp. The id and the
// timestamp take precedence over properties of the same name.
func (c *collection) object(doc csql.Document) (map[string]any, error) {
	object := map[string]any{}
	if len(doc.Properties) > 0 {
		if err := json.Unmarshal(doc.Properties, &object); err != nil {
			return nil, err
		}
	}
	object[c.Resource+"_id"] = doc.ID
	object["timestamp"] = doc.Timestamp.UTC()
	return object, nil
}

// create handles POST /{plural}. The body is a JSON object; an id and a timestamp may
// be passed as <resource>_id and timestamp, otherwise they are generated.
func (b *Backend) create(w http.ResponseWriter, r *http.Request, c *collection) {
	ctx := r.Context()
	rlog := logger.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "cannot read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	var properties map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&properties); err != nil || properties == nil {
		http.Error(w, "body must be a JSON object", http.StatusBadRequest)
		return
	}

	doc := csql.Document{ID: uuid.New(), Timestamp: time.Now().UTC()}
	idKey := c.Resource + "_id"
	if v, ok := properties[idKey]; ok {
		s, _ := v.(string)
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid "+idKey, http.StatusBadRequest)
			return
		}
		doc.ID = id
		delete(properties, idKey)
	}
	if v, ok := properties["timestamp"]; ok {
		s, _ := v.(string)
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			http.Error(w, "invalid timestamp", http.StatusBadRequest)
			return
		}
		doc.Timestamp = ts.UTC()
		delete(properties, "timestamp")
	}
	doc.Properties, err = json.Marshal(properties)
	if err != nil {
		rlog.WithError(err).Errorf("Error 4730: cannot encode properties")
		http.Error(w, "Error 4730", http.StatusInternalServerError)
		return
	}

	if err := b.store.Insert(ctx, c.Resource, doc); err != nil {
		rlog.WithError(err).Errorf("Error 4731: cannot insert %s", c.Resource)
		http.Error(w, "Error 4731", http.StatusInternalServerError)
		return
	}
	object, err := c.object(doc)
	if err != nil {
		rlog.WithError(err).Errorf("Error 4725: cannot decode properties of %s", doc.ID)
		http.Error(w, "Error 4725", http.StatusInternalServerError)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, object)
}

// read handles GET /{plural}/{id}
func (b *Backend) read(w http.ResponseWriter, r *http.Request, c *collection) {
	ctx := r.Context()
	rlog := logger.FromContext(ctx)

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid uuid", http.StatusBadRequest)
		return
	}
	doc, err := b.store.Read(ctx, c.Resource, id)
	if errors.Is(err, csql.ErrNoRows) {
		http.Error(w, "no such "+c.Resource, http.StatusNotFound)
		return
	}
	if err != nil {
		rlog.WithError(err).Errorf("Error 4727: cannot read %s", id)
		http.Error(w, "Error 4727", http.StatusInternalServerError)
		return
	}
	object, err := c.object(doc)
	if err != nil {
		rlog.WithError(err).Errorf("Error 4725: cannot decode properties of %s", doc.ID)
		http.Error(w, "Error 4725", http.StatusInternalServerError)
		return
	}
	writeJSON(ctx, w, http.StatusOK, object)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorf("Error 4740: cannot encode response")
		http.Error(w, "Error 4740", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonData)
}
