// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package search

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/docfilter/core"
	"github.com/relabs-tech/docfilter/core/access"
	"github.com/relabs-tech/docfilter/core/csql"
	"github.com/relabs-tech/docfilter/core/filter"
	"github.com/relabs-tech/docfilter/core/logger"
	"github.com/relabs-tech/docfilter/core/schema"
)

// Store persists the documents of all collections. *csql.DB is a Store.
type Store interface {
	CreateCollection(ctx context.Context, resource string) error
	Insert(ctx context.Context, resource string, doc csql.Document) error
	Read(ctx context.Context, resource string, id uuid.UUID) (csql.Document, error)
	List(ctx context.Context, resource string, q csql.Query) ([]csql.Document, int, error)
}

// Builder is a builder helper for the Backend
type Builder struct {
	// Config is the JSON description of all searchable collections. This is mandatory.
	Config string
	// Store holds the documents. This is mandatory.
	Store Store
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// PagePolicy bounds the page size. The zero value means filter.DefaultPagePolicy.
	PagePolicy filter.PagePolicy
	// UpdateSchema creates the collection tables if they do not exist yet
	UpdateSchema bool
}

// Backend serves search, list, create and read routes for a set of collections
type Backend struct {
	store       Store
	validator   *schema.Validator
	collections map[string]*collection
}

type collection struct {
	collectionConfiguration
	plural   string
	builder  *filter.Builder
	sortable map[string]bool
}

// New realizes the actual backend. It creates the collection tables if requested and
// adds the routes to the router.
func New(bb *Builder) (*Backend, error) {
	if bb.Store == nil {
		return nil, fmt.Errorf("store is missing")
	}
	if bb.Router == nil {
		return nil, fmt.Errorf("router is missing")
	}
	config, err := ParseConfiguration(bb.Config)
	if err != nil {
		return nil, err
	}
	validator, err := schema.NewBuiltinValidator()
	if err != nil {
		return nil, fmt.Errorf("cannot load request schema: %w", err)
	}

	policy := bb.PagePolicy
	if policy.Default == 0 {
		policy.Default = filter.DefaultPageSize
	}

	b := &Backend{
		store:       bb.Store,
		validator:   validator,
		collections: make(map[string]*collection, len(config.Collections)),
	}

	b.handleVersion(bb.Router)
	rlog := logger.Default()
	for _, rc := range config.Collections {
		n, err := rc.normalizer()
		if err != nil {
			return nil, err
		}
		c := &collection{
			collectionConfiguration: rc,
			plural:                  core.Plural(rc.Resource),
			builder:                 filter.NewBuilder(n, filter.Postgres, policy),
			sortable:                map[string]bool{},
		}
		for _, f := range rc.Sortable {
			c.sortable[f] = true
		}
		if bb.UpdateSchema {
			if err := b.store.CreateCollection(context.Background(), c.Resource); err != nil {
				return nil, err
			}
		}
		b.collections[c.Resource] = c
		b.handleRoutes(bb.Router, c)
		rlog.Debugf("search: /%s for %d fields", c.plural, len(rc.Fields))
	}
	return b, nil
}

// MustNew is like New but panics on misconfiguration
func MustNew(bb *Builder) *Backend {
	b, err := New(bb)
	if err != nil {
		panic(err)
	}
	return b
}

// Filter returns the filter builder of resource, or nil if there is no such collection
func (b *Backend) Filter(resource string) *filter.Builder {
	if c, ok := b.collections[resource]; ok {
		return c.builder
	}
	return nil
}

func (b *Backend) handleRoutes(router *mux.Router, c *collection) {
	router.HandleFunc("/"+c.plural+"/search", b.withAuth(c, b.search)).Methods(http.MethodPost)
	router.HandleFunc("/"+c.plural, b.withAuth(c, b.list)).Methods(http.MethodGet)
	router.HandleFunc("/"+c.plural, b.withAuth(c, b.create)).Methods(http.MethodPost)
	router.HandleFunc("/"+c.plural+"/{id}", b.withAuth(c, b.read)).Methods(http.MethodGet)
}

type collectionHandler func(w http.ResponseWriter, r *http.Request, c *collection)

func (b *Backend) withAuth(c *collection, h collectionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, rlog := logger.ContextWithLoggerCollection(r.Context(), c.Resource)
		if len(c.Roles) > 0 {
			auth := access.AuthorizationFromContext(ctx)
			if !auth.HasAnyRole(c.Roles) {
				rlog.Debugln("not authorized")
				http.Error(w, "not authorized", http.StatusUnauthorized)
				return
			}
		}
		h(w, r.WithContext(ctx), c)
	}
}
