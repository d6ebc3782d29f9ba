// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package search

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/docfilter/core/csql"
	"github.com/relabs-tech/docfilter/core/filter"
)

// Configuration holds a complete search service configuration
type Configuration struct {
	Collections []collectionConfiguration `json:"collections"`
}

// collectionConfiguration describes a searchable collection resource
type collectionConfiguration struct {
	Resource string `json:"resource"`
	// Fields are the property paths a structured filter may reference
	Fields []string `json:"fields"`
	// SearchFields are the default fields of a free-text search
	SearchFields []string `json:"search_fields"`
	// StopWords replace the default stop words if present
	StopWords *[]string `json:"stop_words"`
	// Sortable are the fields accepted by order_by in addition to timestamp
	Sortable []string `json:"sortable"`
	// Roles restricts access to requests carrying any of them, if not empty
	Roles       []string `json:"roles"`
	Description string   `json:"description"`
}

// ParseConfiguration parses and validates a JSON configuration
func ParseConfiguration(data string) (*Configuration, error) {
	var config Configuration
	if err := json.Unmarshal([]byte(data), &config); err != nil {
		return nil, fmt.Errorf("parse error in search configuration: %w", err)
	}
	seen := map[string]bool{}
	for _, rc := range config.Collections {
		if !csql.ValidIdentifier(rc.Resource) {
			return nil, fmt.Errorf("invalid resource name '%s'", rc.Resource)
		}
		if seen[rc.Resource] {
			return nil, fmt.Errorf("resource '%s' is configured twice", rc.Resource)
		}
		seen[rc.Resource] = true
		n, err := rc.normalizer()
		if err != nil {
			return nil, fmt.Errorf("resource '%s': %w", rc.Resource, err)
		}
		for _, f := range rc.Sortable {
			if !n.Allowed(f) {
				return nil, fmt.Errorf("resource '%s': sortable field '%s' is not a field", rc.Resource, f)
			}
		}
	}
	return &config, nil
}

func (rc *collectionConfiguration) normalizer() (*filter.Normalizer, error) {
	var stopWords filter.StopWords
	if rc.StopWords != nil {
		stopWords = filter.NewStopWords(*rc.StopWords...)
	}
	return filter.NewNormalizer(rc.Fields, rc.SearchFields, stopWords)
}
