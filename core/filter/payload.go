// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package filter

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Payload is either Structured or FreeText
type Payload interface {
	payload()
}

// Structured is a list of criteria which must all hold
type Structured struct {
	Criteria []RawCriterion
}

// FreeText is a search string matched against Fields. Empty Fields selects the
// configured search fields.
type FreeText struct {
	Text   string
	Fields []string
}

func (Structured) payload() {}
func (FreeText) payload()   {}

// Request is a decoded search request
type Request struct {
	Payload  Payload
	Skip     any
	PageSize any
	OrderBy  string
	Order    string
}

type envelope struct {
	Filter   json.RawMessage `json:"filter"`
	Search   *string         `json:"search"`
	Fields   []string        `json:"fields"`
	Skip     any             `json:"skip"`
	PageSize any             `json:"page_size"`
	OrderBy  string          `json:"order_by"`
	Order    string          `json:"order"`
}

// DecodeRequest decodes a JSON search request.
//
// "filter" is either a list of {key, op, value} objects or a search string,
// "search" is a search string. Numbers are kept as json.Number.
func DecodeRequest(data []byte) (Request, error) {
	var e envelope
	if len(bytes.TrimSpace(data)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&e); err != nil {
			return Request{}, newError(ErrInvalidPayload, -1, "", "", err.Error())
		}
	}
	payload, err := decodePayload(e)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Payload:  payload,
		Skip:     e.Skip,
		PageSize: e.PageSize,
		OrderBy:  e.OrderBy,
		Order:    e.Order,
	}, nil
}

func decodePayload(e envelope) (Payload, error) {
	raw := bytes.TrimSpace(e.Filter)
	hasFilter := len(raw) > 0 && !bytes.Equal(raw, []byte("null"))

	if e.Search != nil {
		if hasFilter {
			return nil, newError(ErrInvalidPayload, -1, "", "", "filter and search are mutually exclusive")
		}
		return FreeText{Text: *e.Search, Fields: e.Fields}, nil
	}
	if !hasFilter {
		if len(e.Fields) > 0 {
			return FreeText{Fields: e.Fields}, nil
		}
		return Structured{}, nil
	}

	switch raw[0] {
	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, newError(ErrInvalidPayload, -1, "", "", err.Error())
		}
		return FreeText{Text: text, Fields: e.Fields}, nil
	case '[':
		if len(e.Fields) > 0 {
			return nil, newError(ErrInvalidPayload, -1, "", "", "fields only apply to search")
		}
		var criteria []RawCriterion
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&criteria); err != nil {
			return nil, newError(ErrInvalidPayload, -1, "", "", err.Error())
		}
		return Structured{Criteria: criteria}, nil
	}
	return nil, newError(ErrInvalidPayload, -1, "", "", "filter must be a list of criteria or a search string")
}
