//go:build integration

package test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/relabs-tech/docfilter/core/client"
)

type SearchTestSuite struct {
	IntegrationTestSuite
	ids map[string]uuid.UUID
}

func TestSearchTestSuite(t *testing.T) {
	suite.Run(t, &SearchTestSuite{})
}

func (s *SearchTestSuite) SetupSuite() {
	s.IntegrationTestSuite.SetupSuite()

	users := []map[string]interface{}{
		{"email": "john@example.com", "name": "John Doe", "role": "admin", "age": 42, "address": map[string]string{"city": "Berlin"}},
		{"email": "jane@example.com", "name": "Jane Doe", "role": "user", "age": 17, "address": map[string]string{"city": "Hamburg"}},
		{"email": "max_power@example.com", "name": "Max Power", "role": "user", "age": 30, "address": map[string]string{"city": "Berlin"}},
		{"email": "pat@example.com", "name": "Pat O'Brien", "role": "editor", "age": 55},
	}
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	s.ids = map[string]uuid.UUID{}
	for i, user := range users {
		user["timestamp"] = start.Add(time.Duration(i) * time.Hour)
		var created map[string]interface{}
		_, err := s.client.Collection("user").Create(user, &created)
		s.Require().NoError(err)
		id, err := uuid.Parse(created["user_id"].(string))
		s.Require().NoError(err)
		s.ids[user["name"].(string)] = id
	}
}

func (s *SearchTestSuite) search(request client.SearchRequest) ([]string, http.Header) {
	var result []map[string]interface{}
	status, header, err := s.client.Collection("user").Search(request, &result)
	s.Require().NoError(err)
	s.Require().Equal(http.StatusOK, status)
	names := []string{}
	for _, r := range result {
		names = append(names, r["name"].(string))
	}
	return names, header
}

func criteria(c ...client.Criterion) []client.Criterion {
	return c
}

func (s *SearchTestSuite) TestStructured() {
	names, header := s.search(client.SearchRequest{Filter: criteria(client.Criterion{Key: "email", Op: "==", Value: "jane@example.com"})})
	s.Equal([]string{"Jane Doe"}, names)
	s.Equal("1", header.Get("Pagination-Total-Count"))

	names, header = s.search(client.SearchRequest{Filter: criteria(client.Criterion{Key: "age", Op: ">", Value: 18})})
	s.ElementsMatch([]string{"John Doe", "Max Power", "Pat O'Brien"}, names)
	s.Equal("3", header.Get("Pagination-Total-Count"))

	names, _ = s.search(client.SearchRequest{Filter: criteria(
		client.Criterion{Key: "age", Op: ">=", Value: 30},
		client.Criterion{Key: "role", Op: "!=", Value: "admin"},
	)})
	s.ElementsMatch([]string{"Max Power", "Pat O'Brien"}, names)

	names, _ = s.search(client.SearchRequest{Filter: criteria(client.Criterion{Key: "role", Op: "in", Value: []string{"admin", "editor"}})})
	s.ElementsMatch([]string{"John Doe", "Pat O'Brien"}, names)

	names, _ = s.search(client.SearchRequest{Filter: criteria(client.Criterion{Key: "address.city", Op: "==", Value: "Berlin"})})
	s.ElementsMatch([]string{"John Doe", "Max Power"}, names)

	// documents without the field never match a comparison, not even !=
	names, _ = s.search(client.SearchRequest{Filter: criteria(client.Criterion{Key: "address.city", Op: "!=", Value: "Berlin"})})
	s.Equal([]string{"Jane Doe"}, names)
}

func (s *SearchTestSuite) TestContainsIsLiteral() {
	names, _ := s.search(client.SearchRequest{Filter: criteria(client.Criterion{Key: "email", Op: "%", Value: "_"})})
	s.Equal([]string{"Max Power"}, names)

	names, _ = s.search(client.SearchRequest{Filter: criteria(client.Criterion{Key: "name", Op: "%", Value: "o'brien"})})
	s.Equal([]string{"Pat O'Brien"}, names)
}

func (s *SearchTestSuite) TestValuesAreNeverQueryText() {
	names, header := s.search(client.SearchRequest{Filter: criteria(client.Criterion{Key: "email", Op: "==", Value: "x' OR '1'='1"})})
	s.Empty(names)
	s.Equal("0", header.Get("Pagination-Total-Count"))

	names, _ = s.search(client.SearchRequest{Filter: "'; DROP TABLE search.\"user\"; --"})
	s.Empty(names)

	names, _ = s.search(client.SearchRequest{})
	s.Len(names, 4)
}

func (s *SearchTestSuite) TestFreeText() {
	search := "doe admin"
	names, _ := s.search(client.SearchRequest{Search: &search})
	s.Equal([]string{"John Doe"}, names)

	phrase := `"jane doe"`
	names, _ = s.search(client.SearchRequest{Filter: phrase})
	s.Equal([]string{"Jane Doe"}, names)

	berlin := "berlin"
	names, _ = s.search(client.SearchRequest{Search: &berlin, Fields: []string{"address.city"}})
	s.ElementsMatch([]string{"John Doe", "Max Power"}, names)

	stopWordsOnly := "the and of"
	names, _ = s.search(client.SearchRequest{Search: &stopWordsOnly})
	s.Len(names, 4)
}

func (s *SearchTestSuite) TestPaginationAndOrder() {
	names, header := s.search(client.SearchRequest{Skip: 1, PageSize: 2, OrderBy: "age", Order: "asc"})
	s.Equal([]string{"Max Power", "John Doe"}, names)
	s.Equal("1", header.Get("Pagination-Skip"))
	s.Equal("2", header.Get("Pagination-Page-Size"))
	s.Equal("4", header.Get("Pagination-Total-Count"))
	s.Equal("2", header.Get("Pagination-Page-Count"))

	names, _ = s.search(client.SearchRequest{PageSize: "1"})
	s.Equal([]string{"Pat O'Brien"}, names, "newest first")

	_, header = s.search(client.SearchRequest{PageSize: 500, Skip: "garbage"})
	s.Equal("50", header.Get("Pagination-Page-Size"))
	s.Equal("0", header.Get("Pagination-Skip"))

	_, header = s.search(client.SearchRequest{})
	s.Equal("10", header.Get("Pagination-Page-Size"))
}

func (s *SearchTestSuite) TestList() {
	var result []map[string]interface{}
	status, header, err := s.client.Collection("user").WithFilter("age", "17").List(&result)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)
	s.Require().Len(result, 1)
	s.Equal("Jane Doe", result[0]["name"])
	s.Equal("1", header.Get("Pagination-Total-Count"))

	status, _, err = s.client.Collection("user").WithContainsFilter("name", "DOE").WithParameter("order_by", "name").List(&result)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)
	s.Require().Len(result, 2)
	s.Equal("John Doe", result[0]["name"])

	status, _, err = s.client.Collection("user").WithFilter("password", "x").List(&result)
	s.Error(err)
	s.Equal(http.StatusBadRequest, status)
}

func (s *SearchTestSuite) TestRead() {
	var user map[string]interface{}
	status, err := s.client.Collection("user").Item(s.ids["Max Power"]).Read(&user)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, status)
	s.Equal("max_power@example.com", user["email"])
	s.Equal("2021-01-01T02:00:00Z", user["timestamp"])

	status, err = s.client.Collection("user").Item(uuid.New()).Read(&user)
	s.Error(err)
	s.Equal(http.StatusNotFound, status)
}

func (s *SearchTestSuite) TestRejected() {
	var result []map[string]interface{}
	for _, request := range []client.SearchRequest{
		{Filter: criteria(client.Criterion{Key: "email", Op: "LIKE", Value: "x"})},
		{Filter: criteria(client.Criterion{Key: "email) OR (1=1", Op: "==", Value: "x"})},
		{Filter: criteria(client.Criterion{Key: "email", Op: "==", Value: nil})},
		{OrderBy: "email"},
	} {
		status, _, err := s.client.Collection("user").Search(request, &result)
		s.Error(err)
		s.Equal(http.StatusBadRequest, status)
	}
}
