//go:build integration

package test

import (
	"context"
	"fmt"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/relabs-tech/docfilter/core/client"
	"github.com/relabs-tech/docfilter/core/csql"
	"github.com/relabs-tech/docfilter/core/filter"
	"github.com/relabs-tech/docfilter/core/search"
)

const configurationJSON = `{
	"collections": [
	  {
		"resource": "user",
		"fields": ["email", "name", "role", "age", "address.city"],
		"search_fields": ["name", "role"],
		"sortable": ["name", "age"]
	  }
	]
}`

// IntegrationTestSuite runs the search backend against a Postgres container
type IntegrationTestSuite struct {
	suite.Suite
	*search.Backend

	dbConn            *csql.DB
	router            *mux.Router
	client            client.Client
	postgresContainer testcontainers.Container
}

func (s *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	postgresUser := "testuser"
	postgresPassword := "testpass"
	postgresDB := "testdb"

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	s.Require().NoError(err)
	s.postgresContainer = pgC

	pgHost, err := pgC.Host(ctx)
	s.Require().NoError(err)
	pgPort, err := pgC.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	s.dbConn = csql.OpenWithSchema(fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		pgHost, pgPort.Port(), postgresUser, postgresDB), postgresPassword, "search")

	s.router = mux.NewRouter()
	s.Backend = search.MustNew(&search.Builder{
		Config:       configurationJSON,
		Store:        s.dbConn,
		Router:       s.router,
		PagePolicy:   filter.PagePolicy{Default: 10, Max: 50},
		UpdateSchema: true,
	})
	s.client = client.NewWithRouter(s.router)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.dbConn != nil {
		s.dbConn.ClearSchema()
		s.dbConn.Close()
	}
	if s.postgresContainer != nil {
		err := s.postgresContainer.Terminate(ctx)
		s.Require().NoError(err)
	}
}
