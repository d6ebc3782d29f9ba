package main

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/docfilter/core/access"
	"github.com/relabs-tech/docfilter/core/csql"
	"github.com/relabs-tech/docfilter/core/filter"
	"github.com/relabs-tech/docfilter/core/logger"
	"github.com/relabs-tech/docfilter/core/search"
)

var configurationJSON = `
{
	"collections": [
	  {
		"resource": "user",
		"fields": ["email", "name", "role", "age", "address.city"],
		"search_fields": ["name", "role", "email"],
		"sortable": ["name", "age"]
	  },
	  {
		"resource": "device",
		"fields": ["serial", "model", "status", "owner"],
		"search_fields": ["serial", "model"],
		"sortable": ["serial"]
	  }
	]
}
`

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
// and POSTGRES_PASSWORD="docker"
type Service struct {
	Postgres         string `env:"POSTGRES,required" description:"the connection string for the Postgres DB without password"`
	PostgresPassword string `env:"POSTGRES_PASSWORD,optional" description:"password to the Postgres DB"`
	Schema           string `env:"SCHEMA,optional,default=search" description:"the database schema of the collection tables"`
	Port             int    `env:"PORT,optional,default=3000" description:"the port to listen on"`
	LogLevel         string `env:"LOG_LEVEL,optional,default=info" description:"The level used for logger, can be debug, warning, info, error"`
	JwtSecret        string `env:"JWT_SECRET,optional" description:"HMAC secret of bearer tokens. Without it, tokens are not checked"`
	JwtIssuer        string `env:"JWT_ISSUER,optional" description:"the accepted issuer of bearer tokens"`
	MaxPageSize      int    `env:"MAX_PAGE_SIZE,optional,default=0" description:"the upper bound of page_size, 0 means unbounded"`
	Config           string `env:"CONFIG,optional" description:"path to a JSON collection configuration, replaces the built-in one"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}

	level, err := logrus.ParseLevel(service.LogLevel)
	if err != nil {
		panic(err)
	}
	logger.InitLogger(level)
	rlog := logger.Default()

	config := configurationJSON
	if service.Config != "" {
		data, err := os.ReadFile(service.Config)
		if err != nil {
			rlog.WithError(err).Fatalf("cannot read configuration %s", service.Config)
		}
		config = string(data)
	}

	db := csql.OpenWithSchema(service.Postgres, service.PostgresPassword, service.Schema)
	defer db.Close()

	router := mux.NewRouter()
	logger.AddRequestID(router)
	router.Use(handlers.CompressHandler)
	if service.JwtSecret != "" {
		router.Use(access.NewJwtMiddleware(&access.JwtMiddlewareBuilder{
			Secret: []byte(service.JwtSecret),
			Issuer: service.JwtIssuer,
		}))
	} else {
		rlog.Warnln("JWT_SECRET is not set, bearer tokens are not checked")
	}

	search.MustNew(&search.Builder{
		Config:       config,
		Store:        db,
		Router:       router,
		PagePolicy:   filter.PagePolicy{Default: filter.DefaultPageSize, Max: service.MaxPageSize},
		UpdateSchema: true,
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Accept", "Content-Type", "Authorization"}),
		handlers.ExposedHeaders([]string{"Pagination-Skip", "Pagination-Page-Size", "Pagination-Page-Count", "Pagination-Total-Count", "X-Request-Id"}),
	)

	addr := ":" + strconv.Itoa(service.Port)
	rlog.Infoln("listen on port", addr)
	if err := http.ListenAndServe(addr, cors(router)); err != nil {
		rlog.WithError(err).Fatalln("server stopped")
	}
}
