package csql

import (
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/lib/pq" // load database driver for postgres

	"github.com/relabs-tech/docfilter/core/logger"
)

// DB encapsulates a standard sql.DB with a schema
type DB struct {
	*sql.DB
	Schema string
}

// ErrNoRows is returned by Read when the document does not exist
var ErrNoRows = sql.ErrNoRows

var identifierRegexp = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdentifier returns true if s can be used as a schema or table name without quoting
func ValidIdentifier(s string) bool {
	return identifierRegexp.MatchString(s)
}

// OpenWithSchema opens a postgres database with a schema.
// The schema gets created if it does not exist yet.
func OpenWithSchema(dataSourceName, password, schema string) *DB {
	rlog := logger.Default()
	rlog.Infoln("connecting to postgres database: ", dataSourceName)
	if password != "" {
		dataSourceName += " password=" + password
	}
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		panic(err)
	}
	err = db.Ping()
	if err != nil {
		panic(err)
	}
	if len(schema) == 0 {
		schema = "public"
	}
	if !ValidIdentifier(schema) {
		panic(fmt.Sprintf("invalid schema name '%s'", schema))
	}
	if schema != "public" {
		rlog.Infoln("selected database schema:", schema)
		_, err = db.Exec(`CREATE schema IF NOT EXISTS ` + schema + `;`)
		if err != nil {
			panic(err)
		}
	}
	return &DB{DB: db, Schema: schema}
}

// ClearSchema clears all the data contained in the database's schema
// Technically this is done by dropping the schema and then recreating it
func (db *DB) ClearSchema() {
	if db.Schema == "public" {
		panic("refuse to drop public schema")
	}
	_, err := db.Exec(`DROP SCHEMA ` + db.Schema + ` CASCADE;
	CREATE schema IF NOT EXISTS ` + db.Schema + `;`)
	if err != nil {
		logger.Default().WithError(err).Errorln("clear schema error:", db.Schema)
	}
}
