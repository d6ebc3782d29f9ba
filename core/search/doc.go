/*
Package search serves filtered, paginated listings of JSON document collections.

Each configured collection gets four routes:

	POST /{resource}s/search   search with a request envelope
	GET  /{resource}s          list with URL parameters
	POST /{resource}s          create a document
	GET  /{resource}s/{id}     read a document

A search request envelope is either structured

	{"filter": [{"key": "email", "op": "==", "value": "a@example.com"}], "skip": 0, "page_size": 20}

or free text over the collection's search fields or the passed fields

	{"search": "\"John Doe\" admin", "fields": ["name", "role"]}

Both forms accept order_by and order. Filters are compiled into a parameterized
fragment with the filter package; page and total count are read with the same
fragment and bindings. List responses carry the headers Pagination-Skip,
Pagination-Page-Size, Pagination-Page-Count and Pagination-Total-Count.

The configuration is JSON:

	{
	  "collections": [
	    {
	      "resource": "user",
	      "fields": ["email", "name", "role", "age", "address.city"],
	      "search_fields": ["name", "role"],
	      "stop_words": ["the", "a"],
	      "sortable": ["name", "age"],
	      "roles": ["admin"]
	    }
	  ]
	}

Without stop_words, filter.DefaultStopWords apply. With roles, only requests
authorized by the access package with one of the roles are served.
*/
package search
