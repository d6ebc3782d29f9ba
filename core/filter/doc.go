/*
Package filter turns untrusted filter payloads into parameterized query fragments.

A payload is either a list of structured criteria

	[{"key": "email", "op": "%", "value": "example.com"}, {"key": "age", "op": ">=", "value": 18}]

or a free-text search

	{"search": "\"John Doe\" admin", "fields": ["name", "role"]}

Structured criteria are validated against a field allow-list and an operator
whitelist (==, !=, >, <, >=, <=, %, in) and joined with AND. Free text is
tokenized, quoted phrases stay intact and stop words are dropped. Every token
must match at least one of the search fields, so the criteria of one token are
joined with OR and the tokens with AND.

The result is an expression plus a separate map of bound values:

	LIKE(doc.`email`, @b0, true) AND doc.`age` >= @b1
	{"b0": "%example.com%", "b1": 18}

User values never show up in the expression. Bound names are generated per
call, so concurrent requests do not interact. The same expression and bindings
serve the page query and the total count query.

Two dialects are available: AQL for ArangoDB style document stores and Postgres
for documents in a jsonb column. Positional converts named placeholders for
drivers that only understand positional ones.
*/
package filter
