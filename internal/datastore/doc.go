// Package datastore runs read queries against the relational stores that
// hold property listings and SDA administration records.
//
// A Query names a table, optional equality/range/pattern filters, an
// ordering, a limit and a set of embedded parent rows. Two backends
// implement Store: PostgREST over HTTP, and a direct PostgreSQL connection
// pool via pgx. Both return rows as column maps with embedded parents
// nested under the parent table name.
package datastore
