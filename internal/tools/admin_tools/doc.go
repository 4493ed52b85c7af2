// Package admin_tools provides read access to the SDA administration
// store (participants, landlords, investors, properties, jobs, tenancies,
// NDIA payment batches, rental payments, maintenance requests and landlord
// statements), a health check over its core tables and the NDIA batch
// generation trigger.
//
// Every read returns the same envelope:
//
//	{"success": true, "data": [...], "count": N, "source": "sda-admin-db"}
//
// Store failures are reported as {"success": false, "error": "..."} rather
// than as tool errors.
package admin_tools
