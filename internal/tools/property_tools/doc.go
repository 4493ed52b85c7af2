// Package property_tools provides the property listing search and the
// daily business snapshot, which combines inbox triage, today's calendar
// and available listings.
package property_tools
