// Package calendar reads an ICS feed and returns the events that start on
// the current day.
//
// Feeds are fetched over HTTP and parsed with go-ical. Only VEVENT
// components are considered. Responses are cached per URL for a short TTL
// so repeated calls inside one conversation do not refetch the feed.
package calendar
