// Package calendar_tools provides the get_calendar tool, which lists
// today's events from the business ICS feed.
package calendar_tools
