// Package common provides helpers shared by the tool packages: the
// instrumentation middleware, the soft-failure payload and argument
// accessors.
package common
