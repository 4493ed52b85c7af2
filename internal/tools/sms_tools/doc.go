// Package sms_tools provides the send_sms write tool.
package sms_tools
