// Package logger is a standardized event logging framework for the shell.
//
// Every executed pipeline, parse failure and session start is recorded as one
// newline delimited JSON object so sessions can be audited and summarized
// later with Report.
package logger
