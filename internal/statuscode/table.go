// Package statuscode implements the exit-code table: a fixed ordered
// list of HTTP status codes, published to every spawned stage as
// environment variables so a stage can look up the exit byte for a status
// by name (in a shell script, `exit "$(printenv 404)"`) instead of
// hard-coding it.
package statuscode

import "strconv"

// Table is the fixed, ordered list of HTTP status codes. Index 0 is
// reserved: a process that exits 0 (the natural success indicator for
// any language) maps to 200, regardless of where 200 also appears
// further down the list.
var Table = []uint16{
	// index 0: success
	200,
	// 1xx informational
	100, 101, 102, 103,
	// 2xx success
	200, 201, 202, 203, 204, 205, 206, 207, 208, 226,
	// 3xx redirection
	300, 301, 302, 303, 304, 305, 306, 307, 308,
	// 4xx client error
	400, 401, 402, 403, 404, 405, 406, 407, 408, 409, 410, 411, 412,
	413, 414, 415, 416, 417, 418, 421, 422, 423, 424, 425, 426, 428,
	429, 431, 451,
	// 5xx server error
	500, 501, 502, 503, 504, 505, 506, 507, 508, 510, 511,
}

// FromExitCode maps a process exit code to an HTTP status using Table.
// An exit code beyond the table (or negative) yields 500.
func FromExitCode(code int) uint16 {
	if code < 0 || code >= len(Table) {
		return 500
	}
	return Table[code]
}

// Environ returns the environment variable assignments that publish Table
// to a child process: for each status s at index i, `"<s>"=i`. Must be
// installed exactly once, before any request-serving goroutine starts.
func Environ() []string {
	env := make([]string, 0, len(Table))
	for i, status := range Table {
		env = append(env, strconv.Itoa(int(status))+"="+strconv.Itoa(i))
	}
	return env
}
