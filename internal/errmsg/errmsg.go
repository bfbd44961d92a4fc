// Package errmsg turns raw transport errors into the messages users actually
// see. The remote client surfaces every non-2xx response as "<status>: <body>",
// so this is pure string work: parse the embedded JSON body when there is one,
// run the server message through an ordered rule list, fall back to the HTTP
// status, and finally to a generic message. Raw payloads never reach the user.
package errmsg

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var (
	statusBodyPattern = regexp.MustCompile(`(?s)^(\d+):\s*(\{.*\})$`)
	statusOnlyPattern = regexp.MustCompile(`^(\d+):`)
	networkPattern    = regexp.MustCompile(`(?i)failed to fetch|networkerror|network request failed|connection refused|no such host|dial tcp|connection reset`)

	invalidTypePattern  = regexp.MustCompile(`(?i)invalid file type`)
	unauthorizedExtPat  = regexp.MustCompile(`(?i)not an authorized file extension`)
	sizeExceededPattern = regexp.MustCompile(`(?i)maximum attachment size`)
	sessionPattern      = regexp.MustCompile(`(?i)not logged in|session`)
	noPermissionPattern = regexp.MustCompile(`(?i)unauthorized|forbidden`)
)

type serverError struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

// Friendly classifies err and prefixes the result with context, e.g.
// `Failed to upload "x.txt": The file exceeds the maximum allowed size.`
// The same classifier serves load, upload, delete, and download call sites.
func Friendly(err error, context string) string {
	raw := ""
	if err != nil {
		raw = err.Error()
	}

	if m := statusBodyPattern.FindStringSubmatch(raw); m != nil {
		statusCode := m[1]
		var parsed serverError
		if json.Unmarshal([]byte(m[2]), &parsed) == nil {
			if msg := parsed.Error.Message; msg != "" {
				switch {
				case invalidTypePattern.MatchString(msg):
					return context + ": The file type is not permitted by the server."
				case unauthorizedExtPat.MatchString(msg):
					return context + ": This file extension is not authorized."
				case sizeExceededPattern.MatchString(msg):
					return context + ": The file exceeds the maximum allowed size."
				case sessionPattern.MatchString(msg):
					return context + ": Your session has expired. Please refresh the page and try again."
				case noPermissionPattern.MatchString(msg), statusCode == "401", statusCode == "403":
					return context + ": You do not have permission to perform this action."
				}
				if detail := parsed.Error.Detail; detail != "" {
					return fmt.Sprintf("%s: %s (%s)", context, msg, detail)
				}
				return context + ": " + msg
			}
			if byStatus := classifyStatus(statusCode, context); byStatus != "" {
				return byStatus
			}
		}
	} else if m := statusOnlyPattern.FindStringSubmatch(raw); m != nil {
		if byStatus := classifyStatus(m[1], context); byStatus != "" {
			return byStatus
		}
	}

	if networkPattern.MatchString(raw) {
		return context + ": A network error occurred. Please check your connection and try again."
	}
	return context + ": Something went wrong. Please try again or contact your administrator."
}

func classifyStatus(statusCode, context string) string {
	switch statusCode {
	case "401", "403":
		return context + ": You do not have permission to perform this action."
	case "404":
		return context + ": The requested resource was not found."
	case "500":
		return context + ": A server error occurred. Please try again later."
	}
	return ""
}

// ListRefreshFailed is the distinct message for the refresh-after-upload
// failure path: the uploads themselves succeeded and are not rolled back.
const ListRefreshFailed = "Upload succeeded but the list could not be refreshed. Please reload the page."
