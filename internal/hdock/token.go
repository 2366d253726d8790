package hdock

import (
	"net/url"
	"strings"
)

// MinTokenLen is the shortest token accepted as a trustworthy job
// identifier. The threshold is a black-box property of the external service
// and is carried as-is; shorter tokens still yield a usable result URL but
// flag the record as not OK.
const MinTokenLen = 8

// Extraction is the parsed outcome of a post-submission URL.
type Extraction struct {
	Token     string
	ResultURL string
	OK        bool
}

// ExtractToken pulls a job token out of the service's acknowledgement URL.
// Primary source is the token query parameter; when absent, the last path
// segment is taken instead.
func ExtractToken(finalURL string) Extraction {
	if finalURL == "" {
		return Extraction{}
	}
	token := queryToken(finalURL)
	if token == "" {
		token = lastPathSegment(finalURL)
	}
	return Extraction{
		Token:     token,
		ResultURL: finalURL,
		OK:        len(token) >= MinTokenLen,
	}
}

func queryToken(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		if token := parsed.Query().Get("token"); token != "" {
			return token
		}
	}
	// The service has been seen emitting URLs the parser chokes on; fall
	// back to a raw split so a present token is never lost.
	if i := strings.LastIndex(rawURL, "token="); i >= 0 {
		return rawURL[i+len("token="):]
	}
	return ""
}

func lastPathSegment(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
