package lexiconnect

import "github.com/m-mizutani/goerr/v2"

var (
	ErrUnauthorized     = goerr.New("lexiconnect API rejected credentials")
	ErrNotFound         = goerr.New("lexiconnect resource not found")
	ErrUnexpectedStatus = goerr.New("unexpected lexiconnect API status")
	ErrMalformed        = goerr.New("malformed lexiconnect API response")
)

// Context keys for error values
const (
	StatusCodeKey = "status_code"
	URLKey        = "url"
)
