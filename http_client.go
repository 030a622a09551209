package main

import (
	"net/http"
	"time"
)

const externalHTTPTimeout = 30 * time.Second

// Shared client for outbound API calls.
var externalHTTPClient = &http.Client{
	Timeout: externalHTTPTimeout,
}
