// Package main is a tiny probe binary for container health checks, where
// the StockTrail server image has no shell or curl. It GETs a URL and exits
// 0 on a 2xx response, 1 otherwise.
//
// Usage: healthcheck [url]
//
// Without an argument it probes the local readiness endpoint.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultURL = "http://localhost:8080/readyz"

func main() {
	url := defaultURL
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Fprintf(os.Stderr, "healthcheck failed: %s returned %d\n", url, resp.StatusCode)
		os.Exit(1)
	}
}
