// Package main probes the server for container health checks. It exits 0
// when the endpoint answers 200 and 1 otherwise.
//
// Usage: healthcheck [path]   (default /livez; pass /readyz for the deeper check)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/garyellow/unibot-go/internal/config"
)

const probeTimeout = 8 * time.Second

func main() {
	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "10000"
	}
	path := "/livez"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := probe(ctx, "http://localhost:"+port+path); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		cancel()
		os.Exit(1)
	}
}

func probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", url, resp.StatusCode)
	}
	return nil
}
