// Package diagnose probes a running archivist instance.
package diagnose

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"archivist/internal/health"
)

type Check struct {
	Name string
	Err  error
	Info string
}

func (c Check) OK() bool { return c.Err == nil }

// Run probes the HTTP API at baseURL and the gRPC health service at
// healthAddr, writing one line per check to w. It reports whether every
// check passed.
func Run(ctx context.Context, w io.Writer, baseURL, healthAddr string) bool {
	baseURL = strings.TrimRight(baseURL, "/")
	checks := []Check{
		checkHTTP(ctx, "http /healthz", baseURL+"/healthz"),
		checkHTTP(ctx, "http /library", baseURL+"/library"),
		checkGRPC(ctx, healthAddr),
	}

	ok := true
	for _, c := range checks {
		if c.OK() {
			fmt.Fprintf(w, "PASS  %-16s %s\n", c.Name, c.Info)
		} else {
			ok = false
			fmt.Fprintf(w, "FAIL  %-16s %v\n", c.Name, c.Err)
		}
	}
	return ok
}

func checkHTTP(ctx context.Context, name, url string) Check {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Check{Name: name, Err: err}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Check{Name: name, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return Check{Name: name, Info: fmt.Sprintf("status %d", resp.StatusCode)}
}

func checkGRPC(ctx context.Context, addr string) Check {
	const name = "grpc health"
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return Check{Name: name, Err: err}
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: health.Service})
	if err != nil {
		return Check{Name: name, Err: err}
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: name, Err: fmt.Errorf("status %s", resp.GetStatus())}
	}
	return Check{Name: name, Info: resp.GetStatus().String()}
}
