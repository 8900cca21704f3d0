package cryptogauge

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"time"
)

const httpTestRequestTimeout = 15 * time.Second

type diagnosticStep struct {
	name      string
	fn        func() (string, error)
	extraInfo string
	err       error
	elapsed   time.Duration
}

func upstreamDiagnosticSteps(config *upstreamConfig) []diagnosticStep {
	host := config.BaseURL
	if parsed, err := url.Parse(config.BaseURL); err == nil && parsed.Hostname() != "" {
		host = parsed.Hostname()
	}

	client := newHTTPClient(httpTestRequestTimeout, config.AllowInsecure)

	return []diagnosticStep{
		{
			name: "resolve " + host,
			fn: func() (string, error) {
				return testDNSResolution(host)
			},
		},
		{
			name: "reach the gauge API at " + config.BaseURL,
			fn: func() (string, error) {
				// any response means the host is reachable, the root usually has no handler
				return testHttpRequest(client, "GET", config.BaseURL, nil, 0)
			},
		},
		{
			name: "fetch gauge data for btc/30",
			fn: func() (string, error) {
				headers := map[string]string{"User-Agent": userAgentString}
				if config.BearerToken != "" {
					headers["Authorization"] = "Bearer " + config.BearerToken
				}

				return testHttpRequest(client, "GET", strings.TrimRight(config.BaseURL, "/")+"/btc/30", headers, http.StatusOK)
			},
		},
		{
			name: "use the configured bearer token",
			fn: func() (string, error) {
				return testBearerCredential(config.BearerToken, time.Now())
			},
		},
	}
}

func runDiagnostic(w io.Writer, config *upstreamConfig) {
	fmt.Fprintln(w, "```")
	fmt.Fprintln(w, "CryptoGauge version: "+buildVersion)
	fmt.Fprintln(w, "Go version: "+runtime.Version())
	fmt.Fprintf(w, "Platform: %s / %s / %d CPUs\n", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	fmt.Fprintln(w, "In Docker container: "+ternary(isRunningInsideDockerContainer(), "yes", "no"))

	fmt.Fprintf(w, "\nChecking the upstream, this may take up to %d seconds...\n\n", int(httpTestRequestTimeout.Seconds()))

	steps := upstreamDiagnosticSteps(config)

	var wg sync.WaitGroup
	for i := range steps {
		step := &steps[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			step.extraInfo, step.err = step.fn()
			step.elapsed = time.Since(start)
		}()
	}
	wg.Wait()

	for _, step := range steps {
		var extraInfo string

		if step.extraInfo != "" {
			extraInfo = "| " + step.extraInfo + " "
		}

		fmt.Fprintf(
			w,
			"%s %s %s| %dms\n",
			ternary(step.err == nil, "✓ Can", "✗ Can't"),
			step.name,
			extraInfo,
			step.elapsed.Milliseconds(),
		)

		if step.err != nil {
			fmt.Fprintf(w, "└╴ error: %v\n", step.err)
		}
	}
	fmt.Fprintln(w, "```")
}

// testHttpRequest accepts any status code when expectedStatusCode is 0.
func testHttpRequest(client requestDoer, method, url string, headers map[string]string, expectedStatusCode int) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), httpTestRequestTimeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return "", err
	}

	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := client.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}

	printableBody, truncated := limitStringLength(strings.ReplaceAll(string(body), "\n", ""), 50)
	if truncated {
		printableBody += "..."
	}
	if len(printableBody) > 0 {
		printableBody = ", " + printableBody
	}

	extraInfo := intl.Sprintf("%d, %d bytes%s", response.StatusCode, len(body), printableBody)

	if expectedStatusCode != 0 && response.StatusCode != expectedStatusCode {
		return extraInfo, fmt.Errorf("expected status code %d, got %d", expectedStatusCode, response.StatusCode)
	}

	return extraInfo, nil
}

func testDNSResolution(domain string) (string, error) {
	ips, err := net.LookupIP(domain)

	var ipStrings []string
	if err == nil {
		for i := range ips {
			ipStrings = append(ipStrings, ips[i].String())
		}
	}

	return strings.Join(ipStrings, ", "), err
}

func testBearerCredential(credential string, now time.Time) (string, error) {
	if credential == "" {
		return "", fmt.Errorf("no bearer token configured")
	}

	status, expiresAt := inspectBearerCredential(credential, now)

	switch status {
	case credentialStatusExpired:
		return "", fmt.Errorf("bearer token expired at %s", expiresAt.Format(time.RFC3339))
	case credentialStatusExpiringSoon:
		return "expires " + expiresAt.Format(time.RFC3339), nil
	case credentialStatusValid:
		return "valid until " + expiresAt.Format(time.RFC3339), nil
	}

	return "expiry unknown", nil
}
