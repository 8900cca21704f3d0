package cryptogauge

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	errNoContent    = errors.New("failed to retrieve any content")
	errParseFailure = errors.New("failed to parse response")
)

// No timeout unless one is configured, requests still honour their context.
var defaultHTTPClient = newHTTPClient(0, false)

func newHTTPClient(timeout time.Duration, allowInsecure bool) *http.Client {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		Proxy:               http.ProxyFromEnvironment,
	}

	if allowInsecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

type requestDoer interface {
	Do(*http.Request) (*http.Response, error)
}

var userAgentString = "CryptoGauge/" + buildVersion

func setUserAgentHeader(request *http.Request) {
	request.Header.Set("User-Agent", userAgentString)
}

func readBodyFromRequest(client requestDoer, request *http.Request) ([]byte, error) {
	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		truncatedBody, _ := limitStringLength(string(body), 256)

		return nil, fmt.Errorf(
			"unexpected status code %d from %s, response: %s",
			response.StatusCode,
			request.URL,
			truncatedBody,
		)
	}

	return body, nil
}
