package gitlab

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
)

// Option configures the client's HTTP transport
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithCACert trusts an additional PEM encoded CA, for self-hosted GitLab instances.
// NewClient fails when caCertData holds no certificate.
func WithCACert(caCertData []byte) Option {
	return func(c *Client) {
		rootCAs, _ := x509.SystemCertPool()
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}

		if !rootCAs.AppendCertsFromPEM(caCertData) {
			c.optErr = fmt.Errorf("no PEM encoded certificates found in CA data")
			return
		}

		c.http.Transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				RootCAs:    rootCAs,
				MinVersion: tls.VersionTLS12,
			},
		}
	}
}

// doRequest sends req with the access token and returns the body of a 200 response
func (c *Client) doRequest(req *http.Request) ([]byte, error) {
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("User-Agent", userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of response due to: %s", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %d, response body: %q", res.StatusCode, truncate(body, 256))
	}

	return body, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
