package transcriber

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

// maxResponse bounds a transcription reply; real ones are a few KB.
const maxResponse = 4 << 20

// TracedClient is a pooled HTTP client that times every phase of a
// request, so one upload can be broken down in the log.
type TracedClient struct {
	client *http.Client
}

func NewTracedClient() *TracedClient {
	return &TracedClient{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

// stopwatch collects httptrace timestamps for a single request.
type stopwatch struct {
	start, getConn, gotConn time.Time
	dnsStart, dnsDone       time.Time
	dialStart, dialDone     time.Time
	tlsStart, tlsDone       time.Time
	wroteHeaders, wroteBody time.Time
	firstByte               time.Time
	reused                  bool
	alpn                    string
}

func (s *stopwatch) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(string) { s.getConn = time.Now() },
		GotConn: func(info httptrace.GotConnInfo) {
			s.gotConn = time.Now()
			s.reused = info.Reused
		},
		DNSStart:          func(httptrace.DNSStartInfo) { s.dnsStart = time.Now() },
		DNSDone:           func(httptrace.DNSDoneInfo) { s.dnsDone = time.Now() },
		ConnectStart:      func(_, _ string) { s.dialStart = time.Now() },
		ConnectDone:       func(_, _ string, _ error) { s.dialDone = time.Now() },
		TLSHandshakeStart: func() { s.tlsStart = time.Now() },
		TLSHandshakeDone: func(state tls.ConnectionState, _ error) {
			s.tlsDone = time.Now()
			s.alpn = state.NegotiatedProtocol
		},
		WroteHeaders:         func() { s.wroteHeaders = time.Now() },
		WroteRequest:         func(httptrace.WroteRequestInfo) { s.wroteBody = time.Now() },
		GotFirstResponseByte: func() { s.firstByte = time.Now() },
	}
}

// span is end-start, or zero when either end was never observed.
func span(start, end time.Time) time.Duration {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	return end.Sub(start)
}

func (s *stopwatch) metrics(done time.Time) *NetworkMetrics {
	firstByte := s.firstByte
	if firstByte.IsZero() {
		firstByte = s.start
	}
	return &NetworkMetrics{
		ConnWait:    span(s.getConn, s.gotConn),
		DNS:         span(s.dnsStart, s.dnsDone),
		TCP:         span(s.dialStart, s.dialDone),
		TLS:         span(s.tlsStart, s.tlsDone),
		ReqHeaders:  span(s.gotConn, s.wroteHeaders),
		ReqBody:     span(s.wroteHeaders, s.wroteBody),
		TTFB:        span(s.wroteBody, s.firstByte),
		Download:    span(firstByte, done),
		Total:       span(s.start, done),
		ConnReused:  s.reused,
		TLSProtocol: s.alpn,
	}
}

// Do sends req and reads the whole body, which is capped at maxResponse.
func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	sw := &stopwatch{start: time.Now()}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), sw.trace()))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxResponse {
		return nil, fmt.Errorf("response larger than %d bytes", maxResponse)
	}

	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    sw.metrics(time.Now()),
	}, nil
}

// WarmConnection opens (and pools) a connection to url so the real
// request can skip the TLS handshake. It returns the handshake time.
func (c *TracedClient) WarmConnection(ctx context.Context, url string) time.Duration {
	sw := &stopwatch{start: time.Now()}
	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, sw.trace()), http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return span(sw.tlsStart, sw.tlsDone)
}
