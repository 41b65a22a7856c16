package datasus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/srag-ai/pkg/config"
)

// mockHTTPClient returns canned responses and records requested URLs.
type mockHTTPClient struct {
	responses map[string]*http.Response
	err       error
	requests  []string
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req.URL.String())
	if m.err != nil {
		return nil, m.err
	}
	if resp, ok := m.responses[req.URL.String()]; ok {
		return resp, nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func htmlResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(t *testing.T, mock HTTPClient) *Client {
	t.Helper()
	client, err := NewFromConfig(config.DataSusConfig{
		BaseURL:    "https://example.test/dataset",
		RateLimit:  6000, // effectively no throttling in tests
		BurstLimit: 100,
	})
	require.NoError(t, err)
	client.httpClient = mock
	return client
}

func TestListDatasets(t *testing.T) {
	page := `
		<html><body>
		<div class="dropdown">
			<a class="dropdown-item" href="https://s3.example/INFLUD21-data.csv">2021</a>
			<a class="dropdown-item" href="https://s3.example/INFLUD24-data-2024.csv">2024</a>
			<a class="dropdown-item" href="/dataset/about">About</a>
			<a class="btn" href="https://s3.example/INFLUD23-data-2023.csv">not a dropdown</a>
		</div>
		</body></html>`

	mock := &mockHTTPClient{responses: map[string]*http.Response{
		"https://example.test/dataset": htmlResponse(page),
	}}
	client := newTestClient(t, mock)

	links, err := client.ListDatasets(context.Background())
	require.NoError(t, err)

	// Only dropdown s3 links with a recognizable year survive
	require.Len(t, links, 1)
	assert.Equal(t, 2024, links[0].Year)
	assert.Equal(t, "https://s3.example/INFLUD24-data-2024.csv", links[0].URL)
}

func TestListDatasetsNoLinks(t *testing.T) {
	mock := &mockHTTPClient{responses: map[string]*http.Response{
		"https://example.test/dataset": htmlResponse("<html><body>empty</body></html>"),
	}}
	client := newTestClient(t, mock)

	_, err := client.ListDatasets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CSV links")
}

func TestListDatasetsRetriesNetworkErrors(t *testing.T) {
	mock := &mockHTTPClient{err: errors.New("connection refused")}
	client := newTestClient(t, mock)

	_, err := client.ListDatasets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Len(t, mock.requests, 3)
}

func TestFetchYear(t *testing.T) {
	csvBody := "SG_UF_NOT;DT_NOTIFIC;EVOLUCAO\nSP;2024-01-15;1\nPE;2024-01-16;2\n"
	mock := &mockHTTPClient{responses: map[string]*http.Response{
		"https://s3.example/data-2024.csv": htmlResponse(csvBody),
	}}
	client := newTestClient(t, mock)

	records, stats, err := client.FetchYear(context.Background(), DatasetLink{
		Year: 2024,
		URL:  "https://s3.example/data-2024.csv",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Parsed)
	require.Len(t, records, 2)
	assert.Equal(t, "SP", records[0].State)
}

func TestDemoMode(t *testing.T) {
	client, err := NewFromConfig(config.DataSusConfig{Demo: true})
	require.NoError(t, err)
	require.True(t, client.IsDemo())

	links, err := client.ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Len(t, links, 5)

	records, stats, err := client.FetchYear(context.Background(), links[0])
	require.NoError(t, err)
	assert.NotEmpty(t, records)
	assert.Equal(t, len(records), stats.Parsed)

	// Deterministic: same year produces the same dataset
	again := GenerateDemo(links[0].Year)
	assert.Equal(t, len(records), len(again))
	assert.Equal(t, records[0], again[0])
}

func TestClassifyError(t *testing.T) {
	client := newTestClient(t, &mockHTTPClient{})

	tests := []struct {
		err  error
		want ErrorType
	}{
		{fmt.Errorf("context deadline exceeded"), ErrTimeout},
		{fmt.Errorf("dial tcp: connection refused"), ErrNetwork},
		{fmt.Errorf("datasus error: status 429, body: Too Many Requests"), ErrRateLimit},
		{fmt.Errorf("datasus error: status 404, body: not found"), ErrNotFound},
		{fmt.Errorf("something odd"), ErrUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, client.ClassifyError(tt.err), tt.err.Error())
	}
}
