package web

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linksim/linksim/channel"
	"github.com/linksim/linksim/fec"
	"github.com/linksim/linksim/internal/metrics"
	"github.com/linksim/linksim/pipeline"
	"github.com/linksim/linksim/textbits"
)

type response struct {
	Encoded    []int     `json:"saida_encoder"`
	Received   []float64 `json:"saida_canal"`
	Decoded    []int     `json:"saida_decoder"`
	Ratio      string    `json:"taxa_erro"`
	InputText  string    `json:"entrada_texto"`
	OutputText string    `json:"saida_texto"`
	Variance   float64   `json:"variancia"`
	Error      string    `json:"error"`
}

func newTestServer(t *testing.T, o Options) *httptest.Server {
	t.Helper()
	c := fec.NewLDPC(0)
	m, err := c.Construct(fec.Params{Scheme: fec.SchemeLDPC, N: 96, Dv: 3, Dc: 4, Seed: 42})
	require.NoError(t, err)
	p := pipeline.New(c, m, channel.Noiseless{})
	ts := httptest.NewServer(NewServer(p, textbits.New(textbits.Reject), o))
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, body string) (*http.Response, response) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/processar", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out response
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &out), string(b))
	return resp, out
}

func TestProcessAB(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, out := post(t, ts, `{"vetor_entrada": "AB", "variancia": 0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	assert.Equal(t, "AB", out.InputText)
	assert.Equal(t, "AB", out.OutputText)
	assert.Equal(t, "0/16", out.Ratio)
	assert.Equal(t, []int{0, 1, 0, 0, 0, 0, 0, 1, 0, 1, 0, 0, 0, 0, 1, 0}, out.Decoded)
	assert.Len(t, out.Encoded, 96)
	require.Len(t, out.Received, 96)
	for i, y := range out.Received {
		assert.Equal(t, float64(2*out.Encoded[i]-1), y)
	}
	assert.Equal(t, 0.0, out.Variance)

	_, err := uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestProcessVarianceAsString(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, out := post(t, ts, `{"vetor_entrada": "ok", "variancia": " 0.25 "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	assert.Equal(t, 0.25, out.Variance)
	for _, y := range out.Received {
		assert.InDelta(t, math.Round(y*100), y*100, 1e-9, "rounded to two decimals")
	}
}

func TestProcessSameSeedSameNoise(t *testing.T) {
	a := newTestServer(t, Options{Seed: 7})
	b := newTestServer(t, Options{Seed: 7})
	body := `{"vetor_entrada": "AB", "variancia": 1.5}`
	_, ra := post(t, a, body)
	_, rb := post(t, b, body)
	assert.Equal(t, ra.Received, rb.Received)
	assert.Equal(t, ra.OutputText, rb.OutputText)

	// the next request on the same server draws fresh noise
	_, ra2 := post(t, a, body)
	assert.NotEqual(t, ra.Received, ra2.Received)
}

func TestProcessBadRequests(t *testing.T) {
	ts := newTestServer(t, Options{MaxChars: 2})
	for name, body := range map[string]string{
		"empty":       ``,
		"not json":    `hello`,
		"no text":     `{"variancia": 1}`,
		"no variance": `{"vetor_entrada": "A"}`,
		"negative":    `{"vetor_entrada": "A", "variancia": -0.5}`,
		"bad string":  `{"vetor_entrada": "A", "variancia": "loud"}`,
		"nan":         `{"vetor_entrada": "A", "variancia": "NaN"}`,
		"too long":    `{"vetor_entrada": "ABC", "variancia": 0}`,
		"not latin-1": `{"vetor_entrada": "Ā", "variancia": 0}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, out := post(t, ts, body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, out.Error)
		})
	}
}

func TestProcessOversizeForCode(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, out := post(t, ts, `{"vetor_entrada": "`+strings.Repeat("x", 20)+`", "variancia": 0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out.Error, "capacity")
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, err := http.Get(ts.URL + "/processar")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthzAndMetrics(t *testing.T) {
	m := metrics.New()
	ts := newTestServer(t, Options{Metrics: m})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(b))

	post(t, ts, `{"vetor_entrada": "AB", "variancia": 0}`)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(b), `linksim_transmissions_total{scheme="ldpc"} 1`)
	assert.Contains(t, string(b), `linksim_bit_errors_total{scheme="ldpc"} 0`)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, Options{CORSOrigins: []string{"http://example.test"}})
	allowed := func(origin string) string {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/processar",
			strings.NewReader(`{"vetor_entrada": "A", "variancia": 0}`))
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.Header.Get("Access-Control-Allow-Origin")
	}
	assert.Equal(t, "http://example.test", allowed("http://example.test"))
	assert.Empty(t, allowed("http://other.test"))
}
