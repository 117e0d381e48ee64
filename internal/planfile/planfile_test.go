package planfile_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/crankplan/internal/engine"
	"github.com/torosent/crankplan/internal/metrics"
	"github.com/torosent/crankplan/internal/planfile"
	"github.com/torosent/crankplan/pkg/plan"
)

func newBuilder(t *testing.T, opts ...engine.Option) *plan.Builder {
	t.Helper()
	b, err := plan.NewBuilder(engine.New(opts...))
	require.NoError(t, err)
	return b
}

func writePlan(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func kinds(els []plan.Element) []plan.Kind {
	out := make([]plan.Kind, len(els))
	for i, el := range els {
		out[i] = el.Kind()
	}
	return out
}

func TestLoadFileBuildsTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.csv"), []byte("user\nann\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "avatar.png"), []byte("png"), 0o644))

	path := writePlan(t, dir, `
test_plan:
  - vars: {host: example.test, port: 8080}
  - csv_dataset: users.csv
  - setup_thread_group:
      - dummy_sampler: {name: warmup}
  - thread_group_simple:
      name: Users
      threads: 2
      iterations: 3
      children:
        - http_sampler:
            name: Echo ${user}
            url: http://${host}:${port}/post
            headers: {X-Env: qa}
            body: {user: "${user}"}
            content_type: APPLICATION_JSON
            children:
              - json_extractor: {variable: id, query: $.id, language: jsonpath}
        - http_sampler:
            name: Upload
            url: http://${host}/upload
            multipart:
              - {name: file, path: avatar.png, content_type: image/png-not-in-set}
        - constant_timer: 100ms
        - uniform_random_timer: {min: 10, max: 20ms}
        - response_assertion: [ok]
  - thread_group_with_ramp_up_and_hold:
      threads: 1
      ramp_up: 1s
      hold: 2s
      children:
        - dummy_sampler: {name: tick, response_body: "{}", response_time: 5ms}
  - teardown_thread_group:
  - jtl_writer: results.jtl
  - html_reporter:
`)
	_, err := planfile.LoadFile(newBuilder(t), path)
	// image/png-not-in-set is not a known content type.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 24")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	fixed := strings.Replace(string(content), "image/png-not-in-set", "APPLICATION_OCTET_STREAM", 1)
	require.NoError(t, os.WriteFile(path, []byte(fixed), 0o644))

	tp, err := planfile.LoadFile(newBuilder(t), path)
	require.NoError(t, err)

	assert.Equal(t, []plan.Kind{
		plan.KindVars,
		plan.KindCSVDataset,
		plan.KindSetupThreadGroup,
		plan.KindThreadGroupSimple,
		plan.KindThreadGroupWithRampUpAndHold,
		plan.KindTeardownThreadGroup,
		plan.KindJTLWriter,
		plan.KindHTMLReporter,
	}, kinds(tp.Elements()))

	vars, ok := tp.Elements()[0].(*plan.Vars)
	require.True(t, ok)
	port, _ := vars.Get("port")
	assert.Equal(t, "8080", port)

	users := tp.Elements()[3]
	assert.Equal(t, []plan.Kind{
		plan.KindHTTPSampler,
		plan.KindHTTPSampler,
		plan.KindConstantTimer,
		plan.KindUniformRandomTimer,
		plan.KindResponseAssertion,
	}, kinds(users.Elements()))
	assert.Equal(t, []plan.Kind{plan.KindJSONExtractor}, kinds(users.Elements()[0].Elements()))

	html, ok := tp.Elements()[7].(*plan.HTMLReporter)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(html.Dir(), filepath.Join("output", "html-report-")))
}

func TestLoadRunsThroughEngine(t *testing.T) {
	var (
		mu     sync.Mutex
		labels []string
	)
	listener := engine.ListenerFunc(func(s metrics.Sample) {
		mu.Lock()
		labels = append(labels, s.Label)
		mu.Unlock()
	})

	tp, err := planfile.Load(newBuilder(t, engine.WithListener(listener)), strings.NewReader(`
test_plan:
  - vars: {greeting: hi}
  - thread_group_simple:
      threads: 1
      iterations: 2
      children:
        - dummy_sampler:
            name: first
            response_body: '{"next": "second"}'
            children:
              - json_extractor: {variable: next, query: next}
        - dummy_sampler: {name: "${greeting} ${next}"}
`))
	require.NoError(t, err)

	stats, err := tp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.SampleCount())
	assert.Equal(t, []string{"first", "hi second", "first", "hi second"}, labels)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
		wantMsg string
	}{
		{name: "empty", doc: "", wantErr: planfile.ErrInvalidPlan},
		{name: "not a mapping", doc: "- a\n- b\n", wantErr: planfile.ErrInvalidPlan},
		{name: "unknown top level", doc: "plan: []\n", wantErr: planfile.ErrInvalidPlan, wantMsg: "unknown top-level key"},
		{name: "unknown kind", doc: "test_plan:\n  - rocket: {}\n", wantErr: planfile.ErrInvalidPlan, wantMsg: "unknown element kind"},
		{name: "two keys", doc: "test_plan:\n  - {vars: {}, jtl_writer: x}\n", wantErr: planfile.ErrInvalidPlan},
		{name: "nested plan", doc: "test_plan:\n  - test_plan: []\n", wantErr: planfile.ErrInvalidPlan},
		{name: "unknown field", doc: "test_plan:\n  - thread_group_simple: {threads: 1, users: 2}\n", wantErr: planfile.ErrInvalidPlan, wantMsg: "unknown field \"users\""},
		{name: "bad duration", doc: "test_plan:\n  - thread_group_simple:\n      children:\n        - constant_timer: soon\n", wantErr: planfile.ErrInvalidPlan, wantMsg: "line 4"},
		{
			name:    "sampler under plan",
			doc:     "test_plan:\n  - dummy_sampler: {name: x}\n",
			wantErr: plan.ErrComposition,
		},
		{
			name:    "timer under plan",
			doc:     "test_plan:\n  - constant_timer: 1s\n",
			wantErr: plan.ErrComposition,
		},
		{
			name:    "header value not a string",
			doc:     "test_plan:\n  - thread_group_simple:\n      children:\n        - http_sampler: {url: http://x, headers: {X-Count: 3}}\n",
			wantErr: plan.ErrType,
		},
		{
			name:    "header key not a string",
			doc:     "test_plan:\n  - thread_group_simple:\n      children:\n        - http_sampler: {url: http://x, headers: {1: a}}\n",
			wantErr: plan.ErrType,
		},
		{
			name:    "missing dataset",
			doc:     "test_plan:\n  - csv_dataset: /does/not/exist.csv\n",
			wantErr: plan.ErrNotFound,
		},
		{
			name:    "zero threads",
			doc:     "test_plan:\n  - thread_group_simple: {threads: 0}\n",
			wantErr: plan.ErrInvalidArgument,
		},
		{
			name:    "simple group as list",
			doc:     "test_plan:\n  - thread_group_simple: []\n",
			wantErr: planfile.ErrInvalidPlan,
		},
		{
			name:    "unknown query language",
			doc:     "test_plan:\n  - thread_group_simple:\n      children:\n        - json_extractor: {variable: a, query: b, language: xpath}\n",
			wantErr: planfile.ErrInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := planfile.Load(newBuilder(t), strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoadMethodOverridesBody(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		body   string
		ctype  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, body, ctype = r.Method, string(data), r.Header.Get("Content-Type")
		mu.Unlock()
	}))
	defer srv.Close()

	tp, err := planfile.Load(newBuilder(t), strings.NewReader(`
test_plan:
  - thread_group_simple:
      children:
        - http_sampler:
            url: `+srv.URL+`/items
            body: "raw"
            content_type: text/plain
            method: put
`))
	require.NoError(t, err)

	stats, err := tp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ErrorCount())
	assert.Equal(t, []string{srv.URL + "/items"}, stats.Labels())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "raw", body)
	assert.Contains(t, ctype, "text/plain")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := planfile.LoadFile(newBuilder(t), filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDurationAsMilliseconds(t *testing.T) {
	tp, err := planfile.Load(newBuilder(t), strings.NewReader(`
test_plan:
  - thread_group_simple:
      children:
        - dummy_sampler: {name: d, response_time: 1500}
`))
	require.NoError(t, err)

	stats, err := tp.Run(context.Background())
	require.NoError(t, err)
	ls, ok := stats.Label("d")
	require.True(t, ok)
	assert.Equal(t, (1500 * time.Millisecond).Milliseconds(), ls.MaxMillis())
}
