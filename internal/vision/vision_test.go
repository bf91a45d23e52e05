package vision

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"brand\":\"Apple\"}\n```", `{"brand":"Apple"}`, true},
		{"prose around", `Sure! Here it is: {"a":{"b":2}} hope that helps {"c":3}`, `{"a":{"b":2}}`, true},
		{"brace in string", `{"model":"Pro {2021}","x":"}"}`, `{"model":"Pro {2021}","x":"}"}`, true},
		{"escaped quote", `{"model":"12\" screen"}`, `{"model":"12\" screen"}`, true},
		{"skips invalid first", `{not json} then {"ok":true}`, `{"ok":true}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractJSONObject(tt.input)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIdentityLooseTypes(t *testing.T) {
	reply := "```json\n" + `{"brand":" Apple ","model":"iPhone 12","modelNumber":"A2172","category":"Smartphone",
"releaseYear":"2020","specifications":{"storage":"128GB","screen":6.1},"commonIssues":["battery","screen"],
"repairabilityScore":14,"confidence":"85%"}` + "\n```"

	id, ok := ParseIdentity(reply)
	require.True(t, ok)
	assert.Equal(t, "Apple", id.Brand)
	assert.Equal(t, "smartphone", id.Category)
	assert.Equal(t, 2020, id.ReleaseYear)
	assert.Equal(t, "6.1", id.Specifications["screen"])
	assert.Equal(t, 10, id.RepairabilityScore)
	assert.InDelta(t, 0.85, id.Confidence, 1e-9)
}

func TestParseIdentityFallsBackToPlaceholder(t *testing.T) {
	for _, reply := range []string{"", "I cannot identify this.", `{"unrelated":true}`, `{"brand": 12}`} {
		id, ok := ParseIdentity(reply)
		assert.False(t, ok, reply)
		assert.Equal(t, Placeholder(), id)
	}
}

func TestExtractModelNumber(t *testing.T) {
	tests := map[string]string{
		"Model: A2172 Serial F17D":         "A2172",
		"MADE IN CHINA\nSM-G991B/DS":       "SM-G991B/DS",
		"WARNING HIGH VOLTAGE 220V":        "220V",
		"no identifiers here":              "",
		"ABCD EFGH 1234":                   "",
		"(KDL-40W600B), rated 100-240V~":   "KDL-40W600B",
		"X1 is too short, ok: RX-V685":     "RX-V685",
	}
	for text, want := range tests {
		assert.Equal(t, want, ExtractModelNumber(text), text)
	}
}

func TestNormalizeBoundsConfidence(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("confidence always within [0,1]", prop.ForAll(
		func(c float64, r int) bool {
			id := Identity{Confidence: c, RepairabilityScore: r}
			id.Normalize()
			okRepair := id.RepairabilityScore == 0 || (id.RepairabilityScore >= 1 && id.RepairabilityScore <= 10)
			return id.Confidence >= 0 && id.Confidence <= 1 && okRepair
		},
		gen.Float64Range(-1e6, 1e6),
		gen.IntRange(-100, 100),
	))
	properties.TestingRun(t)

	id := Identity{Confidence: math.NaN()}
	id.Normalize()
	assert.Equal(t, 0.0, id.Confidence)
}

func fakeChatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "vision-model", req.Model)

		raw, _ := json.Marshal(req.Messages[0].Content)
		assert.Contains(t, string(raw), "data:image/jpeg;base64,")

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{"message": map[string]interface{}{"content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatProviderReturnsContent(t *testing.T) {
	srv := fakeChatServer(t, http.StatusOK, `{"brand":"Dyson"}`)
	p := NewChatProvider(srv.URL, "test-key", "vision-model", time.Second)

	out, err := p.Complete(context.Background(), Request{Prompt: IdentifyPrompt, Image: []byte{0xff, 0xd8}, MIME: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, `{"brand":"Dyson"}`, out)
}

func TestChatProviderSurfacesHTTPErrors(t *testing.T) {
	srv := fakeChatServer(t, http.StatusTooManyRequests, "quota exceeded")
	p := NewChatProvider(srv.URL, "test-key", "vision-model", time.Second)

	_, err := p.Complete(context.Background(), Request{Prompt: "x", Image: []byte{1}, MIME: "image/jpeg"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "429"))
}

type countingProvider struct{ calls int }

func (c *countingProvider) Name() string { return "counting" }
func (c *countingProvider) Complete(context.Context, Request) (string, error) {
	c.calls++
	return "ok", nil
}

func TestThrottledHonoursContext(t *testing.T) {
	inner := &countingProvider{}
	th := NewThrottled(inner, 0.001)

	_, err := th.Complete(context.Background(), Request{})
	require.NoError(t, err, "first call uses the burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = th.Complete(ctx, Request{})
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "counting", th.Name())
}
