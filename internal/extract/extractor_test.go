package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name         string
		stdout       string
		wantOK       bool
		wantPayload  string
		wantStrategy string
	}{
		{
			name:         "bare object",
			stdout:       `{"success":true}`,
			wantOK:       true,
			wantPayload:  `{"success":true}`,
			wantStrategy: "whole",
		},
		{
			name:         "surrounding whitespace",
			stdout:       "\n  {\"a\":1}  \n\n",
			wantOK:       true,
			wantPayload:  `{"a":1}`,
			wantStrategy: "whole",
		},
		{
			name:         "log lines before payload",
			stdout:       "loading model\ndownloading 45%\n{\"success\":true,\"data\":{\"text\":\"hello\"}}\n",
			wantOK:       true,
			wantPayload:  `{"success":true,"data":{"text":"hello"}}`,
			wantStrategy: "lines",
		},
		{
			name:         "latest printed object wins",
			stdout:       "{\"step\":1}\nworking\n{\"step\":2}\n",
			wantOK:       true,
			wantPayload:  `{"step":2}`,
			wantStrategy: "lines",
		},
		{
			name:         "broken last line falls back to earlier line",
			stdout:       "{\"ok\":true}\n{\"truncated\": \n",
			wantOK:       true,
			wantPayload:  `{"ok":true}`,
			wantStrategy: "lines",
		},
		{
			name:         "pretty printed object",
			stdout:       "starting\n{\n  \"success\": true,\n  \"data\": [1, 2]\n}\nbye",
			wantOK:       true,
			wantPayload:  "{\n  \"success\": true,\n  \"data\": [1, 2]\n}",
			wantStrategy: "span",
		},
		{
			name:         "chinese text",
			stdout:       "开始处理\n{\"title\":\"小红书\"}\n",
			wantOK:       true,
			wantPayload:  `{"title":"小红书"}`,
			wantStrategy: "lines",
		},
		{name: "pure noise", stdout: "loading...\nerror: bad url\n"},
		{name: "empty", stdout: ""},
		{name: "whitespace only", stdout: "  \n\t\n"},
		{name: "unbalanced braces", stdout: "result: {\"a\": 1\n"},
		{name: "braces without json", stdout: "{not json} and {also not}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(tt.stdout)
			require.Equal(t, tt.wantOK, res.OK(), "reason: %s", res.Reason())
			if !tt.wantOK {
				assert.Nil(t, res.Payload())
				assert.NotEmpty(t, res.Reason())
				return
			}
			assert.Equal(t, tt.wantPayload, string(res.Payload()))
			assert.Equal(t, tt.wantStrategy, res.Strategy())
			assert.Empty(t, res.Reason())
		})
	}
}

func TestExtract_NoiseReason(t *testing.T) {
	res := Extract("error: bad url\n")
	assert.False(t, res.OK())
	assert.Equal(t, NoPayloadReason, res.Reason())
}

func TestExtract_PayloadIsCopied(t *testing.T) {
	res := Extract(`{"a":1}`)
	p := res.Payload()
	p[0] = 'X'
	assert.Equal(t, `{"a":1}`, string(res.Payload()))
}

func TestStrategiesOrder(t *testing.T) {
	names := make([]string, 0, len(Strategies))
	for _, s := range Strategies {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"whole", "lines", "span"}, names)
}

func TestLastJSONLine_IgnoresNonObjectLines(t *testing.T) {
	_, ok := LastJSONLine("[1,2,3]\n\"str\"\n")
	assert.False(t, ok)
}

func TestBraceSpan(t *testing.T) {
	raw, ok := BraceSpan("prefix {\"a\":{\"b\":2}} suffix")
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":2}}`, string(raw))

	_, ok = BraceSpan("} backwards {")
	assert.False(t, ok)
}

// Only a JSON object can be recovered once log lines precede it; other
// values are reported as missing rather than guessed at.
func TestExtract_ObjectsOnlyAfterLogLines(t *testing.T) {
	for _, out := range []string{
		"loading...\n[{\"a\":1}]\n",
		"loading...\n[\n  {\"a\":1}\n]\n",
		"loading...\n[1,2]\n",
		"loading...\n42\n",
		"loading...\n\"s\"\n",
	} {
		res := Extract(out)
		assert.False(t, res.OK(), "%q should not yield a payload, got %s", out, res.Payload())
	}

	// without surrounding noise the whole output is taken as is
	res := Extract("[1,2]")
	require.True(t, res.OK())
	assert.Equal(t, "whole", res.Strategy())
}

func TestDecodeEnvelope(t *testing.T) {
	t.Run("success with data", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"success":true,"data":{"text":"hello"}}`))
		require.NoError(t, err)
		assert.True(t, env.Success)
		assert.JSONEq(t, `{"text":"hello"}`, string(env.Data))
		assert.Empty(t, env.Error)
	})

	t.Run("failure with error", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"success":false,"error":"video unavailable"}`))
		require.NoError(t, err)
		assert.False(t, env.Success)
		assert.Nil(t, env.Data)
		assert.Equal(t, "video unavailable", env.Error)
	})

	t.Run("message used when error missing", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"success":false,"message":"cookie expired"}`))
		require.NoError(t, err)
		assert.Equal(t, "cookie expired", env.Error)
	})

	t.Run("null data is missing", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"success":true,"data":null}`))
		require.NoError(t, err)
		assert.Nil(t, env.Data)
	})

	t.Run("missing success reads false", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"data":1}`))
		require.NoError(t, err)
		assert.False(t, env.Success)
	})

	t.Run("array", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`[1]`))
		assert.ErrorIs(t, err, ErrNotObject)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestFirstString(t *testing.T) {
	raw := []byte(`{"result":"","content":"analysis text","n":3}`)

	s, ok := FirstString(raw, "result", "content")
	require.True(t, ok)
	assert.Equal(t, "analysis text", s)

	_, ok = FirstString(raw, "n", "missing")
	assert.False(t, ok)
}

func TestDiagnostic(t *testing.T) {
	assert.Equal(t, "bad url", Diagnostic("trace\n{\"success\":false,\"error\":\"bad url\"}\n"))
	assert.Empty(t, Diagnostic("error: bad url\n"))
}
