package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ytdlpro/config"
	"ytdlpro/observability/mocks"
	"ytdlpro/observability/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoWorker answers with what it saw in the context.
type echoWorker struct {
	name string
	err  error
}

func (w *echoWorker) Name() string { return w.name }

func (w *echoWorker) Process(ctx context.Context, req Request) (Response, error) {
	worker, _ := ctx.Value(types.WorkerKey).(string)
	platform, _ := ctx.Value(types.PlatformKey).(string)
	return NewSuccessResponse(req.ID, map[string]string{"worker": worker, "platform": platform})
}

func (w *echoWorker) Health(ctx context.Context) error { return w.err }

func TestWorkerInterface(t *testing.T) {
	var _ Worker = (*echoWorker)(nil)
}

func TestHandler_HandleSetsContext(t *testing.T) {
	cfg := config.DefaultHandlerConfig()
	cfg.Platform = PlatformLambda

	h := NewHandler(&echoWorker{name: "health"}, mocks.NewQuietProvider(), &cfg)

	resp, err := h.Handle(context.Background(), Request{ID: "r1", Type: "health"})
	require.NoError(t, err)

	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "health", data["worker"])
	assert.Equal(t, PlatformLambda, data["platform"])
}

func TestHandler_MiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req Request) (Response, error) {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	h := NewHandler(&echoWorker{name: "w"}, mocks.NewQuietProvider(), nil)
	h.Use(mark("outer"))
	h.Use(mark("inner"))

	_, err := h.Handle(context.Background(), Request{ID: "r"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestHandler_Health(t *testing.T) {
	h := NewHandler(&echoWorker{name: "w", err: errors.New("down")}, mocks.NewQuietProvider(), nil)
	assert.EqualError(t, h.Health(context.Background()), "down")
	assert.Equal(t, "w", h.Worker().Name())
}

func TestFactory_Create(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	cfg := config.DefaultHandlerConfig()
	cfg.Platform = PlatformHTTP
	cfg.Timeout = time.Second

	handlers := NewFactory(mocks.NewQuietProvider()).
		WithHandlerConfig(cfg).
		WithRetryConfig(config.RetryConfig{}).
		CreateAll(&echoWorker{name: "a"}, &echoWorker{name: "b"})

	require.Len(t, handlers, 2)
	for _, h := range handlers {
		resp, err := h.Handle(context.Background(), Request{ID: "r", Type: h.Worker().Name()})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Metadata["trace_id"])
	}
}

func TestDetectPlatform(t *testing.T) {
	t.Run("lambda", func(t *testing.T) {
		t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "download-video")
		assert.Equal(t, PlatformLambda, DetectPlatform())
	})
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeValidation, 400},
		{CodeInvalidPayload, 400},
		{CodeInvalidURL, 400},
		{CodeAnalysisFailed, 400},
		{CodeMethodNotAllowed, 405},
		{CodeNotFound, 404},
		{CodeTimeout, 408},
		{CodeUnavailable, 503},
		{CodeInternal, 500},
		{"SOMETHING_ELSE", 500},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(NewErrorResponse("r", tt.code, "m", "")))
		})
	}

	ok, err := NewSuccessResponse("r", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, StatusCode(ok))
	assert.Equal(t, 500, StatusCode(Response{}))
}

func TestBody(t *testing.T) {
	ok, err := NewSuccessResponse("r", map[string]int{"videoCount": 3})
	require.NoError(t, err)

	body, err := Body(ok, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"videoCount":3}}`, string(body))

	body, err = Body(ok, true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"videoCount":3}`, string(body))

	body, err = Body(NewErrorResponse("r", CodeInvalidURL, "URL is required", "details"), false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"URL is required"}`, string(body))
}

func TestNewRequest(t *testing.T) {
	req, err := NewRequest("download-video", map[string]string{"url": "u"})
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)

	var payload map[string]string
	require.NoError(t, req.Unmarshal(&payload))
	assert.Equal(t, "u", payload["url"])

	req.SetMetadata("k", "v")
	v, ok := req.GetMetadata("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
