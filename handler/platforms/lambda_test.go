package platforms

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"ytdlpro/handler"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLambdaAdapter_HandleRequest(t *testing.T) {
	router, _, video := newTestRouter(t)
	ok, err := handler.NewSuccessResponse("", map[string]int{"videoCount": 1})
	require.NoError(t, err)
	video.On("Process", mock.Anything, mock.MatchedBy(func(req handler.Request) bool {
		return req.Source == "lambda" && req.ID == "req-1" && string(req.Payload) == `{"url":"u"}`
	})).Return(ok, nil)

	a := NewLambdaAdapter(router, 0)

	resp, err := a.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodPost,
		Path:           "/.netlify/functions/download-video",
		Body:           `{"url":"u"}`,
		RequestContext: events.APIGatewayProxyRequestContext{RequestID: "req-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.Equal(t, "req-1", resp.Headers["X-Request-ID"])
	assert.JSONEq(t, `{"success":true,"data":{"videoCount":1}}`, resp.Body)
}

func TestLambdaAdapter_Base64Body(t *testing.T) {
	router, _, video := newTestRouter(t)
	ok, err := handler.NewSuccessResponse("", nil)
	require.NoError(t, err)
	video.On("Process", mock.Anything, mock.MatchedBy(func(req handler.Request) bool {
		return string(req.Payload) == `{"url":"u"}`
	})).Return(ok, nil)

	resp, err := NewLambdaAdapter(router, 0).HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/download-video",
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"url":"u"}`)),
		IsBase64Encoded: true,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLambdaAdapter_PreflightAndMethod(t *testing.T) {
	router, _, _ := newTestRouter(t)
	a := NewLambdaAdapter(router, 0)

	resp, err := a.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodOptions,
		Path:       "/api/download-video",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)

	resp, err = a.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPut,
		Path:       "/api/download-video",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLambdaAdapter_BadBase64(t *testing.T) {
	router, _, _ := newTestRouter(t)

	resp, err := NewLambdaAdapter(router, 0).HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/download-video",
		Body:            "%%%",
		IsBase64Encoded: true,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
