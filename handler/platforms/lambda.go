package platforms

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

// LambdaAdapter serves functions from AWS Lambda behind API Gateway (or
// any runtime speaking the same proxy event format, such as Netlify).
type LambdaAdapter struct {
	router  *Router
	timeout time.Duration
}

// NewLambdaAdapter creates an adapter; timeout bounds each invocation.
func NewLambdaAdapter(router *Router, timeout time.Duration) *LambdaAdapter {
	return &LambdaAdapter{router: router, timeout: timeout}
}

// Start hands control to the Lambda runtime. It does not return.
func (a *LambdaAdapter) Start() {
	lambda.Start(a.HandleRequest)
}

// HandleRequest serves one proxy event. Failures are expressed as HTTP
// answers; the returned error is always nil.
func (a *LambdaAdapter) HandleRequest(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return toProxyResponse(failure(outbound{Headers: CORSHeaders()}, http.StatusBadRequest, "Invalid request body")), nil
		}
		body = decoded
	}

	requestID := event.RequestContext.RequestID
	if id := event.Headers["X-Request-ID"]; id != "" {
		requestID = id
	}

	out := a.router.dispatch(ctx, inbound{
		Method:    event.HTTPMethod,
		Path:      event.Path,
		Body:      body,
		Headers:   event.Headers,
		Query:     event.QueryStringParameters,
		Source:    "lambda",
		RequestID: requestID,
	})
	return toProxyResponse(out), nil
}

func toProxyResponse(out outbound) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: out.Status,
		Headers:    out.Headers,
		Body:       string(out.Body),
	}
}
