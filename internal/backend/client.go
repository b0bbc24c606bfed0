// Package backend performs the outbound HTTP calls to model services. The
// wire format is treated as opaque JSON: the job input goes out as-is to
// POST {endpoint}/generate and the reply comes back as raw JSON, from which
// billing later reads tokens_generated metadata.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nulzo/inference-gateway/internal/core/domain"
	"github.com/nulzo/inference-gateway/internal/httpclient"
)

// Invoker runs a job input against a resolved model's backend service.
type Invoker interface {
	Generate(ctx context.Context, model domain.ModelInfo, input json.RawMessage) (json.RawMessage, error)
}

// HTTPInvoker calls model services over plain HTTP. The per-call deadline
// comes from the dispatcher's context, not a client timeout, so explicit
// job cancellation aborts an in-flight call too.
type HTTPInvoker struct {
	client httpclient.HTTPClient
}

func NewHTTPInvoker(client httpclient.HTTPClient) *HTTPInvoker {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPInvoker{client: client}
}

func (i *HTTPInvoker) Generate(ctx context.Context, model domain.ModelInfo, input json.RawMessage) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/generate", model.Endpoint)

	var result json.RawMessage
	if err := httpclient.SendRequest(ctx, i.client, http.MethodPost, url, nil, input, &result); err != nil {
		return nil, err
	}
	return result, nil
}
