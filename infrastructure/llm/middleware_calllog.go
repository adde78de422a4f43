package llm

import (
	"context"
	"time"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

// callLoggedLLM records every successful call to an append-only log.
// Failed calls leave no entry.
type callLoggedLLM struct {
	next   CoreLLM
	logger ports.CallLogger
	now    func() time.Time
}

// CallLogMiddleware creates middleware that appends one ports.CallLogEntry
// per successful call. The entry's operation comes from WithOperation.
func CallLogMiddleware(logger ports.CallLogger) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &callLoggedLLM{
			next:   next,
			logger: logger,
			now:    time.Now,
		}
	}
}

// DoRequest forwards the request and logs it on success.
func (c *callLoggedLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	response, tokensIn, tokensOut, err := c.next.DoRequest(ctx, prompt, opts)
	if err != nil || c.logger == nil {
		return response, tokensIn, tokensOut, err
	}

	options := ParseRequestOptions(opts, c.next.GetModel())
	c.logger.Append(ctx, ports.CallLogEntry{
		Timestamp:    c.now(),
		Operation:    OperationFromContext(ctx),
		Model:        options.Model,
		Temperature:  options.Temperature,
		TopP:         options.TopP,
		TopK:         options.TopK,
		MIMEType:     options.MIMEType,
		ToolsPresent: options.WebSearch,
		Prompt:       prompt,
		Response:     response,
	})

	return response, tokensIn, tokensOut, nil
}

// GetModel returns the model name from the wrapped implementation.
func (c *callLoggedLLM) GetModel() string { return c.next.GetModel() }

// SetModel updates the model name in the wrapped implementation.
func (c *callLoggedLLM) SetModel(m string) { c.next.SetModel(m) }
