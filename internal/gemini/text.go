package gemini

import (
	"context"
	"fmt"

	"gemini-studio/internal/llmjson"

	"google.golang.org/genai"
)

// Text runs a single-turn generation and returns the concatenated text parts.
func (c *Client) Text(ctx context.Context, req TextRequest) (string, error) {
	model := c.model(req.Model, c.models.Text)

	config := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.GoogleSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	c.logger.Debug("generating text", "model", model, "search", req.GoogleSearch, "json", req.JSON, "images", len(req.Images))

	resp, err := c.client.Models.GenerateContent(ctx, model, userContent(req.Prompt, req.Images), config)
	if err != nil {
		return "", fmt.Errorf("generate content (%s): %w", model, err)
	}
	return resp.Text(), nil
}

// FunctionCall asks the model to answer through one of the declared functions.
// A nil call with a nil error means the model replied in plain text.
func (c *Client) FunctionCall(ctx context.Context, req FunctionRequest) (*genai.FunctionCall, error) {
	model := c.model(req.Model, c.models.Pro)

	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{FunctionDeclarations: req.Declarations}},
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, userContent(req.Prompt, nil), config)
	if err != nil {
		return nil, fmt.Errorf("function call (%s): %w", model, err)
	}
	calls := resp.FunctionCalls()
	if len(calls) == 0 {
		return nil, nil
	}
	return calls[0], nil
}

// TextWithSearch tries the request with Google Search grounding first and
// repeats it without tools if that attempt fails.
func TextWithSearch(ctx context.Context, gen Generator, req TextRequest) (string, error) {
	req.GoogleSearch = true
	text, err := gen.Text(ctx, req)
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	req.GoogleSearch = false
	return gen.Text(ctx, req)
}

// Args reads a string argument from a function call, returning "" when absent.
func Args(call *genai.FunctionCall, key string) string {
	if call == nil || call.Args == nil {
		return ""
	}
	s, _ := call.Args[key].(string)
	return s
}

// JSON asks for an application/json response and repeats the request as plain
// text if JSON mode is rejected. The result has its code fences removed and is
// "{}" when the model returned nothing.
func JSON(ctx context.Context, gen Generator, req TextRequest) (string, error) {
	req.JSON = true
	text, err := gen.Text(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		req.JSON = false
		text, err = gen.Text(ctx, req)
		if err != nil {
			return "", err
		}
	}
	return llmjson.CleanFences(text), nil
}
