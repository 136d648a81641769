package provider

import (
	"context"
	"errors"

	"github.com/valpere/qualitran/internal"
)

// client implements Evaluator on top of any completer backend: build the
// prompt, send it, validate the reply, and allow exactly one reformat retry
// when the reply arrived but failed validation.
type client struct {
	backend completer
}

func (c *client) Name() string { return c.backend.name() }

func (c *client) Evaluate(ctx context.Context, req Request) (*Result, error) {
	prompt := buildEvaluationPrompt(req)

	raw, usage, err := c.backend.complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	dims, perr := parseEvaluation(raw)
	if perr != nil {
		if !isMalformed(perr) {
			return nil, perr
		}
		retryRaw, retryUsage, rerr := c.backend.complete(ctx, systemPrompt, prompt+"\n"+reformatInstruction)
		addUsage(&usage, retryUsage)
		if rerr != nil {
			return nil, rerr
		}
		if dims, perr = parseEvaluation(retryRaw); perr != nil {
			return nil, perr
		}
	}

	return &Result{
		Dimensions: *dims,
		Provider:   c.backend.name(),
		Model:      c.backend.model(),
		Usage:      usage,
	}, nil
}

func (c *client) EvaluateMulti(ctx context.Context, req MultiRequest) (*MultiResult, error) {
	langs := sortedLangs(req.Targets)
	prompt := buildMultiPrompt(req)

	raw, usage, err := c.backend.complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	perLang, perr := parseMultiEvaluation(raw, langs)
	if perr != nil {
		if !isMalformed(perr) {
			return nil, perr
		}
		retryRaw, retryUsage, rerr := c.backend.complete(ctx, systemPrompt, prompt+"\n"+reformatInstruction)
		addUsage(&usage, retryUsage)
		if rerr != nil {
			return nil, rerr
		}
		if perLang, perr = parseMultiEvaluation(retryRaw, langs); perr != nil {
			return nil, perr
		}
	}

	return &MultiResult{
		PerLanguage: perLang,
		Provider:    c.backend.name(),
		Model:       c.backend.model(),
		Usage:       usage,
	}, nil
}

func isMalformed(err error) bool {
	var malformed *MalformedResponseError
	return errors.As(err, &malformed)
}

func addUsage(total *internal.TokenUsage, extra internal.TokenUsage) {
	total.PromptTokens += extra.PromptTokens
	total.CompletionTokens += extra.CompletionTokens
	total.TotalTokens += extra.TotalTokens
}
