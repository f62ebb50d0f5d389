package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openclaw/lily/internal/domain"
)

const (
	localInferenceTimeout  = 60 * time.Second
	remoteInferenceTimeout = 60 * time.Second
	localNumPredict        = 4096
	errorTruncateLen       = 200
)

// httpDoer is the same minimal abstraction the embeddings client uses so
// tests can inject a fake transport without a live inference endpoint.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LocalDispatcher routes a step to the local generation endpoint
// (`POST /api/generate`, `{model, prompt, stream:false, options:{num_predict}}`
// returning `{response: string}`), the treat-as-prompt-in/text-out contract
// for the out-of-scope local model server. Dispatch's prompt argument is
// already-resolved text (template plus substituted parent outputs,
// produced by pipeline.Engine.ResolvedPrompt), not the raw template.
type LocalDispatcher struct {
	baseURL string
	model   string
	http    httpDoer
}

// NewLocalDispatcher builds a LocalDispatcher. If httpClient is nil, a
// stdlib *http.Client is used.
func NewLocalDispatcher(baseURL, model string, httpClient httpDoer) *LocalDispatcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &LocalDispatcher{baseURL: baseURL, model: model, http: httpClient}
}

type localGenerateOptions struct {
	NumPredict int `json:"num_predict"`
}

type localGenerateRequest struct {
	Model   string               `json:"model"`
	Prompt  string               `json:"prompt"`
	Stream  bool                 `json:"stream"`
	Options localGenerateOptions `json:"options"`
}

type localGenerateResponse struct {
	Response string `json:"response"`
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, step *domain.Step, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, localInferenceTimeout)
	defer cancel()

	model := step.Tier
	if !isLocalTier(model) || model == "" {
		model = d.model
	}

	body, err := json.Marshal(localGenerateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: localGenerateOptions{NumPredict: localNumPredict},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", truncatedDispatchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("local inference returned status %d", resp.StatusCode)
	}

	var out localGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", truncatedDispatchError(err)
	}
	return out.Response, nil
}

// RemoteDispatcher routes a step to the remote Gemini-shaped endpoint
// (`POST /v1beta/models/<model>:generateContent?key=<key>`, returning
// `{candidates:[{content:{parts:[{text}]}}]}`). No SDK is used: the wire
// shape is small enough, and literal enough to this spec, that a direct
// stdlib net/http call is clearer than adopting a client built for a
// different contract.
type RemoteDispatcher struct {
	baseURL string
	model   string
	apiKey  string
	http    httpDoer
}

// NewRemoteDispatcher builds a RemoteDispatcher. If httpClient is nil, a
// stdlib *http.Client is used. baseURL defaults to the public Gemini API
// root if empty.
func NewRemoteDispatcher(baseURL, model, apiKey string, httpClient httpDoer) *RemoteDispatcher {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &RemoteDispatcher{baseURL: baseURL, model: model, apiKey: apiKey, http: httpClient}
}

type remotePart struct {
	Text string `json:"text"`
}

type remoteContent struct {
	Parts []remotePart `json:"parts"`
}

type remoteGenerateRequest struct {
	Contents []remoteContent `json:"contents"`
}

type remoteCandidate struct {
	Content remoteContent `json:"content"`
}

type remoteGenerateResponse struct {
	Candidates []remoteCandidate `json:"candidates"`
}

func (d *RemoteDispatcher) Dispatch(ctx context.Context, step *domain.Step, prompt string) (string, error) {
	if d.apiKey == "" {
		return "", domain.NewDomainError(domain.ErrCodeInvalidState, "remote inference has no API key configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, remoteInferenceTimeout)
	defer cancel()

	body, err := json.Marshal(remoteGenerateRequest{
		Contents: []remoteContent{{Parts: []remotePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	model := step.Tier
	if !isRemoteTier(model) || model == "" {
		model = d.model
	}
	if model == "" {
		model = "gemini-flash"
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", d.baseURL, model, d.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", truncatedDispatchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("remote inference returned status %d", resp.StatusCode)
	}

	var out remoteGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", truncatedDispatchError(err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", domain.NewDomainError(domain.ErrCodeExternalService, "remote inference returned no candidates", nil)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// truncatedDispatchError caps an external-service error's text at 200
// characters before it is attached to a step's error column.
func truncatedDispatchError(err error) error {
	msg := err.Error()
	if len(msg) > errorTruncateLen {
		msg = msg[:errorTruncateLen]
	}
	return fmt.Errorf("%s", msg)
}
