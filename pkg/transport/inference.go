package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelgate/modelgate/pkg/api"
	"github.com/modelgate/modelgate/pkg/pipeline"
	"github.com/modelgate/modelgate/pkg/provider"
)

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, api.NewInvalidRequestError("", "request body is not valid JSON"))
		return
	}
	if e := api.ValidateChatRequest(&req); e != nil {
		api.WriteError(w, e)
		return
	}

	resp, err := h.route(r, &req)
	if err != nil {
		api.WriteError(w, h.mapRouteError(err, req.Model))
		return
	}

	api.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req api.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, api.NewInvalidRequestError("", "request body is not valid JSON"))
		return
	}
	if e := api.ValidateCompletionRequest(&req); e != nil {
		api.WriteError(w, e)
		return
	}

	resp, err := h.route(r, req.ToChat())
	if err != nil {
		api.WriteError(w, h.mapRouteError(err, req.Model))
		return
	}

	out := api.CompletionResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: resp.Usage,
	}
	if len(resp.Choices) > 0 {
		out.Text = resp.Choices[0].Message.Content
	}
	api.WriteJSON(w, http.StatusOK, out)
}

// route dispatches through the provider router under the upstream timeout
// and attributes the attempt for the audit trail.
func (h *Handler) route(r *http.Request, req *api.ChatRequest) (*api.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.upstreamTimeout)
	defer cancel()

	resp, name, err := h.providers.Route(ctx, req)
	if name != "" {
		pipeline.Attribute(r.Context(), string(name), req.Model)
	}
	return resp, err
}

// mapRouteError converts router and adapter failures into response errors.
// Upstream detail stays in the logs; callers get the generic taxonomy.
func (h *Handler) mapRouteError(err error, model string) *api.Error {
	if errors.Is(err, provider.ErrUnsupportedModel) {
		return api.NewUnsupportedModelError(model)
	}

	var ue *provider.UpstreamError
	if errors.As(err, &ue) {
		slog.Error("upstream call failed",
			"provider", ue.Provider,
			"model", model,
			"status", ue.StatusCode,
			"timeout", ue.Timeout,
			"detail", ue.Detail,
		)
		if ue.Timeout {
			return api.NewUpstreamTimeoutError()
		}
		return api.NewUpstreamError()
	}

	slog.Error("routing failed", "model", model, "error", err)
	return api.NewServerError()
}

func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.store.ListModels(r.Context())
	if err != nil {
		slog.Error("listing models failed", "error", err)
		api.WriteError(w, api.NewServerError())
		return
	}

	out := api.ModelList{Models: make([]api.ModelInfo, 0, len(models))}
	for _, m := range models {
		out.Models = append(out.Models, api.ModelInfo{
			ID:          m.ModelID,
			Provider:    m.Provider,
			DisplayName: m.DisplayName,
			CostPer1K:   m.CostPer1K,
			MaxTokens:   m.MaxTokens,
		})
	}
	api.WriteJSON(w, http.StatusOK, out)
}
