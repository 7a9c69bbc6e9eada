// Copyright (c) 2025, The Kiln Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/voicetuber/kiln/pkg/defaults"
	apperrors "github.com/voicetuber/kiln/pkg/errors"
	"github.com/voicetuber/kiln/pkg/graph"
	"github.com/voicetuber/kiln/pkg/header"
	"github.com/voicetuber/kiln/pkg/options"
	"github.com/voicetuber/kiln/pkg/recipe"
	"github.com/voicetuber/kiln/pkg/serializer"
	"github.com/voicetuber/kiln/pkg/server"
)

// GraphRequest is the body of POST /v1/graph.
type GraphRequest struct {
	// Root is the reference to resolve, e.g. "voicetuber/1.4.0".
	Root string `json:"root" yaml:"root"`

	// Settings maps axes (and dotted sub-settings) to values.
	Settings map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`

	// Options are overrides in "<pattern>:<option>=<value>" form.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// GraphResponse is a resolved graph with its resource header.
type GraphResponse struct {
	header.Header `json:",inline" yaml:",inline"`
	graph.View    `json:",inline" yaml:",inline"`
}

// RecipesResponse lists the references a catalog serves.
type RecipesResponse struct {
	Recipes []string `json:"recipes" yaml:"recipes"`
}

// Handler serves graph resolution over a recipe catalog.
type Handler struct {
	catalog       *recipe.Catalog
	engineVersion string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithEngineVersion sets the version checked against required_engine_version.
func WithEngineVersion(v string) HandlerOption {
	return func(h *Handler) {
		h.engineVersion = v
	}
}

// NewHandler returns a Handler resolving against catalog.
func NewHandler(catalog *recipe.Catalog, opts ...HandlerOption) *Handler {
	h := &Handler{catalog: catalog}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the handler's endpoints keyed by path.
func (h *Handler) Routes() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"/v1/graph":   h.HandleGraph,
		"/v1/recipes": h.HandleRecipes,
	}
}

// HandleGraph resolves the graph described by a JSON or YAML GraphRequest.
func (h *Handler) HandleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		server.WriteError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, map[string]any{
				"method":  r.Method,
				"allowed": []string{http.MethodPost},
			})
		return
	}
	defer func() {
		if r.Body != nil {
			r.Body.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(r.Context(), defaults.GraphBuildTimeout)
	defer cancel()

	req, err := parseGraphRequest(r)
	if err != nil {
		server.WriteError(w, r, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest,
			"Invalid graph request", false, map[string]any{
				"error": err.Error(),
			})
		return
	}

	builder, root, err := h.builder(req)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "", nil)
		return
	}

	slog.Debug("resolving graph",
		"requestID", server.RequestID(r.Context()),
		"root", root.String(),
		"overrides", len(req.Options),
	)

	g, err := builder.Build(ctx, root)
	if err != nil {
		server.WriteErrorFromErr(w, r, err, "", map[string]any{"root": root.String()})
		return
	}

	serializer.RespondJSON(w, http.StatusOK, NewGraphResponse(g))
}

// HandleRecipes lists the catalog's references.
func (h *Handler) HandleRecipes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		server.WriteError(w, r, http.StatusMethodNotAllowed, apperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, nil)
		return
	}

	refs := h.catalog.List()
	out := RecipesResponse{Recipes: make([]string, len(refs))}
	for i, ref := range refs {
		out.Recipes[i] = ref.String()
	}
	serializer.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) builder(req *GraphRequest) (*graph.Builder, recipe.Reference, error) {
	root, err := recipe.ParseReference(req.Root)
	if err != nil {
		return nil, recipe.Reference{}, err
	}
	settings, err := recipe.SettingsFromMap(req.Settings)
	if err != nil {
		return nil, recipe.Reference{}, err
	}
	overrides, err := options.ParseOverrides(req.Options)
	if err != nil {
		return nil, recipe.Reference{}, err
	}

	opts := []graph.Option{
		graph.WithSettings(settings),
		graph.WithOverrides(overrides...),
	}
	if h.engineVersion != "" {
		opts = append(opts, graph.WithEngineVersion(h.engineVersion))
	}
	return graph.NewBuilder(h.catalog, opts...), root, nil
}

func parseGraphRequest(r *http.Request) (*GraphRequest, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, fmt.Errorf("request body is empty")
	}

	format := serializer.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = serializer.FormatYAML
	}

	reader, err := serializer.NewReader(format, r.Body, serializer.WithStrict())
	if err != nil {
		return nil, err
	}
	var req GraphRequest
	if err := reader.Deserialize(&req); err != nil {
		return nil, err
	}
	if req.Root == "" {
		return nil, fmt.Errorf("root is required")
	}
	return &req, nil
}

// NewGraphResponse wraps g's view in a Graph resource.
func NewGraphResponse(g *graph.Graph) GraphResponse {
	view := g.View()
	return GraphResponse{
		Header: *header.New(
			header.WithKind(header.KindGraph),
			header.WithAPIVersion(header.APIVersion),
			header.WithMetadata("root", view.Root),
		),
		View: view,
	}
}
