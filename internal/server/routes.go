package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/gosuda/officewatch/internal/api/ws"
	"github.com/gosuda/officewatch/internal/bus"
	"github.com/gosuda/officewatch/internal/diff"
)

type stateOutput struct {
	Body *ws.Projection
}

type historyOutput struct {
	Body []diff.Event
}

type openInput struct {
	Body struct {
		Path string `json:"path" doc:"Document path to open in the editor"`
	}
}

func registerAPIRoutes(r chi.Router, b *bus.Bus, opener EditorOpener) {
	apiConfig := huma.DefaultConfig("officewatch API", "1.0.0")
	apiConfig.Servers = []*huma.Server{{URL: "/api"}}
	api := humachi.New(r, apiConfig)

	huma.Register(api, huma.Operation{
		OperationID: "get-state",
		Method:      http.MethodGet,
		Path:        "/state",
		Summary:     "Current office projection",
	}, func(_ context.Context, _ *struct{}) (*stateOutput, error) {
		return &stateOutput{Body: ws.FromOffice(b.State())}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-history",
		Method:      http.MethodGet,
		Path:        "/history",
		Summary:     "Full bounded event history",
	}, func(_ context.Context, _ *struct{}) (*historyOutput, error) {
		history := b.History()
		if history == nil {
			history = []diff.Event{}
		}
		return &historyOutput{Body: history}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "open-document",
		Method:        http.MethodPost,
		Path:          "/open",
		Summary:       "Open a document in the configured editor",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *openInput) (*struct{}, error) {
		path := in.Body.Path
		if path == "" || strings.Contains(path, "..") {
			return nil, huma.Error403Forbidden("path rejected")
		}
		if err := opener.Open(ctx, path); err != nil {
			return nil, huma.Error500InternalServerError("editor launch failed", err)
		}
		return nil, nil
	})
}
