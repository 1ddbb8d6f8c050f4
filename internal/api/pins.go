package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/pinnode/internal/api/models"
	"github.com/smazurov/pinnode/internal/pins"
)

func (s *Server) registerPinRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-pins",
		Method:      http.MethodGet,
		Path:        "/api/pins",
		Summary:     "Pin Map",
		Description: "List the pins the device port may actuate and the reserved joystick pins",
		Tags:        []string{"pins"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.PinsResponse, error) {
		routes := s.options.Routes
		if routes == nil {
			routes = []string{}
		}
		return &models.PinsResponse{
			Body: models.PinsData{
				Allowed:  pins.Allowed(),
				Reserved: pins.Reserved(),
				Routes:   routes,
			},
		}, nil
	})
}
