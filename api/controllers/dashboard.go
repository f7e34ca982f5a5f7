package controllers

import (
	"net/http"

	"github.com/elbarril/appalapapa/api/responses"
	"github.com/elbarril/appalapapa/internal/dashboard"
	"github.com/elbarril/appalapapa/pkg/enums"
	pkgerrors "github.com/elbarril/appalapapa/pkg/errors"
	"github.com/elbarril/appalapapa/pkg/logger"
)

// Dashboard groups each active patient with their sessions, filtered by
// payment state. Unknown filter values fall back to showing everything.
func Dashboard(svc dashboard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dashboard service unavailable"))
			return
		}

		filter := enums.ParseDashboardFilter(r.URL.Query().Get("filter"))
		data, err := svc.GetDashboardData(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, data)
	}
}
