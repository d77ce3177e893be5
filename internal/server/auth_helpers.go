package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mitchellh/mapstructure"

	"github.com/wilschoy78/school-mis-api/internal/apperr"
	"github.com/wilschoy78/school-mis-api/internal/auth"
	authmw "github.com/wilschoy78/school-mis-api/internal/middleware"
)

var errInvalidID = apperr.InvalidArgument("id must be a positive integer")

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// isSelf admits a principal addressing its own account through {id}.
func isSelf(r *http.Request, principal auth.Principal) bool {
	id, err := pathID(r)
	return err == nil && id == principal.AccountID
}

// decodeQuery decodes the first value of each query parameter into dst using
// mapstructure tags. Numeric strings convert to ints.
func decodeQuery(r *http.Request, dst any) error {
	flat := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(flat); err != nil {
		return apperr.Wrap(apperr.KindInvalidArgument, err, "invalid query parameters")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	authmw.WriteError(w, r, logger, err)
}

// parseRoles converts validated role names. The request schemas enumerate the
// allowed names, so an unknown one here is still reported as bad input.
func parseRoles(names []string) ([]auth.Role, error) {
	if names == nil {
		return nil, nil
	}
	roles, invalid := auth.ParseRoles(names)
	if len(invalid) > 0 {
		return nil, apperr.InvalidArgument("unknown role %q", invalid[0])
	}
	return roles, nil
}
