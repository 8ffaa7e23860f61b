package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	apierrors "climatedash/internal/errors"
	"climatedash/internal/middleware"
	"climatedash/internal/services"
	"climatedash/pkg/contracts/domain"
)

// FigureQueryRequest is the dashboard filter as sent in the query string.
// Zero values are filled from the dataset.
type FigureQueryRequest struct {
	Country string        `json:"country" validate:"omitempty,max=100"`
	Metric  domain.Metric `json:"metric" validate:"omitempty,metric"`
	From    int           `json:"from" validate:"omitempty,gte=1000,lte=3000"`
	To      int           `json:"to" validate:"omitempty,gte=1000,lte=3000,gtefield=From"`
}

// Query converts the request to a domain query
func (q FigureQueryRequest) Query() domain.FigureQuery {
	return domain.FigureQuery{
		Country:  q.Country,
		Metric:   q.Metric,
		FromYear: q.From,
		ToYear:   q.To,
	}
}

// parseFigureQuery reads and validates country, metric, from and to
func parseFigureQuery(r *http.Request, v *middleware.Validator) (domain.FigureQuery, error) {
	values := r.URL.Query()
	req := FigureQueryRequest{
		Country: strings.TrimSpace(values.Get("country")),
		Metric:  domain.Metric(strings.TrimSpace(values.Get("metric"))),
	}

	var errs []apierrors.ValidationError
	for _, f := range []struct {
		name   string
		target *int
	}{
		{"from", &req.From},
		{"to", &req.To},
	} {
		raw := strings.TrimSpace(values.Get(f.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, apierrors.ValidationError{Field: f.name, Message: f.name + " must be a year"})
			continue
		}
		*f.target = n
	}
	if len(errs) > 0 {
		return domain.FigureQuery{}, apierrors.NewValidationErrors(errs)
	}

	if err := v.Struct(req); err != nil {
		return domain.FigureQuery{}, err
	}
	return req.Query(), nil
}

// serviceError maps dataset service errors to API errors
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrNoData):
		return apierrors.ErrDatasetNotLoaded
	case errors.Is(err, services.ErrUnknownCountry):
		return apierrors.ErrValidation("country", err.Error())
	case errors.Is(err, services.ErrUnknownMetric):
		return apierrors.ErrValidation("metric", err.Error())
	case errors.Is(err, services.ErrInvalidRange):
		return apierrors.ErrValidation("to", err.Error())
	default:
		return err
	}
}
