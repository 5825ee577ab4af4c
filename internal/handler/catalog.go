package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/distributor-portal/internal/repository"
)

// CatalogHandler serves the public app catalog.  The route sits behind
// the redis response cache, so the repository is only hit on a miss.
type CatalogHandler struct {
	Apps *repository.AppRepo
}

func NewCatalogHandler(a *repository.AppRepo) *CatalogHandler {
	if a == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{Apps: a}
}

// ListApps returns every active app.
func (h *CatalogHandler) ListApps(c echo.Context) error {
	apps, err := h.Apps.ListActive(c.Request().Context())
	if err != nil {
		return respondErr(c, err)
	}
	out := make([]echo.Map, 0, len(apps))
	for _, a := range apps {
		out = append(out, echo.Map{
			"id":     a.ID,
			"name":   a.Name,
			"domain": a.Domain,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"apps": out})
}
