// handlers_catalog.go - Court station and document type lookups
package api

import (
	"net/http"

	"github.com/efiling-portal/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// CatalogHandlerImpl implements the CatalogHandler interface
type CatalogHandlerImpl struct {
	catalog *models.Catalog
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *models.Catalog) CatalogHandler {
	return &CatalogHandlerImpl{catalog: catalog}
}

// HandleGetCatalog returns the selectable court stations and document types
func (h *CatalogHandlerImpl) HandleGetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog)
}

// validateMetadata checks that any court or document type given is a catalog value.
// Blank fields are left to the submission gate.
func validateMetadata(catalog *models.Catalog, meta models.CaseMetadata) error {
	if catalog == nil {
		return nil
	}
	if meta.Court != "" && !catalog.HasCourt(meta.Court) {
		return NewValidationError("court", "unknown court station: "+meta.Court)
	}
	if meta.DocumentType != "" && !catalog.HasDocumentType(meta.DocumentType) {
		return NewValidationError("documentType", "unknown document type: "+meta.DocumentType)
	}
	return nil
}
