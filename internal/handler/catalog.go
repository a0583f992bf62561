package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/service"
)

// CatalogHandler serves products, categories and suppliers.
//
// The Public* handlers back the storefront and only ever show active
// products; the rest are the back-office CRUD behind RequireAuth.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

func NewCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// ---- Storefront ----

// HTTP: GET /api/catalog/products?page=&limit=&search=&categoryId=
func (h *CatalogHandler) HandlePublicList(w http.ResponseWriter, r *http.Request) {
	q, err := productQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.catalog.ListActiveProducts(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HTTP: GET /api/catalog/products/{id}
func (h *CatalogHandler) HandlePublicGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.catalog.GetActiveProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: GET /api/catalog/products/category/{categoryID}
// Also mounted at /api/products/category/{categoryID}.
func (h *CatalogHandler) HandleByCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "categoryID")
	if err != nil {
		writeError(w, err)
		return
	}
	ps, err := h.catalog.ProductsByCategory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// HTTP: GET /api/catalog/categories, GET /api/categories
func (h *CatalogHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	withProducts := r.URL.Query().Get("withProducts") == "true"
	cats, err := h.catalog.ListCategories(r.Context(), withProducts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// ---- Products ----

// HTTP: GET /api/products?page=&limit=&search=&categoryId=&rutSupplier=&status=
func (h *CatalogHandler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := productQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("status", "status must be true or false"))
			return
		}
		q.Active = &active
	}
	q.SupplierRUT = r.URL.Query().Get("rutSupplier")

	res, err := h.catalog.ListProducts(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HTTP: GET /api/products/{id}
func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: POST /api/products
func (h *CatalogHandler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in service.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleUpdateProduct applies a partial update. "stock" is added to the
// current stock, not assigned.
//
// HTTP: PATCH /api/products/{id} (PUT accepted)
func (h *CatalogHandler) HandleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var upd service.ProductUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.catalog.UpdateProduct(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: DELETE /api/products/{id}
func (h *CatalogHandler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /api/products/supplier/{rut}
func (h *CatalogHandler) HandleBySupplier(w http.ResponseWriter, r *http.Request) {
	ps, err := h.catalog.ProductsBySupplier(r.Context(), chi.URLParam(r, "rut"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// ---- Categories ----

// HTTP: GET /api/categories/{id}
func (h *CatalogHandler) HandleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	c, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HTTP: POST /api/categories
func (h *CatalogHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.catalog.CreateCategory(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HTTP: PATCH /api/categories/{id} (PUT accepted)
func (h *CatalogHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var upd service.CategoryUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.catalog.UpdateCategory(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HTTP: DELETE /api/categories/{id}
func (h *CatalogHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- Suppliers ----

// HTTP: GET /api/suppliers
func (h *CatalogHandler) HandleListSuppliers(w http.ResponseWriter, r *http.Request) {
	sups, err := h.catalog.ListSuppliers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sups)
}

// HTTP: GET /api/suppliers/{rut}
func (h *CatalogHandler) HandleGetSupplier(w http.ResponseWriter, r *http.Request) {
	s, err := h.catalog.GetSupplier(r.Context(), chi.URLParam(r, "rut"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HTTP: POST /api/suppliers
func (h *CatalogHandler) HandleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var in service.SupplierInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.catalog.CreateSupplier(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// HTTP: PATCH /api/suppliers/{rut} (PUT accepted)
func (h *CatalogHandler) HandleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var upd service.SupplierUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.catalog.UpdateSupplier(r.Context(), chi.URLParam(r, "rut"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HTTP: DELETE /api/suppliers/{rut}
func (h *CatalogHandler) HandleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteSupplier(r.Context(), chi.URLParam(r, "rut")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productQuery(r *http.Request) (service.ProductQuery, error) {
	page, err := pageRequest(r)
	if err != nil {
		return service.ProductQuery{}, err
	}
	q := service.ProductQuery{PageRequest: page, Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return service.ProductQuery{}, apperror.ValidationFailed("categoryId", "categoryId must be an integer")
		}
		q.CategoryID = &id
	}
	return q, nil
}
