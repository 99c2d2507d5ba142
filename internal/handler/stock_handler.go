package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hostel-portal/internal/audit"
	"hostel-portal/internal/listview"
	"hostel-portal/internal/model"
	"hostel-portal/internal/upstream"
	"hostel-portal/pkg/apierror"
)

type StockHandler struct {
	client   *upstream.Client
	registry *Registry
	audit    *audit.Recorder
}

func NewStockHandler(client *upstream.Client, registry *Registry, recorder *audit.Recorder) *StockHandler {
	return &StockHandler{client: client, registry: registry, audit: recorder}
}

// List serves the stock register view, filterable by search text and by
// one of the fixed categories.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)

	force := r.URL.Query().Get("refresh") == "true"
	if err := st.Stock.Load(r.Context(), h.client.ListStock, force); err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	items := listview.Apply(st.Stock.Items(),
		listview.Search(q.Get("q"), func(s model.StockItem) []string {
			return []string{s.Name, s.Note, s.Supplier}
		}),
		listview.Exact(q.Get("category"), func(s model.StockItem) string { return s.Category }),
	)

	page := listview.Paginate(items, queryInt(r, "page", 1), perPage)
	writeSuccess(w, http.StatusOK, page.Items, pageMeta(page))
}

// Categories exposes the fixed category set with display titles.
func (h *StockHandler) Categories(w http.ResponseWriter, _ *http.Request) {
	out := make([]map[string]string, 0, len(model.StockCategories))
	for _, c := range model.StockCategories {
		out = append(out, map[string]string{"id": c.ID, "title": c.Title})
	}
	writeSuccess(w, http.StatusOK, out, nil)
}

func (h *StockHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	item, err := decodeStockItem(r)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.client.CreateStockItem(r.Context(), item)
	if err != nil {
		writeError(w, err)
		return
	}

	st := h.stateFor(r)
	st.Stock.Prepend(created)
	h.audit.Record(r.Context(), "stock.create", created.ID, audit.OutcomeOK,
		map[string]any{"category": created.Category, "name": created.Name})
	writeSuccess(w, http.StatusCreated, created, nil)
}

func (h *StockHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	item, err := decodeStockItem(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	updated, err := h.client.UpdateStockItem(r.Context(), id, item)
	if err != nil {
		writeError(w, err)
		return
	}

	st := h.stateFor(r)
	st.Stock.Replace(updated)
	h.audit.Record(r.Context(), "stock.update", id, audit.OutcomeOK, nil)
	writeSuccess(w, http.StatusOK, updated, nil)
}

// Delete removes the row optimistically, restoring the exact snapshot on
// remote failure.
func (h *StockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)
	id := chi.URLParam(r, "id")

	err := st.Stock.Delete(r.Context(), id, func(ctx context.Context) error {
		return h.client.DeleteStockItem(ctx, id)
	})
	if err != nil {
		h.audit.Record(r.Context(), "stock.delete", id, audit.OutcomeFailed, nil)
		writeError(w, err)
		return
	}

	h.audit.Record(r.Context(), "stock.delete", id, audit.OutcomeOK, nil)
	writeSuccess(w, http.StatusOK, map[string]string{"deleted": id}, nil)
}

// Export streams the current filtered view as CSV for the register
// printout. The same filters the list accepts apply here.
func (h *StockHandler) Export(w http.ResponseWriter, r *http.Request) {
	st := h.stateFor(r)

	if err := st.Stock.Load(r.Context(), h.client.ListStock, r.URL.Query().Get("refresh") == "true"); err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	items := listview.Apply(st.Stock.Items(),
		listview.Search(q.Get("q"), func(s model.StockItem) []string {
			return []string{s.Name, s.Note, s.Supplier}
		}),
		listview.Exact(q.Get("category"), func(s model.StockItem) string { return s.Category }),
	)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		`attachment; filename="stock-`+time.Now().UTC().Format("2006-01-02")+`.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"category", "name", "qty", "unit", "note", "supplier"})
	for _, item := range items {
		_ = cw.Write([]string{item.Category, item.Name, item.Qty, item.Unit, item.Note, item.Supplier})
	}
	cw.Flush()

	h.audit.Record(r.Context(), "stock.export", "", audit.OutcomeOK,
		map[string]any{"rows": len(items)})
}

func (h *StockHandler) stateFor(r *http.Request) *SessionState {
	return h.registry.ForSession(sessionIDFrom(r))
}

func decodeStockItem(r *http.Request) (model.StockItem, error) {
	var item model.StockItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		return item, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest)
	}

	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return item, apierror.New("VALIDATION_FAILED", "item name is required", "name", 422)
	}
	if !model.ValidStockCategory(item.Category) {
		return item, apierror.New("VALIDATION_FAILED", "unknown stock category", item.Category, 422)
	}

	return item, nil
}
