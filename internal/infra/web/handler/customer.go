package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stocker-erp/stocker/internal/application/usecase/customer"
	"github.com/stocker-erp/stocker/pkg/apperr"
	"github.com/stocker-erp/stocker/pkg/logger"
)

type Customer struct {
	Create  customer.CreateUseCase
	Archive customer.ArchiveUseCase
	Restore customer.RestoreUseCase
	List    customer.ListUseCase
	Log     logger.Logger
}

func NewCustomerHandler(create customer.CreateUseCase, archive customer.ArchiveUseCase, restore customer.RestoreUseCase, list customer.ListUseCase, log logger.Logger) *Customer {
	return &Customer{
		Create:  create,
		Archive: archive,
		Restore: restore,
		List:    list,
		Log:     log,
	}
}

func (h *Customer) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var input customer.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, r, h.Log, apperr.Wrap(apperr.CodeInvalidArgument, err, "invalid request body"))
		return
	}

	output, err := h.Create.Execute(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, output)
}

func (h *Customer) ArchiveCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.Archive.Execute(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Customer) RestoreCustomer(w http.ResponseWriter, r *http.Request) {
	output, err := h.Restore.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, output)
}

func (h *Customer) ListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := customer.ListInput{
		Search:    q.Get("search"),
		PageIndex: queryInt(q.Get("page")),
		PageSize:  queryInt(q.Get("page_size")),
	}

	output, err := h.List.Execute(r.Context(), input)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, output)
}

func queryInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
