package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stocker-erp/stocker/internal/application/usecase/invoice"
	"github.com/stocker-erp/stocker/pkg/apperr"
	"github.com/stocker-erp/stocker/pkg/logger"
)

type Invoice struct {
	Create invoice.CreateUseCase
	Get    invoice.GetUseCase
	Log    logger.Logger
}

func NewInvoiceHandler(create invoice.CreateUseCase, get invoice.GetUseCase, log logger.Logger) *Invoice {
	return &Invoice{Create: create, Get: get, Log: log}
}

func (h *Invoice) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var input invoice.CreateInput
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

func (h *Invoice) GetInvoice(w http.ResponseWriter, r *http.Request) {
	output, err := h.Get.Execute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, output)
}
