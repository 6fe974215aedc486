package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/attendance-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/attendance-payroll/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	Breakdown(w http.ResponseWriter, r *http.Request)
	ExportBreakdown(w http.ResponseWriter, r *http.Request)
	Generate(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
	MarkPaid(w http.ResponseWriter, r *http.Request)
	Payslip(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

func periodQuery(r *http.Request) payroll.PeriodQuery {
	return payroll.PeriodQuery{
		EmployeeID: chi.URLParam(r, "employeeID"),
		Month:      r.URL.Query().Get("month"),
		Year:       r.URL.Query().Get("year"),
	}
}

// ========== BREAKDOWN ==========

func (h *payrollHandlerImpl) Breakdown(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.Breakdown(r.Context(), periodQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ExportBreakdown(w http.ResponseWriter, r *http.Request) {
	doc, err := h.payrollService.ExportBreakdown(r.Context(), periodQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Document(w, doc.Filename, doc.ContentType, doc.Content)
}

// ========== PAYROLL RECORDS ==========

func (h *payrollHandlerImpl) Generate(w http.ResponseWriter, r *http.Request) {
	var req payroll.GeneratePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.Generate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll generated", result)
}

// Status answers with data null when nothing was generated for the period.
func (h *payrollHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.Status(r.Context(), periodQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if result == nil {
		response.SuccessNull(w, "Payroll not generated for this period")
		return
	}
	response.Success(w, result)
}

func (h *payrollHandlerImpl) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req payroll.MarkPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.payrollService.MarkPaid(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll marked as paid", result)
}

func (h *payrollHandlerImpl) Payslip(w http.ResponseWriter, r *http.Request) {
	doc, err := h.payrollService.Payslip(r.Context(), periodQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Document(w, doc.Filename, doc.ContentType, doc.Content)
}
