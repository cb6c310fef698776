package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fleetledger/backoffice/internal/domain"
)

// receiptField is the multipart part that carries the proof of payment.
const receiptField = "comprobante"

// maxMultipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files. The overall body size is capped by middleware.
const maxMultipartMemory = 8 << 20

// AddExpenseRequest is the body of POST /api/viajes/{id}/gastos, sent either as
// JSON or as multipart form fields next to a comprobante file part.
type AddExpenseRequest struct {
	Type          string              `json:"tipo" validate:"required"`
	Amount        decimal.NullDecimal `json:"monto"`
	Date          string              `json:"fecha" validate:"required"`
	PaymentMethod string              `json:"metodoPago" validate:"required"`
	Description   string              `json:"descripcion" validate:"max=500"`
}

// toNewExpense parses the enumerations and the date, collecting every problem.
func (req AddExpenseRequest) toNewExpense() (domain.NewExpense, error) {
	var (
		in       domain.NewExpense
		problems []string
		err      error
	)
	if in.Type, err = domain.ParseExpenseType(req.Type); err != nil {
		problems = append(problems, validationProblems(err)...)
	}
	if in.PaymentMethod, err = domain.ParsePaymentMethod(req.PaymentMethod); err != nil {
		problems = append(problems, validationProblems(err)...)
	}
	if in.Date, err = parseDate(req.Date); err != nil {
		problems = append(problems, err.Error())
	}
	if !req.Amount.Valid {
		problems = append(problems, "monto is required")
	}
	in.Amount = req.Amount.Decimal
	in.Description = strings.TrimSpace(req.Description)
	return in, domain.NewValidationError(problems)
}

// ExpenseListResponse is the body of GET /api/viajes/{id}/gastos.
type ExpenseListResponse struct {
	Data []domain.ExpenseEntry `json:"data"`
}

// AddExpense handles POST /api/viajes/{id}/gastos.
func (s *Server) AddExpense(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	req, receipt, err := readExpenseRequest(r)
	if err != nil {
		respondBodyError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondInvalid(w, err)
		return
	}
	in, err := req.toNewExpense()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	entry, err := s.expenses.AddExpense(r.Context(), actorFrom(r), tripID, in, receipt)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// ListExpenses handles GET /api/viajes/{id}/gastos, newest first.
func (s *Server) ListExpenses(w http.ResponseWriter, r *http.Request) {
	tripID, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	entries, err := s.expenses.ListByTrip(r.Context(), tripID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExpenseListResponse{Data: entries})
}

// readExpenseRequest decodes a JSON or multipart expense. The receipt is nil
// when the request carries none.
func readExpenseRequest(r *http.Request) (AddExpenseRequest, *domain.ReceiptUpload, error) {
	var req AddExpenseRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return req, nil, decodeJSON(r, &req)
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return req, nil, fmt.Errorf("malformed multipart body: %w", err)
	}
	req.Type = r.FormValue("tipo")
	req.Date = r.FormValue("fecha")
	req.PaymentMethod = r.FormValue("metodoPago")
	req.Description = r.FormValue("descripcion")
	if raw := strings.TrimSpace(r.FormValue("monto")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return req, nil, fmt.Errorf("monto %q is not a number", raw)
		}
		req.Amount = decimal.NewNullDecimal(amount)
	}

	file, header, err := r.FormFile(receiptField)
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, fmt.Errorf("reading %s: %w", receiptField, err)
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		return req, nil, fmt.Errorf("reading %s: %w", receiptField, err)
	}
	return req, &domain.ReceiptUpload{Filename: header.Filename, Body: body}, nil
}

func validationProblems(err error) []string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Problems
	}
	return []string{err.Error()}
}
