package reports

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phpdave11/gofpdf"
)

type Handler struct {
	Pool *pgxpool.Pool
}

func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{Pool: pool}
}

// CreditStatementPDF renders the caller's credit transactions over a date
// range as a downloadable statement.
func (h *Handler) CreditStatementPDF(c *fiber.Ctx) error {
	uidVal := c.Locals("user_id")
	accountID, _ := uidVal.(string)
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))
	if from == "" || to == "" {
		end := time.Now()
		start := end.AddDate(0, 0, -29)
		from = start.Format("2006-01-02")
		to = end.Format("2006-01-02")
	}

	if _, err := time.Parse("2006-01-02", from); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	if _, err := time.Parse("2006-01-02", to); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
	}

	ctx := c.UserContext()

	var balance int64
	if err := h.Pool.QueryRow(ctx,
		`SELECT credits FROM accounts WHERE id = $1::uuid`, accountID).Scan(&balance); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "account not found")
	}

	rows, err := h.Pool.Query(ctx, `
SELECT created_at::date::text, reason, COALESCE(note, ''), amount
FROM credit_transactions
WHERE account_id = $1::uuid
  AND created_at::date BETWEEN $2::date AND $3::date
ORDER BY created_at DESC, id DESC
LIMIT 2000
`, accountID, from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed statement: "+err.Error())
	}
	defer rows.Close()

	type row struct {
		Date   string
		Reason string
		Note   string
		Amount int64
	}

	var items []row
	var debited, credited int64
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.Date, &r.Reason, &r.Note, &r.Amount); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "scan statement: "+err.Error())
		}
		if r.Amount < 0 {
			debited += -r.Amount
		} else {
			credited += r.Amount
		}
		items = append(items, r)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 48)
	pdf.SetTextColor(235, 235, 235)
	pdf.Text(25, 140, "SCRIPT AI")

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Credit Statement")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Period: "+from+" to "+to)
	pdf.Ln(5)
	pdf.Cell(0, 6, "Account: "+maskID(accountID))
	pdf.Ln(10)

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)

	sumW := []float64{62, 62, 62}
	pdf.CellFormat(sumW[0], 10, "Credited", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 10, "Debited", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 10, "Balance", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW[0], 10, fmt.Sprintf("%d", credited), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 10, fmt.Sprintf("%d", debited), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 10, fmt.Sprintf("%d", balance), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)

	colW := []float64{28, 46, 86, 22}
	pdf.CellFormat(colW[0], 8, "DATE", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colW[1], 8, "REASON", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colW[2], 8, "NOTE", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[3], 8, "CREDITS", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range items {
		note := it.Note
		if len(note) > 48 {
			note = note[:45] + "..."
		}
		pdf.CellFormat(colW[0], 8, it.Date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[1], 8, it.Reason, "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[2], 8, note, "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[3], 8, fmt.Sprintf("%+d", it.Amount), "1", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render pdf")
	}

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", `attachment; filename="credit-statement-`+from+`-`+to+`.pdf"`)
	return c.Send(buf.Bytes())
}

func maskID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
