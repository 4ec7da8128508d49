package google

import (
	"strings"
	"time"

	"gestor/internal/core"
)

var header = []any{
	"ID", "Tipos", "Nombre", "Apellidos", "DNI", "Teléfono", "Fecha", "Resumen", "Importe",
	"Producto", "Código", "Cantidad", "Método Pago", "Completado", "Creado", "Actualizado",
}

// lastColumn is the column letter of the last header cell.
const lastColumn = "P"

// Rows converts records into a values matrix with a header row.
func Rows(records []core.Record) [][]any {
	out := make([][]any, 0, len(records)+1)
	out = append(out, header)
	for _, r := range records {
		var product, code, quantity, method any = "", "", "", ""
		if d := r.SaleDetails; d != nil {
			product, code, quantity, method = d.ProductName, d.ProductCode, d.Quantity, d.PaymentMethod
		}
		out = append(out, []any{
			r.ID,
			strings.Join(r.Types, ", "),
			r.FirstName,
			r.LastName,
			r.DNI,
			r.Phone,
			r.Date.String(),
			r.Summary,
			r.Amount.Decimal().InexactFloat64(),
			product,
			code,
			quantity,
			method,
			r.Completed,
			timestamp(r.CreatedAt),
			timestamp(r.UpdatedAt),
		})
	}
	return out
}

func timestamp(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
