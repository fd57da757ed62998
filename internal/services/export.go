package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/policy"
	"github.com/xuri/excelize/v2"
)

const rosterSheet = "Clientes"

var rosterHeader = []string{
	"Empresa",
	"Razón social",
	"RFC",
	"Email",
	"Teléfono",
	"Ubicación",
	"Estatus SAT",
	"Activo",
	"Contacto",
	"Teléfono contacto",
	"Alta",
}

var rosterWidths = []float64{30, 34, 16, 30, 16, 24, 16, 10, 34, 18, 20}

// ExportClients renders the client roster as an XLSX workbook.
func (s *ClientService) ExportClients(ctx context.Context, p policy.Principal) ([]byte, error) {
	if err := authorize(p, policy.ExportClients, policy.Resource{}); err != nil {
		return nil, err
	}

	var clients []models.Client
	if err := s.db.WithContext(ctx).Order("company_name ASC").Find(&clients).Error; err != nil {
		return nil, storeErr("list clients", err)
	}
	return buildRoster(clients)
}

func buildRoster(clients []models.Client) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(rosterSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, title := range rosterHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(rosterSheet, cell, title); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(rosterSheet, col, col, rosterWidths[i]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(rosterHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(rosterSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for r, c := range clients {
		active := "No"
		if c.IsActive {
			active = "Sí"
		}
		contact := strings.Join(strings.Fields(c.Contact.FirstName+" "+c.Contact.PaternalLastName+" "+c.Contact.MaternalLastName), " ")
		values := []any{
			c.CompanyName,
			c.LegalName,
			c.RFC,
			c.Email,
			c.Phone,
			c.Location,
			c.SatStatus.Label(),
			active,
			contact,
			c.Contact.Phone,
			c.CreatedAt.Format("2006-01-02"),
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(rosterSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
