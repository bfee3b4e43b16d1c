package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cleberrangel/clientflow-api/internal/logger"
	"github.com/cleberrangel/clientflow-api/internal/metrics"
	"github.com/cleberrangel/clientflow-api/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Resumo"
	milestoneSheet  = "Milestones"
	sprintSheet     = "Sprints"
	changeReqSheet  = "Change Requests"
	reportDateStyle = "2006-01-02"
)

// ProjectReport is the data behind the status workbook.
type ProjectReport struct {
	Project        model.Project
	Progress       Progress
	Milestones     []MilestoneView
	Sprints        []SprintView
	ChangeRequests []model.ChangeRequest
	GeneratedAt    time.Time
}

// ExportProjectReport builds the status workbook for a project. Clients get
// the client-visible milestones only.
func (e *Engine) ExportProjectReport(ctx context.Context, projectID string, actor model.Actor) (*bytes.Buffer, string, error) {
	log := logger.Get(ctx)
	m := metrics.Get()

	view, err := e.GetProject(ctx, projectID, actor)
	if err != nil {
		return nil, "", err
	}
	milestones, err := e.ListMilestones(ctx, projectID, actor)
	if err != nil {
		return nil, "", err
	}
	sprints, err := e.ListSprints(ctx, projectID, actor)
	if err != nil {
		return nil, "", err
	}
	requests, err := e.store.ListChangeRequests(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	report := ProjectReport{
		Project:        view.Project,
		Progress:       view.Progress,
		Milestones:     milestones,
		Sprints:        sprints,
		ChangeRequests: requests,
		GeneratedAt:    e.now(),
	}

	buf, err := WriteProjectWorkbook(report)
	if err != nil {
		m.IncrementReportGenerated(false)
		log.Error().Err(err).Str("project_id", projectID).Msg("Erro ao gerar planilha do projeto")
		return nil, "", err
	}

	m.IncrementReportGenerated(true)
	logger.AuditTransition(ctx, logger.AuditActionReportExport, "project", projectID, map[string]interface{}{
		"milestones":      len(milestones),
		"sprints":         len(sprints),
		"change_requests": len(requests),
	})

	filename := fmt.Sprintf("%s-status-%s.xlsx", slug(report.Project.Name), report.GeneratedAt.Format(reportDateStyle))
	return buf, filename, nil
}

// WriteProjectWorkbook renders the report as an .xlsx workbook.
func WriteProjectWorkbook(r ProjectReport) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}
	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return nil, fmt.Errorf("criar estilo: %w", err)
	}

	summary := [][]interface{}{
		{"Projeto", r.Project.Name},
		{"Fase", r.Project.Phase.Title()},
		{"Prazo", r.Project.DueDate.Format(reportDateStyle)},
		{"Progresso", r.Progress.String()},
		{"Gerado em", r.GeneratedAt.Format(time.RFC3339)},
	}
	if err := writeRows(f, summarySheet, nil, summary, headerStyle); err != nil {
		return nil, err
	}

	var rows [][]interface{}
	for _, m := range r.Milestones {
		rows = append(rows, []interface{}{
			m.OrderIndex, m.Title, statusLabel(string(m.Status)), m.Progress.String(),
			formatDate(m.DueDate), approvalLabel(m.ApprovalStatus), formatDate(m.CompletedAt),
		})
	}
	if err := addSheet(f, milestoneSheet,
		[]string{"#", "Milestone", "Status", "Progresso", "Prazo", "Aprovação", "Concluído em"}, rows, headerStyle); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, s := range r.Sprints {
		rows = append(rows, []interface{}{
			s.Name, s.StartDate.Format(reportDateStyle), s.EndDate.Format(reportDateStyle),
			s.Progress.String(), fmt.Sprintf("%d%%", s.TimeProgress), s.Complete,
		})
	}
	if err := addSheet(f, sprintSheet,
		[]string{"Sprint", "Início", "Fim", "Progresso", "Tempo decorrido", "Concluída"}, rows, headerStyle); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, cr := range r.ChangeRequests {
		hours := ""
		if h := AuthoritativeHours(cr); h != nil {
			hours = formatHours(*h)
		}
		delay := ""
		if cr.EstimatedTimelineDelayDays != nil {
			delay = fmt.Sprintf("%d", *cr.EstimatedTimelineDelayDays)
		}
		rows = append(rows, []interface{}{
			cr.Title, statusLabel(string(cr.Type)), statusLabel(string(cr.Status)),
			hours, delay, formatDate(cr.NewProjectDueDate), cr.CreatedAt.Format(reportDateStyle),
		})
	}
	if err := addSheet(f, changeReqSheet,
		[]string{"Título", "Tipo", "Status", "Horas", "Atraso (dias)", "Novo prazo", "Criado em"}, rows, headerStyle); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}
	return buf, nil
}

func newHeaderStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
}

func addSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("criar sheet %s: %w", sheet, err)
	}
	return writeRows(f, sheet, headers, rows, headerStyle)
}

// writeRows writes an optional header row followed by the data rows.
func writeRows(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	line := 1
	if len(headers) > 0 {
		for col, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, line)
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return err
			}
		}
		first, _ := excelize.CoordinatesToCellName(1, line)
		last, _ := excelize.CoordinatesToCellName(len(headers), line)
		if err := f.SetCellStyle(sheet, first, last, headerStyle); err != nil {
			return err
		}
		line++
	}

	width := len(headers)
	for _, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		if len(row) > width {
			width = len(row)
		}
		line++
	}

	if width > 0 {
		last, _ := excelize.ColumnNumberToName(width)
		if err := f.SetColWidth(sheet, "A", last, 20); err != nil {
			return err
		}
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(reportDateStyle)
}

func approvalLabel(s *model.ApprovalStatus) string {
	if s == nil {
		return "-"
	}
	return statusLabel(string(*s))
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "projeto"
	}
	return s
}
