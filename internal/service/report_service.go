package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"taskhub/internal/model"
	"taskhub/internal/repository"
)

const dateLayout = "2006-01-02"

// ReportService produces spreadsheet exports for administrators.
type ReportService interface {
	ExportTasks(ctx context.Context) (*excelize.File, error)
	ExportUsers(ctx context.Context) (*excelize.File, error)
}

type reportService struct {
	tasks repository.TaskRepository
	users repository.UserRepository
}

// NewReportService creates a new report service.
func NewReportService(tasks repository.TaskRepository, users repository.UserRepository) ReportService {
	return &reportService{tasks: tasks, users: users}
}

// ExportTasks builds a workbook with one row per task, assignees joined into
// a single cell.
func (s *reportService) ExportTasks(ctx context.Context) (*excelize.File, error) {
	tasks, err := s.tasks.List(ctx, repository.TaskFilter{})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Tasks Report"
	f.SetSheetName("Sheet1", sheet)

	header := []interface{}{"Task ID", "Title", "Description", "Priority", "Status", "Due Date", "Progress", "Assigned To"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, task := range tasks {
		names := make([]string, 0, len(task.Assignees))
		for _, u := range task.Assignees {
			names = append(names, fmt.Sprintf("%s (%s)", u.Name, u.Email))
		}
		row := []interface{}{
			task.ID.String(),
			task.Title,
			task.Description,
			string(task.Priority),
			string(task.Status),
			task.DueDate.Format(dateLayout),
			task.Progress,
			strings.Join(names, ", "),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}

	return f, nil
}

// ExportUsers builds a workbook with one row per user and their per-status
// assigned-task counts.
func (s *reportService) ExportUsers(ctx context.Context) (*excelize.File, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Users Report"
	f.SetSheetName("Sheet1", sheet)

	header := []interface{}{"User ID", "Name", "Email", "Role", "Todo", "In Progress", "Done"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, user := range users {
		counts, err := s.tasks.CountByField(ctx, "status", user.ID)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			user.ID.String(),
			user.Name,
			user.Email,
			string(user.Role),
			counts[string(model.StatusTodo)],
			counts[string(model.StatusInProgress)],
			counts[string(model.StatusDone)],
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}

	return f, nil
}
