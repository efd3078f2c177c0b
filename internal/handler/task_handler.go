package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"taskhub/internal/auth"
	"taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/service"
)

// TaskHandler handles task lifecycle and dashboard endpoints.
type TaskHandler struct {
	taskService      service.TaskService
	dashboardService service.DashboardService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService, dashboardService service.DashboardService) *TaskHandler {
	return &TaskHandler{
		taskService:      taskService,
		dashboardService: dashboardService,
	}
}

// ChecklistItemRequest is one checklist entry in a request body.
type ChecklistItemRequest struct {
	Text string `json:"text" validate:"required"`
	Done bool   `json:"done"`
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Title         string                 `json:"title" validate:"required"`
	Description   string                 `json:"description"`
	Priority      string                 `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status        string                 `json:"status" validate:"omitempty,oneof=todo in-progress done"`
	DueDate       time.Time              `json:"dueDate" validate:"required"`
	AssignedTo    []string               `json:"assignedTo"`
	Attachments   []string               `json:"attachments"`
	TodoChecklist []ChecklistItemRequest `json:"todoChecklist"`
}

// UpdateTaskRequest represents a partial task update; absent fields keep
// their prior value.
type UpdateTaskRequest struct {
	Title         *string                 `json:"title"`
	Description   *string                 `json:"description"`
	Priority      *string                 `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate       *time.Time              `json:"dueDate"`
	AssignedTo    *[]string               `json:"assignedTo"`
	Attachments   *[]string               `json:"attachments"`
	TodoChecklist *[]ChecklistItemRequest `json:"todoChecklist"`
}

// UpdateStatusRequest represents a direct status transition.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateChecklistRequest represents a wholesale checklist replacement.
type UpdateChecklistRequest struct {
	TodoChecklist []ChecklistItemRequest `json:"todoChecklist"`
}

// Dashboard godoc
// @Summary Global dashboard statistics
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Dashboard
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /tasks/dashboard-data [get]
func (h *TaskHandler) Dashboard(c echo.Context) error {
	dashboard, err := h.dashboardService.Global(c.Request().Context())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, dashboard)
}

// UserDashboard godoc
// @Summary Caller-scoped dashboard statistics
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Dashboard
// @Failure 401 {object} errors.ErrorResponse
// @Router /tasks/user-dashboard-data [get]
func (h *TaskHandler) UserDashboard(c echo.Context) error {
	identity := auth.CurrentIdentity(c)

	dashboard, err := h.dashboardService.ForUser(c.Request().Context(), identity.ID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, dashboard)
}

// List godoc
// @Summary List visible tasks
// @Description Admins see all tasks, members only their assigned ones, both with a status summary.
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {object} service.TaskList
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	identity := auth.CurrentIdentity(c)

	list, err := h.taskService.List(c.Request().Context(), identity, c.QueryParam("status"))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, list)
}

// Get godoc
// @Summary Get one task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} service.TaskView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	taskID, err := parseID(c)
	if err != nil {
		return err
	}
	identity := auth.CurrentIdentity(c)

	task, err := h.taskService.Get(c.Request().Context(), identity, taskID)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, task)
}

// Create godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task fields"
// @Success 201 {object} service.TaskView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	assignedTo, err := parseAssignees(req.AssignedTo)
	if err != nil {
		return err
	}

	identity := auth.CurrentIdentity(c)

	task, err := h.taskService.Create(c.Request().Context(), identity, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     req.DueDate,
		AssignedTo:  assignedTo,
		Attachments: req.Attachments,
		Checklist:   toChecklist(req.TodoChecklist),
	})
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusCreated, task)
}

// Update godoc
// @Summary Update task fields
// @Description Merge-if-present: only supplied fields overwrite existing ones.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body UpdateTaskRequest true "Fields to update"
// @Success 200 {object} service.TaskView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	taskID, err := parseID(c)
	if err != nil {
		return err
	}

	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Attachments: req.Attachments,
	}
	if req.AssignedTo != nil {
		assignedTo, err := parseAssignees(*req.AssignedTo)
		if err != nil {
			return err
		}
		in.AssignedTo = &assignedTo
	}
	if req.TodoChecklist != nil {
		checklist := toChecklist(*req.TodoChecklist)
		in.Checklist = &checklist
	}

	identity := auth.CurrentIdentity(c)

	task, err := h.taskService.Update(c.Request().Context(), identity, taskID, in)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, task)
}

// Delete godoc
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	taskID, err := parseID(c)
	if err != nil {
		return err
	}
	identity := auth.CurrentIdentity(c)

	if err := h.taskService.Delete(c.Request().Context(), identity, taskID); err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "task deleted successfully",
	})
}

// UpdateStatus godoc
// @Summary Direct status transition
// @Description Setting done forces every checklist item done and progress to 100.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body UpdateStatusRequest true "New status"
// @Success 200 {object} service.TaskView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id}/status [put]
func (h *TaskHandler) UpdateStatus(c echo.Context) error {
	taskID, err := parseID(c)
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	identity := auth.CurrentIdentity(c)

	task, err := h.taskService.UpdateStatus(c.Request().Context(), identity, taskID, req.Status)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateChecklist godoc
// @Summary Replace the checklist
// @Description Recomputes progress from done items and derives status from progress.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body UpdateChecklistRequest true "New checklist"
// @Success 200 {object} service.TaskView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id}/todo [put]
func (h *TaskHandler) UpdateChecklist(c echo.Context) error {
	taskID, err := parseID(c)
	if err != nil {
		return err
	}

	var req UpdateChecklistRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	identity := auth.CurrentIdentity(c)

	task, err := h.taskService.UpdateChecklist(c.Request().Context(), identity, taskID, toChecklist(req.TodoChecklist))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, task)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid ID",
			Code:  "INVALID_UUID",
		})
	}
	return id, nil
}

func parseAssignees(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: errors.ErrInvalidAssignee.Error(),
				Code:  "INVALID_ASSIGNEE",
			})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toChecklist(items []ChecklistItemRequest) []model.ChecklistItem {
	checklist := make([]model.ChecklistItem, 0, len(items))
	for _, item := range items {
		checklist = append(checklist, model.ChecklistItem{Text: item.Text, Done: item.Done})
	}
	return checklist
}
