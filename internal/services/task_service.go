package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/feed"
	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/policy"
	"gorm.io/gorm"
)

type TaskService struct {
	db  *gorm.DB
	pub feed.Publisher
}

func NewTaskService(db *gorm.DB, pub feed.Publisher) *TaskService {
	return &TaskService{db: db, pub: pub}
}

func (s *TaskService) AddTask(ctx context.Context, p policy.Principal, clientID uuid.UUID, req *dto.CreateTaskRequest) (*models.Task, error) {
	if err := authorize(p, policy.CreateTask, policy.Client(clientID)); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if _, err := loadClient(ctx, s.db, clientID); err != nil {
		return nil, err
	}

	task := models.Task{
		ClientID:    clientID,
		Title:       title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      models.TaskPendiente,
	}
	if err := s.db.WithContext(ctx).Create(&task).Error; err != nil {
		return nil, storeErr("create task", err)
	}

	publish(ctx, s.pub, tableTasks, feed.Insert, clientID, &task, nil)
	return &task, nil
}

// UpdateTask applies a partial update. A status-only change needs the status
// permission; touching any other field needs the edit permission.
func (s *TaskService) UpdateTask(ctx context.Context, p policy.Principal, id uuid.UUID, req *dto.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	action := policy.EditTask
	if req.Title == nil && req.Description == nil && req.DueDate == nil {
		action = policy.ChangeTaskStatus
	}
	if err := authorize(p, action, policy.Client(task.ClientID)); err != nil {
		return nil, err
	}

	old := *task
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, invalid("title is required")
		}
		task.Title = title
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, invalid("unknown task status %q", *req.Status)
		}
		applyStatus(task, *req.Status, time.Now().UTC())
	}

	if err := s.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, storeErr("update task", err)
	}

	publish(ctx, s.pub, tableTasks, feed.Update, task.ClientID, task, &old)
	return task, nil
}

// applyStatus keeps completed_at set exactly while the task is COMPLETADA. Re-saving
// a completed task keeps its original completion time.
func applyStatus(task *models.Task, status models.TaskStatus, now time.Time) {
	switch {
	case status == models.TaskCompletada && task.CompletedAt == nil:
		task.CompletedAt = &now
	case status != models.TaskCompletada:
		task.CompletedAt = nil
	}
	task.Status = status
}

func (s *TaskService) DeleteTask(ctx context.Context, p policy.Principal, id uuid.UUID) error {
	task, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(p, policy.DeleteTask, policy.Client(task.ClientID)); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id).Error; err != nil {
		return storeErr("delete task", err)
	}

	publish(ctx, s.pub, tableTasks, feed.Delete, task.ClientID, nil, task)
	return nil
}

// ListTasks returns the client's tasks, newest first.
func (s *TaskService) ListTasks(ctx context.Context, p policy.Principal, clientID uuid.UUID) ([]models.Task, error) {
	if err := authorize(p, policy.ViewTasks, policy.Client(clientID)); err != nil {
		return nil, err
	}

	var tasks []models.Task
	if err := s.db.WithContext(ctx).Where("client_id = ?", clientID).Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, storeErr("list tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) load(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("load task", err)
	}
	return &task, nil
}
