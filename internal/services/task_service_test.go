package services

import (
	"context"
	"testing"
	"time"

	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func status(s models.TaskStatus) *dto.UpdateTaskRequest {
	return &dto.UpdateTaskRequest{Status: &s}
}

func TestAddTask(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.addClient(t, "a@x.com", "ABC010101XXX")

	_, err := e.tasks.AddTask(ctx, level2, c.ID, &dto.CreateTaskRequest{Title: "Declaración anual"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.tasks.AddTask(ctx, super, c.ID, &dto.CreateTaskRequest{Title: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	due := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	task, err := e.tasks.AddTask(ctx, super, c.ID, &dto.CreateTaskRequest{Title: "Declaración anual", DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPendiente, task.Status)
	assert.Nil(t, task.CompletedAt)

	tasks, err := e.tasks.ListTasks(ctx, clientPrincipal(c), c.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
}

func TestUpdateTask_CompletedAtFollowsStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.addClient(t, "a@x.com", "ABC010101XXX")
	task, err := e.tasks.AddTask(ctx, super, c.ID, &dto.CreateTaskRequest{Title: "Enviar estados de cuenta"})
	require.NoError(t, err)

	done, err := e.tasks.UpdateTask(ctx, level1, task.ID, status(models.TaskCompletada))
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	completedAt := *done.CompletedAt

	// Staying completed keeps the original completion time.
	title := "Enviar estados de cuenta 2025"
	again, err := e.tasks.UpdateTask(ctx, super, task.ID, &dto.UpdateTaskRequest{Title: &title, Status: &done.Status})
	require.NoError(t, err)
	require.NotNil(t, again.CompletedAt)
	assert.True(t, completedAt.Equal(*again.CompletedAt))

	// Leaving COMPLETADA clears it.
	reopened, err := e.tasks.UpdateTask(ctx, super, task.ID, status(models.TaskEnProceso))
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	var stored models.Task
	require.NoError(t, e.db.First(&stored, "id = ?", task.ID).Error)
	assert.Equal(t, models.TaskEnProceso, stored.Status)
	assert.Nil(t, stored.CompletedAt)

	// Any state is reachable from any other.
	back, err := e.tasks.UpdateTask(ctx, super, task.ID, status(models.TaskPendiente))
	require.NoError(t, err)
	assert.Equal(t, models.TaskPendiente, back.Status)
	assert.Nil(t, back.CompletedAt)
}

func TestUpdateTask_Permissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.addClient(t, "a@x.com", "ABC010101XXX")
	other := e.addClient(t, "b@x.com", "XYZ010101AAA")
	task, err := e.tasks.AddTask(ctx, super, c.ID, &dto.CreateTaskRequest{Title: "Subir CSF"})
	require.NoError(t, err)

	_, err = e.tasks.UpdateTask(ctx, clientPrincipal(c), task.ID, status(models.TaskEnProceso))
	assert.NoError(t, err)

	title := "otro"
	_, err = e.tasks.UpdateTask(ctx, clientPrincipal(c), task.ID, &dto.UpdateTaskRequest{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.tasks.UpdateTask(ctx, level2, task.ID, &dto.UpdateTaskRequest{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.tasks.UpdateTask(ctx, clientPrincipal(other), task.ID, status(models.TaskCompletada))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.tasks.UpdateTask(ctx, super, task.ID, status("CANCELADA"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteTask(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.addClient(t, "a@x.com", "ABC010101XXX")
	task, err := e.tasks.AddTask(ctx, super, c.ID, &dto.CreateTaskRequest{Title: "Subir CSF"})
	require.NoError(t, err)

	assert.ErrorIs(t, e.tasks.DeleteTask(ctx, level1, task.ID), ErrForbidden)
	require.NoError(t, e.tasks.DeleteTask(ctx, super, task.ID))
	assert.ErrorIs(t, e.tasks.DeleteTask(ctx, super, task.ID), ErrNotFound)

	tasks, err := e.tasks.ListTasks(ctx, super, c.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Contains(t, e.pub.tables(), "tasks:DELETE")
}

func TestApplyStatus(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	later := now.Add(time.Hour)

	task := &models.Task{Status: models.TaskPendiente}
	applyStatus(task, models.TaskCompletada, now)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)

	applyStatus(task, models.TaskCompletada, later)
	assert.Equal(t, now, *task.CompletedAt)

	applyStatus(task, models.TaskPendiente, later)
	assert.Nil(t, task.CompletedAt)
}
