package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/middleware"
	"github.com/grupokali/portal/internal/services"
)

type TaskHandler struct {
	tasks *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	clientID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	tasks, err := h.tasks.ListTasks(c.UserContext(), middleware.GetPrincipal(c), clientID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(tasks)
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	clientID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	task, err := h.tasks.AddTask(c.UserContext(), middleware.GetPrincipal(c), clientID, &req)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid task id")
	}

	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	task, err := h.tasks.UpdateTask(c.UserContext(), middleware.GetPrincipal(c), id, &req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(task)
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid task id")
	}

	if err := h.tasks.DeleteTask(c.UserContext(), middleware.GetPrincipal(c), id); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Task deleted"})
}
