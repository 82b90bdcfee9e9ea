package harvest

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/hibiken/asynq"

	"harvester/internal/core/run"
	"harvester/internal/platform/tasks"
)

// TaskTypeHarvest is the asynq task type for background harvest runs.
const TaskTypeHarvest = "harvest:run"

type Payload struct {
	RunID   string   `json:"run_id"`
	Queries []string `json:"queries,omitempty"`
}

type Handler struct {
	svc        *Service
	runs       *run.Service
	tasks      *tasks.Client
	maxRetries int
}

func NewHandler(svc *Service, runs *run.Service, t *tasks.Client, maxRetries int) *Handler {
	return &Handler{svc: svc, runs: runs, tasks: t, maxRetries: maxRetries}
}

type createRequest struct {
	Queries []string `json:"queries"`
}

// Create enqueues a harvest run and returns its id immediately; progress is
// polled via Status.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid request body"})
		}
	}

	runID := utils.UUIDv4()
	ctx := c.UserContext()
	if err := h.runs.InitPending(ctx, runID, h.svc.site.Source); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	payload, _ := json.Marshal(Payload{RunID: runID, Queries: req.Queries})
	if err := h.tasks.Enqueue(asynq.NewTask(TaskTypeHarvest, payload), "default", h.maxRetries); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "run_id": runID})
}

// Status reports the stored state of a run.
func (h *Handler) Status(c *fiber.Ctx) error {
	r, err := h.runs.Get(c.UserContext(), c.Params("runId"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "run": r})
}

// HandleTask is the asynq entry point.
func (h *Handler) HandleTask(ctx context.Context, task *asynq.Task) error {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return err
	}
	return h.svc.Execute(ctx, p.RunID, p.Queries)
}
