// AngelaMos | 2026
// handler.go

package ops

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/gigmarket/internal/core"
	"github.com/carterperez-dev/gigmarket/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the ops console. Reads and status moves are open to
// all ops staff; edits need a manager role.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	managerOnly := middleware.RequireRole(ManagerRoles...)

	r.Route("/ops", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireRole(StaffRoles...))

		r.Get("/kras", h.ListKRAs)
		r.Get("/kras/{kraID}", h.GetKRA)
		r.Get("/kras/{kraID}/assignments", h.KRAAssignments)
		r.Get("/assignments/mine", h.MyAssignments)

		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/mine", h.MyTasks)
		r.Get("/tasks/{taskID}", h.GetTask)
		r.Patch("/tasks/{taskID}/status", h.SetTaskStatus)

		r.Group(func(r chi.Router) {
			r.Use(managerOnly)

			r.Post("/kras", h.CreateKRA)
			r.Put("/kras/{kraID}", h.UpdateKRA)
			r.Delete("/kras/{kraID}", h.DeleteKRA)
			r.Post("/kras/{kraID}/assignments", h.Assign)
			r.Delete("/kras/{kraID}/assignments/{userID}", h.Unassign)

			r.Post("/tasks", h.CreateTask)
			r.Put("/tasks/{taskID}", h.UpdateTask)
			r.Delete("/tasks/{taskID}", h.DeleteTask)
		})
	})
}

func (h *Handler) ListKRAs(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListKRAs(r.Context())
	if err != nil {
		core.HandleServiceError(w, err, "kra")
		return
	}
	core.OK(w, out)
}

func (h *Handler) GetKRA(w http.ResponseWriter, r *http.Request) {
	k, err := h.service.GetKRA(r.Context(), chi.URLParam(r, "kraID"))
	if err != nil {
		core.HandleServiceError(w, err, "kra")
		return
	}
	core.OK(w, k)
}

func (h *Handler) CreateKRA(w http.ResponseWriter, r *http.Request) {
	var req KRARequest
	if !h.decode(w, r, &req) {
		return
	}

	k, err := h.service.CreateKRA(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "kra")
		return
	}
	core.Created(w, k)
}

func (h *Handler) UpdateKRA(w http.ResponseWriter, r *http.Request) {
	var req KRARequest
	if !h.decode(w, r, &req) {
		return
	}

	k, err := h.service.UpdateKRA(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "kraID"), req)
	if err != nil {
		core.HandleServiceError(w, err, "kra")
		return
	}
	core.OK(w, k)
}

func (h *Handler) DeleteKRA(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteKRA(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "kraID")); err != nil {
		core.HandleServiceError(w, err, "kra")
		return
	}
	core.NoContent(w)
}

func (h *Handler) KRAAssignments(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.KRAAssignments(r.Context(), chi.URLParam(r, "kraID"))
	if err != nil {
		core.HandleServiceError(w, err, "assignment")
		return
	}
	core.OK(w, out)
}

func (h *Handler) MyAssignments(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.MyAssignments(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.HandleServiceError(w, err, "assignment")
		return
	}
	core.OK(w, out)
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.service.Assign(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "kraID"), req.UserID)
	if err != nil {
		core.HandleServiceError(w, err, "assignment")
		return
	}
	core.Created(w, a)
}

func (h *Handler) Unassign(w http.ResponseWriter, r *http.Request) {
	err := h.service.Unassign(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "kraID"),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		core.HandleServiceError(w, err, "assignment")
		return
	}
	core.NoContent(w)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	params := taskParams(r)
	params.AssignedTo = r.URL.Query().Get("assigned_to")

	out, total, err := h.service.ListTasks(r.Context(), params)
	if err != nil {
		core.HandleServiceError(w, err, "task")
		return
	}
	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) MyTasks(w http.ResponseWriter, r *http.Request) {
	params := taskParams(r)

	out, total, err := h.service.MyTasks(r.Context(), middleware.GetUserID(r.Context()), params)
	if err != nil {
		core.HandleServiceError(w, err, "task")
		return
	}
	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTask(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		core.HandleServiceError(w, err, "task")
		return
	}
	core.OK(w, t)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.CreateTask(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleServiceError(w, err, "task")
		return
	}
	core.Created(w, t)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.service.UpdateTask(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "taskID"), req)
	if err != nil {
		core.HandleServiceError(w, err, "task")
		return
	}
	core.OK(w, t)
}

func (h *Handler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req TaskStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, _ := middleware.GetSession(r.Context())
	actor := Actor{
		UserID:  session.UserID,
		Manager: session.HasAnyRole(ManagerRoles...),
	}

	t, err := h.service.SetTaskStatus(r.Context(), actor, chi.URLParam(r, "taskID"), req.Status)
	if err != nil {
		core.HandleServiceError(w, err, "task")
		return
	}
	core.OK(w, t)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTask(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "taskID")); err != nil {
		core.HandleServiceError(w, err, "task")
		return
	}
	core.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func taskParams(r *http.Request) TaskListParams {
	q := r.URL.Query()

	params := TaskListParams{
		Status:   TaskStatus(q.Get("status")),
		Priority: Priority(q.Get("priority")),
		KRAID:    q.Get("kra_id"),
	}
	params.Page, _ = strconv.Atoi(q.Get("page"))
	params.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	params.Normalize()

	return params
}
