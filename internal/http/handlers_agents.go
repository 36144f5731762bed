package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fincoach/internal/agents"
	"fincoach/internal/services"
)

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.svc.Tasks.Agents()})
}

func (s *Server) handleAgentPerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Tasks.Performance())
}

func (s *Server) handleSpecializeAgent(w http.ResponseWriter, r *http.Request) {
	var in map[string]any
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, "specialize_agent", err)
		return
	}
	spec, err := s.svc.Tasks.Specialize(r.Context(), userID(r.Context()), chi.URLParam(r, "type"), in)
	if err != nil {
		writeServiceError(w, r, "specialize_agent", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Agent specialized successfully",
		"specialization": spec,
	})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in services.NewTask
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, "create_task", err)
		return
	}
	in.Title = sanitizeInput(in.Title)
	in.Description = sanitizeInput(in.Description)
	task, err := s.svc.Tasks.CreateTask(r.Context(), userID(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, "create_task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.svc.Tasks.ListTasks(r.Context(), userID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "list_tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	task, err := s.svc.Tasks.GetTask(r.Context(), userID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, "get_task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if err := s.svc.Tasks.DeleteTask(r.Context(), userID(r.Context()), id); err != nil {
		writeServiceError(w, r, "delete_task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRerunTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	task, err := s.svc.Tasks.Rerun(r.Context(), userID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, "rerun_task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type workflowRequest struct {
	Name          string   `json:"name"`
	AgentSequence []string `json:"agent_sequence"`
}

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var in workflowRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, "create_workflow", err)
		return
	}
	wf, err := s.svc.Tasks.CreateWorkflow(r.Context(), userID(r.Context()), sanitizeInput(in.Name), in.AgentSequence)
	if err != nil {
		writeServiceError(w, r, "create_workflow", err)
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	wfs, err := s.svc.Tasks.ListWorkflows(r.Context(), userID(r.Context()))
	if err != nil {
		writeServiceError(w, r, "list_workflows", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": wfs})
}

// runRequest is the optional body of workflow execution and collaboration.
type runRequest struct {
	TaskType          string         `json:"task_type"`
	Data              map[string]any `json:"data"`
	Agents            []string       `json:"agents"`
	CollaborationType agents.Mode    `json:"collaboration_type"`
}

func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	var in runRequest
	if err := decodeJSON(w, r, &in); err != nil && !errors.Is(err, errEmptyBody) {
		writeServiceError(w, r, "execute_workflow", err)
		return
	}
	run, err := s.svc.Tasks.ExecuteWorkflow(r.Context(), userID(r.Context()), id, in.TaskType, in.Data)
	if err != nil {
		writeServiceError(w, r, "execute_workflow", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleCollaborate(w http.ResponseWriter, r *http.Request) {
	var in runRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, "collaborate", err)
		return
	}
	out, err := s.svc.Tasks.Collaborate(r.Context(), userID(r.Context()), in.CollaborationType, in.Agents, in.TaskType, in.Data)
	if err != nil {
		writeServiceError(w, r, "collaborate", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
