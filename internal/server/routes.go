package server

import (
	"net/http"

	"github.com/runoshun/crew-board/internal/api"
	"github.com/runoshun/crew-board/internal/domain"
	"github.com/runoshun/crew-board/internal/usecase"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	out, err := s.uc.ListProjects.Execute(r.Context(), usecase.ListProjectsInput{})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondOK(w, api.ProjectsResponse{Projects: out.Projects})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req api.CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.uc.RegisterProject.Execute(r.Context(), usecase.RegisterProjectInput{
		Name:         req.Name,
		Path:         req.Path,
		ServerURL:    req.ServerURL,
		DispatchMode: req.DispatchMode,
		MaxParallel:  req.MaxParallel,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, api.ProjectResponse{Project: out.Project})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	out, err := s.uc.ListTasks.Execute(r.Context(), usecase.ListTasksInput{
		ProjectID: r.PathValue("id"),
		Status:    domain.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondOK(w, api.TasksResponse{Columns: out.Columns})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.uc.NewTask.Execute(r.Context(), usecase.NewTaskInput{
		ProjectID:   r.PathValue("id"),
		Title:       req.Title,
		Description: req.Description,
		Mode:        req.Mode,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, api.TaskResponse{Task: out.Task})
}

func (s *Server) handleShowTask(w http.ResponseWriter, r *http.Request) {
	out, err := s.uc.ShowTask.Execute(r.Context(), usecase.ShowTaskInput{
		ProjectID: r.PathValue("id"),
		TaskID:    r.PathValue("taskId"),
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondOK(w, api.TaskResponse{Task: out.Task, Session: out.Session})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch domain.TaskPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	out, err := s.uc.UpdateTask.Execute(r.Context(), usecase.UpdateTaskInput{
		ProjectID: r.PathValue("id"),
		TaskID:    r.PathValue("taskId"),
		Patch:     patch,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondOK(w, api.UpdateTaskResponse{
		Task:          out.Task,
		Merge:         out.Merge,
		DispatchError: out.DispatchError,
		TerminalTabID: out.TerminalTabID,
		Transition:    out.Transition,
		Dispatched:    out.Dispatched,
	})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	_, err := s.uc.DeleteTask.Execute(r.Context(), usecase.DeleteTaskInput{
		ProjectID: r.PathValue("id"),
		TaskID:    r.PathValue("taskId"),
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondOK(w, api.SuccessResponse{Success: true})
}

func (s *Server) handleDispatchTask(w http.ResponseWriter, r *http.Request) {
	out, err := s.uc.DispatchTask.Execute(r.Context(), usecase.DispatchTaskInput{
		ProjectID: r.PathValue("id"),
		TaskID:    r.PathValue("taskId"),
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondOK(w, api.DispatchResponse{Session: out.Session})
}

func (s *Server) handleSessionEnded(w http.ResponseWriter, r *http.Request) {
	out, err := s.uc.SessionEnded.Execute(r.Context(), usecase.SessionEndedInput{
		ProjectID: r.PathValue("id"),
		TaskID:    r.PathValue("taskId"),
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondOK(w, api.SessionEndedResponse{Released: out.Released})
}

func (s *Server) handleGetTerminalOpen(w http.ResponseWriter, r *http.Request) {
	out, err := s.uc.GetTerminalOpen.Execute(r.Context(), usecase.GetTerminalOpenInput{ProjectID: r.PathValue("id")})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondOK(w, api.TerminalOpen{Open: out.Open})
}

func (s *Server) handleSetTerminalOpen(w http.ResponseWriter, r *http.Request) {
	var req api.TerminalOpen
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.uc.SetTerminalOpen.Execute(r.Context(), usecase.SetTerminalOpenInput{
		ProjectID: r.PathValue("id"),
		Open:      req.Open,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondOK(w, api.TerminalOpen{Open: out.Open})
}

func (s *Server) handleActiveTasks(w http.ResponseWriter, r *http.Request) {
	out, err := s.uc.ListActiveTasks.Execute(r.Context(), usecase.ListActiveTasksInput{})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondOK(w, api.ActiveTasksResponse{Tasks: out.Tasks})
}
