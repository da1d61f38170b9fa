package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aqib-kha9/backendgo/internal/agent"
	"github.com/gorilla/mux"
)

// AgentSyncHandler exposes the remote-agent protocol: registration, task
// dispatch, polling and result ingestion. Calls authenticate with the
// agent's own bearer secret, never a user JWT.
type AgentSyncHandler struct {
	registry *agent.Registry
}

// NewAgentSyncHandler creates a new agent sync handler
func NewAgentSyncHandler(registry *agent.Registry) *AgentSyncHandler {
	return &AgentSyncHandler{registry: registry}
}

// RegisterRoutes registers the agent protocol routes
func (ah *AgentSyncHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/agent/sync/register", ah.Register).Methods("POST")
	r.HandleFunc("/api/agent/sync/fetch-tally", ah.FetchTally).Methods("GET")
	r.HandleFunc("/api/agent/sync/poll-tasks", ah.PollTasks).Methods("GET")
	r.HandleFunc("/api/agent/sync/receive-tally", ah.ReceiveTally).Methods("POST")
	r.HandleFunc("/api/agent/sync/info", ah.Info).Methods("GET")
	r.HandleFunc("/api/agent/sync/my-agents", ah.MyAgents).Methods("GET")
}

// bearerSecret extracts the raw agent secret from the Authorization header
func bearerSecret(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// respondAgentError maps registry errors onto protocol status codes
func respondAgentError(w http.ResponseWriter, err error) {
	var reqErr *agent.RequestError
	switch {
	case errors.Is(err, agent.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, "Invalid token")
	case errors.Is(err, agent.ErrInvalidSignature):
		respondError(w, http.StatusUnauthorized, "Invalid signature")
	case errors.As(err, &reqErr):
		respondError(w, http.StatusBadRequest, reqErr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// Register registers a remote agent by the hash of its bearer secret
func (ah *AgentSyncHandler) Register(w http.ResponseWriter, req *http.Request) {
	var in agent.RegisterInput
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	out, err := ah.registry.RegisterAgent(in)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// FetchTally creates a PENDING fetch task and returns the signed command
func (ah *AgentSyncHandler) FetchTally(w http.ResponseWriter, req *http.Request) {
	companyName := req.URL.Query().Get("companyName")
	if companyName == "" {
		respondError(w, http.StatusBadRequest, "companyName is required")
		return
	}
	port, err := strconv.Atoi(req.URL.Query().Get("port"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid port number")
		return
	}

	out, err := ah.registry.CreateFetchTask(bearerSecret(req), companyName, port)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// PollTasks claims the oldest pending task for the calling agent
func (ah *AgentSyncHandler) PollTasks(w http.ResponseWriter, req *http.Request) {
	out, err := ah.registry.PollTasks(bearerSecret(req))
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// ReceiveTally ingests a signed agent report and finalizes its task
func (ah *AgentSyncHandler) ReceiveTally(w http.ResponseWriter, req *http.Request) {
	var report agent.TallyReport
	if err := json.NewDecoder(req.Body).Decode(&report); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	out, err := ah.registry.ReceiveResult(bearerSecret(req), report)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// Info returns the calling agent's own registration record
func (ah *AgentSyncHandler) Info(w http.ResponseWriter, req *http.Request) {
	info, err := ah.registry.AgentInfo(bearerSecret(req))
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// MyAgents lists the agents registered under a userid
func (ah *AgentSyncHandler) MyAgents(w http.ResponseWriter, req *http.Request) {
	userid := req.URL.Query().Get("userid")
	if userid == "" {
		respondError(w, http.StatusBadRequest, "userid is required")
		return
	}

	agents, err := ah.registry.UserAgents(userid)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(agents),
		"agents": agents,
	})
}
