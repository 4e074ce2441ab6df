package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"dokq/core"
)

func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// getDashboardStats returns aggregate counts scoped to the caller's role.
// Administrators see organization-wide figures, everyone else sees the
// numbers for their own location.
func (a *API) getDashboardStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r.Context())

	patients := 156
	if ok && identity.Role == core.RoleAdmin {
		patients = 847
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats": map[string]any{
			"totalPatients":     patients,
			"activeSurgeries":   12,
			"queuedProcedures":  34,
			"avgWaitTimeDays":   18,
			"orUtilizationRate": 78.5,
		},
		"timestamp": time.Now().UnixMilli(),
	})
}

type queueEntry struct {
	ID        string `json:"id"`
	Procedure string `json:"procedure"`
	Priority  string `json:"priority"`
	Location  string `json:"location"`
	WaitDays  int    `json:"waitDays"`
}

var surgeryQueue = []queueEntry{
	{ID: "sq-1001", Procedure: "Hip replacement", Priority: "urgent", Location: "central", WaitDays: 4},
	{ID: "sq-1002", Procedure: "Knee arthroscopy", Priority: "routine", Location: "central", WaitDays: 21},
	{ID: "sq-1003", Procedure: "Cataract surgery", Priority: "routine", Location: "north", WaitDays: 35},
	{ID: "sq-1004", Procedure: "Appendectomy", Priority: "emergency", Location: "north", WaitDays: 0},
}

func (a *API) getSurgeryQueue(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r.Context())

	entries := surgeryQueue
	if !ok || identity.Role != core.RoleAdmin {
		filtered := make([]queueEntry, 0, len(surgeryQueue))
		for _, e := range surgeryQueue {
			if e.Location == "central" {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"queue":     entries,
		"count":     len(entries),
		"timestamp": time.Now().UnixMilli(),
	})
}

func (a *API) getORStatus(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"rooms": []map[string]any{
			{"room": "OR-1", "status": "in-use", "procedure": "Hip replacement", "utilization": 92.0},
			{"room": "OR-2", "status": "available", "procedure": nil, "utilization": 61.5},
			{"room": "OR-3", "status": "cleaning", "procedure": nil, "utilization": 74.0},
		},
		"timestamp": time.Now().UnixMilli(),
	})
}

type optimizeRequest struct {
	Date              string   `json:"date" validate:"required"`
	TargetUtilization float64  `json:"targetUtilization" validate:"required,min=0,max=100"`
	Rooms             []string `json:"rooms" validate:"omitempty,dive,alphanum"`
}

func (a *API) optimizeOR(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	// Clamp rather than reject so that schedulers sending slightly out of
	// range targets still get a plan.
	target := req.TargetUtilization
	if target > 100 {
		target = 100
	}
	if target < 0 {
		target = 0
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"plan": map[string]any{
			"date":               req.Date,
			"targetUtilization":  target,
			"projectedReduction": "2.3 days",
			"reassignedCases":    5,
		},
		"timestamp": time.Now().UnixMilli(),
	})
}

type consultationRequest struct {
	Symptoms string `json:"symptoms" validate:"required,min=10,max=1000"`
	Urgency  string `json:"urgency" validate:"required,oneof=low medium high emergency"`
}

func (a *API) aiConsultation(w http.ResponseWriter, r *http.Request) {
	var req consultationRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	recommendation := "Schedule a consultation with your primary care provider."
	if req.Urgency == "emergency" {
		recommendation = "Seek immediate emergency care."
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"consultationId": uuid.New().String(),
		"recommendation": recommendation,
		"urgency":        req.Urgency,
		"timestamp":      time.Now().UnixMilli(),
	})
}

// getPatient enforces record-level access on top of the route's role list.
// Patients may only read their own record.
func (a *API) getPatient(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r.Context())
	patientID := mux.Vars(r)["id"]

	if ok && identity.Role == core.RolePatient && identity.Subject != patientID {
		a.writeError(w, r, core.NewForbidden("Insufficient permissions"))
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"patient": map[string]any{
			"id":        patientID,
			"status":    "active",
			"location":  "central",
			"queuedFor": "Knee arthroscopy",
		},
		"timestamp": time.Now().UnixMilli(),
	})
}

type createPatientRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Location string `json:"location" validate:"required,oneof=central north south rural"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func (a *API) createPatient(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if !a.decodeAndValidate(w, r, &req) {
		return
	}

	a.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"patient": map[string]any{
			"id":       uuid.New().String(),
			"name":     req.Name,
			"location": req.Location,
			"status":   "registered",
		},
		"timestamp": time.Now().UnixMilli(),
	})
}

func (a *API) getWaitTimeAnalytics(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"analytics": map[string]any{
			"avgWaitDays": map[string]float64{
				"central": 16.2,
				"north":   24.8,
				"south":   19.1,
				"rural":   31.4,
			},
			"trend":  "decreasing",
			"period": "90d",
		},
		"timestamp": time.Now().UnixMilli(),
	})
}
