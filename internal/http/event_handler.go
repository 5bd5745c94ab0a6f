package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/eventcal/internal/application"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	GetEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, error)
	ListEvents(ctx context.Context, principal application.Principal) ([]application.Event, error)
}

type dispatchService interface {
	SendInvites(ctx context.Context, principal application.Principal, eventID string) (application.DispatchResult, error)
}

type EventHandler struct {
	service   eventService
	dispatch  dispatchService
	responder responder
}

func NewEventHandler(service eventService, dispatch dispatchService, logger *slog.Logger) *EventHandler {
	return &EventHandler{service: service, dispatch: dispatch, responder: newResponder(logger)}
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	event, err := h.service.GetEvent(r.Context(), principal, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	events, err := h.service.ListEvents(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventsResponse{Events: toEventDTOs(events)})
}

func (h *EventHandler) SendInvites(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.dispatch == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	result, err := h.dispatch.SendInvites(r.Context(), principal, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDispatchDTO(result))
}

type eventRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Location    *string  `json:"location"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	ReminderAt  *string  `json:"reminder_at"`
	Attendees   []string `json:"attendees"`
}

func (r eventRequest) toInput() application.EventInput {
	input := application.EventInput{
		Title:          strings.TrimSpace(r.Title),
		Description:    r.Description,
		Location:       r.Location,
		Start:          parseTime(r.Start),
		End:            parseTime(r.End),
		AttendeeEmails: append([]string(nil), r.Attendees...),
	}
	if r.ReminderAt != nil {
		if ts := parseTime(*r.ReminderAt); !ts.IsZero() {
			input.ReminderAt = &ts
		}
	}
	return input
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type listEventsResponse struct {
	Events []eventDTO `json:"events"`
}

type eventDTO struct {
	ID           string        `json:"id"`
	OwnerID      string        `json:"owner_id"`
	Title        string        `json:"title"`
	Description  *string       `json:"description,omitempty"`
	Location     *string       `json:"location,omitempty"`
	Start        string        `json:"start"`
	End          string        `json:"end"`
	ReminderAt   *string       `json:"reminder_at,omitempty"`
	ReminderSent bool          `json:"reminder_sent"`
	Attendees    []attendeeDTO `json:"attendees"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
}

type attendeeDTO struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

func toEventDTO(event application.Event) eventDTO {
	dto := eventDTO{
		ID:           event.ID,
		OwnerID:      event.OwnerID,
		Title:        event.Title,
		Description:  event.Description,
		Location:     event.Location,
		Start:        event.Start.UTC().Format(time.RFC3339Nano),
		End:          event.End.UTC().Format(time.RFC3339Nano),
		ReminderSent: event.ReminderSent,
		CreatedAt:    event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    event.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if event.ReminderAt != nil {
		reminder := event.ReminderAt.UTC().Format(time.RFC3339Nano)
		dto.ReminderAt = &reminder
	}
	dto.Attendees = make([]attendeeDTO, 0, len(event.Attendees))
	for _, attendee := range event.Attendees {
		dto.Attendees = append(dto.Attendees, attendeeDTO{Email: attendee.Email, Status: attendee.Status})
	}
	return dto
}

func toEventDTOs(events []application.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

// dispatchDTO reports every delivery outcome four ways: the sent and failed
// partitions, a combined per-recipient results list, and flattened error
// strings. All four keys are always present, empty lists included.
type dispatchDTO struct {
	EventID string               `json:"event_id"`
	Sent    []string             `json:"sent"`
	Failed  []deliveryFailureDTO `json:"failed"`
	Results []deliveryResultDTO  `json:"results"`
	Errors  []string             `json:"errors"`
}

type deliveryFailureDTO struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type deliveryResultDTO struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

func toDispatchDTO(result application.DispatchResult) dispatchDTO {
	dto := dispatchDTO{
		EventID: result.EventID,
		Sent:    []string{},
		Failed:  []deliveryFailureDTO{},
		Results: []deliveryResultDTO{},
		Errors:  []string{},
	}
	for _, email := range result.Sent {
		dto.Sent = append(dto.Sent, email)
		dto.Results = append(dto.Results, deliveryResultDTO{Email: email, Status: "sent"})
	}
	for _, failure := range result.Failed {
		dto.Failed = append(dto.Failed, deliveryFailureDTO{Email: failure.Email, Reason: failure.Reason})
		dto.Results = append(dto.Results, deliveryResultDTO{Email: failure.Email, Status: "failed"})
		dto.Errors = append(dto.Errors, fmt.Sprintf("%s: %s", failure.Email, failure.Reason))
	}
	return dto
}
