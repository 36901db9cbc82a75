package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/mo"

	"mindplanner/internal/calendar"
	"mindplanner/internal/model"
	"mindplanner/internal/planner"
	"mindplanner/internal/recurrence"
	"mindplanner/internal/service"
)

const defaultDateLayout = time.DateOnly

var errUnknownTemplate = errors.New("unknown template")

// ruleRequest is the wire form of a recurrence rule; dates are YYYY-MM-DD.
type ruleRequest struct {
	Type           string `json:"type"`
	Count          int    `json:"count,omitempty"`
	CustomInterval int    `json:"customInterval,omitempty"`
	CustomUnit     string `json:"customUnit,omitempty"`
	EndCondition   string `json:"endCondition,omitempty"`
	EndDate        string `json:"endDate,omitempty"`
	EndCount       int    `json:"endCount,omitempty"`
}

func (rr ruleRequest) rule(loc *time.Location) (recurrence.Rule, error) {
	t, err := recurrence.ParseType(rr.Type)
	if err != nil {
		return recurrence.Rule{}, err
	}
	rule := recurrence.Rule{Type: t, Count: rr.Count}
	if t != recurrence.TypeCustom {
		return rule, nil
	}
	if rule.CustomUnit, err = recurrence.ParseUnit(rr.CustomUnit); err != nil {
		return recurrence.Rule{}, err
	}
	if rule.EndCondition, err = recurrence.ParseEndCondition(rr.EndCondition); err != nil {
		return recurrence.Rule{}, err
	}
	rule.CustomInterval = rr.CustomInterval
	rule.EndCount = rr.EndCount
	if rr.EndDate != "" {
		end, err := parseDate(rr.EndDate, loc)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("%w: %v", recurrence.ErrInvalidRule, err)
		}
		rule.EndDate = &end
	}
	return rule, nil
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	if raw == "today" {
		return recurrence.DateOf(time.Now().In(loc)), nil
	}
	t, err := time.ParseInLocation(defaultDateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD or 'today'", raw)
	}
	return t, nil
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return uint(id), nil
}

// --- Recurrence ---

type previewRequest struct {
	Start string      `json:"start"`
	Rule  ruleRequest `json:"rule"`
}

type previewResponse struct {
	Dates         []string `json:"dates"`
	ActivationEnd string   `json:"activationEnd"`
	RRule         string   `json:"rrule"`
}

func (a *API) PreviewRecurrence(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	start, err := parseDate(req.Start, a.loc)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, err := req.Rule.rule(a.loc)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	preview, err := service.PreviewDates(start, rule)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	resp := previewResponse{
		Dates:         make([]string, 0, len(preview.Dates)),
		ActivationEnd: preview.ActivationEnd.Format(defaultDateLayout),
		RRule:         preview.RRule,
	}
	for _, d := range preview.Dates {
		resp.Dates = append(resp.Dates, d.Format(defaultDateLayout))
	}
	a.respondWithJSON(w, http.StatusOK, resp)
}

func (a *API) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := make([]planner.Template, 0, len(planner.Templates))
	for _, t := range planner.Templates {
		templates = append(templates, t)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Key < templates[j].Key })
	a.respondWithJSON(w, http.StatusOK, templates)
}

func (a *API) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.categories.List(r.Context(), userFrom(r))
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	a.respondWithJSON(w, http.StatusOK, categories)
}

// --- Activities ---

type planRequest struct {
	TemplateKey string           `json:"templateKey,omitempty"`
	Template    planner.Template `json:"template"`
	Date        string           `json:"date"`
	Rule        ruleRequest      `json:"rule"`
}

type planResponse struct {
	Activities []model.Activity `json:"activities"`
	GroupID    *string          `json:"groupId,omitempty"`
}

// template resolves the catalogue entry, if any, overlaid with explicit fields.
func (req planRequest) template() (planner.Template, error) {
	if req.TemplateKey == "" {
		return req.Template, nil
	}
	base, ok := planner.TemplateByKey(req.TemplateKey)
	if !ok {
		return planner.Template{}, fmt.Errorf("%w %q", errUnknownTemplate, req.TemplateKey)
	}
	t := req.Template
	if t.Title == "" {
		t.Title = base.Title
	}
	if t.Category == "" {
		t.Category = base.Category
	}
	if t.ImpactType == "" {
		t.ImpactType = base.ImpactType
	}
	if t.DurationMinutes == 0 {
		t.DurationMinutes = base.DurationMinutes
	}
	if t.Emoji == "" {
		t.Emoji = base.Emoji
	}
	if t.DayPart == "" && t.StartTime == nil {
		t.DayPart = base.DayPart
	}
	t.Key = base.Key
	return t, nil
}

func (a *API) PlanActivities(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	date, err := parseDate(req.Date, a.loc)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, err := req.Rule.rule(a.loc)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	tmpl, err := req.template()
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.activities.Plan(r.Context(), userFrom(r), service.PlanInput{Template: tmpl, Date: date, Rule: rule})
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	a.respondWithJSON(w, http.StatusCreated, planResponse{Activities: res.Activities, GroupID: res.GroupID})
}

func (a *API) listRange(r *http.Request) (from, to *time.Time, err error) {
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := parseDate(raw, a.loc)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := parseDate(raw, a.loc)
		if err != nil {
			return nil, nil, err
		}
		to = &t
	}
	return from, to, nil
}

func (a *API) ListActivities(w http.ResponseWriter, r *http.Request) {
	from, to, err := a.listRange(r)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := model.ActivityStatus(strings.ToLower(r.URL.Query().Get("status")))
	activities, err := a.activities.ListByStatus(r.Context(), userFrom(r), status, from, to)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	a.respondWithJSON(w, http.StatusOK, activities)
}

func (a *API) ExportActivities(w http.ResponseWriter, r *http.Request) {
	from, to, err := a.listRange(r)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := model.ActivityStatus(strings.ToLower(r.URL.Query().Get("status")))
	activities, err := a.activities.ListByStatus(r.Context(), userFrom(r), status, from, to)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	cal, err := calendar.Build(activities, a.loc, time.Now())
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := calendar.Encode(&buf, cal); err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="activities.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (a *API) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	activity, err := a.activities.Get(r.Context(), userFrom(r), id)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	a.respondWithJSON(w, http.StatusOK, activity)
}

// patchRequest fields left out of the body stay untouched.
type patchRequest struct {
	Title           *string `json:"title"`
	Category        *string `json:"category"`
	ImpactType      *string `json:"impactType"`
	DurationMinutes *int    `json:"durationMinutes"`
	Emoji           *string `json:"emoji"`
	Description     *string `json:"description"`
	ReminderMinutes *int    `json:"reminderMinutes"`
	Status          *string `json:"status"`
	Date            *string `json:"date"`
	StartTime       *string `json:"startTime"`
}

func optional[T any](v *T) mo.Option[T] {
	if v == nil {
		return mo.None[T]()
	}
	return mo.Some(*v)
}

func (req patchRequest) patch(loc *time.Location) (planner.Patch, error) {
	p := planner.Patch{
		Title:           optional(req.Title),
		Category:        optional(req.Category),
		ImpactType:      optional(req.ImpactType),
		DurationMinutes: optional(req.DurationMinutes),
		Emoji:           optional(req.Emoji),
		Description:     optional(req.Description),
		ReminderMinutes: optional(req.ReminderMinutes),
	}
	if req.Status != nil {
		p.Status = mo.Some(model.ActivityStatus(strings.ToLower(*req.Status)))
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date, loc)
		if err != nil {
			return planner.Patch{}, err
		}
		p.Date = mo.Some(d)
	}
	if req.StartTime != nil {
		at, err := planner.ParseTimeOfDay(*req.StartTime)
		if err != nil {
			return planner.Patch{}, err
		}
		p.StartTime = mo.Some(at)
	}
	return p, nil
}

type mutationResponse struct {
	Affected int64           `json:"affected"`
	Scope    planner.Scope   `json:"scope"`
	Activity *model.Activity `json:"activity,omitempty"`
}

func (a *API) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	scope, err := planner.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req patchRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	patch, err := req.patch(a.loc)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := userFrom(r)
	n, err := a.activities.Update(r.Context(), user, id, scope, patch)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	activity, err := a.activities.Get(r.Context(), user, id)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	a.respondWithJSON(w, http.StatusOK, mutationResponse{Affected: n, Scope: scope, Activity: activity})
}

func (a *API) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	scope, err := planner.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := a.activities.Delete(r.Context(), userFrom(r), id, scope)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	a.respondWithJSON(w, http.StatusOK, mutationResponse{Affected: n, Scope: scope})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (a *API) SetActivityStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	activity, err := a.activities.SetStatus(r.Context(), userFrom(r), id, model.ActivityStatus(strings.ToLower(req.Status)))
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	a.respondWithJSON(w, http.StatusOK, activity)
}

// --- Presets ---

type presetRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Rule        ruleRequest            `json:"recurrenceRule"`
	Activities  []model.PresetActivity `json:"activities"`
}

func (a *API) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := a.presets.List(r.Context(), userFrom(r))
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	if presets == nil {
		presets = []model.Preset{}
	}
	a.respondWithJSON(w, http.StatusOK, presets)
}

func (a *API) CreatePreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	rule, err := req.Rule.rule(a.loc)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	preset := &model.Preset{Name: req.Name, Description: req.Description, Rule: rule, Activities: req.Activities}
	if err := a.presets.Create(r.Context(), userFrom(r), preset); err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	a.respondWithJSON(w, http.StatusCreated, preset)
}

func (a *API) GetPreset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	preset, err := a.presets.Get(r.Context(), userFrom(r), id)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	a.respondWithJSON(w, http.StatusOK, preset)
}

func (a *API) DeletePreset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.presets.Delete(r.Context(), userFrom(r), id); err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type activateRequest struct {
	Start string       `json:"start"`
	Rule  *ruleRequest `json:"recurrenceRule,omitempty"`
}

type activateResponse struct {
	Preset  *model.Preset `json:"preset"`
	Created int           `json:"created"`
}

func (a *API) ActivatePreset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := activateRequest{Start: "today"}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			a.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}
	if req.Start == "" {
		req.Start = "today"
	}
	start, err := parseDate(req.Start, a.loc)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var override *recurrence.Rule
	if req.Rule != nil {
		rule, err := req.Rule.rule(a.loc)
		if err != nil {
			a.respondWithServiceError(w, err)
			return
		}
		override = &rule
	}

	res, err := a.presets.Activate(r.Context(), userFrom(r), id, start, override)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	a.respondWithJSON(w, http.StatusOK, activateResponse{Preset: res.Preset, Created: res.Created})
}

func (a *API) DeactivatePreset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := a.presets.Deactivate(r.Context(), userFrom(r), id)
	if err != nil {
		a.respondWithServiceError(w, err)
		return
	}
	a.respondWithJSON(w, http.StatusOK, map[string]int64{"removed": n})
}
