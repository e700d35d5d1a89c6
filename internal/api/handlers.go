// Package api exposes the query engine over HTTP. Every request runs
// its own engine instance against the shared read-only timetable, so
// requests are trivially parallel; responses are cached in redis when
// it is available.
package api

import (
	"encoding/json"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/passbi/raptor_core/internal/cache"
	"github.com/passbi/raptor_core/internal/raptor"
	"github.com/passbi/raptor_core/internal/timetable"
)

// Handlers serves query endpoints over one loaded timetable.
type Handlers struct {
	tt       *timetable.Timetable
	useCache bool
}

// New creates the handler set. useCache enables the redis result
// cache; the API works without it.
func New(tt *timetable.Timetable, useCache bool) *Handlers {
	return &Handlers{tt: tt, useCache: useCache}
}

// ArrivalResponse is the body of /v1/arrival. Rounds holds the
// per-round arrival labels at the target; null entries mean the target
// was not reachable within that many trips. Arrival repeats the final
// label for convenience.
type ArrivalResponse struct {
	Source  uint32   `json:"source"`
	Target  uint32   `json:"target"`
	Dep     int32    `json:"dep"`
	Rounds  []*int32 `json:"rounds"`
	Arrival *int32   `json:"arrival"`
}

// ProfileResponse is the body of /v1/profile.
type ProfileResponse struct {
	Source   uint32           `json:"source"`
	Target   uint32           `json:"target"`
	Journeys []raptor.Journey `json:"journeys"`
}

// Health handles GET /health.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"dataset": h.tt.Name,
		"algo":    string(h.tt.Algo),
	})
}

// Arrival handles GET /v1/arrival?source=&target=&dep=.
func (h *Handlers) Arrival(c *fiber.Ctx) error {
	source, err := parseStopParam(c, "source")
	if err != nil {
		return badRequest(c, err)
	}
	target, err := parseStopParam(c, "target")
	if err != nil {
		return badRequest(c, err)
	}
	dep, err := strconv.ParseInt(c.Query("dep", "0"), 10, 32)
	if err != nil {
		return badRequest(c, fiber.NewError(fiber.StatusBadRequest, "invalid 'dep' parameter"))
	}

	key := cache.QueryKey(h.tt.Name, string(h.tt.Algo), source, target, int32(dep))
	if body := h.cached(c, key); body != nil {
		c.Set("Content-Type", "application/json")
		return c.Send(body)
	}

	engine := raptor.New(h.tt)
	rounds, err := engine.Query(source, target, timetable.Time(dep))
	if err != nil {
		return badRequest(c, err)
	}

	resp := ArrivalResponse{
		Source: source,
		Target: target,
		Dep:    int32(dep),
		Rounds: timesToJSON(rounds),
	}
	if len(rounds) > 0 {
		resp.Arrival = timeToJSON(rounds[len(rounds)-1])
	}

	return h.respond(c, key, resp)
}

// Profile handles GET /v1/profile?source=&target=.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	source, err := parseStopParam(c, "source")
	if err != nil {
		return badRequest(c, err)
	}
	target, err := parseStopParam(c, "target")
	if err != nil {
		return badRequest(c, err)
	}

	key := cache.ProfileKey(h.tt.Name, string(h.tt.Algo), source, target)
	if body := h.cached(c, key); body != nil {
		c.Set("Content-Type", "application/json")
		return c.Send(body)
	}

	engine := raptor.New(h.tt)
	journeys, err := engine.ProfileQuery(source, target)
	if err != nil {
		return badRequest(c, err)
	}
	if journeys == nil {
		journeys = []raptor.Journey{}
	}

	return h.respond(c, key, ProfileResponse{Source: source, Target: target, Journeys: journeys})
}

// cached returns the cached body for key, or nil on miss or when the
// cache is disabled or unreachable.
func (h *Handlers) cached(c *fiber.Ctx, key string) []byte {
	if !h.useCache {
		return nil
	}
	body, err := cache.Get(c.Context(), key)
	if err != nil {
		log.Printf("cache get %s: %v", key, err)
		return nil
	}
	return body
}

// respond sends resp as JSON and caches the body best-effort.
func (h *Handlers) respond(c *fiber.Ctx, key string, resp interface{}) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if h.useCache {
		if err := cache.Set(c.Context(), key, body, cache.TTL()); err != nil {
			log.Printf("cache set %s: %v", key, err)
		}
	}
	c.Set("Content-Type", "application/json")
	return c.Send(body)
}

func parseStopParam(c *fiber.Ctx, name string) (uint32, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "missing required parameter: "+name)
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid '"+name+"' parameter")
	}
	return uint32(v), nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func timeToJSON(t timetable.Time) *int32 {
	if !t.IsReachable() {
		return nil
	}
	v := int32(t)
	return &v
}

func timesToJSON(times []timetable.Time) []*int32 {
	out := make([]*int32, len(times))
	for i, t := range times {
		out[i] = timeToJSON(t)
	}
	return out
}
