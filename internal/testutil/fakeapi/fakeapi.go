// Package fakeapi is an in-process stand-in for the SuiteDash secure API,
// used by tests that need real HTTP round trips.
package fakeapi

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"suitedash/backend"
)

const (
	PublicID  = "test-public-id"
	SecretKey = "test-secret-key"
)

// Request is a recorded inbound request.
type Request struct {
	Method    string
	Path      string
	Query     string
	UserAgent string
}

// Server serves contacts, projects, files and tasks from memory.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	records  map[backend.ResourceType][]map[string]any
	nextID   int
	requests []Request
	failWith int
	delay    time.Duration
	release  chan struct{}
}

// New starts a fake API. Callers must Close it.
func New() *Server {
	s := &Server{
		records: make(map[backend.ResourceType][]map[string]any),
		nextID:  1,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.record, s.authenticate, s.inject)

	e.GET("/contact/:id", s.getRecord(backend.Contacts))
	e.GET("/:type", s.list)
	e.GET("/:type/:id", s.get)
	e.POST("/:type", s.create)
	e.PUT("/:type/:id", s.update)
	e.DELETE("/:type/:id", s.delete)

	s.Server = httptest.NewServer(e)
	return s
}

// Seed appends n generated records of type rt and returns their ids.
func (s *Server) Seed(rt backend.ResourceType, n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := s.nextID
		s.nextID++
		rec := map[string]any{"id": id}
		switch rt {
		case backend.Contacts:
			rec["first_name"] = fmt.Sprintf("First%d", id)
			rec["last_name"] = fmt.Sprintf("Last%d", id)
			rec["email"] = fmt.Sprintf("contact%d@example.com", id)
		case backend.Files:
			rec["name"] = fmt.Sprintf("file-%d.pdf", id)
			rec["type"] = "pdf"
		default:
			rec["name"] = fmt.Sprintf("%s %d", rt.Singular(), id)
			rec["status"] = "active"
		}
		s.records[rt] = append(s.records[rt], rec)
		ids = append(ids, strconv.Itoa(id))
	}
	return ids
}

// Add stores rec as-is under rt, assigning an id when missing.
func (s *Server) Add(rt backend.ResourceType, rec map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(rt, rec)
}

func (s *Server) insert(rt backend.ResourceType, rec map[string]any) string {
	if _, ok := rec["id"]; !ok {
		rec["id"] = s.nextID
		s.nextID++
	}
	s.records[rt] = append(s.records[rt], rec)
	return fmt.Sprint(rec["id"])
}

// Records returns a copy of the stored records of rt.
func (s *Server) Records(rt backend.ResourceType) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.records[rt]))
	copy(out, s.records[rt])
	return out
}

// FailWith makes every following request answer with status. Zero restores
// normal service. 429 responses carry Retry-After: 30.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = status
}

// Hold blocks every following request until the returned func is called.
func (s *Server) Hold() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.release = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.release == ch {
				s.release = nil
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns the recorded requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount counts recorded requests whose path equals path.
func (s *Server) RequestCount(path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

// ResetRequests clears the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    c.Request().Method,
			Path:      c.Request().URL.Path,
			Query:     c.Request().URL.RawQuery,
			UserAgent: c.Request().UserAgent(),
		})
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Request().Header
		if h.Get("X-Public-ID") != PublicID || h.Get("X-Secret-Key") != SecretKey {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		}
		return next(c)
	}
}

func (s *Server) inject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		status, release := s.failWith, s.release
		s.mu.Unlock()

		if release != nil {
			select {
			case <-release:
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
		}
		if status == http.StatusTooManyRequests {
			c.Response().Header().Set("Retry-After", "30")
		}
		if status != 0 {
			return c.JSON(status, map[string]string{"message": http.StatusText(status)})
		}
		return next(c)
	}
}

func resourceType(c echo.Context) (backend.ResourceType, error) {
	rt, err := backend.ParseResourceType(c.Param("type"))
	if err != nil || string(rt) != c.Param("type") {
		return "", echo.NewHTTPError(http.StatusNotFound, "unknown resource")
	}
	return rt, nil
}

func queryInt(c echo.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil && v > 0 {
		return v
	}
	return def
}

func (s *Server) list(c echo.Context) error {
	rt, err := resourceType(c)
	if err != nil {
		return err
	}
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 20)
	projectID := c.QueryParam("project_id")

	s.mu.Lock()
	var matched []map[string]any
	for _, rec := range s.records[rt] {
		if projectID != "" && fmt.Sprint(rec["project_id"]) != projectID {
			continue
		}
		matched = append(matched, rec)
	}
	s.mu.Unlock()

	start := (page - 1) * perPage
	out := []map[string]any{}
	if start < len(matched) {
		end := start + perPage
		if end > len(matched) {
			end = len(matched)
		}
		out = matched[start:end]
	}
	return c.JSON(http.StatusOK, map[string]any{
		string(rt): out,
		"meta":     map[string]int{"page": page, "per_page": perPage, "total": len(matched)},
	})
}

func (s *Server) find(rt backend.ResourceType, id string) (int, map[string]any) {
	for i, rec := range s.records[rt] {
		if fmt.Sprint(rec["id"]) == id {
			return i, rec
		}
	}
	return -1, nil
}

func (s *Server) get(c echo.Context) error {
	rt, err := resourceType(c)
	if err != nil {
		return err
	}
	if rt == backend.Contacts {
		return echo.NewHTTPError(http.StatusNotFound, "use /contact/:id")
	}
	return s.getRecord(rt)(c)
}

// getRecord wraps contacts in a {"contact": ...} envelope and returns the
// other types bare.
func (s *Server) getRecord(rt backend.ResourceType) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		_, rec := s.find(rt, c.Param("id"))
		s.mu.Unlock()
		if rec == nil {
			return echo.NewHTTPError(http.StatusNotFound, rt.Singular()+" not found")
		}
		if rt == backend.Contacts {
			return c.JSON(http.StatusOK, map[string]any{"contact": rec})
		}
		return c.JSON(http.StatusOK, rec)
	}
}

func (s *Server) create(c echo.Context) error {
	rt, err := resourceType(c)
	if err != nil {
		return err
	}
	if rt == backend.Files && strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return s.upload(c)
	}

	body := map[string]any{}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	delete(body, "id")

	s.mu.Lock()
	s.insert(rt, body)
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, body)
}

func (s *Server) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file part")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	size, _ := io.Copy(io.Discard, f)

	rec := map[string]any{"name": fh.Filename, "size": size, "type": fileType(fh.Filename)}
	if pid := c.FormValue("project_id"); pid != "" {
		rec["project_id"] = pid
	}

	s.mu.Lock()
	s.insert(backend.Files, rec)
	s.mu.Unlock()
	return c.JSON(http.StatusCreated, map[string]any{"file": rec})
}

func fileType(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return "bin"
}

func (s *Server) update(c echo.Context) error {
	rt, err := resourceType(c)
	if err != nil {
		return err
	}
	if !rt.Mutable() {
		return echo.NewHTTPError(http.StatusMethodNotAllowed)
	}
	body := map[string]any{}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, rec := s.find(rt, c.Param("id"))
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, rt.Singular()+" not found")
	}
	for k, v := range body {
		if k != "id" {
			rec[k] = v
		}
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) delete(c echo.Context) error {
	rt, err := resourceType(c)
	if err != nil {
		return err
	}
	if !rt.Mutable() {
		return echo.NewHTTPError(http.StatusMethodNotAllowed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i, _ := s.find(rt, c.Param("id"))
	if i < 0 {
		return echo.NewHTTPError(http.StatusNotFound, rt.Singular()+" not found")
	}
	s.records[rt] = append(s.records[rt][:i], s.records[rt][i+1:]...)
	return c.NoContent(http.StatusNoContent)
}
